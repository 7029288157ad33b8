package compute

import (
	"sort"

	"github.com/tetraminz/coaching_insights/internal/classify"
	"github.com/tetraminz/coaching_insights/internal/dataset"
)

const (
	spikeTop          = 5
	spikeSampleTurns  = 3
	spikeSnippetRunes = 200
)

type SpikeQuery struct {
	Method        classify.Method
	SessionNumber int
}

type SpikeSession struct {
	SessionID     string `json:"session_id"`
	ParticipantID string `json:"participant_id"`
	CreatedAt     string `json:"created_at"`
	UserWords     int    `json:"user_words"`
}

// SpikeDetail looks inside the wordiest matching session.
type SpikeDetail struct {
	SessionID    string   `json:"session_id"`
	UserMessages []string `json:"user_messages"`
	UserTotal    int      `json:"user_total"`
	SessionTags  []string `json:"session_tags"`
	MessageTags  []string `json:"message_tags"`
}

type SpikeReport struct {
	Query   SpikeQuery     `json:"query"`
	Matches int            `json:"matches"`
	Top     []SpikeSession `json:"top"`
	Detail  *SpikeDetail   `json:"detail,omitempty"`
}

// InvestigateSpike finds the sessions behind one point of the progression
// chart. The method is the detected one, control sessions included.
func InvestigateSpike(records []Record, q SpikeQuery) SpikeReport {
	report := SpikeReport{Query: q}
	var matched []Record
	for participant, sessions := range ParticipantSessions(records) {
		if q.SessionNumber < 1 || q.SessionNumber > len(sessions) {
			continue
		}
		r := sessions[q.SessionNumber-1]
		if r.Class.DetectedMethod != q.Method {
			continue
		}
		matched = append(matched, r)
		report.Top = append(report.Top, SpikeSession{
			SessionID:     r.Session.ID,
			ParticipantID: participant,
			CreatedAt:     r.Session.CreatedAt,
			UserWords:     r.Metrics.UserWords,
		})
	}
	report.Matches = len(matched)
	if len(matched) == 0 {
		return report
	}

	order := make([]int, len(matched))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ra, rb := matched[order[a]], matched[order[b]]
		if ra.Metrics.UserWords != rb.Metrics.UserWords {
			return ra.Metrics.UserWords > rb.Metrics.UserWords
		}
		return ra.Session.ID < rb.Session.ID
	})

	top := make([]SpikeSession, 0, spikeTop)
	for _, idx := range order {
		if len(top) == spikeTop {
			break
		}
		top = append(top, report.Top[idx])
	}
	report.Top = top
	detail := spikeDetail(matched[order[0]])
	report.Detail = &detail
	return report
}

func spikeDetail(r Record) SpikeDetail {
	detail := SpikeDetail{SessionID: r.Session.ID, SessionTags: r.Session.Tags}
	tags := map[string]struct{}{}
	for _, message := range r.Messages {
		for _, tag := range message.Tags {
			tags[tag] = struct{}{}
		}
		if message.Role != dataset.RoleUser {
			continue
		}
		detail.UserTotal++
		if message.Content != "" && len(detail.UserMessages) < spikeSampleTurns {
			detail.UserMessages = append(detail.UserMessages, truncate(message.Content, spikeSnippetRunes))
		}
	}
	for tag := range tags {
		detail.MessageTags = append(detail.MessageTags, tag)
	}
	sort.Strings(detail.MessageTags)
	return detail
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
