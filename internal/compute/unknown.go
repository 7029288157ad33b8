package compute

import (
	"github.com/tetraminz/coaching_insights/internal/classify"
)

// MessageStats describes participant message counts of Unknown-method
// sessions for one bot.
type MessageStats struct {
	Bot             string  `json:"bot"`
	Sessions        int     `json:"sessions"`
	TotalMessages   int     `json:"total_messages"`
	Mean            float64 `json:"mean"`
	Median          float64 `json:"median"`
	WithMessages    int     `json:"with_messages"`
	WithoutMessages int     `json:"without_messages"`
	WithPercent     float64 `json:"with_percent"`
	Min             int     `json:"min"`
	Max             int     `json:"max"`
	Q1              float64 `json:"q1"`
	Q3              float64 `json:"q3"`
	HasQuartiles    bool    `json:"has_quartiles"`
}

// UnknownMessageStats counts user messages in valid sessions of bot whose
// method could not be determined.
func UnknownMessageStats(records []Record, bot classify.BotVersion) MessageStats {
	var counts []int
	for _, r := range records {
		if !r.Valid() || r.Class.Method != classify.MethodUnknown {
			continue
		}
		if !bot.Matches(r.Session, r.Messages) {
			continue
		}
		counts = append(counts, r.Metrics.UserMessages)
	}

	stats := MessageStats{Bot: bot.Key, Sessions: len(counts)}
	if len(counts) == 0 {
		return stats
	}

	stats.Min, stats.Max = counts[0], counts[0]
	for _, c := range counts {
		stats.TotalMessages += c
		if c > 0 {
			stats.WithMessages++
		}
		if c < stats.Min {
			stats.Min = c
		}
		if c > stats.Max {
			stats.Max = c
		}
	}
	stats.WithoutMessages = stats.Sessions - stats.WithMessages
	stats.WithPercent = percent(stats.WithMessages, stats.Sessions)

	values := ints(counts)
	stats.Mean = Mean(values)
	stats.Median = Median(values)
	stats.Q1, _, stats.Q3, stats.HasQuartiles = Quartiles(values)
	return stats
}

// UnknownSessions lists non-test sessions of bot that have messages but no
// detectable coaching method. Split sessions are kept.
func UnknownSessions(records []Record, bot classify.BotVersion) []string {
	var ids []string
	for _, r := range records {
		if r.Class.Test || len(r.Messages) == 0 {
			continue
		}
		if !bot.Matches(r.Session, r.Messages) {
			continue
		}
		if r.Class.DetectedMethod == classify.MethodUnknown {
			ids = append(ids, r.Session.ID)
		}
	}
	return ids
}
