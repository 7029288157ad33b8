package gsscore

import (
	"github.com/tetraminz/coaching_insights/internal/classify"
	"github.com/tetraminz/coaching_insights/internal/dataset"
)

// ParticipantStats counts one participant's sessions. Sessions below the
// split threshold are kept out of the main counts and tracked separately.
type ParticipantStats struct {
	ParticipantID             string
	TotalSessions             int
	RefrigeratorSessions      int
	NonRefrigeratorSessions   int
	SplitSessions             int
	RefrigeratorSplitSessions int
	SessionIDs                []string
	RefrigeratorSessionIDs    []string
	NonRefrigeratorSessionIDs []string
	SplitSessionIDs           []string
}

// Rate is the refrigerator share of non-split sessions, in percent.
func (s ParticipantStats) Rate() float64 {
	return percent(s.RefrigeratorSessions, s.TotalSessions)
}

// RateWithSplit counts split sessions on both sides of the ratio.
func (s ParticipantStats) RateWithSplit() float64 {
	return percent(s.RefrigeratorSessions+s.RefrigeratorSplitSessions, s.TotalSessions+s.SplitSessions)
}

type StatsOptions struct {
	TestAccountSuffixes  []string
	SplitMinUserMessages int
}

// ComputeParticipantStats walks sessions in order and returns participants in
// order of first appearance.
func ComputeParticipantStats(sessions []dataset.Session, messages map[string][]dataset.Message, opts StatsOptions) []*ParticipantStats {
	byID := map[string]*ParticipantStats{}
	var ordered []*ParticipantStats

	for _, session := range sessions {
		pid := session.Participant.Identifier
		if pid == "" || dataset.IsTestAccount(pid, opts.TestAccountSuffixes) || session.ID == "" {
			continue
		}
		stats, ok := byID[pid]
		if !ok {
			stats = &ParticipantStats{ParticipantID: pid}
			byID[pid] = stats
			ordered = append(ordered, stats)
		}

		sessionMessages := messages[session.ID]
		refrigerator := classify.HasRefrigeratorExample(session, sessionMessages)
		if classify.IsStrictSplit(sessionMessages, opts.SplitMinUserMessages) {
			stats.SplitSessions++
			stats.SplitSessionIDs = append(stats.SplitSessionIDs, session.ID)
			if refrigerator {
				stats.RefrigeratorSplitSessions++
			}
			continue
		}

		stats.TotalSessions++
		stats.SessionIDs = append(stats.SessionIDs, session.ID)
		if refrigerator {
			stats.RefrigeratorSessions++
			stats.RefrigeratorSessionIDs = append(stats.RefrigeratorSessionIDs, session.ID)
		} else {
			stats.NonRefrigeratorSessions++
			stats.NonRefrigeratorSessionIDs = append(stats.NonRefrigeratorSessionIDs, session.ID)
		}
	}
	return ordered
}

func percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return 100.0 * float64(part) / float64(total)
}
