package rating

import "github.com/tetraminz/coaching_insights/internal/dataset"

// Statistics summarises rating coverage over a set of sessions.
type Statistics struct {
	TotalSessions        int     `json:"total_sessions"`
	SessionsWithQuestion int     `json:"sessions_with_rating_questions"`
	SessionsWithRating   int     `json:"sessions_with_ratings"`
	QuestionPercent      float64 `json:"rating_question_percentage"`
	RatingPercent        float64 `json:"rating_extraction_percentage"`
}

// ComputeStatistics takes one message set per session.
func ComputeStatistics(sessions [][]dataset.Message) Statistics {
	stats := Statistics{TotalSessions: len(sessions)}
	for _, messages := range sessions {
		if HasLooseQuestion(messages) {
			stats.SessionsWithQuestion++
		}
		if _, ok := Extract(messages); ok {
			stats.SessionsWithRating++
		}
	}
	if stats.TotalSessions > 0 {
		stats.QuestionPercent = 100.0 * float64(stats.SessionsWithQuestion) / float64(stats.TotalSessions)
		stats.RatingPercent = 100.0 * float64(stats.SessionsWithRating) / float64(stats.TotalSessions)
	}
	return stats
}
