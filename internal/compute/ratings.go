package compute

import "github.com/tetraminz/coaching_insights/internal/rating"

type SessionRating struct {
	SessionID string `json:"session_id"`
	Rating    int    `json:"rating"`
}

// RatingCoverage is the broad rating audit: every non-test session with
// messages, split sessions included.
type RatingCoverage struct {
	TotalSessions  int             `json:"total_sessions"`
	TestExcluded   int             `json:"test_excluded"`
	WithMessages   int             `json:"with_messages"`
	LooseQuestions int             `json:"loose_questions"`
	ExactQuestions int             `json:"exact_questions"`
	Ratings        []SessionRating `json:"ratings"`
}

func (c RatingCoverage) QuestionRatio() float64 {
	return ratio(c.LooseQuestions, c.WithMessages)
}

func (c RatingCoverage) ExactRatio() float64 {
	return ratio(c.ExactQuestions, c.WithMessages)
}

func (c RatingCoverage) RatingRatio() float64 {
	return ratio(len(c.Ratings), c.WithMessages)
}

func ComputeRatingCoverage(records []Record) RatingCoverage {
	coverage := RatingCoverage{TotalSessions: len(records)}
	for _, r := range records {
		if r.Class.Test {
			coverage.TestExcluded++
			continue
		}
		if r.Session.ID == "" || len(r.Messages) == 0 {
			continue
		}
		coverage.WithMessages++
		if rating.HasLooseQuestion(r.Messages) {
			coverage.LooseQuestions++
		}
		if rating.HasExactQuestionAtEnd(r.Messages) {
			coverage.ExactQuestions++
		}
		if r.HasRating {
			coverage.Ratings = append(coverage.Ratings, SessionRating{SessionID: r.Session.ID, Rating: r.Rating})
		}
	}
	return coverage
}

func ratio(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total)
}
