// Package compute aggregates classified sessions into the numbers the
// reports show.
package compute

import (
	"github.com/tetraminz/coaching_insights/internal/classify"
	"github.com/tetraminz/coaching_insights/internal/dataset"
	"github.com/tetraminz/coaching_insights/internal/rating"
)

// Record joins a session with its messages, classification and derived values.
type Record struct {
	Session     dataset.Session
	Messages    []dataset.Message
	HasMessages bool
	Class       classify.Classification
	Metrics     SessionMetrics

	Rating    int
	HasRating bool

	Annotated              bool
	Refrigerator           bool
	RefrigeratorAnnotation bool
}

func (r Record) Valid() bool {
	return !r.Class.Excluded()
}

// BuildRecords classifies every session of the corpus, in corpus order.
func BuildRecords(corpus dataset.Corpus, classifier *classify.Classifier) []Record {
	records := make([]Record, 0, len(corpus.Sessions))
	for _, session := range corpus.Sessions {
		messages, ok := corpus.Messages[session.ID]
		records = append(records, NewRecord(session, messages, ok, classifier))
	}
	return records
}

func NewRecord(session dataset.Session, messages []dataset.Message, hasMessages bool, classifier *classify.Classifier) Record {
	record := Record{
		Session:                session,
		Messages:               messages,
		HasMessages:            hasMessages,
		Class:                  classifier.Classify(session, messages),
		Metrics:                ComputeSessionMetrics(messages),
		Annotated:              classify.IsAnnotated(session, messages),
		Refrigerator:           classify.HasRefrigeratorExample(session, messages),
		RefrigeratorAnnotation: classify.HasRefrigeratorAnnotation(session, messages),
	}
	if r, ok := rating.Extract(messages); ok {
		record.Rating = r.Value
		record.HasRating = true
	}
	return record
}

// ValidRecords drops split and test sessions.
func ValidRecords(records []Record) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if r.Valid() {
			out = append(out, r)
		}
	}
	return out
}

// RatingStatistics runs the rating coverage over valid sessions.
func RatingStatistics(records []Record) rating.Statistics {
	valid := ValidRecords(records)
	sets := make([][]dataset.Message, 0, len(valid))
	for _, r := range valid {
		sets = append(sets, r.Messages)
	}
	return rating.ComputeStatistics(sets)
}
