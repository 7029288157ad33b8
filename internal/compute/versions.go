package compute

import (
	"github.com/tetraminz/coaching_insights/internal/classify"
)

// VersionMetrics is one row of the summary table.
type VersionMetrics struct {
	Name                string                      `json:"name"`
	Key                 string                      `json:"key"`
	TotalSessions       int                         `json:"total_sessions"`
	AnnotatedSessions   int                         `json:"annotated_sessions"`
	RefrigeratorPercent float64                     `json:"refrigerator_examples_percent"`
	MethodRefrigerator  map[classify.Method]float64 `json:"method_refrigerator_rates"`
	MedianUserWords     float64                     `json:"median_human_words_per_session"`
	AverageRating       float64                     `json:"average_session_rating"`
	RatedSessions       int                         `json:"rated_sessions"`
}

// ComputeVersionMetrics evaluates every bot against all valid sessions. A
// session matching two bots counts for both.
func ComputeVersionMetrics(records []Record, bots []classify.BotVersion) []VersionMetrics {
	out := make([]VersionMetrics, 0, len(bots))
	for _, bot := range bots {
		var matched []Record
		for _, r := range records {
			if r.Valid() && bot.Matches(r.Session, r.Messages) {
				matched = append(matched, r)
			}
		}
		out = append(out, versionMetrics(bot, matched))
	}
	return out
}

func versionMetrics(bot classify.BotVersion, records []Record) VersionMetrics {
	metrics := VersionMetrics{
		Name:               bot.Name,
		Key:                bot.Key,
		TotalSessions:      len(records),
		MethodRefrigerator: map[classify.Method]float64{},
	}

	annotated, refrigerator := 0, 0
	var words, ratings []float64
	type tally struct{ annotated, refrigerator int }
	byMethod := map[classify.Method]*tally{}

	for _, r := range records {
		if r.Annotated {
			annotated++
			if r.Refrigerator {
				refrigerator++
			}
		}

		t, ok := byMethod[r.Class.DetectedMethod]
		if !ok {
			t = &tally{}
			byMethod[r.Class.DetectedMethod] = t
		}
		if r.RefrigeratorAnnotation {
			t.annotated++
			if r.Refrigerator {
				t.refrigerator++
			}
		}

		if r.HasMessages {
			words = append(words, float64(r.Metrics.UserWords))
		}
		if r.HasRating {
			ratings = append(ratings, float64(r.Rating))
		}
	}

	metrics.AnnotatedSessions = annotated
	metrics.RefrigeratorPercent = percent(refrigerator, annotated)
	for method, t := range byMethod {
		metrics.MethodRefrigerator[method] = percent(t.refrigerator, t.annotated)
	}
	metrics.MedianUserWords = Median(words)
	metrics.AverageRating = Mean(ratings)
	metrics.RatedSessions = len(ratings)
	return metrics
}

// MethodTable holds one value per method and bot key.
type MethodTable map[classify.Method]map[string]float64

func newMethodTable(bots []classify.BotVersion) MethodTable {
	table := MethodTable{}
	for _, method := range classify.Methods {
		table[method] = map[string]float64{}
		for _, bot := range bots {
			table[method][bot.Key] = 0
		}
	}
	return table
}

func (t MethodTable) Get(method classify.Method, key string) float64 {
	return t[method][key]
}

// MethodTables are the method x version grids of the dashboard.
type MethodTables struct {
	MedianWords         MethodTable `json:"median_words"`
	MedianWordsFiltered MethodTable `json:"median_words_filtered"`
	MedianMessages      MethodTable `json:"median_messages"`
	AverageRating       MethodTable `json:"average_rating"`
}

// ComputeMethodTables groups valid sessions by method and first matching
// bot. For the word and message medians Control sessions land on the Unknown
// row and keep zero values; the coaching bots only count sessions with a
// positive value. Ratings are grouped by the detected method.
func ComputeMethodTables(records []Record, bots []classify.BotVersion, limits OutlierLimits) MethodTables {
	type cell struct {
		method classify.Method
		key    string
	}
	words := map[cell][]float64{}
	filtered := map[cell][]float64{}
	messages := map[cell][]float64{}
	ratings := map[cell][]float64{}

	for _, r := range records {
		if !r.Valid() || r.Class.Bot == nil {
			continue
		}
		c := cell{method: r.Class.Method, key: r.Class.Bot.Key}
		control := r.Class.Bot.Control

		if control || r.Metrics.UserWords > 0 {
			words[c] = append(words[c], float64(r.Metrics.UserWords))
			if !limits.IsOutlier(r.Metrics) {
				filtered[c] = append(filtered[c], float64(r.Metrics.UserWords))
			}
		}
		if control || r.Metrics.UserMessages > 0 {
			messages[c] = append(messages[c], float64(r.Metrics.UserMessages))
		}
		if r.HasRating {
			detected := cell{method: r.Class.DetectedMethod, key: c.key}
			ratings[detected] = append(ratings[detected], float64(r.Rating))
		}
	}

	tables := MethodTables{
		MedianWords:         newMethodTable(bots),
		MedianWordsFiltered: newMethodTable(bots),
		MedianMessages:      newMethodTable(bots),
		AverageRating:       newMethodTable(bots),
	}
	fill := func(table MethodTable, values map[cell][]float64, agg func([]float64) float64) {
		for c, v := range values {
			if table[c.method] == nil {
				table[c.method] = map[string]float64{}
			}
			table[c.method][c.key] = agg(v)
		}
	}
	fill(tables.MedianWords, words, Median)
	fill(tables.MedianWordsFiltered, filtered, Median)
	fill(tables.MedianMessages, messages, Median)
	fill(tables.AverageRating, ratings, Mean)
	return tables
}
