package compute

import (
	"sort"

	"github.com/tetraminz/coaching_insights/internal/classify"
)

const (
	ViewByMethod        = "by_method"
	ViewByMethodVersion = "by_method_version"
	ViewByVersion       = "by_version"
)

// Series maps a participant's session number to average user words.
type Series map[int]float64

type Progression struct {
	ByMethod        map[string]Series `json:"by_method"`
	ByMethodVersion map[string]Series `json:"by_method_version"`
	ByVersion       map[string]Series `json:"by_version"`
}

type ProgressionOptions struct {
	MaxSessionNumber int
	ExcludeOutliers  bool
	Limits           OutlierLimits
}

// MethodVersionKey names a by_method_version series.
func MethodVersionKey(method classify.Method, botKey string) string {
	return string(method) + "_" + botKey
}

// ParticipantSessions groups valid sessions per participant in creation
// order. Sessions without a participant are dropped.
func ParticipantSessions(records []Record) map[string][]Record {
	grouped := map[string][]Record{}
	for _, r := range records {
		id := r.Session.Participant.Identifier
		if !r.Valid() || id == "" {
			continue
		}
		grouped[id] = append(grouped[id], r)
	}
	for _, sessions := range grouped {
		sort.SliceStable(sessions, func(i, j int) bool {
			return sessions[i].Session.CreatedAt < sessions[j].Session.CreatedAt
		})
	}
	return grouped
}

// ComputeProgression averages user words by session number. Session numbers
// come from the unfiltered order, so skipping an outlier leaves a gap.
func ComputeProgression(records []Record, bots []classify.BotVersion, opts ProgressionOptions) Progression {
	type acc struct {
		sum   float64
		count int
	}
	byMethod := map[string]map[int]*acc{}
	byMethodVersion := map[string]map[int]*acc{}
	byVersion := map[string]map[int]*acc{}
	add := func(view map[string]map[int]*acc, key string, n, words int) {
		series, ok := view[key]
		if !ok {
			series = map[int]*acc{}
			view[key] = series
		}
		a, ok := series[n]
		if !ok {
			a = &acc{}
			series[n] = a
		}
		a.sum += float64(words)
		a.count++
	}

	for _, sessions := range ParticipantSessions(records) {
		for i, r := range sessions {
			n := i + 1
			if opts.MaxSessionNumber > 0 && n > opts.MaxSessionNumber {
				break
			}
			if opts.ExcludeOutliers && opts.Limits.IsOutlier(r.Metrics) {
				continue
			}
			if r.Metrics.UserWords == 0 || r.Class.Bot == nil {
				continue
			}
			method, key := r.Class.DetectedMethod, r.Class.Bot.Key
			add(byMethod, string(method), n, r.Metrics.UserWords)
			add(byMethodVersion, MethodVersionKey(method, key), n, r.Metrics.UserWords)
			add(byVersion, key, n, r.Metrics.UserWords)
		}
	}

	progression := Progression{
		ByMethod:        map[string]Series{},
		ByMethodVersion: map[string]Series{},
		ByVersion:       map[string]Series{},
	}
	for _, method := range classify.Methods {
		progression.ByMethod[string(method)] = Series{}
		for _, bot := range bots {
			progression.ByMethodVersion[MethodVersionKey(method, bot.Key)] = Series{}
		}
	}
	for _, bot := range bots {
		progression.ByVersion[bot.Key] = Series{}
	}

	average := func(dst map[string]Series, src map[string]map[int]*acc) {
		for key, series := range src {
			out, ok := dst[key]
			if !ok {
				out = Series{}
				dst[key] = out
			}
			for n, a := range series {
				out[n] = a.sum / float64(a.count)
			}
		}
	}
	average(progression.ByMethod, byMethod)
	average(progression.ByMethodVersion, byMethodVersion)
	average(progression.ByVersion, byVersion)
	return progression
}
