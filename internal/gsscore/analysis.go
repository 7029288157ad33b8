package gsscore

import (
	"sort"

	"github.com/tetraminz/coaching_insights/internal/config"
)

const topByRate = 10

// Participant is a participant with both session data and a GS score.
type Participant struct {
	Stats *ParticipantStats
	Score int
}

type Summary struct {
	Participants int
	AverageScore float64
	MinScore     int
	MaxScore     int
	AverageRate  float64
	MaxRate      float64
	TopByRate    []Participant
}

type ThresholdResult struct {
	Threshold    config.Threshold
	Participants []Participant
}

// Options drive the selection. MinRate applies to the rate with split
// sessions; MaxScore to the GS score.
type Options struct {
	MinRate    float64
	MaxScore   int
	Thresholds []config.Threshold
}

type Analysis struct {
	Stats   []*ParticipantStats
	Joined  []Participant
	Summary Summary
	Grid    []ThresholdResult

	// HighRate counts participants at or above MinRate before the score filter.
	HighRate          int
	HighRateWithScore int
	Selected          []Participant

	// Fallback is set when no participant passed the rate filter and the
	// selection holds every joined participant with a low score instead.
	Fallback bool
}

func Analyze(stats []*ParticipantStats, scores Scores, opts Options) Analysis {
	analysis := Analysis{Stats: stats}

	for _, s := range stats {
		if score, ok := scores.Lookup(s.ParticipantID); ok {
			analysis.Joined = append(analysis.Joined, Participant{Stats: s, Score: score})
		}
	}
	analysis.Summary = summarize(analysis.Joined)

	for _, threshold := range opts.Thresholds {
		analysis.Grid = append(analysis.Grid, ThresholdResult{
			Threshold:    threshold,
			Participants: exactThreshold(stats, scores, threshold),
		})
	}

	type candidate struct {
		Participant
		rate     float64
		hasScore bool
	}
	var high []candidate
	for _, s := range stats {
		rate := s.RateWithSplit()
		if rate < opts.MinRate {
			continue
		}
		score, ok := scores.Lookup(s.ParticipantID)
		high = append(high, candidate{Participant: Participant{Stats: s, Score: score}, rate: rate, hasScore: ok})
	}
	sort.SliceStable(high, func(i, j int) bool { return high[i].rate > high[j].rate })

	analysis.HighRate = len(high)
	for _, c := range high {
		if !c.hasScore {
			continue
		}
		analysis.HighRateWithScore++
		if c.Score <= opts.MaxScore {
			analysis.Selected = append(analysis.Selected, c.Participant)
		}
	}

	if len(analysis.Selected) == 0 {
		analysis.Fallback = true
		for _, p := range analysis.Joined {
			if p.Score <= opts.MaxScore {
				analysis.Selected = append(analysis.Selected, p)
			}
		}
		sort.SliceStable(analysis.Selected, func(i, j int) bool {
			return analysis.Selected[i].Score < analysis.Selected[j].Score
		})
	}
	return analysis
}

func summarize(joined []Participant) Summary {
	summary := Summary{Participants: len(joined)}
	if len(joined) == 0 {
		return summary
	}
	summary.MinScore, summary.MaxScore = joined[0].Score, joined[0].Score
	var scoreSum, rateSum float64
	for _, p := range joined {
		scoreSum += float64(p.Score)
		rate := p.Stats.Rate()
		rateSum += rate
		if p.Score < summary.MinScore {
			summary.MinScore = p.Score
		}
		if p.Score > summary.MaxScore {
			summary.MaxScore = p.Score
		}
		if rate > summary.MaxRate {
			summary.MaxRate = rate
		}
	}
	summary.AverageScore = scoreSum / float64(len(joined))
	summary.AverageRate = rateSum / float64(len(joined))

	top := append([]Participant(nil), joined...)
	sort.SliceStable(top, func(i, j int) bool { return top[i].Stats.Rate() > top[j].Stats.Rate() })
	if len(top) > topByRate {
		top = top[:topByRate]
	}
	summary.TopByRate = top
	return summary
}

// exactThreshold only joins on the id as written in the CSV.
func exactThreshold(stats []*ParticipantStats, scores Scores, threshold config.Threshold) []Participant {
	var out []Participant
	for _, s := range stats {
		score, ok := scores[s.ParticipantID]
		if !ok {
			continue
		}
		if s.Rate() >= threshold.MinRate && score <= threshold.MaxScore {
			out = append(out, Participant{Stats: s, Score: score})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := out[i].Stats.Rate(), out[j].Stats.Rate()
		if ri != rj {
			return ri > rj
		}
		return out[i].Score < out[j].Score
	})
	return out
}
