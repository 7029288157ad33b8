package compute

import (
	"sort"
	"strings"

	"github.com/tetraminz/coaching_insights/internal/dataset"
)

const experimentSampleSize = 5

type VersionCount struct {
	Version int `json:"version"`
	Count   int `json:"count"`
}

type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

type ExperimentSample struct {
	ID               string   `json:"id"`
	Experiment       string   `json:"experiment"`
	Version          int      `json:"version"`
	Tags             []string `json:"tags"`
	MessageCount     int      `json:"message_count"`
	FirstMessageRole string   `json:"first_message_role"`
}

// ExperimentCensus shows which platform versions and tags an experiment's
// sessions carry.
type ExperimentCensus struct {
	Query         string             `json:"query"`
	Sessions      int                `json:"sessions"`
	VersionCounts []VersionCount     `json:"version_counts"`
	MinVersion    int                `json:"min_version"`
	MaxVersion    int                `json:"max_version"`
	TotalTags     int                `json:"total_tags"`
	TagCounts     []TagCount         `json:"tag_counts"`
	Samples       []ExperimentSample `json:"samples"`
}

// CensusExperiment matches sessions whose experiment name contains query.
func CensusExperiment(sessions []dataset.Session, query string) ExperimentCensus {
	census := ExperimentCensus{Query: query}
	versions := map[int]int{}
	tags := map[string]int{}

	for _, s := range sessions {
		if !strings.Contains(s.Experiment.Name, query) {
			continue
		}
		v := s.Experiment.VersionNumber
		if census.Sessions == 0 || v < census.MinVersion {
			census.MinVersion = v
		}
		if census.Sessions == 0 || v > census.MaxVersion {
			census.MaxVersion = v
		}
		census.Sessions++
		versions[v]++
		for _, tag := range s.Tags {
			tags[tag]++
			census.TotalTags++
		}
		if len(census.Samples) < experimentSampleSize {
			census.Samples = append(census.Samples, ExperimentSample{
				ID:               s.ID,
				Experiment:       s.Experiment.Name,
				Version:          v,
				Tags:             s.Tags,
				MessageCount:     s.MessageCount,
				FirstMessageRole: s.FirstMessageRole,
			})
		}
	}

	for v, n := range versions {
		census.VersionCounts = append(census.VersionCounts, VersionCount{Version: v, Count: n})
	}
	sort.Slice(census.VersionCounts, func(i, j int) bool {
		return census.VersionCounts[i].Version < census.VersionCounts[j].Version
	})
	for tag, n := range tags {
		census.TagCounts = append(census.TagCounts, TagCount{Tag: tag, Count: n})
	}
	sort.Slice(census.TagCounts, func(i, j int) bool {
		return census.TagCounts[i].Tag < census.TagCounts[j].Tag
	})
	return census
}
