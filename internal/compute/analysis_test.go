package compute

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tetraminz/coaching_insights/internal/classify"
	"github.com/tetraminz/coaching_insights/internal/dataset"
)

func TestUnknownMessageStats(t *testing.T) {
	t.Parallel()

	c := testClassifier()
	var records []Record
	for i, n := range []int{3, 1, 4, 2} {
		messages := []dataset.Message{assistant("Hello")}
		for j := 0; j < n; j++ {
			messages = append(messages, user("yes"))
		}
		id := string(rune('a' + i))
		records = append(records, record(c, sessionSpec{id: id, participant: "p" + id, experiment: v3Experiment}, messages...))
	}
	records = append(records, record(c, sessionSpec{id: "known", participant: "pk", experiment: v3Experiment},
		assistant("Time for a quiz"), user("ok")))
	records = append(records, record(c, sessionSpec{id: "split", participant: "ps", experiment: v3Experiment},
		assistant("Hello")))

	bot, ok := c.Bot("V3")
	require.True(t, ok)
	stats := UnknownMessageStats(records, bot)

	assert.Equal(t, MessageStats{
		Bot:           "V3",
		Sessions:      4,
		TotalMessages: 10,
		Mean:          2.5,
		Median:        2.5,
		WithMessages:  4,
		WithPercent:   100,
		Min:           1,
		Max:           4,
		Q1:            1.25,
		Q3:            3.75,
		HasQuartiles:  true,
	}, stats)

	v4, _ := c.Bot("V4")
	assert.Equal(t, MessageStats{Bot: "V4"}, UnknownMessageStats(records, v4))
}

func TestUnknownSessionsKeepsSplitSessions(t *testing.T) {
	t.Parallel()

	c := testClassifier()
	bot, ok := c.Bot("V6")
	require.True(t, ok)

	assert.Equal(t, []string{"e", "f"}, UnknownSessions(fixture(t), bot))
}

func TestCensusExperiment(t *testing.T) {
	t.Parallel()

	sessions := []dataset.Session{
		{ID: "1", Experiment: dataset.Experiment{Name: "ECD Coach - (Nigeria Experiments) V6", VersionNumber: 7}, Tags: []string{"v7", "refrigerator_example"}},
		{ID: "2", Experiment: dataset.Experiment{Name: "ECD Coach - (Nigeria Experiments) V5"}},
		{ID: "3", Experiment: dataset.Experiment{Name: "ECD Coach - (Nigeria Experiments) V6 copy", VersionNumber: 5}, Tags: []string{"v5"}},
		{ID: "4", Experiment: dataset.Experiment{Name: "ECD Coach - (Nigeria Experiments) V6", VersionNumber: 7}, Tags: []string{"v7"}, MessageCount: 12, FirstMessageRole: "assistant"},
	}

	census := CensusExperiment(sessions, "ECD Coach - (Nigeria Experiments) V6")

	assert.Equal(t, 3, census.Sessions)
	assert.Equal(t, []VersionCount{{Version: 5, Count: 1}, {Version: 7, Count: 2}}, census.VersionCounts)
	assert.Equal(t, 5, census.MinVersion)
	assert.Equal(t, 7, census.MaxVersion)
	assert.Equal(t, 4, census.TotalTags)
	assert.Equal(t, []TagCount{{Tag: "refrigerator_example", Count: 1}, {Tag: "v5", Count: 1}, {Tag: "v7", Count: 2}}, census.TagCounts)
	require.Len(t, census.Samples, 3)
	assert.Equal(t, ExperimentSample{
		ID:               "4",
		Experiment:       "ECD Coach - (Nigeria Experiments) V6",
		Version:          7,
		Tags:             []string{"v7"},
		MessageCount:     12,
		FirstMessageRole: "assistant",
	}, census.Samples[2])

	empty := CensusExperiment(sessions, "missing")
	assert.Zero(t, empty.Sessions)
	assert.Empty(t, empty.VersionCounts)
}

func TestInvestigateSpike(t *testing.T) {
	t.Parallel()

	records := fixture(t)

	second := InvestigateSpike(records, SpikeQuery{Method: classify.MethodScenario, SessionNumber: 2})
	assert.Equal(t, 2, second.Matches)
	require.Len(t, second.Top, 2)
	assert.Equal(t, "b", second.Top[0].SessionID)
	assert.Equal(t, 7, second.Top[0].UserWords)
	assert.Equal(t, "a", second.Top[1].SessionID)
	require.NotNil(t, second.Detail)
	assert.Equal(t, SpikeDetail{
		SessionID:    "b",
		UserMessages: []string{"a b c d e f", "2"},
		UserTotal:    2,
		SessionTags:  []string{"coach_method_scenarios", "not_refrigerator_example"},
	}, *second.Detail)

	control := InvestigateSpike(records, SpikeQuery{Method: classify.MethodScenario, SessionNumber: 1})
	require.Len(t, control.Top, 1)
	assert.Equal(t, "c2", control.Top[0].SessionID)

	none := InvestigateSpike(records, SpikeQuery{Method: classify.MethodMicrolearning, SessionNumber: 10})
	assert.Zero(t, none.Matches)
	assert.Nil(t, none.Detail)
}

func TestSpikeDetailTruncatesAndCollectsTags(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("w", 250)
	r := record(testClassifier(), sessionSpec{id: "s", participant: "p", experiment: v3Experiment},
		assistant("hi", "coach_method_visit_debrief"),
		user(long), user(""), user("two"), user("three"), user("four"),
		assistant("bye", "b_tag", "coach_method_visit_debrief"),
	)

	detail := spikeDetail(r)
	assert.Equal(t, []string{strings.Repeat("w", 200) + "...", "two", "three"}, detail.UserMessages)
	assert.Equal(t, 5, detail.UserTotal)
	assert.Equal(t, []string{"b_tag", "coach_method_visit_debrief"}, detail.MessageTags)
}
