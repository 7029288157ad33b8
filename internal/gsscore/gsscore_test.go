package gsscore

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tetraminz/coaching_insights/internal/config"
	"github.com/tetraminz/coaching_insights/internal/dataset"
)

const scoresCSV = "\ufeffparticipant ID,Score\nP1,70\np2 , 90\np3,abc\n,50\nP4,80\n"

func engaged(n int, tags ...string) []dataset.Message {
	messages := []dataset.Message{{Role: dataset.RoleAssistant, Content: "hello", Tags: tags}}
	for i := 0; i < n; i++ {
		messages = append(messages, dataset.Message{Role: dataset.RoleUser, Content: "answer"})
	}
	return messages
}

func session(id, participant string, tags ...string) dataset.Session {
	return dataset.Session{ID: id, Participant: dataset.Participant{Identifier: participant}, Tags: tags}
}

func fixture() ([]dataset.Session, map[string][]dataset.Message) {
	sessions := []dataset.Session{
		session("s1", "p1", "refrigerator_example"),
		session("s2", "p1"),
		session("s3", "p1"),
		session("s4", "p1"),
		session("s5", "p2"),
		session("s6", "P4"),
		session("s7", "P4"),
		session("s8", "coach@dimagi.com"),
		session("s9", ""),
	}
	messages := map[string][]dataset.Message{
		"s1": engaged(3),
		"s2": engaged(3),
		"s3": engaged(1, "refrigerator_example"),
		"s5": engaged(4, "refrigerator_example"),
		"s6": engaged(3),
		"s7": engaged(5),
		"s8": engaged(3),
		"s9": engaged(3),
	}
	return sessions, messages
}

func fixtureStats() []*ParticipantStats {
	sessions, messages := fixture()
	return ComputeParticipantStats(sessions, messages, StatsOptions{
		TestAccountSuffixes:  []string{"@dimagi.com"},
		SplitMinUserMessages: 3,
	})
}

func TestParseScores(t *testing.T) {
	t.Parallel()

	scores, err := ParseScores(strings.NewReader(scoresCSV))
	require.NoError(t, err)
	assert.Equal(t, Scores{"P1": 70, "p2": 90, "P4": 80}, scores)

	score, ok := scores.Lookup("p1")
	assert.True(t, ok)
	assert.Equal(t, 70, score)
	_, ok = scores.Lookup("p9")
	assert.False(t, ok)
}

func TestParseScoresColumnAliases(t *testing.T) {
	t.Parallel()

	scores, err := ParseScores(strings.NewReader("name,Participant_ID,GS Score\nx,abc,55\n"))
	require.NoError(t, err)
	assert.Equal(t, Scores{"abc": 55}, scores)

	empty, err := ParseScores(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestLoadScoresMissingFile(t *testing.T) {
	t.Parallel()

	_, err := LoadScores(filepath.Join(t.TempDir(), "missing.csv"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open GS scores")
}

func TestComputeParticipantStats(t *testing.T) {
	t.Parallel()

	stats := fixtureStats()
	require.Len(t, stats, 3)

	p1 := stats[0]
	assert.Equal(t, ParticipantStats{
		ParticipantID:             "p1",
		TotalSessions:             2,
		RefrigeratorSessions:      1,
		NonRefrigeratorSessions:   1,
		SplitSessions:             2,
		RefrigeratorSplitSessions: 1,
		SessionIDs:                []string{"s1", "s2"},
		RefrigeratorSessionIDs:    []string{"s1"},
		NonRefrigeratorSessionIDs: []string{"s2"},
		SplitSessionIDs:           []string{"s3", "s4"},
	}, *p1)
	assert.Equal(t, 50.0, p1.Rate())
	assert.Equal(t, 50.0, p1.RateWithSplit())

	assert.Equal(t, "p2", stats[1].ParticipantID)
	assert.Equal(t, 100.0, stats[1].Rate())
	assert.Equal(t, "P4", stats[2].ParticipantID)
	assert.Zero(t, stats[2].RateWithSplit())
}

func participantIDs(participants []Participant) []string {
	ids := make([]string, 0, len(participants))
	for _, p := range participants {
		ids = append(ids, p.Stats.ParticipantID)
	}
	return ids
}

func TestAnalyze(t *testing.T) {
	t.Parallel()

	scores, err := ParseScores(strings.NewReader(scoresCSV))
	require.NoError(t, err)

	analysis := Analyze(fixtureStats(), scores, Options{
		MinRate:    15,
		MaxScore:   85,
		Thresholds: config.DefaultThresholds(),
	})

	assert.Equal(t, []string{"p1", "p2", "P4"}, participantIDs(analysis.Joined))
	assert.Equal(t, 3, analysis.Summary.Participants)
	assert.Equal(t, 80.0, analysis.Summary.AverageScore)
	assert.Equal(t, 70, analysis.Summary.MinScore)
	assert.Equal(t, 90, analysis.Summary.MaxScore)
	assert.Equal(t, 50.0, analysis.Summary.AverageRate)
	assert.Equal(t, 100.0, analysis.Summary.MaxRate)
	assert.Equal(t, []string{"p2", "p1", "P4"}, participantIDs(analysis.Summary.TopByRate))

	require.Len(t, analysis.Grid, 5)
	gridCounts := make([]int, 0, len(analysis.Grid))
	for _, result := range analysis.Grid {
		gridCounts = append(gridCounts, len(result.Participants))
	}
	assert.Equal(t, []int{0, 0, 0, 1, 0}, gridCounts, "grid joins on exact ids only")
	assert.Equal(t, []string{"p2"}, participantIDs(analysis.Grid[3].Participants))

	assert.Equal(t, 2, analysis.HighRate)
	assert.Equal(t, 2, analysis.HighRateWithScore)
	assert.False(t, analysis.Fallback)
	assert.Equal(t, []string{"p1"}, participantIDs(analysis.Selected))
	assert.Equal(t, 70, analysis.Selected[0].Score)
}

func TestAnalyzeFallsBackToLowScores(t *testing.T) {
	t.Parallel()

	scores, err := ParseScores(strings.NewReader(scoresCSV))
	require.NoError(t, err)

	analysis := Analyze(fixtureStats(), scores, Options{MinRate: 101, MaxScore: 85})
	assert.True(t, analysis.Fallback)
	assert.Equal(t, []string{"p1", "P4"}, participantIDs(analysis.Selected))
	assert.Empty(t, analysis.Grid)
}

func TestResultOutputs(t *testing.T) {
	t.Parallel()

	stats := fixtureStats()
	now := time.Date(2025, 3, 4, 5, 6, 7, 8000, time.UTC)
	result := NewResult([]Participant{{Stats: stats[0], Score: 70}, {Stats: stats[2], Score: 80}},
		Criteria{MinRefrigeratorRate: 15, MaxGSScore: 85}, now)

	assert.Equal(t, "2025-03-04 05:06:07.000008", result.AnalysisDate)
	assert.Equal(t, []string{"p1", "P4"}, result.ParticipantIDs())
	lo, hi, ok := result.ScoreRange()
	assert.True(t, ok)
	assert.Equal(t, 70, lo)
	assert.Equal(t, 80, hi)
	assert.Equal(t, []string{}, result.Participants[1].RefrigeratorSessionIDs)

	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "nested", "analysis.json")
	require.NoError(t, WriteJSON(jsonPath, result))
	loaded, err := ReadResult(jsonPath)
	require.NoError(t, err)
	if diff := cmp.Diff(result, loaded); diff != "" {
		t.Fatalf("result mismatch (-want +got):\n%s", diff)
	}

	csvPath := filepath.Join(dir, "summary.csv")
	require.NoError(t, WriteCSV(csvPath, result))
	raw, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, strings.Join(summaryHeader, ","), lines[0])
	assert.Equal(t, "p1,70,2,1,50.0,1,s1,s2,s1; s2", lines[1])
	assert.Equal(t, "P4,80,2,0,0.0,2,,s6; s7,s6; s7", lines[2])

	_, _, ok = Result{}.ScoreRange()
	assert.False(t, ok)
}
