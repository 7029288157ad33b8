package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zapcore"

	"github.com/tetraminz/coaching_insights/internal/config"
	"github.com/tetraminz/coaching_insights/internal/gsscore"
	"github.com/tetraminz/coaching_insights/internal/logging"
)

const (
	controlExperiment = "1027993a-40c9-4484-a5fb-5c7e034dadcd"
	v3Experiment      = "e2b4855f-8550-47ff-87d2-d92018676ff3"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func session(id, participant, experiment, createdAt, tags string) string {
	return `{"id": "` + id + `", "participant": {"identifier": "` + participant + `"},` +
		`"experiment": {"id": "` + experiment + `", "name": "ECD Coach", "version_number": 3},` +
		`"tags": [` + tags + `], "created_at": "` + createdAt + `"}`
}

const threeAnswers = `{"messages": [
	{"role": "assistant", "content": "Welcome back", "tags": []},
	{"role": "user", "content": "one two three"},
	{"role": "user", "content": "four"},
	{"role": "user", "content": "five"}
]}`

func seedPipeline(t *testing.T) *Pipeline {
	t.Helper()
	root := t.TempDir()
	sessions := filepath.Join(root, "data", "sessions")
	messages := filepath.Join(root, "data", "messages")

	writeFile(t, sessions, "session_s1.json", session("s1", "P1", v3Experiment, "2024-01-01T10:00:00Z", `"refrigerator_example"`))
	writeFile(t, sessions, "session_s2.json", session("s2", "P1", v3Experiment, "2024-01-02T10:00:00Z", `"not_refrigerator_example"`))
	writeFile(t, sessions, "session_s3.json", session("s3", "p2", controlExperiment, "2024-01-01T11:00:00Z", ""))
	writeFile(t, sessions, "session_s4.json", session("s4", "coach@dimagi.com", v3Experiment, "2024-01-01T12:00:00Z", ""))
	for _, id := range []string{"s1", "s2", "s3", "s4"} {
		writeFile(t, messages, "messages_"+id+".json", threeAnswers)
	}

	scores := filepath.Join(root, "scores.csv")
	require.NoError(t, os.WriteFile(scores, []byte("participant_id,score\np1,70\nP2,95\n"), 0o644))

	cfg := config.Default()
	cfg.SetDataRoot(filepath.Join(root, "data"))
	cfg.SetOutputDir(filepath.Join(root, "output"))
	cfg.GS.ScoresCSV = scores

	logger, _ := logging.NewObserved(zapcore.InfoLevel)
	p := New(cfg, logger)
	p.now = func() time.Time { return time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC) }
	return p
}

func TestRunDashboard(t *testing.T) {
	p := seedPipeline(t)

	result, err := p.RunDashboard(context.Background(), LoadOptions{})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(p.Config().Output.DashboardDir, "version_comparison_dashboard.html"), result.Path)
	require.Len(t, result.Versions, len(config.DefaultBots()))
	assert.Equal(t, 1, result.Versions[0].TotalSessions)
	assert.Equal(t, 2, result.Versions[1].TotalSessions)
	assert.Equal(t, 2, result.Versions[1].AnnotatedSessions)
	assert.InDelta(t, 50.0, result.Versions[1].RefrigeratorPercent, 1e-9)

	html, err := os.ReadFile(result.Path)
	require.NoError(t, err)
	assert.Contains(t, string(html), "Generated:</strong> 2026-03-01 09:30:00")
}

func TestRunGSAnalysisAndLowScoreDashboard(t *testing.T) {
	p := seedPipeline(t)
	ctx := context.Background()

	gs, err := p.RunGSAnalysis(ctx)
	require.NoError(t, err)
	assert.Len(t, gs.Analysis.Joined, 2)
	assert.False(t, gs.Analysis.Fallback)
	assert.Equal(t, []string{"P1"}, gs.Result.ParticipantIDs())

	saved, err := gsscore.ReadResult(p.Config().GS.AnalysisJSON)
	require.NoError(t, err)
	assert.Equal(t, gsscore.Criteria{MinRefrigeratorRate: 15, MaxGSScore: 85}, saved.Criteria)
	assert.FileExists(t, p.Config().GS.SummaryCSV)

	low, err := p.RunLowGSDashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, low.Versions[0].TotalSessions)
	assert.Equal(t, 2, low.Versions[1].TotalSessions)

	html, err := os.ReadFile(low.Path)
	require.NoError(t, err)
	assert.Contains(t, string(html), "Low GS Score Participants (≤85)")
	assert.Contains(t, string(html), "1 participants with GS scores ≤85</strong> (GS range: 70-70).")
}

func TestRunGSAnalysisRequiresScores(t *testing.T) {
	p := seedPipeline(t)
	p.cfg.GS.ScoresCSV = ""

	_, err := p.RunGSAnalysis(context.Background())
	require.Error(t, err)
}

func TestRunLowGSDashboardWithoutAnalysis(t *testing.T) {
	p := seedPipeline(t)

	_, err := p.RunLowGSDashboard(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read GS analysis")
}
