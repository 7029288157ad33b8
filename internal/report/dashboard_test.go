package report

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tetraminz/coaching_insights/internal/classify"
	"github.com/tetraminz/coaching_insights/internal/compute"
	"github.com/tetraminz/coaching_insights/internal/config"
	"github.com/tetraminz/coaching_insights/internal/rating"
)

func dashboardInput() DashboardInput {
	bots := classify.BotsFromConfig(config.DefaultBots()[:2])
	return DashboardInput{
		Generated:    time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
		Bots:         bots,
		TestSuffixes: []string{"@dimagi.com"},
		Versions: []compute.VersionMetrics{
			{
				Name:               "Control bot",
				Key:                "Control",
				TotalSessions:      6,
				MethodRefrigerator: map[classify.Method]float64{classify.MethodUnknown: 0},
			},
			{
				Name:                "Coaching bot V3",
				Key:                 "V3",
				TotalSessions:       10,
				AnnotatedSessions:   4,
				RefrigeratorPercent: 25,
				MethodRefrigerator: map[classify.Method]float64{
					classify.MethodScenario: 50,
					classify.MethodUnknown:  0,
				},
				MedianUserWords: 12.5,
				AverageRating:   3,
			},
		},
		Tables: compute.MethodTables{
			MedianWords: compute.MethodTable{
				classify.MethodScenario: {"Control": 0, "V3": 12.5},
				classify.MethodUnknown:  {"Control": 0, "V3": 4},
			},
			MedianWordsFiltered: compute.MethodTable{
				classify.MethodScenario: {"V3": 9},
			},
			MedianMessages: compute.MethodTable{
				classify.MethodUnknown: {"Control": 2},
			},
			AverageRating: compute.MethodTable{
				classify.MethodScenario: {"V3": 3},
				classify.MethodUnknown:  {"Control": 4.25},
			},
		},
		RatingStats: rating.Statistics{
			TotalSessions:        16,
			SessionsWithQuestion: 8,
			SessionsWithRating:   4,
			QuestionPercent:      50,
			RatingPercent:        25,
		},
		Progression: compute.Progression{
			ByVersion: map[string]compute.Series{"V3": {1: 12, 2: 8}},
		},
		Limits:           compute.OutlierLimits{MaxUserMessages: 50, MaxUserWords: 1000},
		MaxSessionNumber: 22,
	}
}

func rowCells(rows []MethodRow, method classify.Method) []string {
	for _, row := range rows {
		if row.Method == string(method) {
			return row.Cells
		}
	}
	return nil
}

func TestBuildDashboardSummary(t *testing.T) {
	data := BuildDashboard(dashboardInput())

	assert.Equal(t, DefaultTitle, data.Title)
	assert.Equal(t, "2026-03-01 09:30:00", data.Generated)
	assert.Equal(t, []string{"Control bot", "Coaching bot V3"}, data.Versions)
	require.Len(t, data.Summary, 2)
	assert.Equal(t, SummaryRow{
		Name:          "Coaching bot V3",
		Sessions:      10,
		Annotated:     4,
		Refrigerator:  "25.0%",
		MedianWords:   "12.5",
		AverageRating: "3.00",
	}, data.Summary[1])
	require.NotNil(t, data.RatingStats)
	assert.Equal(t, 8, data.RatingStats.SessionsWithQuestion)
	assert.Equal(t, "Version 13 and above", classify.BotsFromConfig(config.DefaultBots())[2].RangeLabel())
	assert.Equal(t, "All versions", data.Bots[0].Range)
}

func TestBuildDashboardCells(t *testing.T) {
	data := BuildDashboard(dashboardInput())

	require.Len(t, data.RefrigeratorRows, 2)
	assert.Equal(t, []string{"-", "50.0%"}, rowCells(data.RefrigeratorRows, classify.MethodScenario))
	assert.Equal(t, []string{"-", "-"}, rowCells(data.RefrigeratorRows, classify.MethodUnknown))

	assert.Len(t, data.RatingRows, len(classify.Methods))
	assert.Equal(t, []string{"-", "3.00"}, rowCells(data.RatingRows, classify.MethodScenario))
	assert.Equal(t, []string{"4.25", "-"}, rowCells(data.RatingRows, classify.MethodUnknown))
	assert.Equal(t, []string{"-", "-"}, rowCells(data.RatingRows, classify.MethodMicrolearning))

	assert.Equal(t, []string{"-", "12.5"}, rowCells(data.WordRows, classify.MethodScenario))
	assert.Equal(t, []string{"0.0", "4.0"}, rowCells(data.WordRows, classify.MethodUnknown))
	assert.Equal(t, []string{"-", "9.0"}, rowCells(data.WordRowsFiltered, classify.MethodScenario))
	assert.Equal(t, []string{"0.0", "-"}, rowCells(data.WordRowsFiltered, classify.MethodUnknown))
	assert.Equal(t, []string{"2.0", "-"}, rowCells(data.MessageRows, classify.MethodUnknown))
}

func TestRenderDashboard(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderDashboard(&buf, BuildDashboard(dashboardInput())))
	html := buf.String()

	assert.Contains(t, html, "<title>Version Comparison Dashboard - OCS</title>")
	assert.Contains(t, html, "2026-03-01 09:30:00")
	assert.Contains(t, html, `id="refrigeratorTable"`)
	assert.Contains(t, html, `<td>50.0%</td>`)
	assert.Contains(t, html, `id="medianWordsFiltered" style="display: none;"`)
	assert.Contains(t, html, "sessions with &gt;50 messages or &gt;1000 words")
	assert.Contains(t, html, "50.0% of sessions (8 out of 16) contain rating questions")
	assert.Contains(t, html, `"by_version":{"V3":{"1":12,"2":8}}`)
	assert.Contains(t, html, "Experiment ID: e2b4855f-8550-47ff-87d2-d92018676ff3 (All versions)")
	assert.NotContains(t, html, "Filtered Dashboard")
}

func TestWriteLowScoreDashboard(t *testing.T) {
	in := dashboardInput()
	in.Title = LowScoreTitle(85)
	in.Banner = LowScoreBanner(3, 85, "40-80")
	path := filepath.Join(t.TempDir(), "low_gs", DashboardFileName)

	require.NoError(t, WriteDashboard(path, in))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	html := string(content)
	assert.Contains(t, html, "Version Comparison Dashboard - Low GS Score Participants (≤85)")
	assert.Contains(t, html, "Filtered Dashboard")
	assert.Contains(t, html, "<strong>3 participants with GS scores ≤85</strong> (GS range: 40-80).")
	assert.Contains(t, html, "regardless of refrigerator example status")
}

func TestLowScoreBannerWithoutRange(t *testing.T) {
	banner := LowScoreBanner(0, 85, "")
	assert.Equal(t, "(GS range: ≤85).", banner.Detail)
}
