package main

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestBuildReport_CountsValidRowsOnly(t *testing.T) {
	t.Parallel()
	dbPath, summary := exportSeeded(t)

	report, err := BuildReport(dbPath)
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	if report.RunID != summary.RunID {
		t.Fatalf("run_id=%q want=%q", report.RunID, summary.RunID)
	}
	if report.TotalRows != 4 || report.TestRows != 1 || report.SplitRows != 1 || report.ValidRows != 2 {
		t.Fatalf("unexpected totals: %+v", report)
	}
	if report.AnnotatedRows != 2 || report.RefrigeratorRows != 1 || report.RefrigeratorPercent != 50 {
		t.Fatalf("unexpected refrigerator counts: %+v", report)
	}
	if report.LooseQuestionRows != 1 || report.ExactQuestionRows != 1 || report.RatedRows != 1 {
		t.Fatalf("unexpected rating counts: %+v", report)
	}
	if report.AverageRating != 4 || report.RatingDistribution != [5]int{0, 0, 0, 1, 0} {
		t.Fatalf("unexpected ratings: avg=%v dist=%v", report.AverageRating, report.RatingDistribution)
	}
	if len(report.ByBot) != 2 || report.ByBot[0].Label != unmatchedBotLabel || report.ByBot[1].Label != "V3" {
		t.Fatalf("unexpected bot counts: %+v", report.ByBot)
	}
}

func TestFormatReport_ContainsCounters(t *testing.T) {
	t.Parallel()
	dbPath, _ := exportSeeded(t)
	report, err := BuildReport(dbPath)
	if err != nil {
		t.Fatalf("build report: %v", err)
	}

	out := FormatReport(report)
	for _, token := range []string{
		"valid_rows=2\n",
		"refrigerator_percent=50.0 (1/2)\n",
		"rated_sessions=1 (50.0%)\n",
		"average_rating=4.00\n",
		"bot[V3]=1\n",
		"method[Scenario]=1\n",
	} {
		if !strings.Contains(out, token) {
			t.Fatalf("report missing %q:\n%s", token, out)
		}
	}
}

func TestBuildReportMarkdown_ContainsSections(t *testing.T) {
	t.Parallel()
	dbPath, summary := exportSeeded(t)

	md, err := BuildReportMarkdown(dbPath)
	if err != nil {
		t.Fatalf("build markdown: %v", err)
	}
	for _, token := range []string{
		"- run_id: `" + summary.RunID + "`",
		"## Refrigerator Examples",
		"| 4 | `1` |",
		"## Sessions by Bot",
		"| Unknown | `1` |",
	} {
		if !strings.Contains(md, token) {
			t.Fatalf("markdown missing %q", token)
		}
	}
}

func TestBuildReport_EmptyDatabase(t *testing.T) {
	t.Parallel()
	dbPath := filepath.Join(t.TempDir(), "empty.db")
	if err := SetupSQLite(dbPath); err != nil {
		t.Fatalf("setup sqlite: %v", err)
	}
	report, err := BuildReport(dbPath)
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	if report.TotalRows != 0 || report.RunID != "" {
		t.Fatalf("unexpected report: %+v", report)
	}
	md, err := BuildReportMarkdown(dbPath)
	if err != nil {
		t.Fatalf("build markdown: %v", err)
	}
	if !strings.Contains(md, "## Sessions by Bot\n- none") {
		t.Fatalf("markdown should list no bots:\n%s", md)
	}
}
