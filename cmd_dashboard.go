package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tetraminz/coaching_insights/internal/pipeline"
	"github.com/tetraminz/coaching_insights/internal/report"
)

var (
	dashboardTest bool
	gsScoresPath  string
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Render the version comparison dashboard",
	Long: `Render the version comparison dashboard as a static HTML page.

Sessions of every configured bot are loaded, split and test sessions are
excluded, and the summary, method tables and progression chart are written to
<output>/version_comparison/version_comparison_dashboard.html.

Example:
  coaching-insights dashboard --data-dir data/consolidated`,
	RunE: runDashboard,
}

var gsAnalyzeCmd = &cobra.Command{
	Use:   "gs-analyze",
	Short: "Join refrigerator rates with GS scores",
	Long: `Compute every participant's refrigerator example rate, join it with the GS
score CSV and select participants with a high rate and a low score.

The selection is written as JSON and CSV below the output directory.

Example:
  coaching-insights gs-analyze --scores data/gs_scores.csv`,
	RunE: runGSAnalyze,
}

var gsDashboardCmd = &cobra.Command{
	Use:   "gs-dashboard",
	Short: "Render the dashboard for low GS participants",
	Long: `Render the version comparison dashboard restricted to the participants
selected by the last gs-analyze run.`,
	RunE: runGSDashboard,
}

func init() {
	dashboardCmd.Flags().BoolVar(&dashboardTest, "test", false, "Only read the first session files")
	gsAnalyzeCmd.Flags().StringVar(&gsScoresPath, "scores", "", "GS score CSV (overrides gs.scores_csv)")

	rootCmd.AddCommand(dashboardCmd)
	rootCmd.AddCommand(gsAnalyzeCmd)
	rootCmd.AddCommand(gsDashboardCmd)
}

func runDashboard(cmd *cobra.Command, args []string) error {
	result, err := newPipeline().RunDashboard(cmd.Context(), pipeline.LoadOptions{TestMode: dashboardTest})
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprint(out, report.FormatVersionSummary(result.Versions))
	fmt.Fprintf(out, "dashboard=%s\n", result.Path)
	return nil
}

func runGSAnalyze(cmd *cobra.Command, args []string) error {
	if gsScoresPath != "" {
		app.cfg.GS.ScoresCSV = gsScoresPath
	}
	result, err := newPipeline().RunGSAnalysis(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprint(out, report.FormatGSAnalysis(result.Analysis, result.Options))
	fmt.Fprintf(out, "json=%s\n", app.cfg.GS.AnalysisJSON)
	fmt.Fprintf(out, "csv=%s\n", app.cfg.GS.SummaryCSV)
	return nil
}

func runGSDashboard(cmd *cobra.Command, args []string) error {
	result, err := newPipeline().RunLowGSDashboard(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprint(out, report.FormatVersionSummary(result.Versions))
	fmt.Fprintf(out, "dashboard=%s\n", result.Path)
	return nil
}
