package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tetraminz/coaching_insights/internal/pipeline"
)

var (
	exportDBPath   string
	exportTest     bool
	reportDBPath   string
	reportMarkdown string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write session classifications to SQLite",
	Long: `Classify every session of the configured bots and write one row per
session to a fresh SQLite database for ad-hoc SQL.

Example:
  coaching-insights export --db output/session_classifications.db
  sqlite3 output/session_classifications.db 'SELECT bot_key, method, COUNT(*) FROM session_classifications GROUP BY 1, 2'`,
	RunE: runExport,
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Summarise an export database",
	RunE:  runReport,
}

func init() {
	exportCmd.Flags().StringVar(&exportDBPath, "db", "", "SQLite database path (default output.export_db)")
	exportCmd.Flags().BoolVar(&exportTest, "test", false, "Only read the first session files")
	reportCmd.Flags().StringVar(&reportDBPath, "db", "", "SQLite database path (default output.export_db)")
	reportCmd.Flags().StringVar(&reportMarkdown, "markdown", "", "Also write a markdown summary to this path")

	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(reportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	dbPath := exportDBPath
	if dbPath == "" {
		dbPath = app.cfg.Output.ExportDB
	}

	records, err := newPipeline().LoadRecords(cmd.Context(), pipeline.LoadOptions{TestMode: exportTest})
	if err != nil {
		return err
	}
	if err := SetupSQLite(dbPath); err != nil {
		return err
	}
	store, err := OpenSQLiteStore(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	summary, err := store.ExportCorpus(cmd.Context(), app.cfg.Data.SessionsDir, records)
	if err != nil {
		return err
	}
	app.logger.Info("export finished", zap.String("run_id", summary.RunID), zap.Int("rows", summary.Rows))
	fmt.Fprintf(cmd.OutOrStdout(), "exported_rows=%d run_id=%s db=%s\n", summary.Rows, summary.RunID, dbPath)
	return nil
}

func runReport(cmd *cobra.Command, args []string) error {
	dbPath := reportDBPath
	if dbPath == "" {
		dbPath = app.cfg.Output.ExportDB
	}
	if _, err := os.Stat(dbPath); err != nil {
		return errors.WithHint(errors.Wrapf(err, "open export %s", dbPath), "run the export command first")
	}

	result, err := BuildReport(dbPath)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), FormatReport(result))

	if reportMarkdown == "" {
		return nil
	}
	md, err := BuildReportMarkdown(dbPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(reportMarkdown), 0o755); err != nil {
		return errors.Wrap(err, "create markdown directory")
	}
	if err := os.WriteFile(reportMarkdown, []byte(md), 0o644); err != nil {
		return errors.Wrapf(err, "write %s", reportMarkdown)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "markdown=%s\n", reportMarkdown)
	return nil
}
