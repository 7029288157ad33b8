package main

import (
	"fmt"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tetraminz/coaching_insights/internal/config"
	"github.com/tetraminz/coaching_insights/internal/logging"
	"github.com/tetraminz/coaching_insights/internal/pipeline"
	"github.com/tetraminz/coaching_insights/internal/report"
)

var (
	cfgFile   string
	verbose   bool
	noColor   bool
	dataDir   string
	outputDir string
)

// app is populated by the root pre-run hook.
var app struct {
	cfg    config.Config
	logger *zap.Logger
}

var rootCmd = &cobra.Command{
	Use:   "coaching-insights",
	Short: "Analyze coaching chatbot conversation logs",
	Long: `coaching-insights reads exported coaching sessions and their messages,
classifies them by bot version and coaching method, and reports engagement,
refrigerator example and usefulness rating metrics.

Commands:
  dashboard         Render the version comparison dashboard
  gs-analyze        Join refrigerator rates with GS scores
  gs-dashboard      Render the dashboard for low GS participants
  ratings           Rating question and answer coverage
  rating-patterns   How rating questions are phrased in a message sample
  unknown-messages  Message counts of sessions without a detected method
  unknown-sessions  List sessions without a detected method
  experiment        Version and tag census of one experiment
  spike             Sessions behind one point of the progression chart
  export            Write session classifications to SQLite
  report            Summarise an export database
  config            Print the effective configuration`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupApp()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored console output")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Directory holding sessions/ and messages/")
	rootCmd.PersistentFlags().StringVarP(&outputDir, "output", "o", "", "Output directory")
}

func main() {
	err := rootCmd.Execute()
	if app.logger != nil {
		_ = app.logger.Sync()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		if hint := errors.FlattenHints(err); hint != "" {
			fmt.Fprintf(os.Stderr, "hint: %s\n", hint)
		}
		os.Exit(1)
	}
}

func setupApp() error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if dataDir != "" {
		cfg.SetDataRoot(dataDir)
	}
	if outputDir != "" {
		cfg.SetOutputDir(outputDir)
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}
	if noColor {
		report.DisableStyling()
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	app.cfg = cfg
	app.logger = logger
	return nil
}

func newPipeline() *pipeline.Pipeline {
	return pipeline.New(app.cfg, app.logger)
}
