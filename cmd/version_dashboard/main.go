package main

/*
version_dashboard renders the version comparison dashboard in one step.

Usage:
  go run ./cmd/version_dashboard \
    --data_dir data \
    --output output

Flags:
  --config    Optional YAML config file.
  --data_dir  Directory holding sessions/ and messages/ (default from config).
  --output    Output directory (default from config).
  --test      Only read the first session files.
  --verbose   Enable debug logging.
*/

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/tetraminz/coaching_insights/internal/config"
	"github.com/tetraminz/coaching_insights/internal/logging"
	"github.com/tetraminz/coaching_insights/internal/pipeline"
	"github.com/tetraminz/coaching_insights/internal/report"
)

func main() {
	if err := run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		if hint := errors.FlattenHints(err); hint != "" {
			fmt.Fprintf(os.Stderr, "hint: %s\n", hint)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfgFile := flag.String("config", "", "optional YAML config file")
	dataDir := flag.String("data_dir", "", "directory holding sessions/ and messages/")
	outDir := flag.String("output", "", "output directory")
	testMode := flag.Bool("test", false, "only read the first session files")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	flag.Parse()

	cfg, err := config.Load(*cfgFile)
	if err != nil {
		return err
	}
	if dir := strings.TrimSpace(*dataDir); dir != "" {
		cfg.SetDataRoot(dir)
	}
	if dir := strings.TrimSpace(*outDir); dir != "" {
		cfg.SetOutputDir(dir)
	}
	if *verbose {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	result, err := pipeline.New(cfg, logger).RunDashboard(ctx, pipeline.LoadOptions{TestMode: *testMode})
	if err != nil {
		return err
	}
	fmt.Print(report.FormatVersionSummary(result.Versions))
	fmt.Printf("dashboard=%s\n", result.Path)
	return nil
}
