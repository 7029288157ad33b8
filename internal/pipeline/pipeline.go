// Package pipeline wires loading, classification and aggregation into the
// runs behind each command.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/tetraminz/coaching_insights/internal/classify"
	"github.com/tetraminz/coaching_insights/internal/compute"
	"github.com/tetraminz/coaching_insights/internal/config"
	"github.com/tetraminz/coaching_insights/internal/dataset"
	"github.com/tetraminz/coaching_insights/internal/gsscore"
	"github.com/tetraminz/coaching_insights/internal/report"
)

// Pipeline holds the configuration and collaborators shared by all runs.
type Pipeline struct {
	cfg        config.Config
	logger     *zap.Logger
	loader     *dataset.Loader
	classifier *classify.Classifier
	now        func() time.Time
}

func New(cfg config.Config, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		cfg:        cfg,
		logger:     logger,
		loader:     dataset.NewLoader(logger, cfg.Analysis.Workers),
		classifier: classify.NewClassifier(classify.BotsFromConfig(cfg.Bots), cfg.Exclusion.TestAccountSuffixes),
		now:        time.Now,
	}
}

func (p *Pipeline) Config() config.Config {
	return p.cfg
}

func (p *Pipeline) Classifier() *classify.Classifier {
	return p.classifier
}

// LoadOptions narrow the sessions a run reads.
type LoadOptions struct {
	// AllExperiments skips the bot experiment filter.
	AllExperiments bool
	ParticipantIDs []string
	TestMode       bool
}

func (p *Pipeline) filter(opts LoadOptions) dataset.SessionFilter {
	filter := dataset.SessionFilter{ParticipantIDs: opts.ParticipantIDs}
	if !opts.AllExperiments {
		filter.ExperimentIDs = p.classifier.ExperimentIDs()
	}
	if opts.TestMode {
		filter.Limit = p.cfg.Analysis.TestModeLimit
	}
	return filter
}

// LoadCorpus reads sessions and their messages.
func (p *Pipeline) LoadCorpus(ctx context.Context, opts LoadOptions) (dataset.Corpus, error) {
	return p.loader.LoadCorpus(ctx, p.cfg.Data.SessionsDir, p.cfg.Data.MessagesDir, p.filter(opts))
}

// LoadSessions reads session documents only.
func (p *Pipeline) LoadSessions(ctx context.Context, opts LoadOptions) ([]dataset.Session, error) {
	sessions, _, err := p.loader.LoadSessions(ctx, p.cfg.Data.SessionsDir, p.filter(opts))
	return sessions, err
}

// LoadMessageSample flattens the first n message files; n <= 0 uses the
// configured sample size.
func (p *Pipeline) LoadMessageSample(ctx context.Context, n int) ([]dataset.Message, error) {
	if n <= 0 {
		n = p.cfg.Analysis.PatternSample
	}
	return p.loader.LoadMessageSample(ctx, p.cfg.Data.MessagesDir, n)
}

// LoadRecords loads and classifies sessions.
func (p *Pipeline) LoadRecords(ctx context.Context, opts LoadOptions) ([]compute.Record, error) {
	corpus, err := p.LoadCorpus(ctx, opts)
	if err != nil {
		return nil, err
	}
	records := compute.BuildRecords(corpus, p.classifier)
	valid := compute.ValidRecords(records)
	p.logger.Info("classified sessions",
		zap.Int("sessions", len(records)),
		zap.Int("valid", len(valid)),
		zap.Int("excluded", len(records)-len(valid)),
	)
	return records, nil
}

func (p *Pipeline) limits() compute.OutlierLimits {
	return compute.OutlierLimits{
		MaxUserMessages: p.cfg.Analysis.MaxUserMessages,
		MaxUserWords:    p.cfg.Analysis.MaxUserWords,
	}
}

// DashboardInput computes every aggregate the dashboard shows.
func (p *Pipeline) DashboardInput(records []compute.Record) report.DashboardInput {
	bots := p.classifier.Bots()
	limits := p.limits()
	progression := compute.ProgressionOptions{
		MaxSessionNumber: p.cfg.Analysis.MaxSessionNumber,
		Limits:           limits,
	}
	filtered := progression
	filtered.ExcludeOutliers = true

	return report.DashboardInput{
		Generated:           p.now(),
		Bots:                bots,
		TestSuffixes:        p.cfg.Exclusion.TestAccountSuffixes,
		Versions:            compute.ComputeVersionMetrics(records, bots),
		Tables:              compute.ComputeMethodTables(records, bots, limits),
		RatingStats:         compute.RatingStatistics(records),
		Progression:         compute.ComputeProgression(records, bots, progression),
		ProgressionFiltered: compute.ComputeProgression(records, bots, filtered),
		Limits:              limits,
		MaxSessionNumber:    p.cfg.Analysis.MaxSessionNumber,
	}
}

// DashboardResult is what a dashboard run produced.
type DashboardResult struct {
	Path     string
	Versions []compute.VersionMetrics
}

// RunDashboard renders the version comparison dashboard.
func (p *Pipeline) RunDashboard(ctx context.Context, opts LoadOptions) (DashboardResult, error) {
	records, err := p.LoadRecords(ctx, opts)
	if err != nil {
		return DashboardResult{}, err
	}
	in := p.DashboardInput(records)
	path := filepath.Join(p.cfg.Output.DashboardDir, report.DashboardFileName)
	if err := report.WriteDashboard(path, in); err != nil {
		return DashboardResult{}, err
	}
	p.logger.Info("dashboard written", zap.String("path", path))
	return DashboardResult{Path: path, Versions: in.Versions}, nil
}

// GSResult is the outcome of a GS score analysis.
type GSResult struct {
	Analysis gsscore.Analysis
	Options  gsscore.Options
	Result   gsscore.Result
}

func (p *Pipeline) gsOptions() gsscore.Options {
	return gsscore.Options{
		MinRate:    p.cfg.GS.MinRefrigeratorRate,
		MaxScore:   p.cfg.GS.MaxScore,
		Thresholds: p.cfg.GS.Thresholds,
	}
}

// RunGSAnalysis joins participant refrigerator rates with GS scores and
// writes the selection as JSON and CSV.
func (p *Pipeline) RunGSAnalysis(ctx context.Context) (GSResult, error) {
	if strings.TrimSpace(p.cfg.GS.ScoresCSV) == "" {
		return GSResult{}, errors.WithHint(errors.New("gs scores csv is not configured"), "set gs.scores_csv or pass --scores")
	}
	scores, err := gsscore.LoadScores(p.cfg.GS.ScoresCSV)
	if err != nil {
		return GSResult{}, err
	}
	p.logger.Info("loaded gs scores", zap.String("path", p.cfg.GS.ScoresCSV), zap.Int("participants", len(scores)))

	corpus, err := p.LoadCorpus(ctx, LoadOptions{AllExperiments: true})
	if err != nil {
		return GSResult{}, err
	}
	stats := gsscore.ComputeParticipantStats(corpus.Sessions, corpus.Messages, gsscore.StatsOptions{
		TestAccountSuffixes:  p.cfg.Exclusion.TestAccountSuffixes,
		SplitMinUserMessages: p.cfg.GS.SplitMinUserMessages,
	})

	opts := p.gsOptions()
	analysis := gsscore.Analyze(stats, scores, opts)
	result := gsscore.NewResult(analysis.Selected, gsscore.Criteria{
		MinRefrigeratorRate: opts.MinRate,
		MaxGSScore:          opts.MaxScore,
	}, p.now())

	if err := gsscore.WriteJSON(p.cfg.GS.AnalysisJSON, result); err != nil {
		return GSResult{}, err
	}
	if err := gsscore.WriteCSV(p.cfg.GS.SummaryCSV, result); err != nil {
		return GSResult{}, err
	}
	p.logger.Info("gs analysis written",
		zap.Int("joined", len(analysis.Joined)),
		zap.Int("selected", len(analysis.Selected)),
		zap.Bool("fallback", analysis.Fallback),
		zap.String("json", p.cfg.GS.AnalysisJSON),
		zap.String("csv", p.cfg.GS.SummaryCSV),
	)
	return GSResult{Analysis: analysis, Options: opts, Result: result}, nil
}

// RunLowGSDashboard renders the dashboard for the participants selected by
// the last GS analysis.
func (p *Pipeline) RunLowGSDashboard(ctx context.Context) (DashboardResult, error) {
	result, err := gsscore.ReadResult(p.cfg.GS.AnalysisJSON)
	if err != nil {
		return DashboardResult{}, err
	}
	ids := result.ParticipantIDs()
	if len(ids) == 0 {
		return DashboardResult{}, errors.Newf("no participants in %s", p.cfg.GS.AnalysisJSON)
	}

	records, err := p.LoadRecords(ctx, LoadOptions{ParticipantIDs: ids})
	if err != nil {
		return DashboardResult{}, err
	}

	scoreRange := ""
	if lo, hi, ok := result.ScoreRange(); ok {
		scoreRange = fmt.Sprintf("%d-%d", lo, hi)
	}
	maxScore := result.Criteria.MaxGSScore
	if maxScore == 0 {
		maxScore = p.cfg.GS.MaxScore
	}
	in := p.DashboardInput(records)
	in.Title = report.LowScoreTitle(maxScore)
	in.Banner = report.LowScoreBanner(distinctFold(ids), maxScore, scoreRange)

	path := filepath.Join(p.cfg.GS.DashboardDir, report.DashboardFileName)
	if err := report.WriteDashboard(path, in); err != nil {
		return DashboardResult{}, err
	}
	p.logger.Info("low gs dashboard written", zap.String("path", path), zap.Int("participants", len(ids)))
	return DashboardResult{Path: path, Versions: in.Versions}, nil
}

func distinctFold(ids []string) int {
	seen := map[string]struct{}{}
	for _, id := range ids {
		seen[strings.ToLower(id)] = struct{}{}
	}
	return len(seen)
}
