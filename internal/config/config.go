// Package config loads analysis settings.
//
// Precedence (highest to lowest):
//  1. command line flags, applied by the caller
//  2. COACH_* environment variables (COACH_DATA_SESSIONS_DIR -> data.sessions_dir)
//  3. YAML file passed with --config
//  4. Default()
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/tetraminz/coaching_insights/internal/logging"
)

const (
	envPrefix         = "COACH_"
	maxConfigFileSize = 1024 * 1024
)

type Config struct {
	Data      DataConfig      `koanf:"data" yaml:"data"`
	Output    OutputConfig    `koanf:"output" yaml:"output"`
	Exclusion ExclusionConfig `koanf:"exclusion" yaml:"exclusion"`
	Bots      []BotConfig     `koanf:"bots" yaml:"bots"`
	Analysis  AnalysisConfig  `koanf:"analysis" yaml:"analysis"`
	GS        GSConfig        `koanf:"gs" yaml:"gs"`
	Log       logging.Config  `koanf:"log" yaml:"log"`
}

type DataConfig struct {
	SessionsDir string `koanf:"sessions_dir" yaml:"sessions_dir"`
	MessagesDir string `koanf:"messages_dir" yaml:"messages_dir"`
}

type OutputConfig struct {
	Dir          string `koanf:"dir" yaml:"dir"`
	DashboardDir string `koanf:"dashboard_dir" yaml:"dashboard_dir"`
	ExportDB     string `koanf:"export_db" yaml:"export_db"`
}

type ExclusionConfig struct {
	TestAccountSuffixes []string `koanf:"test_account_suffixes" yaml:"test_account_suffixes"`
}

// BotConfig is one row of the bot version table. A nil bound is open.
type BotConfig struct {
	Name          string   `koanf:"name" yaml:"name"`
	Key           string   `koanf:"key" yaml:"key"`
	ExperimentIDs []string `koanf:"experiment_ids" yaml:"experiment_ids"`
	MinVersion    *int     `koanf:"min_version" yaml:"min_version,omitempty"`
	MaxVersion    *int     `koanf:"max_version" yaml:"max_version,omitempty"`
	Control       bool     `koanf:"control" yaml:"control,omitempty"`
}

type AnalysisConfig struct {
	MaxUserMessages  int `koanf:"max_user_messages" yaml:"max_user_messages"`
	MaxUserWords     int `koanf:"max_user_words" yaml:"max_user_words"`
	MaxSessionNumber int `koanf:"max_session_number" yaml:"max_session_number"`
	Workers          int `koanf:"workers" yaml:"workers"`
	TestModeLimit    int `koanf:"test_mode_limit" yaml:"test_mode_limit"`
	PatternSample    int `koanf:"pattern_sample" yaml:"pattern_sample"`
}

type Threshold struct {
	MinRate  float64 `koanf:"min_rate" yaml:"min_rate"`
	MaxScore int     `koanf:"max_score" yaml:"max_score"`
}

type GSConfig struct {
	ScoresCSV            string      `koanf:"scores_csv" yaml:"scores_csv"`
	AnalysisJSON         string      `koanf:"analysis_json" yaml:"analysis_json"`
	SummaryCSV           string      `koanf:"summary_csv" yaml:"summary_csv"`
	DashboardDir         string      `koanf:"dashboard_dir" yaml:"dashboard_dir"`
	MinRefrigeratorRate  float64     `koanf:"min_refrigerator_rate" yaml:"min_refrigerator_rate"`
	MaxScore             int         `koanf:"max_score" yaml:"max_score"`
	SplitMinUserMessages int         `koanf:"split_min_user_messages" yaml:"split_min_user_messages"`
	Thresholds           []Threshold `koanf:"thresholds" yaml:"thresholds"`
}

func intPtr(v int) *int { return &v }

// DefaultBots is the production bot version table.
func DefaultBots() []BotConfig {
	return []BotConfig{
		{Name: "Control bot", Key: "Control", ExperimentIDs: []string{"1027993a-40c9-4484-a5fb-5c7e034dadcd"}, Control: true},
		{Name: "Coaching bot V3", Key: "V3", ExperimentIDs: []string{"e2b4855f-8550-47ff-87d2-d92018676ff3"}},
		{Name: "Coaching bot V4", Key: "V4", ExperimentIDs: []string{"b7621271-da98-459f-9f9b-f68335d09ad4"}, MinVersion: intPtr(13)},
		{Name: "Coaching bot V5", Key: "V5", ExperimentIDs: []string{"5d8be75e-03ff-4e3a-ab6a-e0aff6580986"}, MinVersion: intPtr(1), MaxVersion: intPtr(4)},
		{Name: "Coaching bot V6", Key: "V6", ExperimentIDs: []string{"5d8be75e-03ff-4e3a-ab6a-e0aff6580986"}, MinVersion: intPtr(5)},
	}
}

func DefaultThresholds() []Threshold {
	return []Threshold{
		{MinRate: 30, MaxScore: 80},
		{MinRate: 25, MaxScore: 85},
		{MinRate: 20, MaxScore: 80},
		{MinRate: 30, MaxScore: 90},
		{MinRate: 15, MaxScore: 85},
	}
}

func Default() Config {
	var cfg Config
	applyDefaults(&cfg)
	return cfg
}

// Load reads path (optional) and COACH_* variables on top of Default().
func Load(path string) (Config, error) {
	k := koanf.New(".")

	if strings.TrimSpace(path) != "" {
		content, err := readConfigFile(path)
		if err != nil {
			return Config{}, err
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return Config{}, errors.Wrapf(err, "parse config file %s", path)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return Config{}, errors.Wrap(err, "load environment variables")
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, errors.Wrap(err, "unmarshal config")
	}
	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// envKey maps COACH_GS_SCORES_CSV to gs.scores_csv: the first segment is the
// section, the rest is the field name.
func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, envPrefix))
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) == 1 {
		return lower
	}
	return parts[0] + "." + parts[1]
}

func readConfigFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrapf(err, "stat config file %s", path)
	}
	if info.IsDir() {
		return nil, errors.Newf("config path %s is a directory", path)
	}
	if info.Size() > maxConfigFileSize {
		return nil, errors.Newf("config file %s exceeds %d bytes", path, maxConfigFileSize)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config file %s", path)
	}
	return content, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Data.SessionsDir == "" {
		cfg.Data.SessionsDir = filepath.Join("data", "consolidated", "sessions")
	}
	if cfg.Data.MessagesDir == "" {
		cfg.Data.MessagesDir = filepath.Join("data", "consolidated", "messages")
	}
	if cfg.Output.Dir == "" {
		cfg.Output.Dir = "output"
	}
	if cfg.Output.DashboardDir == "" {
		cfg.Output.DashboardDir = filepath.Join(cfg.Output.Dir, "version_comparison")
	}
	if cfg.Output.ExportDB == "" {
		cfg.Output.ExportDB = filepath.Join(cfg.Output.Dir, "session_classifications.db")
	}
	if cfg.Exclusion.TestAccountSuffixes == nil {
		cfg.Exclusion.TestAccountSuffixes = []string{"@dimagi.com"}
	}
	if len(cfg.Bots) == 0 {
		cfg.Bots = DefaultBots()
	}
	if cfg.Analysis.MaxUserMessages == 0 {
		cfg.Analysis.MaxUserMessages = 50
	}
	if cfg.Analysis.MaxUserWords == 0 {
		cfg.Analysis.MaxUserWords = 1000
	}
	if cfg.Analysis.MaxSessionNumber == 0 {
		cfg.Analysis.MaxSessionNumber = 22
	}
	if cfg.Analysis.Workers == 0 {
		cfg.Analysis.Workers = 8
	}
	if cfg.Analysis.TestModeLimit == 0 {
		cfg.Analysis.TestModeLimit = 200
	}
	if cfg.Analysis.PatternSample == 0 {
		cfg.Analysis.PatternSample = 200
	}
	if cfg.GS.AnalysisJSON == "" {
		cfg.GS.AnalysisJSON = filepath.Join(cfg.Output.Dir, "high_refrigerator_low_gs_analysis.json")
	}
	if cfg.GS.SummaryCSV == "" {
		cfg.GS.SummaryCSV = filepath.Join(cfg.Output.Dir, "high_refrigerator_low_gs_summary.csv")
	}
	if cfg.GS.DashboardDir == "" {
		cfg.GS.DashboardDir = filepath.Join(cfg.Output.Dir, "low_gs_participants_dashboard")
	}
	if cfg.GS.MinRefrigeratorRate == 0 {
		cfg.GS.MinRefrigeratorRate = 15
	}
	if cfg.GS.MaxScore == 0 {
		cfg.GS.MaxScore = 85
	}
	if cfg.GS.SplitMinUserMessages == 0 {
		cfg.GS.SplitMinUserMessages = 3
	}
	if len(cfg.GS.Thresholds) == 0 {
		cfg.GS.Thresholds = DefaultThresholds()
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
}

// SetDataRoot points both data directories below root.
func (c *Config) SetDataRoot(root string) {
	c.Data.SessionsDir = filepath.Join(root, "sessions")
	c.Data.MessagesDir = filepath.Join(root, "messages")
}

// SetOutputDir moves every derived output path below dir.
func (c *Config) SetOutputDir(dir string) {
	c.Output.Dir = dir
	c.Output.DashboardDir = filepath.Join(dir, "version_comparison")
	c.Output.ExportDB = filepath.Join(dir, "session_classifications.db")
	c.GS.AnalysisJSON = filepath.Join(dir, "high_refrigerator_low_gs_analysis.json")
	c.GS.SummaryCSV = filepath.Join(dir, "high_refrigerator_low_gs_summary.csv")
	c.GS.DashboardDir = filepath.Join(dir, "low_gs_participants_dashboard")
}

func (c Config) Validate() error {
	if len(c.Bots) == 0 {
		return errors.New("at least one bot version is required")
	}
	seenKeys := map[string]struct{}{}
	for i, bot := range c.Bots {
		if strings.TrimSpace(bot.Name) == "" {
			return errors.Newf("bots[%d]: name is required", i)
		}
		if strings.TrimSpace(bot.Key) == "" {
			return errors.Newf("bots[%d] %q: key is required", i, bot.Name)
		}
		if _, ok := seenKeys[bot.Key]; ok {
			return errors.Newf("bots[%d] %q: duplicate key %q", i, bot.Name, bot.Key)
		}
		seenKeys[bot.Key] = struct{}{}
		if len(bot.ExperimentIDs) == 0 {
			return errors.Newf("bots[%d] %q: experiment_ids is required", i, bot.Name)
		}
		for _, id := range bot.ExperimentIDs {
			if _, err := uuid.Parse(id); err != nil {
				return errors.Wrapf(err, "bots[%d] %q: experiment id %q", i, bot.Name, id)
			}
		}
		if bot.MaxVersion != nil && bot.MinVersion == nil {
			return errors.Newf("bots[%d] %q: max_version requires min_version", i, bot.Name)
		}
		if bot.MinVersion != nil && bot.MaxVersion != nil && *bot.MinVersion > *bot.MaxVersion {
			return errors.Newf("bots[%d] %q: min_version %d > max_version %d", i, bot.Name, *bot.MinVersion, *bot.MaxVersion)
		}
	}
	if c.Analysis.Workers < 1 {
		return errors.New("analysis.workers must be >= 1")
	}
	if c.Analysis.MaxSessionNumber < 1 {
		return errors.New("analysis.max_session_number must be >= 1")
	}
	if c.GS.SplitMinUserMessages < 1 {
		return errors.New("gs.split_min_user_messages must be >= 1")
	}
	return nil
}
