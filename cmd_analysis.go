package main

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/tetraminz/coaching_insights/internal/classify"
	"github.com/tetraminz/coaching_insights/internal/compute"
	"github.com/tetraminz/coaching_insights/internal/pipeline"
	"github.com/tetraminz/coaching_insights/internal/rating"
	"github.com/tetraminz/coaching_insights/internal/report"
)

var (
	ratingsTest        bool
	patternFiles       int
	unknownBots        []string
	unknownSessionsBot string
	experimentName     string
	spikeMethod        string
	spikeSession       int
)

var ratingsCmd = &cobra.Command{
	Use:   "ratings",
	Short: "Rating question and answer coverage",
	Long: `Count sessions where the bot asked for a 1 to 5 usefulness rating and
sessions where a rating could be extracted. Test accounts are excluded; split
sessions are kept.`,
	RunE: runRatings,
}

var ratingPatternsCmd = &cobra.Command{
	Use:   "rating-patterns",
	Short: "How rating questions are phrased in a message sample",
	RunE:  runRatingPatterns,
}

var unknownMessagesCmd = &cobra.Command{
	Use:   "unknown-messages",
	Short: "Message counts of sessions without a detected method",
	RunE:  runUnknownMessages,
}

var unknownSessionsCmd = &cobra.Command{
	Use:   "unknown-sessions",
	Short: "List sessions without a detected method",
	RunE:  runUnknownSessions,
}

var experimentCmd = &cobra.Command{
	Use:   "experiment",
	Short: "Version and tag census of one experiment",
	Long: `Match sessions whose experiment name contains --name and count their
platform version numbers and session tags.`,
	RunE: runExperiment,
}

var spikeCmd = &cobra.Command{
	Use:   "spike",
	Short: "Sessions behind one point of the progression chart",
	Long: `Find every participant's n-th session with the given coaching method and
show the wordiest ones.

Example:
  coaching-insights spike --method "Visit check in" --session 10`,
	RunE: runSpike,
}

func init() {
	ratingsCmd.Flags().BoolVar(&ratingsTest, "test", false, "Only read the first session files")
	ratingPatternsCmd.Flags().IntVar(&patternFiles, "files", 0, "Message files to sample (default analysis.pattern_sample)")
	unknownMessagesCmd.Flags().StringSliceVar(&unknownBots, "bots", defaultUnknownMessageBots, "Bot keys to analyze")
	unknownSessionsCmd.Flags().StringVar(&unknownSessionsBot, "bot", defaultUnknownBot, "Bot key")
	experimentCmd.Flags().StringVar(&experimentName, "name", defaultExperimentName, "Experiment name substring")
	spikeCmd.Flags().StringVar(&spikeMethod, "method", defaultSpikeMethod, "Coaching method")
	spikeCmd.Flags().IntVar(&spikeSession, "session", defaultSpikeSession, "Session number")

	rootCmd.AddCommand(ratingsCmd)
	rootCmd.AddCommand(ratingPatternsCmd)
	rootCmd.AddCommand(unknownMessagesCmd)
	rootCmd.AddCommand(unknownSessionsCmd)
	rootCmd.AddCommand(experimentCmd)
	rootCmd.AddCommand(spikeCmd)
}

func runRatings(cmd *cobra.Command, args []string) error {
	records, err := newPipeline().LoadRecords(cmd.Context(), pipeline.LoadOptions{
		AllExperiments: true,
		TestMode:       ratingsTest,
	})
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), report.FormatRatingCoverage(compute.ComputeRatingCoverage(records)))
	return nil
}

func runRatingPatterns(cmd *cobra.Command, args []string) error {
	messages, err := newPipeline().LoadMessageSample(cmd.Context(), patternFiles)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), report.FormatRatingCensus(rating.BuildCensus(messages)))
	return nil
}

func lookupBot(p *pipeline.Pipeline, key string) (classify.BotVersion, error) {
	bot, ok := p.Classifier().Bot(key)
	if !ok {
		return classify.BotVersion{}, errors.WithHintf(
			errors.Newf("unknown bot %q", key),
			"configured bots: %v", p.Classifier().BotKeys(),
		)
	}
	return bot, nil
}

func runUnknownMessages(cmd *cobra.Command, args []string) error {
	p := newPipeline()
	bots := make([]classify.BotVersion, 0, len(unknownBots))
	for _, key := range unknownBots {
		bot, err := lookupBot(p, key)
		if err != nil {
			return err
		}
		bots = append(bots, bot)
	}

	records, err := p.LoadRecords(cmd.Context(), pipeline.LoadOptions{})
	if err != nil {
		return err
	}
	stats := make([]compute.MessageStats, 0, len(bots))
	for _, bot := range bots {
		stats = append(stats, compute.UnknownMessageStats(records, bot))
	}
	fmt.Fprint(cmd.OutOrStdout(), report.FormatUnknownMessages(stats))
	return nil
}

func runUnknownSessions(cmd *cobra.Command, args []string) error {
	p := newPipeline()
	bot, err := lookupBot(p, unknownSessionsBot)
	if err != nil {
		return err
	}
	records, err := p.LoadRecords(cmd.Context(), pipeline.LoadOptions{})
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), report.FormatUnknownSessions(bot.Key, compute.UnknownSessions(records, bot)))
	return nil
}

func runExperiment(cmd *cobra.Command, args []string) error {
	sessions, err := newPipeline().LoadSessions(cmd.Context(), pipeline.LoadOptions{AllExperiments: true})
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), report.FormatExperiment(compute.CensusExperiment(sessions, experimentName)))
	return nil
}

func runSpike(cmd *cobra.Command, args []string) error {
	method, err := parseMethod(spikeMethod)
	if err != nil {
		return err
	}
	records, err := newPipeline().LoadRecords(cmd.Context(), pipeline.LoadOptions{})
	if err != nil {
		return err
	}
	result := compute.InvestigateSpike(records, compute.SpikeQuery{Method: method, SessionNumber: spikeSession})
	fmt.Fprint(cmd.OutOrStdout(), report.FormatSpike(result))
	return nil
}

func parseMethod(raw string) (classify.Method, error) {
	for _, method := range classify.Methods {
		if string(method) == raw {
			return method, nil
		}
	}
	return "", errors.WithHintf(errors.Newf("unknown coaching method %q", raw), "one of %v", classify.Methods)
}
