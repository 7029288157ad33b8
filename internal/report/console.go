package report

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pterm/pterm"

	"github.com/tetraminz/coaching_insights/internal/compute"
	"github.com/tetraminz/coaching_insights/internal/gsscore"
	"github.com/tetraminz/coaching_insights/internal/rating"
)

const (
	censusListLimit     = 5
	censusResponseLimit = 10
	sessionListLimit    = 10
)

// DisableStyling turns off colors in every console report.
func DisableStyling() {
	pterm.DisableStyling()
}

func renderTable(header []string, rows [][]string) string {
	data := pterm.TableData{header}
	data = append(data, rows...)
	out, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return fmt.Sprintf("table: %v\n", err)
	}
	return out + "\n"
}

func section(b *strings.Builder, title string) {
	b.WriteString("\n")
	b.WriteString(title)
	b.WriteString("\n")
	b.WriteString(strings.Repeat("=", len([]rune(title))))
	b.WriteString("\n")
}

// FormatVersionSummary prints the dashboard summary table.
func FormatVersionSummary(versions []compute.VersionMetrics) string {
	rows := make([][]string, 0, len(versions))
	for _, v := range versions {
		rows = append(rows, []string{
			v.Name,
			strconv.Itoa(v.TotalSessions),
			strconv.Itoa(v.AnnotatedSessions),
			fmt.Sprintf("%.1f%%", v.RefrigeratorPercent),
			fmt.Sprintf("%.1f", v.MedianUserWords),
			fmt.Sprintf("%.2f", v.AverageRating),
		})
	}
	var b strings.Builder
	section(&b, "Summary Metrics by Version")
	b.WriteString(renderTable([]string{"Version", "Sessions", "Annotated", "Refrigerator %", "Median Words", "Avg Rating"}, rows))
	return b.String()
}

func FormatRatingCoverage(c compute.RatingCoverage) string {
	var b strings.Builder
	section(&b, "Rating Coverage")
	fmt.Fprintf(&b, "total_sessions=%d\n", c.TotalSessions)
	fmt.Fprintf(&b, "test_excluded=%d\n", c.TestExcluded)
	fmt.Fprintf(&b, "sessions_with_messages=%d\n", c.WithMessages)
	fmt.Fprintf(&b, "rating_questions=%d (%.1f%%)\n", c.LooseQuestions, 100*c.QuestionRatio())
	fmt.Fprintf(&b, "exact_questions=%d (%.1f%%)\n", c.ExactQuestions, 100*c.ExactRatio())
	fmt.Fprintf(&b, "ratings_extracted=%d (%.1f%%)\n", len(c.Ratings), 100*c.RatingRatio())

	if len(c.Ratings) == 0 {
		return b.String()
	}
	distribution := map[int]int{}
	sum := 0
	for _, r := range c.Ratings {
		distribution[r.Rating]++
		sum += r.Rating
	}
	fmt.Fprintf(&b, "average_rating=%.2f\n", float64(sum)/float64(len(c.Ratings)))

	var rows [][]string
	for value := 1; value <= 5; value++ {
		count := distribution[value]
		rows = append(rows, []string{
			strconv.Itoa(value),
			strconv.Itoa(count),
			fmt.Sprintf("%.1f%%", 100*float64(count)/float64(len(c.Ratings))),
		})
	}
	section(&b, "Rating Distribution")
	b.WriteString(renderTable([]string{"Rating", "Sessions", "Share"}, rows))
	return b.String()
}

func FormatRatingCensus(c rating.Census) string {
	var b strings.Builder
	section(&b, "Rating Pattern Census")
	fmt.Fprintf(&b, "messages_analyzed=%d\n", c.MessagesAnalyzed)
	fmt.Fprintf(&b, "keywords=%s\n", strings.Join(c.Keywords, ", "))
	fmt.Fprintf(&b, "number_patterns=%s\n", strings.Join(c.NumberPatterns, ", "))

	lists := []struct {
		title string
		items []string
		limit int
	}{
		{"Usefulness mentions", c.UsefulnessMentions, censusListLimit},
		{"Rate mentions", c.RateMentions, censusListLimit},
		{"Score mentions", c.ScoreMentions, censusListLimit},
		{"Feedback mentions", c.FeedbackMentions, censusListLimit},
		{"Potential rating questions", c.PotentialQuestions, censusResponseLimit},
		{"Broad pattern matches", c.BroadMatches, censusListLimit},
	}
	for _, list := range lists {
		section(&b, fmt.Sprintf("%s (%d)", list.title, len(list.items)))
		for i, item := range list.items {
			if i == list.limit {
				break
			}
			fmt.Fprintf(&b, "%d. %s\n", i+1, item)
		}
	}

	section(&b, fmt.Sprintf("User rating responses (%d)", len(c.UserResponses)))
	var rows [][]string
	for i, r := range c.UserResponses {
		if i == censusResponseLimit {
			break
		}
		rows = append(rows, []string{string(r.Kind), r.Content})
	}
	if len(rows) > 0 {
		b.WriteString(renderTable([]string{"Kind", "Content"}, rows))
	}
	return b.String()
}

func FormatUnknownMessages(stats []compute.MessageStats) string {
	var b strings.Builder
	section(&b, "Unknown Method Sessions: Participant Messages")
	rows := make([][]string, 0, len(stats))
	for _, s := range stats {
		q1, q3 := "-", "-"
		if s.HasQuartiles {
			q1, q3 = fmt.Sprintf("%.1f", s.Q1), fmt.Sprintf("%.1f", s.Q3)
		}
		rows = append(rows, []string{
			s.Bot,
			strconv.Itoa(s.Sessions),
			strconv.Itoa(s.TotalMessages),
			fmt.Sprintf("%.2f", s.Mean),
			fmt.Sprintf("%.1f", s.Median),
			strconv.Itoa(s.WithMessages),
			strconv.Itoa(s.WithoutMessages),
			fmt.Sprintf("%.1f%%", s.WithPercent),
			strconv.Itoa(s.Min),
			strconv.Itoa(s.Max),
			q1,
			q3,
		})
	}
	b.WriteString(renderTable([]string{
		"Bot", "Sessions", "Messages", "Mean", "Median", "With", "Without", "With %", "Min", "Max", "Q1", "Q3",
	}, rows))
	return b.String()
}

func FormatUnknownSessions(bot string, ids []string) string {
	var b strings.Builder
	section(&b, fmt.Sprintf("%s sessions with Unknown method", bot))
	fmt.Fprintf(&b, "sessions=%d\n", len(ids))
	for i, id := range ids {
		if i == sessionListLimit {
			fmt.Fprintf(&b, "... and %d more\n", len(ids)-sessionListLimit)
			break
		}
		fmt.Fprintf(&b, "%d. %s\n", i+1, id)
	}
	return b.String()
}

func FormatExperiment(c compute.ExperimentCensus) string {
	var b strings.Builder
	section(&b, fmt.Sprintf("Experiment %q", c.Query))
	fmt.Fprintf(&b, "sessions=%d\n", c.Sessions)
	if c.Sessions == 0 {
		return b.String()
	}
	fmt.Fprintf(&b, "version_range=%d..%d\n", c.MinVersion, c.MaxVersion)

	versions := make([][]string, 0, len(c.VersionCounts))
	for _, v := range c.VersionCounts {
		versions = append(versions, []string{strconv.Itoa(v.Version), strconv.Itoa(v.Count)})
	}
	b.WriteString(renderTable([]string{"Version", "Sessions"}, versions))

	fmt.Fprintf(&b, "total_tags=%d\n", c.TotalTags)
	if len(c.TagCounts) > 0 {
		tags := make([][]string, 0, len(c.TagCounts))
		for _, t := range c.TagCounts {
			tags = append(tags, []string{t.Tag, strconv.Itoa(t.Count)})
		}
		b.WriteString(renderTable([]string{"Tag", "Count"}, tags))
	}

	section(&b, "Samples")
	samples := make([][]string, 0, len(c.Samples))
	for _, s := range c.Samples {
		samples = append(samples, []string{
			s.ID,
			strconv.Itoa(s.Version),
			strings.Join(s.Tags, ", "),
			strconv.Itoa(s.MessageCount),
			s.FirstMessageRole,
		})
	}
	b.WriteString(renderTable([]string{"Session", "Version", "Tags", "Messages", "First Role"}, samples))
	return b.String()
}

func FormatSpike(r compute.SpikeReport) string {
	var b strings.Builder
	section(&b, fmt.Sprintf("%s, session #%d", r.Query.Method, r.Query.SessionNumber))
	fmt.Fprintf(&b, "matching_sessions=%d\n", r.Matches)
	if len(r.Top) == 0 {
		return b.String()
	}

	rows := make([][]string, 0, len(r.Top))
	for _, s := range r.Top {
		rows = append(rows, []string{s.SessionID, s.ParticipantID, s.CreatedAt, strconv.Itoa(s.UserWords)})
	}
	b.WriteString(renderTable([]string{"Session", "Participant", "Created", "User Words"}, rows))

	if d := r.Detail; d != nil {
		section(&b, "Top session "+d.SessionID)
		for i, m := range d.UserMessages {
			fmt.Fprintf(&b, "user %d: %s\n", i+1, m)
		}
		fmt.Fprintf(&b, "user_messages_total=%d\n", d.UserTotal)
		fmt.Fprintf(&b, "session_tags=%s\n", strings.Join(d.SessionTags, ", "))
		fmt.Fprintf(&b, "message_tags=%s\n", strings.Join(d.MessageTags, ", "))
	}
	return b.String()
}

func FormatGSAnalysis(a gsscore.Analysis, opts gsscore.Options) string {
	var b strings.Builder
	section(&b, "GS Score Analysis")
	fmt.Fprintf(&b, "participants_with_sessions=%d\n", len(a.Stats))
	fmt.Fprintf(&b, "participants_with_scores=%d\n", len(a.Joined))

	s := a.Summary
	if s.Participants > 0 {
		fmt.Fprintf(&b, "gs_score avg=%.1f min=%d max=%d\n", s.AverageScore, s.MinScore, s.MaxScore)
		fmt.Fprintf(&b, "refrigerator_rate avg=%.1f%% max=%.1f%%\n", s.AverageRate, s.MaxRate)

		section(&b, "Top participants by refrigerator rate")
		b.WriteString(participantTable(s.TopByRate, false))
	}

	section(&b, "Threshold grid")
	grid := make([][]string, 0, len(a.Grid))
	for _, g := range a.Grid {
		grid = append(grid, []string{
			fmt.Sprintf("%.0f%%", g.Threshold.MinRate),
			strconv.Itoa(g.Threshold.MaxScore),
			strconv.Itoa(len(g.Participants)),
		})
	}
	b.WriteString(renderTable([]string{"Min Rate", "Max GS", "Participants"}, grid))

	section(&b, "Selection")
	fmt.Fprintf(&b, "rate_with_split>=%.0f%%: %d\n", opts.MinRate, a.HighRate)
	fmt.Fprintf(&b, "rate_with_split>=%.0f%% and gs<=%d: %d\n", opts.MinRate, opts.MaxScore, a.HighRateWithScore)
	if a.Fallback {
		fmt.Fprintf(&b, "no participant reached the rate, falling back to all participants with gs<=%d\n", opts.MaxScore)
	}
	fmt.Fprintf(&b, "selected=%d\n", len(a.Selected))
	if len(a.Selected) > 0 {
		b.WriteString(participantTable(a.Selected, true))
	}
	return b.String()
}

func participantTable(participants []gsscore.Participant, withSplit bool) string {
	header := []string{"Participant", "GS", "Sessions", "Refrigerator", "Rate"}
	if withSplit {
		header = append(header, "Split", "Rate w/ Split")
	}
	rows := make([][]string, 0, len(participants))
	for _, p := range participants {
		row := []string{
			p.Stats.ParticipantID,
			strconv.Itoa(p.Score),
			strconv.Itoa(p.Stats.TotalSessions),
			strconv.Itoa(p.Stats.RefrigeratorSessions),
			fmt.Sprintf("%.1f%%", p.Stats.Rate()),
		}
		if withSplit {
			row = append(row, strconv.Itoa(p.Stats.SplitSessions), fmt.Sprintf("%.1f%%", p.Stats.RateWithSplit()))
		}
		rows = append(rows, row)
	}
	return renderTable(header, rows)
}
