// Package report renders analysis results as the HTML dashboard and as
// console tables.
package report

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/tetraminz/coaching_insights/internal/classify"
	"github.com/tetraminz/coaching_insights/internal/compute"
	"github.com/tetraminz/coaching_insights/internal/rating"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

const (
	DefaultTitle      = "Version Comparison Dashboard"
	DashboardFileName = "version_comparison_dashboard.html"
	noValue           = "-"
)

var dashboardTemplate = template.Must(
	template.New("dashboard.html.tmpl").
		Funcs(template.FuncMap{"methodTable": newMethodTableView}).
		ParseFS(templateFS, "templates/dashboard.html.tmpl"),
)

// Banner is the highlighted note shown on filtered dashboards.
type Banner struct {
	Heading  string
	Lead     string
	Emphasis string
	Detail   string
	Note     string
}

// LowScoreBanner describes a dashboard restricted to low GS participants.
// scoreRange is "lo-hi", or empty when no score is known.
func LowScoreBanner(participants, maxScore int, scoreRange string) *Banner {
	if scoreRange == "" {
		scoreRange = fmt.Sprintf("≤%d", maxScore)
	}
	return &Banner{
		Heading:  "Filtered Dashboard",
		Lead:     "This dashboard shows data for",
		Emphasis: fmt.Sprintf("%d participants with GS scores ≤%d", participants, maxScore),
		Detail:   fmt.Sprintf("(GS range: %s).", scoreRange),
		Note:     "All sessions from these participants are included, regardless of refrigerator example status.",
	}
}

// LowScoreTitle is the page title of the low GS dashboard.
func LowScoreTitle(maxScore int) string {
	return fmt.Sprintf("%s - Low GS Score Participants (≤%d)", DefaultTitle, maxScore)
}

// DashboardInput carries the computed aggregates for one dashboard.
type DashboardInput struct {
	Title               string
	Banner              *Banner
	Generated           time.Time
	Bots                []classify.BotVersion
	TestSuffixes        []string
	Versions            []compute.VersionMetrics
	Tables              compute.MethodTables
	RatingStats         rating.Statistics
	Progression         compute.Progression
	ProgressionFiltered compute.Progression
	Limits              compute.OutlierLimits
	MaxSessionNumber    int
}

// SummaryRow is one preformatted line of the summary table.
type SummaryRow struct {
	Name          string
	Sessions      int
	Annotated     int
	Refrigerator  string
	MedianWords   string
	AverageRating string
}

// MethodRow is one method line of a method x version table.
type MethodRow struct {
	Method string
	Cells  []string
}

type BotDefinition struct {
	Name          string
	ExperimentIDs string
	Range         string
}

// DashboardData is the template model. Every cell is already formatted.
type DashboardData struct {
	Title            string
	Banner           *Banner
	Generated        string
	Versions         []string
	Summary          []SummaryRow
	RefrigeratorRows []MethodRow
	RatingRows       []MethodRow
	MessageRows      []MethodRow
	WordRows         []MethodRow
	WordRowsFiltered []MethodRow
	RatingStats      *rating.Statistics
	Bots             []BotDefinition
	TestSuffixes     string
	Limits           compute.OutlierLimits
	MaxSessionNumber int

	Progression         compute.Progression
	ProgressionFiltered compute.Progression
}

type methodTableView struct {
	Title    string
	ID       string
	Versions []string
	Rows     []MethodRow
}

func newMethodTableView(title, id string, versions []string, rows []MethodRow) methodTableView {
	return methodTableView{Title: title, ID: id, Versions: versions, Rows: rows}
}

// BuildDashboard turns aggregates into the template model.
func BuildDashboard(in DashboardInput) DashboardData {
	title := in.Title
	if title == "" {
		title = DefaultTitle
	}
	generated := in.Generated
	if generated.IsZero() {
		generated = time.Now()
	}

	data := DashboardData{
		Title:               title,
		Banner:              in.Banner,
		Generated:           generated.Format("2006-01-02 15:04:05"),
		TestSuffixes:        strings.Join(in.TestSuffixes, " or "),
		Limits:              in.Limits,
		MaxSessionNumber:    in.MaxSessionNumber,
		Progression:         in.Progression,
		ProgressionFiltered: in.ProgressionFiltered,
	}
	for _, bot := range in.Bots {
		data.Versions = append(data.Versions, bot.Name)
		data.Bots = append(data.Bots, BotDefinition{
			Name:          bot.Name,
			ExperimentIDs: strings.Join(bot.ExperimentIDs, ", "),
			Range:         bot.RangeLabel(),
		})
	}
	for _, v := range in.Versions {
		data.Summary = append(data.Summary, SummaryRow{
			Name:          v.Name,
			Sessions:      v.TotalSessions,
			Annotated:     v.AnnotatedSessions,
			Refrigerator:  fmt.Sprintf("%.1f%%", v.RefrigeratorPercent),
			MedianWords:   fmt.Sprintf("%.1f", v.MedianUserWords),
			AverageRating: fmt.Sprintf("%.2f", v.AverageRating),
		})
	}
	if in.RatingStats.TotalSessions > 0 {
		stats := in.RatingStats
		data.RatingStats = &stats
	}

	data.RefrigeratorRows = refrigeratorRows(in.Bots, in.Versions)
	data.RatingRows = methodRows(in.Bots, in.Tables.AverageRating, ratingCell)
	data.MessageRows = methodRows(in.Bots, in.Tables.MedianMessages, medianCell)
	data.WordRows = methodRows(in.Bots, in.Tables.MedianWords, medianCell)
	data.WordRowsFiltered = methodRows(in.Bots, in.Tables.MedianWordsFiltered, medianCell)
	return data
}

// refrigeratorRows lists only methods that have a rate in some version.
// Versions are looked up by bot key.
func refrigeratorRows(bots []classify.BotVersion, versions []compute.VersionMetrics) []MethodRow {
	byKey := make(map[string]compute.VersionMetrics, len(versions))
	present := map[classify.Method]bool{}
	for _, v := range versions {
		byKey[v.Key] = v
		for method := range v.MethodRefrigerator {
			present[method] = true
		}
	}

	var rows []MethodRow
	for _, method := range classify.Methods {
		if !present[method] {
			continue
		}
		row := MethodRow{Method: string(method)}
		for _, bot := range bots {
			rate := byKey[bot.Key].MethodRefrigerator[method]
			cell := noValue
			if rate > 0 {
				cell = fmt.Sprintf("%.1f%%", rate)
			}
			row.Cells = append(row.Cells, cell)
		}
		rows = append(rows, row)
	}
	return rows
}

type cellFormatter func(method classify.Method, control bool, value float64) string

func methodRows(bots []classify.BotVersion, table compute.MethodTable, format cellFormatter) []MethodRow {
	rows := make([]MethodRow, 0, len(classify.Methods))
	for _, method := range classify.Methods {
		row := MethodRow{Method: string(method)}
		for _, bot := range bots {
			row.Cells = append(row.Cells, format(method, bot.Control, table.Get(method, bot.Key)))
		}
		rows = append(rows, row)
	}
	return rows
}

func ratingCell(method classify.Method, control bool, value float64) string {
	if control && method != classify.MethodUnknown {
		return noValue
	}
	if value > 0 {
		return fmt.Sprintf("%.2f", value)
	}
	return noValue
}

// medianCell prints the control bot's Unknown row even when it is zero.
func medianCell(method classify.Method, control bool, value float64) string {
	if control {
		if method != classify.MethodUnknown {
			return noValue
		}
		return fmt.Sprintf("%.1f", value)
	}
	if value > 0 {
		return fmt.Sprintf("%.1f", value)
	}
	return noValue
}

func RenderDashboard(w io.Writer, data DashboardData) error {
	if err := dashboardTemplate.Execute(w, data); err != nil {
		return errors.Wrap(err, "render dashboard")
	}
	return nil
}

// WriteDashboard builds and writes the dashboard to path.
func WriteDashboard(path string, in DashboardInput) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "create dashboard dir for %s", path)
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	if err := RenderDashboard(f, BuildDashboard(in)); err != nil {
		_ = f.Close()
		return err
	}
	return errors.Wrapf(f.Close(), "close %s", path)
}
