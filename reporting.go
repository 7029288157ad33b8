package main

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
)

const unmatchedBotLabel = "(no bot)"

type exportReport struct {
	RunID      string
	ExportedAt string

	TotalRows    int
	SplitRows    int
	TestRows     int
	ValidRows    int
	WithMessages int

	AnnotatedRows       int
	RefrigeratorRows    int
	RefrigeratorPercent float64

	LooseQuestionRows  int
	ExactQuestionRows  int
	RatedRows          int
	QuestionPercent    float64
	RatingPercent      float64
	AverageRating      float64
	RatingDistribution [5]int

	ByBot    []countItem
	ByMethod []countItem
}

type countItem struct {
	Label string
	Count int
}

// BuildReport summarises an export database.
func BuildReport(dbPath string) (exportReport, error) {
	db, err := openSQLite(dbPath)
	if err != nil {
		return exportReport{}, err
	}
	defer db.Close()
	if err := ensureStoreSchema(db); err != nil {
		return exportReport{}, err
	}

	report := exportReport{}
	if err := db.QueryRow(
		`SELECT run_id, exported_at_utc FROM export_runs ORDER BY exported_at_utc DESC LIMIT 1`,
	).Scan(&report.RunID, &report.ExportedAt); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return exportReport{}, errors.Wrap(err, "query export run")
	}

	rows, err := db.Query(`
		SELECT
			bot_key,
			method,
			has_messages,
			is_split,
			is_test,
			annotated,
			refrigerator_example,
			loose_question,
			exact_question,
			rating
		FROM session_classifications
	`)
	if err != nil {
		return exportReport{}, errors.Wrap(err, "query session_classifications")
	}
	defer rows.Close()

	byBot := map[string]int{}
	byMethod := map[string]int{}
	ratingSum := 0
	for rows.Next() {
		var botKey, method string
		var hasMessages, split, test, annotated, refrigerator, loose, exact int
		var value sql.NullInt64
		if err := rows.Scan(
			&botKey,
			&method,
			&hasMessages,
			&split,
			&test,
			&annotated,
			&refrigerator,
			&loose,
			&exact,
			&value,
		); err != nil {
			return exportReport{}, errors.Wrap(err, "scan classification row")
		}

		report.TotalRows++
		if test == 1 {
			report.TestRows++
			continue
		}
		if hasMessages == 1 {
			report.WithMessages++
		}
		if split == 1 {
			report.SplitRows++
			continue
		}

		report.ValidRows++
		if botKey == "" {
			botKey = unmatchedBotLabel
		}
		byBot[botKey]++
		byMethod[method]++
		if annotated == 1 {
			report.AnnotatedRows++
			if refrigerator == 1 {
				report.RefrigeratorRows++
			}
		}
		if loose == 1 {
			report.LooseQuestionRows++
		}
		if exact == 1 {
			report.ExactQuestionRows++
		}
		if value.Valid && value.Int64 >= 1 && value.Int64 <= 5 {
			report.RatedRows++
			ratingSum += int(value.Int64)
			report.RatingDistribution[value.Int64-1]++
		}
	}
	if err := rows.Err(); err != nil {
		return exportReport{}, errors.Wrap(err, "iterate classification rows")
	}

	if report.AnnotatedRows > 0 {
		report.RefrigeratorPercent = 100.0 * float64(report.RefrigeratorRows) / float64(report.AnnotatedRows)
	}
	if report.ValidRows > 0 {
		report.QuestionPercent = 100.0 * float64(report.LooseQuestionRows) / float64(report.ValidRows)
		report.RatingPercent = 100.0 * float64(report.RatedRows) / float64(report.ValidRows)
	}
	if report.RatedRows > 0 {
		report.AverageRating = float64(ratingSum) / float64(report.RatedRows)
	}
	report.ByBot = sortedCounts(byBot)
	report.ByMethod = sortedCounts(byMethod)
	return report, nil
}

func sortedCounts(counts map[string]int) []countItem {
	items := make([]countItem, 0, len(counts))
	for label, count := range counts {
		items = append(items, countItem{Label: label, Count: count})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Count == items[j].Count {
			return items[i].Label < items[j].Label
		}
		return items[i].Count > items[j].Count
	})
	return items
}

func BuildReportMarkdown(dbPath string) (string, error) {
	report, err := BuildReport(dbPath)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("# Session Classification Export\n\n")
	if report.RunID != "" {
		b.WriteString(fmt.Sprintf("- run_id: `%s`\n", report.RunID))
		b.WriteString(fmt.Sprintf("- exported_at_utc: `%s`\n\n", report.ExportedAt))
	}

	b.WriteString("## Totals\n")
	b.WriteString(fmt.Sprintf("- total_rows: `%d`\n", report.TotalRows))
	b.WriteString(fmt.Sprintf("- test_rows: `%d`\n", report.TestRows))
	b.WriteString(fmt.Sprintf("- split_rows: `%d`\n", report.SplitRows))
	b.WriteString(fmt.Sprintf("- valid_rows: `%d`\n\n", report.ValidRows))

	b.WriteString("## Refrigerator Examples\n")
	b.WriteString(fmt.Sprintf("- annotated_rows: `%d`\n", report.AnnotatedRows))
	b.WriteString(fmt.Sprintf("- refrigerator_rows: `%d` (%.1f%%)\n\n", report.RefrigeratorRows, report.RefrigeratorPercent))

	b.WriteString("## Ratings\n")
	b.WriteString(fmt.Sprintf("- rating_questions: `%d` (%.1f%%)\n", report.LooseQuestionRows, report.QuestionPercent))
	b.WriteString(fmt.Sprintf("- exact_questions: `%d`\n", report.ExactQuestionRows))
	b.WriteString(fmt.Sprintf("- rated_sessions: `%d` (%.1f%%)\n", report.RatedRows, report.RatingPercent))
	b.WriteString(fmt.Sprintf("- average_rating: `%.2f`\n\n", report.AverageRating))
	if report.RatedRows > 0 {
		b.WriteString("| rating | sessions |\n")
		b.WriteString("| ---: | ---: |\n")
		for i, count := range report.RatingDistribution {
			b.WriteString(fmt.Sprintf("| %d | `%d` |\n", i+1, count))
		}
		b.WriteString("\n")
	}

	writeCountTable(&b, "Sessions by Bot", "bot", report.ByBot)
	writeCountTable(&b, "Sessions by Method", "method", report.ByMethod)
	return b.String(), nil
}

func writeCountTable(b *strings.Builder, title, column string, items []countItem) {
	b.WriteString("## " + title + "\n")
	if len(items) == 0 {
		b.WriteString("- none\n\n")
		return
	}
	b.WriteString(fmt.Sprintf("| %s | sessions |\n", column))
	b.WriteString("| --- | ---: |\n")
	for _, item := range items {
		b.WriteString(fmt.Sprintf("| %s | `%d` |\n", item.Label, item.Count))
	}
	b.WriteString("\n")
}

func FormatReport(r exportReport) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("total_rows=%d\n", r.TotalRows))
	b.WriteString(fmt.Sprintf("test_rows=%d\n", r.TestRows))
	b.WriteString(fmt.Sprintf("split_rows=%d\n", r.SplitRows))
	b.WriteString(fmt.Sprintf("valid_rows=%d\n", r.ValidRows))
	b.WriteString(fmt.Sprintf("refrigerator_percent=%.1f (%d/%d)\n", r.RefrigeratorPercent, r.RefrigeratorRows, r.AnnotatedRows))
	b.WriteString(fmt.Sprintf("rating_questions=%d (%.1f%%)\n", r.LooseQuestionRows, r.QuestionPercent))
	b.WriteString(fmt.Sprintf("rated_sessions=%d (%.1f%%)\n", r.RatedRows, r.RatingPercent))
	b.WriteString(fmt.Sprintf("average_rating=%.2f\n", r.AverageRating))
	for _, item := range r.ByBot {
		b.WriteString(fmt.Sprintf("bot[%s]=%d\n", item.Label, item.Count))
	}
	for _, item := range r.ByMethod {
		b.WriteString(fmt.Sprintf("method[%s]=%d\n", item.Label, item.Count))
	}
	return b.String()
}
