package main

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tetraminz/coaching_insights/internal/classify"
	"github.com/tetraminz/coaching_insights/internal/compute"
	"github.com/tetraminz/coaching_insights/internal/dataset"
)

const closingQuestion = "How useful did you find this coaching session? Please rate it from 1 to 5"

func seededRecords() []compute.Record {
	v3 := classify.BotVersion{Name: "Coaching bot V3", Key: "V3"}
	return []compute.Record{
		{
			Session: dataset.Session{
				ID:          "s1",
				Participant: dataset.Participant{Identifier: "p1"},
				Experiment:  dataset.Experiment{ID: "exp-v3", Name: "ECD Coach V3"},
				CreatedAt:   "2024-01-01T10:00:00Z",
			},
			Messages: []dataset.Message{
				{Role: dataset.RoleAssistant, Content: closingQuestion},
				{Role: dataset.RoleUser, Content: "4"},
			},
			HasMessages:            true,
			Class:                  classify.Classification{SessionID: "s1", Bot: &v3, Method: classify.MethodScenario, DetectedMethod: classify.MethodScenario, VersionNumber: 3},
			Metrics:                compute.SessionMetrics{UserMessages: 1, UserWords: 1},
			Rating:                 4,
			HasRating:              true,
			Annotated:              true,
			Refrigerator:           true,
			RefrigeratorAnnotation: true,
		},
		{
			Session:     dataset.Session{ID: "s2", Participant: dataset.Participant{Identifier: "p1"}},
			HasMessages: true,
			Class:       classify.Classification{SessionID: "s2", Bot: &v3, Method: classify.MethodUnknown, Split: true},
		},
		{
			Session: dataset.Session{ID: "s3", Participant: dataset.Participant{Identifier: "coach@dimagi.com"}},
			Class:   classify.Classification{SessionID: "s3", Method: classify.MethodUnknown, Test: true},
		},
		{
			Session:     dataset.Session{ID: "s4", Participant: dataset.Participant{Identifier: "p2"}},
			Messages:    []dataset.Message{{Role: dataset.RoleUser, Content: "hello there"}},
			HasMessages: true,
			Class:       classify.Classification{SessionID: "s4", Method: classify.MethodUnknown, DetectedMethod: classify.MethodUnknown},
			Metrics:     compute.SessionMetrics{UserMessages: 1, UserWords: 2},
			Annotated:   true,
		},
	}
}

func exportSeeded(t *testing.T) (string, ExportSummary) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "export", "classifications.db")
	if err := SetupSQLite(dbPath); err != nil {
		t.Fatalf("setup sqlite: %v", err)
	}
	store, err := OpenSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	defer store.Close()

	summary, err := store.ExportCorpus(context.Background(), "data/sessions", seededRecords())
	if err != nil {
		t.Fatalf("export corpus: %v", err)
	}
	return dbPath, summary
}

func countRows(t *testing.T, dbPath, table string) int {
	t.Helper()
	db, err := openSQLite(dbPath)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer db.Close()
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM ` + table).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}

func TestExportCorpus_WritesEveryRecordUnderOneRun(t *testing.T) {
	t.Parallel()
	dbPath, summary := exportSeeded(t)

	if summary.Rows != 4 {
		t.Fatalf("rows=%d want=4", summary.Rows)
	}
	if summary.RunID == "" {
		t.Fatalf("empty run id")
	}
	if got := countRows(t, dbPath, "session_classifications"); got != 4 {
		t.Fatalf("session_classifications=%d want=4", got)
	}

	db, err := openSQLite(dbPath)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer db.Close()

	var runID, botKey, method string
	var exact int
	var rating sql.NullInt64
	if err := db.QueryRow(
		`SELECT run_id, bot_key, method, exact_question, rating FROM session_classifications WHERE session_id = 's1'`,
	).Scan(&runID, &botKey, &method, &exact, &rating); err != nil {
		t.Fatalf("query s1: %v", err)
	}
	if runID != summary.RunID || botKey != "V3" || method != "Scenario" || exact != 1 {
		t.Fatalf("unexpected s1 row: run=%s bot=%s method=%s exact=%d", runID, botKey, method, exact)
	}
	if !rating.Valid || rating.Int64 != 4 {
		t.Fatalf("rating=%v want=4", rating)
	}

	if err := db.QueryRow(`SELECT rating FROM session_classifications WHERE session_id = 's4'`).Scan(&rating); err != nil {
		t.Fatalf("query s4: %v", err)
	}
	if rating.Valid {
		t.Fatalf("s4 rating should be NULL, got %d", rating.Int64)
	}
}

func TestExportCorpus_RollsBackOnDuplicateSession(t *testing.T) {
	t.Parallel()
	dbPath := filepath.Join(t.TempDir(), "classifications.db")
	if err := SetupSQLite(dbPath); err != nil {
		t.Fatalf("setup sqlite: %v", err)
	}
	store, err := OpenSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	defer store.Close()

	records := seededRecords()
	records = append(records, records[0])
	if _, err := store.ExportCorpus(context.Background(), "data/sessions", records); err == nil {
		t.Fatalf("expected duplicate session error")
	}
	if got := countRows(t, dbPath, "session_classifications"); got != 0 {
		t.Fatalf("session_classifications=%d want=0 after rollback", got)
	}
	if got := countRows(t, dbPath, "export_runs"); got != 0 {
		t.Fatalf("export_runs=%d want=0 after rollback", got)
	}
}

func TestInsertClassification_RequiresSessionID(t *testing.T) {
	t.Parallel()
	dbPath := filepath.Join(t.TempDir(), "classifications.db")
	store, err := OpenSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	defer store.Close()

	if err := store.InsertClassification(context.Background(), ClassificationRow{SessionID: "  "}); err == nil {
		t.Fatalf("expected error for empty session id")
	}
	if err := store.InsertClassification(context.Background(), ClassificationRow{SessionID: "x"}); err != nil {
		t.Fatalf("insert classification: %v", err)
	}

	var method, detected string
	if err := store.db.QueryRow(`SELECT method, detected_method FROM session_classifications WHERE session_id = 'x'`).Scan(&method, &detected); err != nil {
		t.Fatalf("query row: %v", err)
	}
	if method != "Unknown" || detected != "Unknown" {
		t.Fatalf("method=%q detected=%q want Unknown", method, detected)
	}
}

func TestOpenSQLiteStore_RejectsIncompatibleSchema(t *testing.T) {
	t.Parallel()
	dbPath := filepath.Join(t.TempDir(), "legacy.db")
	db, err := openSQLite(dbPath)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if _, err := db.Exec(`CREATE TABLE session_classifications (session_id TEXT)`); err != nil {
		t.Fatalf("create legacy table: %v", err)
	}
	db.Close()

	_, err = OpenSQLiteStore(dbPath)
	if err == nil {
		t.Fatalf("expected schema error")
	}
	if !strings.Contains(err.Error(), "incompatible session_classifications schema") {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := SetupSQLite(dbPath); err != nil {
		t.Fatalf("setup sqlite should recreate the table: %v", err)
	}
}
