package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/tetraminz/coaching_insights/internal/compute"
	"github.com/tetraminz/coaching_insights/internal/rating"
)

const createClassificationsTableSQL = `
CREATE TABLE IF NOT EXISTS session_classifications (
	session_id TEXT NOT NULL PRIMARY KEY,
	run_id TEXT NOT NULL,
	participant_id TEXT NOT NULL,
	experiment_id TEXT NOT NULL,
	experiment_name TEXT NOT NULL,
	created_at TEXT NOT NULL,
	bot_key TEXT NOT NULL,
	method TEXT NOT NULL,
	detected_method TEXT NOT NULL,
	version_number INTEGER NOT NULL,
	has_messages INTEGER NOT NULL,
	is_split INTEGER NOT NULL,
	is_test INTEGER NOT NULL,
	user_messages INTEGER NOT NULL,
	user_words INTEGER NOT NULL,
	annotated INTEGER NOT NULL,
	refrigerator_annotation INTEGER NOT NULL,
	refrigerator_example INTEGER NOT NULL,
	loose_question INTEGER NOT NULL,
	exact_question INTEGER NOT NULL,
	rating INTEGER
)`

const createExportRunsTableSQL = `
CREATE TABLE IF NOT EXISTS export_runs (
	run_id TEXT NOT NULL PRIMARY KEY,
	exported_at_utc TEXT NOT NULL,
	sessions_dir TEXT NOT NULL,
	row_count INTEGER NOT NULL
)`

var createClassificationsIndexesSQL = []string{
	`CREATE INDEX IF NOT EXISTS idx_classifications_bot_method ON session_classifications(bot_key, method)`,
	`CREATE INDEX IF NOT EXISTS idx_classifications_participant ON session_classifications(participant_id, created_at)`,
}

const dropClassificationsSQL = `DROP TABLE IF EXISTS session_classifications`
const dropExportRunsSQL = `DROP TABLE IF EXISTS export_runs`

const insertClassificationSQL = `
INSERT INTO session_classifications (
	session_id,
	run_id,
	participant_id,
	experiment_id,
	experiment_name,
	created_at,
	bot_key,
	method,
	detected_method,
	version_number,
	has_messages,
	is_split,
	is_test,
	user_messages,
	user_words,
	annotated,
	refrigerator_annotation,
	refrigerator_example,
	loose_question,
	exact_question,
	rating
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const insertExportRunSQL = `
INSERT INTO export_runs (run_id, exported_at_utc, sessions_dir, row_count) VALUES (?, ?, ?, ?)`

// ClassificationRow is one exported session.
type ClassificationRow struct {
	SessionID              string
	RunID                  string
	ParticipantID          string
	ExperimentID           string
	ExperimentName         string
	CreatedAt              string
	BotKey                 string
	Method                 string
	DetectedMethod         string
	VersionNumber          int
	HasMessages            bool
	Split                  bool
	Test                   bool
	UserMessages           int
	UserWords              int
	Annotated              bool
	RefrigeratorAnnotation bool
	RefrigeratorExample    bool
	LooseQuestion          bool
	ExactQuestion          bool
	Rating                 sql.NullInt64
}

// ClassificationRowFromRecord flattens a classified session.
func ClassificationRowFromRecord(runID string, r compute.Record) ClassificationRow {
	row := ClassificationRow{
		SessionID:              r.Session.ID,
		RunID:                  runID,
		ParticipantID:          r.Session.Participant.Identifier,
		ExperimentID:           r.Session.Experiment.ID,
		ExperimentName:         r.Session.Experiment.Name,
		CreatedAt:              r.Session.CreatedAt,
		BotKey:                 r.Class.BotKey(),
		Method:                 string(r.Class.Method),
		DetectedMethod:         string(r.Class.DetectedMethod),
		VersionNumber:          r.Class.VersionNumber,
		HasMessages:            r.HasMessages,
		Split:                  r.Class.Split,
		Test:                   r.Class.Test,
		UserMessages:           r.Metrics.UserMessages,
		UserWords:              r.Metrics.UserWords,
		Annotated:              r.Annotated,
		RefrigeratorAnnotation: r.RefrigeratorAnnotation,
		RefrigeratorExample:    r.Refrigerator,
		LooseQuestion:          rating.HasLooseQuestion(r.Messages),
		ExactQuestion:          rating.HasExactQuestionAtEnd(r.Messages),
	}
	if r.HasRating {
		row.Rating = sql.NullInt64{Int64: int64(r.Rating), Valid: true}
	}
	return row
}

// ExportSummary describes one finished export.
type ExportSummary struct {
	RunID string
	Rows  int
}

// SQLiteStore writes session classifications for ad-hoc SQL analysis.
type SQLiteStore struct {
	db *sql.DB
}

func OpenSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := openSQLite(dbPath)
	if err != nil {
		return nil, err
	}
	if err := ensureStoreSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) InsertClassification(ctx context.Context, row ClassificationRow) error {
	if s == nil || s.db == nil {
		return errors.New("sqlite store is not initialized")
	}
	return insertClassification(ctx, s.db, row)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertClassification(ctx context.Context, db execer, row ClassificationRow) error {
	row.SessionID = strings.TrimSpace(row.SessionID)
	if row.SessionID == "" {
		return errors.New("session id is required")
	}
	if row.Method == "" {
		row.Method = "Unknown"
	}
	if row.DetectedMethod == "" {
		row.DetectedMethod = row.Method
	}

	if _, err := db.ExecContext(ctx,
		insertClassificationSQL,
		row.SessionID,
		row.RunID,
		row.ParticipantID,
		row.ExperimentID,
		row.ExperimentName,
		row.CreatedAt,
		row.BotKey,
		row.Method,
		row.DetectedMethod,
		row.VersionNumber,
		boolToInt(row.HasMessages),
		boolToInt(row.Split),
		boolToInt(row.Test),
		row.UserMessages,
		row.UserWords,
		boolToInt(row.Annotated),
		boolToInt(row.RefrigeratorAnnotation),
		boolToInt(row.RefrigeratorExample),
		boolToInt(row.LooseQuestion),
		boolToInt(row.ExactQuestion),
		row.Rating,
	); err != nil {
		return errors.Wrapf(err, "insert classification %s", row.SessionID)
	}
	return nil
}

// ExportCorpus writes every record under a fresh run id in one transaction.
func (s *SQLiteStore) ExportCorpus(ctx context.Context, sessionsDir string, records []compute.Record) (ExportSummary, error) {
	if s == nil || s.db == nil {
		return ExportSummary{}, errors.New("sqlite store is not initialized")
	}
	summary := ExportSummary{RunID: uuid.NewString()}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ExportSummary{}, errors.Wrap(err, "begin export")
	}
	defer tx.Rollback()

	for _, r := range records {
		if err := insertClassification(ctx, tx, ClassificationRowFromRecord(summary.RunID, r)); err != nil {
			return ExportSummary{}, err
		}
		summary.Rows++
	}
	if _, err := tx.ExecContext(ctx, insertExportRunSQL,
		summary.RunID,
		time.Now().UTC().Format(time.RFC3339),
		sessionsDir,
		summary.Rows,
	); err != nil {
		return ExportSummary{}, errors.Wrap(err, "insert export run")
	}
	if err := tx.Commit(); err != nil {
		return ExportSummary{}, errors.Wrap(err, "commit export")
	}
	return summary, nil
}

func openSQLite(dbPath string) (*sql.DB, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, errors.New("db path is required")
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite db")
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "ping sqlite db")
	}
	return db, nil
}

func ensureStoreSchema(db *sql.DB) error {
	if _, err := db.Exec(createClassificationsTableSQL); err != nil {
		return errors.Wrap(err, "create session_classifications table")
	}
	if _, err := db.Exec(createExportRunsTableSQL); err != nil {
		return errors.Wrap(err, "create export_runs table")
	}

	missing, err := missingTableColumns(db, "session_classifications", requiredClassificationColumns())
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return errors.WithHint(
			errors.Newf("incompatible session_classifications schema, missing columns: %s", strings.Join(missing, ", ")),
			"run the export command again to recreate the database",
		)
	}

	for _, stmt := range createClassificationsIndexesSQL {
		if _, err := db.Exec(stmt); err != nil {
			return errors.Wrap(err, "create session_classifications index")
		}
	}
	return nil
}

func requiredClassificationColumns() []string {
	return []string{
		"session_id",
		"run_id",
		"participant_id",
		"experiment_id",
		"experiment_name",
		"created_at",
		"bot_key",
		"method",
		"detected_method",
		"version_number",
		"has_messages",
		"is_split",
		"is_test",
		"user_messages",
		"user_words",
		"annotated",
		"refrigerator_annotation",
		"refrigerator_example",
		"loose_question",
		"exact_question",
		"rating",
	}
}

func missingTableColumns(db *sql.DB, tableName string, required []string) ([]string, error) {
	rows, err := db.Query(fmt.Sprintf(`PRAGMA table_info(%s)`, tableName))
	if err != nil {
		return nil, errors.Wrapf(err, "inspect %s schema", tableName)
	}
	defer rows.Close()

	existing := map[string]struct{}{}
	for rows.Next() {
		var cid int
		var name string
		var colType string
		var notNull int
		var defaultValue sql.NullString
		var pk int
		if err := rows.Scan(&cid, &name, &colType, &notNull, &defaultValue, &pk); err != nil {
			return nil, errors.Wrapf(err, "scan %s schema", tableName)
		}
		existing[name] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(err, "iterate %s schema", tableName)
	}

	var missing []string
	for _, col := range required {
		if _, ok := existing[col]; !ok {
			missing = append(missing, col)
		}
	}
	return missing, nil
}

// SetupSQLite recreates the export tables. Each export is a fresh database.
func SetupSQLite(dbPath string) error {
	if strings.TrimSpace(dbPath) == "" {
		return errors.New("db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return errors.Wrap(err, "create db directory")
	}
	db, err := openSQLite(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := db.Exec(dropClassificationsSQL); err != nil {
		return errors.Wrap(err, "drop session_classifications table")
	}
	if _, err := db.Exec(dropExportRunsSQL); err != nil {
		return errors.Wrap(err, "drop export_runs table")
	}
	return ensureStoreSchema(db)
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
