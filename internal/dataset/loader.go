package dataset

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"

	sessionFilePattern = "session_*.json"
	messageFilePattern = "messages_*.json"
	messageFilePrefix  = "messages_"
)

type Participant struct {
	Identifier string `json:"identifier"`
}

type Experiment struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	VersionNumber int    `json:"version_number"`
}

// Session is one coaching conversation as exported by the chatbot platform.
type Session struct {
	ID               string      `json:"id"`
	Participant      Participant `json:"participant"`
	Experiment       Experiment  `json:"experiment"`
	Tags             []string    `json:"tags"`
	CreatedAt        string      `json:"created_at"`
	MessageCount     int         `json:"message_count"`
	FirstMessageRole string      `json:"first_message_role"`
}

// Message is a single turn. Role is "user" for the participant.
type Message struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
}

type messageFile struct {
	Messages *[]Message `json:"messages"`
}

// SessionFilter narrows LoadSessions. Zero value keeps everything.
type SessionFilter struct {
	ExperimentIDs       []string
	TestAccountSuffixes []string
	// ParticipantIDs is matched case-insensitively.
	ParticipantIDs []string
	// Limit caps the number of session files read; 0 means all.
	Limit int
}

type LoadStats struct {
	SessionFiles          int `json:"session_files"`
	MessageFiles          int `json:"message_files"`
	SessionsLoaded        int `json:"sessions_loaded"`
	MessageSetsLoaded     int `json:"message_sets_loaded"`
	Malformed             int `json:"malformed"`
	ExcludedTestAccounts  int `json:"excluded_test_accounts"`
	ExcludedByExperiment  int `json:"excluded_by_experiment"`
	ExcludedByParticipant int `json:"excluded_by_participant"`
}

// Corpus is the in-memory view of the data tree keyed by session id.
type Corpus struct {
	Sessions []Session
	Messages map[string][]Message
	Stats    LoadStats
}

// MessagesFor returns the message set of a session, nil when none was loaded.
func (c Corpus) MessagesFor(sessionID string) []Message {
	return c.Messages[sessionID]
}

// Loader reads session and message JSON files with a bounded worker pool.
type Loader struct {
	logger  *zap.Logger
	workers int
}

func NewLoader(logger *zap.Logger, workers int) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	if workers < 1 {
		workers = 1
	}
	return &Loader{logger: logger, workers: workers}
}

// LoadCorpus loads sessions matching filter and the message sets of those sessions.
func (l *Loader) LoadCorpus(ctx context.Context, sessionsDir, messagesDir string, filter SessionFilter) (Corpus, error) {
	sessions, stats, err := l.LoadSessions(ctx, sessionsDir, filter)
	if err != nil {
		return Corpus{}, err
	}

	ids := make(map[string]struct{}, len(sessions))
	for _, session := range sessions {
		if session.ID != "" {
			ids[session.ID] = struct{}{}
		}
	}

	messages, messageStats, err := l.LoadMessages(ctx, messagesDir, ids)
	if err != nil {
		return Corpus{}, err
	}
	stats.MessageFiles = messageStats.MessageFiles
	stats.MessageSetsLoaded = messageStats.MessageSetsLoaded
	stats.Malformed += messageStats.Malformed

	return Corpus{Sessions: sessions, Messages: messages, Stats: stats}, nil
}

// LoadSessions reads dir/session_*.json in name order. Malformed files are
// logged and skipped.
func (l *Loader) LoadSessions(ctx context.Context, dir string, filter SessionFilter) ([]Session, LoadStats, error) {
	var stats LoadStats
	paths, err := listFiles(dir, sessionFilePattern)
	if err != nil {
		return nil, stats, errors.WithHint(err, "pass --data-dir or set data.sessions_dir")
	}
	if filter.Limit > 0 && len(paths) > filter.Limit {
		paths = paths[:filter.Limit]
	}
	stats.SessionFiles = len(paths)

	results, err := readFiles(ctx, l.workers, paths, LoadSessionFile)
	if err != nil {
		return nil, stats, err
	}

	experiments := toSet(filter.ExperimentIDs, false)
	participants := toSet(filter.ParticipantIDs, true)

	sessions := make([]Session, 0, len(results))
	for _, res := range results {
		if res.err != nil {
			stats.Malformed++
			l.logger.Warn("skip malformed session file", zap.String("file", filepath.Base(res.path)), zap.Error(res.err))
			continue
		}
		session := res.value
		if IsTestAccount(session.Participant.Identifier, filter.TestAccountSuffixes) {
			stats.ExcludedTestAccounts++
			continue
		}
		if experiments != nil {
			if _, ok := experiments[session.Experiment.ID]; !ok {
				stats.ExcludedByExperiment++
				continue
			}
		}
		if participants != nil {
			if _, ok := participants[strings.ToLower(session.Participant.Identifier)]; !ok {
				stats.ExcludedByParticipant++
				continue
			}
		}
		sessions = append(sessions, session)
	}
	stats.SessionsLoaded = len(sessions)

	l.logger.Info("loaded sessions",
		zap.String("dir", dir),
		zap.Int("files", stats.SessionFiles),
		zap.Int("loaded", stats.SessionsLoaded),
		zap.Int("malformed", stats.Malformed),
		zap.Int("excluded_test_accounts", stats.ExcludedTestAccounts),
		zap.Int("excluded_by_experiment", stats.ExcludedByExperiment),
	)
	return sessions, stats, nil
}

// LoadMessages reads dir/messages_<id>.json. When ids is non-nil only those
// sessions are read. A missing directory yields an empty map and a warning.
func (l *Loader) LoadMessages(ctx context.Context, dir string, ids map[string]struct{}) (map[string][]Message, LoadStats, error) {
	var stats LoadStats
	messages := map[string][]Message{}

	paths, err := listFiles(dir, messageFilePattern)
	if err != nil {
		l.logger.Warn("messages directory unavailable", zap.String("dir", dir), zap.Error(err))
		return messages, stats, nil
	}
	stats.MessageFiles = len(paths)

	if ids != nil {
		selected := paths[:0:0]
		for _, path := range paths {
			if _, ok := ids[SessionIDFromMessageFile(path)]; ok {
				selected = append(selected, path)
			}
		}
		paths = selected
	}

	results, err := readFiles(ctx, l.workers, paths, func(path string) (*[]Message, error) {
		list, ok, err := LoadMessageFile(path)
		if err != nil || !ok {
			return nil, err
		}
		return &list, nil
	})
	if err != nil {
		return nil, stats, err
	}

	for _, res := range results {
		if res.err != nil {
			stats.Malformed++
			l.logger.Warn("skip malformed message file", zap.String("file", filepath.Base(res.path)), zap.Error(res.err))
			continue
		}
		if res.value == nil {
			continue
		}
		messages[SessionIDFromMessageFile(res.path)] = *res.value
	}
	stats.MessageSetsLoaded = len(messages)

	l.logger.Info("loaded messages",
		zap.String("dir", dir),
		zap.Int("files", stats.MessageFiles),
		zap.Int("loaded", stats.MessageSetsLoaded),
	)
	return messages, stats, nil
}

// LoadMessageSample flattens the messages of the first n message files.
func (l *Loader) LoadMessageSample(ctx context.Context, dir string, n int) ([]Message, error) {
	paths, err := listFiles(dir, messageFilePattern)
	if err != nil {
		return nil, errors.WithHint(err, "pass --data-dir or set data.messages_dir")
	}
	if n > 0 && len(paths) > n {
		paths = paths[:n]
	}

	results, err := readFiles(ctx, l.workers, paths, func(path string) ([]Message, error) {
		list, _, err := LoadMessageFile(path)
		return list, err
	})
	if err != nil {
		return nil, err
	}

	var out []Message
	for _, res := range results {
		if res.err != nil {
			l.logger.Warn("skip malformed message file", zap.String("file", filepath.Base(res.path)), zap.Error(res.err))
			continue
		}
		out = append(out, res.value...)
	}
	return out, nil
}

// LoadSessionFile parses one session document.
func LoadSessionFile(path string) (Session, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Session{}, errors.Wrapf(err, "read %q", path)
	}
	var session Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return Session{}, errors.Wrapf(err, "parse %q", path)
	}
	return session, nil
}

// LoadMessageFile parses one message set. ok is false when the document has no
// "messages" key.
func LoadMessageFile(path string) ([]Message, bool, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, false, errors.Wrapf(err, "read %q", path)
	}
	var doc messageFile
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, false, errors.Wrapf(err, "parse %q", path)
	}
	if doc.Messages == nil {
		return nil, false, nil
	}
	return *doc.Messages, true, nil
}

func SessionIDFromMessageFile(path string) string {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return strings.TrimPrefix(stem, messageFilePrefix)
}

// IsTestAccount reports whether identifier ends with one of the staff suffixes.
func IsTestAccount(identifier string, suffixes []string) bool {
	for _, suffix := range suffixes {
		if suffix != "" && strings.HasSuffix(identifier, suffix) {
			return true
		}
	}
	return false
}

func listFiles(dir, pattern string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "stat %q", dir)
	}
	if !info.IsDir() {
		return nil, errors.Newf("%q is not a directory", dir)
	}
	paths, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, errors.Wrapf(err, "glob %q", dir)
	}
	sort.Strings(paths)
	return paths, nil
}

type fileResult[T any] struct {
	path  string
	value T
	err   error
}

// readFiles parses paths concurrently and returns results in input order.
// Parse errors are per file; only context cancellation aborts the batch.
func readFiles[T any](ctx context.Context, workers int, paths []string, parse func(string) (T, error)) ([]fileResult[T], error) {
	results := make([]fileResult[T], len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			value, err := parse(path)
			results[i] = fileResult[T]{path: path, value: value, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, "read files")
	}
	return results, nil
}

func toSet(values []string, fold bool) map[string]struct{} {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		if fold {
			v = strings.ToLower(v)
		}
		set[v] = struct{}{}
	}
	return set
}
