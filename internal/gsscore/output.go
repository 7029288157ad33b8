package gsscore

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

const analysisDateLayout = "2006-01-02 15:04:05.000000"

var summaryHeader = []string{
	"Participant ID",
	"GS Score",
	"Total Sessions",
	"Refrigerator Sessions",
	"Refrigerator Rate (%)",
	"Non-Refrigerator Sessions",
	"Refrigerator Session IDs",
	"Non-Refrigerator Session IDs",
	"All Session IDs",
}

type Criteria struct {
	MinRefrigeratorRate float64 `json:"min_refrigerator_rate"`
	MaxGSScore          int     `json:"max_gs_score"`
}

type ResultParticipant struct {
	ParticipantID             string   `json:"participant_id"`
	GSScore                   int      `json:"gs_score"`
	TotalSessions             int      `json:"total_sessions"`
	RefrigeratorSessions      int      `json:"refrigerator_sessions"`
	RefrigeratorRate          float64  `json:"refrigerator_rate"`
	NonRefrigeratorSessions   int      `json:"non_refrigerator_sessions"`
	RefrigeratorSessionIDs    []string `json:"refrigerator_session_ids"`
	NonRefrigeratorSessionIDs []string `json:"non_refrigerator_session_ids"`
	AllSessionIDs             []string `json:"all_session_ids"`
}

// Result is the analysis file the low-GS dashboard reads back.
type Result struct {
	AnalysisDate string              `json:"analysis_date"`
	Criteria     Criteria            `json:"criteria"`
	Participants []ResultParticipant `json:"participants"`
}

func NewResult(selected []Participant, criteria Criteria, now time.Time) Result {
	result := Result{
		AnalysisDate: now.Format(analysisDateLayout),
		Criteria:     criteria,
		Participants: make([]ResultParticipant, 0, len(selected)),
	}
	for _, p := range selected {
		s := p.Stats
		result.Participants = append(result.Participants, ResultParticipant{
			ParticipantID:             s.ParticipantID,
			GSScore:                   p.Score,
			TotalSessions:             s.TotalSessions,
			RefrigeratorSessions:      s.RefrigeratorSessions,
			RefrigeratorRate:          s.Rate(),
			NonRefrigeratorSessions:   s.NonRefrigeratorSessions,
			RefrigeratorSessionIDs:    nonNil(s.RefrigeratorSessionIDs),
			NonRefrigeratorSessionIDs: nonNil(s.NonRefrigeratorSessionIDs),
			AllSessionIDs:             nonNil(s.SessionIDs),
		})
	}
	return result
}

func (r Result) ParticipantIDs() []string {
	ids := make([]string, 0, len(r.Participants))
	for _, p := range r.Participants {
		ids = append(ids, p.ParticipantID)
	}
	return ids
}

// ScoreRange returns the lowest and highest GS score; ok is false when empty.
func (r Result) ScoreRange() (lo, hi int, ok bool) {
	for i, p := range r.Participants {
		if i == 0 || p.GSScore < lo {
			lo = p.GSScore
		}
		if i == 0 || p.GSScore > hi {
			hi = p.GSScore
		}
	}
	return lo, hi, len(r.Participants) > 0
}

func WriteJSON(path string, result Result) error {
	if err := ensureParentDir(path); err != nil {
		return err
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode GS analysis")
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	return nil
}

func ReadResult(path string) (Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{}, errors.WithHint(errors.Wrapf(err, "read GS analysis %s", path),
			"run the gs-analyze command first")
	}
	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		return Result{}, errors.Wrapf(err, "decode GS analysis %s", path)
	}
	return result, nil
}

// WriteCSV writes one summary row per participant; id lists are joined with "; ".
func WriteCSV(path string, result Result) error {
	if err := ensureParentDir(path); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(summaryHeader); err != nil {
		return errors.Wrap(err, "write summary header")
	}
	for _, p := range result.Participants {
		row := []string{
			p.ParticipantID,
			strconv.Itoa(p.GSScore),
			strconv.Itoa(p.TotalSessions),
			strconv.Itoa(p.RefrigeratorSessions),
			fmt.Sprintf("%.1f", p.RefrigeratorRate),
			strconv.Itoa(p.NonRefrigeratorSessions),
			strings.Join(p.RefrigeratorSessionIDs, "; "),
			strings.Join(p.NonRefrigeratorSessionIDs, "; "),
			strings.Join(p.AllSessionIDs, "; "),
		}
		if err := writer.Write(row); err != nil {
			return errors.Wrapf(err, "write summary row %s", p.ParticipantID)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return errors.Wrapf(err, "flush %s", path)
	}
	return nil
}

func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "create directory %s", dir)
	}
	return nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
