// Package gsscore joins externally supplied GS scores with per-participant
// refrigerator example rates.
package gsscore

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

const utf8BOM = "\ufeff"

var (
	participantColumns = []string{"participant ID", "participant_id", "Participant ID", "Participant_ID"}
	scoreColumns       = []string{"Score", "score", "GS Score", "gs_score"}
)

// Scores maps participant id to GS score in the casing of the CSV.
type Scores map[string]int

// Lookup tries the exact id first and falls back to a case-insensitive match.
func (s Scores) Lookup(participantID string) (int, bool) {
	if score, ok := s[participantID]; ok {
		return score, true
	}
	lower := strings.ToLower(participantID)
	for id, score := range s {
		if strings.ToLower(id) == lower {
			return score, true
		}
	}
	return 0, false
}

func LoadScores(path string) (Scores, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.WithHint(errors.Wrapf(err, "open GS scores %s", path),
			"pass the CSV export with --scores or set gs.scores_csv")
	}
	defer file.Close()

	return ParseScores(file)
}

// ParseScores reads a CSV with a header row. Rows with an empty id, an empty
// score or a non-integer score are skipped.
func ParseScores(r io.Reader) (Scores, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Scores{}, nil
		}
		return nil, errors.Wrap(err, "read GS scores header")
	}
	index := map[string]int{}
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, utf8BOM)
		}
		if _, seen := index[name]; !seen {
			index[name] = i
		}
	}

	scores := Scores{}
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "read GS scores row")
		}
		id := strings.TrimSpace(firstValue(row, index, participantColumns))
		raw := strings.TrimSpace(firstValue(row, index, scoreColumns))
		if id == "" || raw == "" {
			continue
		}
		score, err := strconv.Atoi(raw)
		if err != nil {
			continue
		}
		scores[id] = score
	}
	return scores, nil
}

// firstValue returns the first non-empty cell among the aliased columns.
func firstValue(row []string, index map[string]int, columns []string) string {
	for _, column := range columns {
		i, ok := index[column]
		if !ok || i >= len(row) {
			continue
		}
		if row[i] != "" {
			return row[i]
		}
	}
	return ""
}
