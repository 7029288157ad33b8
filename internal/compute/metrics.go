package compute

import (
	"strings"

	"github.com/tetraminz/coaching_insights/internal/dataset"
)

// SessionMetrics are deterministic values computed directly from messages.
type SessionMetrics struct {
	UserMessages int `json:"user_messages"`
	UserWords    int `json:"user_words"`
}

// ComputeSessionMetrics counts participant messages and whitespace-separated words.
func ComputeSessionMetrics(messages []dataset.Message) SessionMetrics {
	var metrics SessionMetrics
	for _, message := range messages {
		if message.Role != dataset.RoleUser {
			continue
		}
		metrics.UserMessages++
		metrics.UserWords += len(strings.Fields(message.Content))
	}
	return metrics
}

// OutlierLimits marks sessions far above normal engagement. Values above
// either limit make a session an outlier.
type OutlierLimits struct {
	MaxUserMessages int
	MaxUserWords    int
}

func (l OutlierLimits) IsOutlier(m SessionMetrics) bool {
	return m.UserMessages > l.MaxUserMessages || m.UserWords > l.MaxUserWords
}
