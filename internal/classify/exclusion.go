package classify

import "github.com/tetraminz/coaching_insights/internal/dataset"

// IsSplit reports a session without a single participant message. A session
// whose message set is missing counts as split.
func IsSplit(messages []dataset.Message) bool {
	for _, message := range messages {
		if message.Role == dataset.RoleUser {
			return false
		}
	}
	return true
}

// IsStrictSplit is the GS analysis rule: fewer than minUser participant messages.
func IsStrictSplit(messages []dataset.Message, minUser int) bool {
	if len(messages) == 0 {
		return true
	}
	users := 0
	for _, message := range messages {
		if message.Role == dataset.RoleUser {
			users++
		}
	}
	return users < minUser
}
