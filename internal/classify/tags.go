package classify

import (
	"strconv"
	"strings"

	"github.com/tetraminz/coaching_insights/internal/dataset"
)

const (
	tagRefrigeratorExample    = "refrigerator_example"
	tagNotRefrigeratorExample = "not_refrigerator_example"
	methodTagPrefix           = "coach_method_"
)

// IsVersionTag matches v<digits> in any case and anything mentioning "unreleased".
func IsVersionTag(tag string) bool {
	lower := strings.ToLower(tag)
	if strings.HasPrefix(lower, "v") && allDigits(lower[1:]) {
		return true
	}
	return strings.Contains(lower, "unreleased")
}

func IsCoachingMethodTag(tag string) bool {
	return strings.HasPrefix(strings.ToLower(tag), methodTagPrefix)
}

// IsAnnotated reports whether a human left tags beyond version and method markers.
func IsAnnotated(session dataset.Session, messages []dataset.Message) bool {
	check := func(tags []string) bool {
		for _, tag := range tags {
			if !IsVersionTag(tag) && !IsCoachingMethodTag(tag) {
				return true
			}
		}
		return false
	}
	if check(session.Tags) {
		return true
	}
	for _, message := range messages {
		if check(message.Tags) {
			return true
		}
	}
	return false
}

func HasRefrigeratorExample(session dataset.Session, messages []dataset.Message) bool {
	return hasAnyTag(session, messages, tagRefrigeratorExample)
}

// HasRefrigeratorAnnotation is true when a reviewer marked the session either way.
func HasRefrigeratorAnnotation(session dataset.Session, messages []dataset.Message) bool {
	return hasAnyTag(session, messages, tagRefrigeratorExample, tagNotRefrigeratorExample)
}

// VersionFromLastMessage reads v<digits> off the last message; 0 when absent.
func VersionFromLastMessage(messages []dataset.Message) int {
	if len(messages) == 0 {
		return 0
	}
	for _, tag := range messages[len(messages)-1].Tags {
		if !strings.HasPrefix(tag, "v") || !allDigits(tag[1:]) {
			continue
		}
		n, err := strconv.Atoi(tag[1:])
		if err != nil {
			continue
		}
		return n
	}
	return 0
}

func hasAnyTag(session dataset.Session, messages []dataset.Message, wanted ...string) bool {
	if containsTag(session.Tags, wanted) {
		return true
	}
	for _, message := range messages {
		if containsTag(message.Tags, wanted) {
			return true
		}
	}
	return false
}

func containsTag(tags, wanted []string) bool {
	for _, tag := range tags {
		for _, w := range wanted {
			if tag == w {
				return true
			}
		}
	}
	return false
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
