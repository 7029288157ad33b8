// Package classify assigns bot version, coaching method and exclusion status
// to sessions.
package classify

import (
	"strings"

	"github.com/tetraminz/coaching_insights/internal/dataset"
)

type Method string

const (
	MethodScenario                 Method = "Scenario"
	MethodMicrolearning            Method = "Microlearning"
	MethodMicrolearningVaccines    Method = "Microlearning vaccines"
	MethodMotivationalInterviewing Method = "Motivational interviewing"
	MethodVisitCheckIn             Method = "Visit check in"
	MethodUnknown                  Method = "Unknown"
)

// Methods is the display order used by every report.
var Methods = []Method{
	MethodScenario,
	MethodMicrolearning,
	MethodMicrolearningVaccines,
	MethodMotivationalInterviewing,
	MethodVisitCheckIn,
	MethodUnknown,
}

var methodTags = map[string]Method{
	"coach_method_scenarios":                 MethodScenario,
	"coach_method_microlearning":             MethodMicrolearning,
	"coach_method_microlearning_vaccine":     MethodMicrolearningVaccines,
	"coach_method_motivational_interviewing": MethodMotivationalInterviewing,
	"coach_method_visit_debrief":             MethodVisitCheckIn,
}

type keywordRule struct {
	method   Method
	keywords []string
}

// Checked in order per assistant message.
var contentRules = []keywordRule{
	{method: MethodScenario, keywords: []string{"roleplay", "role-play", "scenario 1:", "scenario 2:"}},
	{method: MethodMicrolearning, keywords: []string{"quiz", "microlearning", "short quiz questions"}},
	{method: MethodMotivationalInterviewing, keywords: []string{"motivational interview", "motivational interviewing"}},
	{method: MethodVisitCheckIn, keywords: []string{"visit debrief", "home visits", "most recent visit"}},
}

// DetectMethod resolves the coaching method: session tags, then message tags,
// then keywords in assistant text. The first hit wins.
func DetectMethod(session dataset.Session, messages []dataset.Message) Method {
	if method, ok := methodFromTags(session.Tags); ok {
		return method
	}
	for _, message := range messages {
		if method, ok := methodFromTags(message.Tags); ok {
			return method
		}
	}
	for _, message := range messages {
		if message.Role != dataset.RoleAssistant {
			continue
		}
		content := strings.ToLower(message.Content)
		for _, rule := range contentRules {
			if containsAny(content, rule.keywords...) {
				return rule.method
			}
		}
	}
	return MethodUnknown
}

func methodFromTags(tags []string) (Method, bool) {
	for _, tag := range tags {
		if method, ok := methodTags[tag]; ok {
			return method, true
		}
	}
	return "", false
}

func containsAny(text string, needles ...string) bool {
	for _, needle := range needles {
		if strings.Contains(text, needle) {
			return true
		}
	}
	return false
}
