// Package rating finds the end-of-session usefulness question and the
// participant's 1-5 answer.
package rating

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/tetraminz/coaching_insights/internal/dataset"
)

// ExactQuestion is the wording the bots use to close a session.
const ExactQuestion = "how useful did you find this coaching session? please rate it from 1 to 5"

const contextAnswerMaxLen = 100

type Kind string

const (
	KindSingleDigit   Kind = "single_digit"
	KindWrittenNumber Kind = "written_number"
	KindContext       Kind = "context_rating"
)

// Rating is one extracted answer.
type Rating struct {
	Value  int
	Kind   Kind
	Answer string
}

var questionPatterns = mustCompileAll(
	`how useful.*rate.*[1-5]`,
	`rate.*useful.*[1-5]`,
	`rate.*session.*[1-5]`,
	`rate.*coaching.*[1-5]`,
	`number.*[1-5].*rate`,
	`number.*[1-5].*useful`,
	`[1-5].*useful`,
	`[1-5].*session`,
	`[1-5].*coaching`,
)

var (
	singleDigitRe  = regexp.MustCompile(`^\s*[1-5]\s*$`)
	contextDigitRe = regexp.MustCompile(`(?:^|[^\pL\pN_])([1-5])(?:[^\pL\pN_]|$)`)

	writtenNumbers = map[string]int{"one": 1, "two": 2, "three": 3, "four": 4, "five": 5}

	looseKeywords = []string{"rate", "rating", "useful", "session", "coaching"}
)

// Extract returns the participant's rating when an assistant message asks for
// one. Both scans walk the conversation from the end.
func Extract(messages []dataset.Message) (Rating, bool) {
	if !HasQuestion(messages) {
		return Rating{}, false
	}
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role != dataset.RoleUser {
			continue
		}
		if r, ok := parseAnswer(messages[i].Content, contextAnswerMaxLen); ok {
			return r, true
		}
	}
	return Rating{}, false
}

// HasQuestion reports whether any assistant message matches a rating question pattern.
func HasQuestion(messages []dataset.Message) bool {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role != dataset.RoleAssistant {
			continue
		}
		if matchesAny(strings.ToLower(messages[i].Content), questionPatterns) {
			return true
		}
	}
	return false
}

// HasLooseQuestion is the coarse census check: a rating keyword plus any digit 1-5.
func HasLooseQuestion(messages []dataset.Message) bool {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role != dataset.RoleAssistant {
			continue
		}
		content := strings.ToLower(messages[i].Content)
		if containsAny(content, looseKeywords...) && strings.ContainsAny(content, "12345") {
			return true
		}
	}
	return false
}

// HasExactQuestionAtEnd checks the last assistant message for ExactQuestion.
func HasExactQuestionAtEnd(messages []dataset.Message) bool {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == dataset.RoleAssistant {
			return strings.Contains(strings.ToLower(messages[i].Content), ExactQuestion)
		}
	}
	return false
}

func parseAnswer(raw string, contextMaxLen int) (Rating, bool) {
	content := strings.TrimSpace(raw)
	if singleDigitRe.MatchString(content) {
		value, _ := strconv.Atoi(content)
		return Rating{Value: value, Kind: KindSingleDigit, Answer: content}, true
	}
	if value, ok := writtenNumbers[strings.ToLower(content)]; ok {
		return Rating{Value: value, Kind: KindWrittenNumber, Answer: content}, true
	}
	if utf8.RuneCountInString(content) < contextMaxLen {
		if m := contextDigitRe.FindStringSubmatch(content); m != nil {
			value, _ := strconv.Atoi(m[1])
			return Rating{Value: value, Kind: KindContext, Answer: content}, true
		}
	}
	return Rating{}, false
}

func matchesAny(text string, patterns []*regexp.Regexp) bool {
	for _, re := range patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

func containsAny(text string, needles ...string) bool {
	for _, needle := range needles {
		if strings.Contains(text, needle) {
			return true
		}
	}
	return false
}

func mustCompileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, regexp.MustCompile(p))
	}
	return out
}
