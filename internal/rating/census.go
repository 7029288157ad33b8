package rating

import (
	"sort"
	"strings"

	"github.com/tetraminz/coaching_insights/internal/dataset"
)

const (
	mentionSnippetLen  = 200
	questionSnippetLen = 300
	censusContextLen   = 50
)

var broadQuestionPatterns = mustCompileAll(
	`how useful.*rate.*[1-5]`,
	`rate.*useful.*[1-5]`,
	`rate.*session.*[1-5]`,
	`rate.*coaching.*[1-5]`,
	`rate.*[1-5].*useful`,
	`rate.*[1-5].*session`,
	`rate.*[1-5].*coaching`,
	`useful.*rate.*[1-5]`,
	`session.*rate.*[1-5]`,
	`coaching.*rate.*[1-5]`,
	`number.*[1-5].*rate`,
	`number.*[1-5].*useful`,
	`number.*[1-5].*session`,
	`number.*[1-5].*coaching`,
	`[1-5].*useful`,
	`[1-5].*session`,
	`[1-5].*coaching`,
	`rate.*useful`,
	`rate.*session`,
	`rate.*coaching`,
	`useful.*[1-5]`,
	`session.*[1-5]`,
	`coaching.*[1-5]`,
)

var censusKeywords = []string{
	"rate", "rating", "score", "useful", "usefulness", "helpful", "feedback",
	"satisfied", "satisfaction", "experience", "session", "coaching",
}

var censusNumberPatterns = []string{
	`\b[1-5]\b`,
	`\bone\b`, `\btwo\b`, `\bthree\b`, `\bfour\b`, `\bfive\b`,
	`\b1-5\b`, `\b1 to 5\b`, `\b1 through 5\b`,
}

var censusNumberRes = mustCompileAll(censusNumberPatterns...)

// Response is a user message that looks like a rating answer.
type Response struct {
	Kind    Kind   `json:"kind"`
	Content string `json:"content"`
}

// Census collects how rating questions and answers are phrased in a sample.
type Census struct {
	MessagesAnalyzed   int        `json:"messages_analyzed"`
	Keywords           []string   `json:"keywords"`
	NumberPatterns     []string   `json:"number_patterns"`
	UsefulnessMentions []string   `json:"usefulness_mentions"`
	RateMentions       []string   `json:"rate_mentions"`
	ScoreMentions      []string   `json:"score_mentions"`
	FeedbackMentions   []string   `json:"feedback_mentions"`
	PotentialQuestions []string   `json:"potential_questions"`
	BroadMatches       []string   `json:"broad_matches"`
	UserResponses      []Response `json:"user_responses"`
}

func BuildCensus(messages []dataset.Message) Census {
	census := Census{MessagesAnalyzed: len(messages)}
	keywords := map[string]struct{}{}
	numbers := map[string]struct{}{}

	for _, message := range messages {
		switch message.Role {
		case dataset.RoleAssistant:
			census.addAssistant(strings.ToLower(message.Content), keywords, numbers)
		case dataset.RoleUser:
			census.addUser(strings.TrimSpace(message.Content))
		}
	}

	census.Keywords = sortedKeys(keywords)
	census.NumberPatterns = sortedKeys(numbers)
	return census
}

func (c *Census) addAssistant(content string, keywords, numbers map[string]struct{}) {
	for _, keyword := range censusKeywords {
		if strings.Contains(content, keyword) {
			keywords[keyword] = struct{}{}
		}
	}
	for i, re := range censusNumberRes {
		if re.MatchString(content) {
			numbers[censusNumberPatterns[i]] = struct{}{}
		}
	}

	hasDigit := strings.ContainsAny(content, "12345")
	if strings.Contains(content, "useful") && containsAny(content, "rate", "rating") {
		c.UsefulnessMentions = append(c.UsefulnessMentions, snippet(content, mentionSnippetLen))
	}
	if strings.Contains(content, "rate") && hasDigit {
		c.RateMentions = append(c.RateMentions, snippet(content, mentionSnippetLen))
	}
	if strings.Contains(content, "score") {
		c.ScoreMentions = append(c.ScoreMentions, snippet(content, mentionSnippetLen))
	}
	if strings.Contains(content, "feedback") {
		c.FeedbackMentions = append(c.FeedbackMentions, snippet(content, mentionSnippetLen))
	}
	if containsAny(content, "rate", "rating", "score") && hasDigit {
		c.PotentialQuestions = append(c.PotentialQuestions, snippet(content, questionSnippetLen))
	}
	if matchesAny(content, broadQuestionPatterns) {
		c.BroadMatches = append(c.BroadMatches, snippet(content, mentionSnippetLen))
	}
}

// addUser records every rule an answer satisfies, so "3" counts as both a
// single digit and a short context answer.
func (c *Census) addUser(content string) {
	if singleDigitRe.MatchString(content) {
		c.UserResponses = append(c.UserResponses, Response{Kind: KindSingleDigit, Content: content})
	}
	if _, ok := writtenNumbers[strings.ToLower(content)]; ok {
		c.UserResponses = append(c.UserResponses, Response{Kind: KindWrittenNumber, Content: content})
	}
	if contextDigitRe.MatchString(content) && len([]rune(content)) < censusContextLen {
		c.UserResponses = append(c.UserResponses, Response{Kind: KindContext, Content: content})
	}
}

func snippet(content string, n int) string {
	runes := []rune(content)
	if len(runes) > n {
		runes = runes[:n]
	}
	return string(runes) + "..."
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
