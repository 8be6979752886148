package quiz

import (
	"regexp"
	"strings"

	"quiz-forge-service/internal/domain"
)

const maxTopicWords = 3

var topicWord = regexp.MustCompile(`^[A-Za-z0-9-]+$`)

// ValidatePrompt accepts topics of 1-3 words made of letters, digits and dashes
// and returns them joined by single spaces.
func ValidatePrompt(prompt string) (string, error) {
	words := strings.Fields(prompt)
	if len(words) == 0 || len(words) > maxTopicWords {
		return "", domain.ErrInvalidPrompt
	}
	for _, w := range words {
		if !topicWord.MatchString(w) {
			return "", domain.ErrInvalidPrompt
		}
	}
	return strings.Join(words, " "), nil
}

// EnsurePromptCoverage retitles content as "<topic> Quiz" when neither the title
// nor any question prompt mentions the topic.
func EnsurePromptCoverage(topic string, content domain.QuizContent) domain.QuizContent {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return content
	}
	needle := strings.ToLower(topic)
	if strings.Contains(strings.ToLower(content.Title), needle) {
		return content
	}
	for _, q := range content.Questions {
		if strings.Contains(strings.ToLower(q.Prompt), needle) {
			return content
		}
	}
	content.Title = topic + " Quiz"
	return content
}
