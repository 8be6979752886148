package quiz

import (
	"encoding/json"
	"fmt"
	"strings"

	"quiz-forge-service/internal/domain"
)

var optionKeys = map[string]struct{}{"A": {}, "B": {}, "C": {}, "D": {}}

// Normalize turns a raw generator payload into canonical quiz content.
//
// The payload may be JSON bytes (json.RawMessage, []byte, string) or an already
// decoded map. Any structural defect is reported as *domain.ContentValidationError;
// nothing is repaired or guessed. Question indices in the payload are ignored and
// reassigned 0..4 in payload order.
func Normalize(payload any) (domain.QuizContent, error) {
	root, err := decodePayload(payload)
	if err != nil {
		return domain.QuizContent{}, err
	}

	rawQuestions, ok := root["questions"].([]any)
	if !ok || len(rawQuestions) == 0 {
		return domain.QuizContent{}, invalid(domain.ReasonMalformed, -1, "quiz content must include a non-empty questions array")
	}
	if len(rawQuestions) != domain.QuestionCount {
		return domain.QuizContent{}, invalid(domain.ReasonQuestionCount, -1,
			fmt.Sprintf("quiz content must include exactly %d questions, got %d", domain.QuestionCount, len(rawQuestions)))
	}

	content := domain.QuizContent{
		Title:     stringField(root, "title"),
		Questions: make([]domain.Question, 0, domain.QuestionCount),
	}
	for i, raw := range rawQuestions {
		q, err := normalizeQuestion(i, raw)
		if err != nil {
			return domain.QuizContent{}, err
		}
		content.Questions = append(content.Questions, q)
	}
	return content, nil
}

// Validate checks already-typed content against the same invariants Normalize enforces.
func Validate(content domain.QuizContent) error {
	if len(content.Questions) != domain.QuestionCount {
		return invalid(domain.ReasonQuestionCount, -1,
			fmt.Sprintf("quiz content must include exactly %d questions, got %d", domain.QuestionCount, len(content.Questions)))
	}
	for i, q := range content.Questions {
		if q.Index != i {
			return invalid(domain.ReasonMalformed, i, fmt.Sprintf("question index %d out of sequence", q.Index))
		}
		if err := checkQuestion(i, q); err != nil {
			return err
		}
	}
	return nil
}

func decodePayload(payload any) (map[string]any, error) {
	var data []byte
	switch v := payload.(type) {
	case map[string]any:
		return v, nil
	case json.RawMessage:
		data = v
	case []byte:
		data = v
	case string:
		data = []byte(v)
	case nil:
		return nil, invalid(domain.ReasonMalformed, -1, "quiz content is empty")
	default:
		// Typed values (e.g. domain.QuizContent) go through a JSON round trip.
		b, err := json.Marshal(v)
		if err != nil {
			return nil, invalid(domain.ReasonMalformed, -1, fmt.Sprintf("quiz content is not encodable: %v", err))
		}
		data = b
	}

	var root any
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, invalid(domain.ReasonMalformed, -1, fmt.Sprintf("quiz content is not valid JSON: %v", err))
	}
	obj, ok := root.(map[string]any)
	if !ok {
		return nil, invalid(domain.ReasonMalformed, -1, "quiz content must be an object")
	}
	return obj, nil
}

func normalizeQuestion(i int, raw any) (domain.Question, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return domain.Question{}, invalid(domain.ReasonMalformed, i, "each question must be an object")
	}

	q := domain.Question{
		Index:            i,
		Prompt:           strings.TrimSpace(stringField(obj, "prompt")),
		CorrectOptionKey: strings.TrimSpace(stringField(obj, "correct_option_key")),
		Explanation:      strings.TrimSpace(stringField(obj, "explanation")),
	}

	rawOptions, ok := obj["options"].([]any)
	if !ok {
		return domain.Question{}, invalid(domain.ReasonOptionCount, i, fmt.Sprintf("each question must include %d options", domain.OptionCount))
	}
	for _, ro := range rawOptions {
		opt, ok := ro.(map[string]any)
		if !ok {
			return domain.Question{}, invalid(domain.ReasonMalformed, i, "each option must be an object with a key and text")
		}
		q.Options = append(q.Options, domain.Option{
			Key:  strings.TrimSpace(stringField(opt, "key")),
			Text: strings.TrimSpace(stringField(opt, "text")),
		})
	}

	if err := checkQuestion(i, q); err != nil {
		return domain.Question{}, err
	}
	return q, nil
}

func checkQuestion(i int, q domain.Question) error {
	if q.Prompt == "" {
		return invalid(domain.ReasonMissingPrompt, i, "question prompt is empty")
	}
	if len(q.Options) != domain.OptionCount {
		return invalid(domain.ReasonOptionCount, i,
			fmt.Sprintf("each question must include %d options, got %d", domain.OptionCount, len(q.Options)))
	}
	seen := make(map[string]struct{}, len(q.Options))
	for _, opt := range q.Options {
		if _, dup := seen[opt.Key]; dup {
			return invalid(domain.ReasonDuplicateOptionKey, i, fmt.Sprintf("option key %q is used more than once", opt.Key))
		}
		seen[opt.Key] = struct{}{}
	}
	for _, opt := range q.Options {
		if _, ok := optionKeys[opt.Key]; !ok {
			return invalid(domain.ReasonOptionKey, i, fmt.Sprintf("option key %q is not one of A-D", opt.Key))
		}
		if opt.Text == "" {
			return invalid(domain.ReasonOptionText, i, fmt.Sprintf("option %s has no text", opt.Key))
		}
	}
	if !q.HasOption(q.CorrectOptionKey) {
		return invalid(domain.ReasonCorrectKeyNotFound, i,
			fmt.Sprintf("correct_option_key %q must match one of the option keys", q.CorrectOptionKey))
	}
	return nil
}

func stringField(obj map[string]any, key string) string {
	s, _ := obj[key].(string)
	return s
}

func invalid(reason domain.ValidationReason, question int, detail string) *domain.ContentValidationError {
	return &domain.ContentValidationError{Reason: reason, Question: question, Detail: detail}
}
