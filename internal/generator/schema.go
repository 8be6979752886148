package generator

import "quiz-forge-service/internal/llm"

var optionKeys = []string{"A", "B", "C", "D"}

// QuizSchema is the structured-output contract sent to every provider.
var QuizSchema = &llm.Schema{
	Name:        "quiz_content",
	Description: "A five question multiple-choice quiz",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title": map[string]any{"type": "string"},
			"questions": map[string]any{
				"type":     "array",
				"minItems": 5,
				"maxItems": 5,
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"prompt": map[string]any{"type": "string"},
						"options": map[string]any{
							"type":     "array",
							"minItems": 4,
							"maxItems": 4,
							"items": map[string]any{
								"type": "object",
								"properties": map[string]any{
									"key":  map[string]any{"type": "string", "enum": optionKeys},
									"text": map[string]any{"type": "string"},
								},
								"required":             []string{"key", "text"},
								"additionalProperties": false,
							},
						},
						"correct_option_key": map[string]any{"type": "string", "enum": optionKeys},
						"explanation":        map[string]any{"type": "string"},
					},
					"required":             []string{"prompt", "options", "correct_option_key", "explanation"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []string{"title", "questions"},
		"additionalProperties": false,
	},
}
