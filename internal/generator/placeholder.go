package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Placeholder returns the same five generic questions for any topic.
// Correct keys are A, B, C, D, B.
type Placeholder struct {
	Notice string
}

func (p Placeholder) Generate(_ context.Context, topic string) (Output, error) {
	payload, err := json.Marshal(placeholderContent(topic))
	if err != nil {
		return Output{}, err
	}
	return Output{Payload: payload, Provider: "placeholder", Notice: p.Notice}, nil
}

type rawOption struct {
	Key  string `json:"key"`
	Text string `json:"text"`
}

type rawQuestion struct {
	Prompt           string      `json:"prompt"`
	Options          []rawOption `json:"options"`
	CorrectOptionKey string      `json:"correct_option_key"`
	Explanation      string      `json:"explanation"`
}

type rawContent struct {
	Title     string        `json:"title"`
	Questions []rawQuestion `json:"questions"`
}

func opts(a, b, c, d string) []rawOption {
	return []rawOption{{"A", a}, {"B", b}, {"C", c}, {"D", d}}
}

// placeholderContent builds the generator-shaped payload for topic.
func placeholderContent(topic string) rawContent {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		topic = "General Knowledge"
	}
	return rawContent{
		Title: topic + " Placeholder Quiz",
		Questions: []rawQuestion{
			{
				Prompt: fmt.Sprintf("Which statement best summarizes %s?", topic),
				Options: opts(topic+" is the main focus.", "It is unrelated to the topic.",
					"It only applies in rare cases.", "It is a historical footnote."),
				CorrectOptionKey: "A",
				Explanation:      "Placeholder explanation: the topic should be central.",
			},
			{
				Prompt:           fmt.Sprintf("Which term is most associated with %s?", topic),
				Options:          opts("Distant echoes", "Core "+topic+" concept", "Random noise", "Unrelated field"),
				CorrectOptionKey: "B",
				Explanation:      "Placeholder explanation: this is a common association.",
			},
			{
				Prompt: fmt.Sprintf("Which activity is an example of %s?", topic),
				Options: opts("Unrelated observation", "Contradictory practice",
					"Applying "+topic+" principles", "Ignoring the topic entirely"),
				CorrectOptionKey: "C",
				Explanation:      "Placeholder explanation: examples apply the topic.",
			},
			{
				Prompt: fmt.Sprintf("Which question would you ask to learn about %s?", topic),
				Options: opts("What is the weather tomorrow?", "How tall is the nearest mountain?",
					"Who won last night's game?", "What are the basics of "+topic+"?"),
				CorrectOptionKey: "D",
				Explanation:      "Placeholder explanation: questions should be on-topic.",
			},
			{
				Prompt: fmt.Sprintf("Which choice is least related to %s?", topic),
				Options: opts("An overview of "+topic, "An unrelated distraction",
					topic+" fundamentals", "Common "+topic+" vocabulary"),
				CorrectOptionKey: "B",
				Explanation:      "Placeholder explanation: the unrelated option stands out.",
			},
		},
	}
}
