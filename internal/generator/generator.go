// Package generator produces raw quiz content for a topic, either from a
// hosted model or from a deterministic placeholder.
package generator

import (
	"context"
	"encoding/json"
)

// Output is untrusted quiz content plus provenance. Payload still has to go
// through quiz.Normalize.
type Output struct {
	Payload  json.RawMessage
	Provider string
	// Notice is a user-facing message, set when a fallback was used.
	Notice string
}

type Generator interface {
	Generate(ctx context.Context, topic string) (Output, error)
}
