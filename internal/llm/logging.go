package llm

import (
	"context"
	"time"

	"quiz-forge-service/internal/logger"
)

// logged reports every model call with its latency and token usage. Replies
// that do not match the requested schema are logged as warnings.
type logged struct {
	next Provider
	log  *logger.Logger
}

func WithLogging(p Provider, log *logger.Logger) Provider {
	if log == nil {
		log = logger.NewNop()
	}
	return &logged{next: p, log: log}
}

func (l *logged) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	resp, err := l.next.Generate(ctx, req)

	kv := []interface{}{"model", l.next.ModelID(), "latency_ms", time.Since(start).Milliseconds()}
	if req.Schema != nil {
		kv = append(kv, "schema", req.Schema.Name)
	}
	switch {
	case err != nil:
		l.log.Warn("llm call failed", append(kv, "error", err)...)
	case resp.SchemaMismatch != nil:
		l.log.Warn("llm reply does not match schema", append(kv, "mismatch", resp.SchemaMismatch)...)
	default:
		l.log.Info("llm call", append(kv, "input_tokens", resp.Usage.InputTokens, "output_tokens", resp.Usage.OutputTokens)...)
	}
	return resp, err
}

func (l *logged) ModelID() string { return l.next.ModelID() }
