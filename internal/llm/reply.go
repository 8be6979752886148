package llm

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

var errEmptyReply = errors.New("empty reply")

// reply wraps raw model text. Anything that is not a single JSON document is
// a NotJSON failure; a schema mismatch is only recorded on the Response.
func reply(model string, req Request, content json.RawMessage, usage Usage) (*Response, error) {
	if len(bytes.TrimSpace(content)) == 0 {
		return nil, &Error{Failure: NotJSON, Model: model, Err: errEmptyReply}
	}
	if !json.Valid(content) {
		return nil, &Error{Failure: NotJSON, Model: model, Content: content}
	}
	return &Response{
		Content:        content,
		Usage:          usage,
		Model:          model,
		SchemaMismatch: schemas.check(req.Schema, content),
	}, nil
}

type schemaSet struct {
	mu       sync.Mutex
	compiled map[string]*jsonschema.Schema
}

var schemas = &schemaSet{compiled: make(map[string]*jsonschema.Schema)}

// check validates content against s. A nil schema matches anything.
func (set *schemaSet) check(s *Schema, content json.RawMessage) error {
	if s == nil {
		return nil
	}
	compiled, err := set.get(s)
	if err != nil {
		return err
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(content))
	if err != nil {
		return err
	}
	return compiled.Validate(doc)
}

func (set *schemaSet) get(s *Schema) (*jsonschema.Schema, error) {
	set.mu.Lock()
	defer set.mu.Unlock()
	if c, ok := set.compiled[s.Name]; ok {
		return c, nil
	}

	raw, err := json.Marshal(s.Definition)
	if err != nil {
		return nil, fmt.Errorf("encode schema %q: %w", s.Name, err)
	}
	def, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode schema %q: %w", s.Name, err)
	}
	url := "mem://" + s.Name + ".json"
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(url, def); err != nil {
		return nil, fmt.Errorf("load schema %q: %w", s.Name, err)
	}
	c, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema %q: %w", s.Name, err)
	}
	set.compiled[s.Name] = c
	return c, nil
}
