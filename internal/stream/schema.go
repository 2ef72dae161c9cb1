package stream

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// payloadSchemas constrains the payload of each known kind. Additional
// properties are allowed so the flat envelope (which repeats "kind") and
// fields added by newer servers pass.
var payloadSchemas = map[Kind]map[string]any{
	KindMetadata: {
		"type": "object",
		"properties": map[string]any{
			"id":                 map[string]any{"type": "integer"},
			"order":              map[string]any{"type": "integer", "minimum": 1},
			"task_type":          map[string]any{"type": []any{"string", "null"}},
			"time_limit_minutes": map[string]any{"type": "integer", "minimum": 0},
			"completed":          map[string]any{"type": "boolean"},
			"generating_report":  map[string]any{"type": "boolean"},
		},
	},
	KindToken:       tokenSchema(),
	KindReportToken: tokenSchema(),
	KindDone: {
		"type": "object",
		"properties": map[string]any{
			"full_text": map[string]any{"type": "string"},
			"task_id":   map[string]any{"type": "integer"},
			"completed": map[string]any{"type": "boolean"},
			"message":   map[string]any{"type": "string"},
		},
	},
	KindCompleted: {
		"type":     "object",
		"required": []any{"final_report"},
		"properties": map[string]any{
			"final_report": map[string]any{"type": "string"},
		},
	},
	KindError: {
		"type":     "object",
		"required": []any{"message"},
		"properties": map[string]any{
			"message": map[string]any{"type": "string"},
		},
	},
}

func tokenSchema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []any{"token"},
		"properties": map[string]any{
			"token": map[string]any{"type": "string"},
		},
	}
}

var (
	compileOnce sync.Once
	compiled    map[Kind]*jsonschema.Schema
	compileErr  error
)

func compileSchemas() {
	c := jsonschema.NewCompiler()
	compiled = make(map[Kind]*jsonschema.Schema, len(payloadSchemas))
	for kind, def := range payloadSchemas {
		url := fmt.Sprintf("schema://stream/%s.json", kind)
		if err := c.AddResource(url, def); err != nil {
			compileErr = fmt.Errorf("add %s schema: %w", kind, err)
			return
		}
		sch, err := c.Compile(url)
		if err != nil {
			compileErr = fmt.Errorf("compile %s schema: %w", kind, err)
			return
		}
		compiled[kind] = sch
	}
}

// validatePayload checks payload against the schema of kind. Kinds without a
// schema (unknown kinds) only need to be well-formed JSON, which the caller
// already established.
func validatePayload(kind Kind, payload []byte) error {
	compileOnce.Do(compileSchemas)
	if compileErr != nil {
		return compileErr
	}
	sch, ok := compiled[kind]
	if !ok {
		return nil
	}

	var parsed any
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if err := sch.Validate(parsed); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}
