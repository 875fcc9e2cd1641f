package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/invopop/jsonschema"
)

// StructuredAnswer is the shape requested by the JSON_STRUCTURED technique.
type StructuredAnswer struct {
	Answer     string   `json:"answer"`
	KeyPoints  []string `json:"key_points"`
	References []string `json:"references"`
}

// StructuredAnswerSchema returns the JSON schema of StructuredAnswer.
var StructuredAnswerSchema = sync.OnceValue(func() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	return reflector.Reflect(&StructuredAnswer{})
})

// requiredFieldsLine renders the schema as a compact field list, e.g.
// {"answer": string, "key_points": [string]}.
var requiredFieldsLine = sync.OnceValue(func() string {
	schema := StructuredAnswerSchema()
	var parts []string
	for pair := schema.Properties.Oldest(); pair != nil; pair = pair.Next() {
		parts = append(parts, fmt.Sprintf("%q: %s", pair.Key, schemaTypeName(pair.Value)))
	}
	return "{" + strings.Join(parts, ", ") + "}"
})

func schemaTypeName(s *jsonschema.Schema) string {
	if s == nil {
		return "any"
	}
	if s.Type == "array" {
		return "[" + schemaTypeName(s.Items) + "]"
	}
	if s.Type == "" {
		return "any"
	}
	return s.Type
}

// ParseStructuredAnswer decodes a model reply produced under the
// JSON_STRUCTURED technique. Markdown code fences around the object are
// tolerated; missing required keys are an error.
func ParseStructuredAnswer(text string) (StructuredAnswer, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return StructuredAnswer{}, fmt.Errorf("decode structured answer: %w", err)
	}
	for _, key := range StructuredAnswerSchema().Required {
		if _, ok := raw[key]; !ok {
			return StructuredAnswer{}, fmt.Errorf("structured answer missing %q", key)
		}
	}

	var out StructuredAnswer
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return StructuredAnswer{}, fmt.Errorf("decode structured answer: %w", err)
	}
	return out, nil
}
