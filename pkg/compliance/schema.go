package compliance

import (
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const transactionIntentSchemaURL = "https://kontext.local/schema/transaction-intent.json"

const transactionIntentSchemaDoc = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["chain", "amount", "token", "from", "to", "agentId"],
  "properties": {
    "txHash":  { "type": "string" },
    "chain":   { "type": "string", "minLength": 1 },
    "amount":  { "type": "string", "minLength": 1 },
    "token":   { "type": "string", "minLength": 1 },
    "from":    { "type": "string", "minLength": 1 },
    "to":      { "type": "string", "minLength": 1 },
    "agentId": { "type": "string", "minLength": 1 }
  }
}`

// IntentSchema is a compiled, reusable validator for the transaction-intent
// input shape, grounded on the teacher's firewall.PolicyFirewall pattern of
// compiling a JSON Schema once and validating decoded params against it.
type IntentSchema struct {
	compiled *jsonschema.Schema
}

// NewIntentSchema compiles the transaction-intent schema once.
func NewIntentSchema() (*IntentSchema, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(transactionIntentSchemaURL, strings.NewReader(transactionIntentSchemaDoc)); err != nil {
		return nil, fmt.Errorf("compliance: schema load failed: %w", err)
	}
	compiled, err := c.Compile(transactionIntentSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compliance: schema compile failed: %w", err)
	}
	return &IntentSchema{compiled: compiled}, nil
}

// Validate checks a decoded transaction-intent payload (map[string]any)
// against the compiled schema.
func (s *IntentSchema) Validate(payload map[string]interface{}) error {
	if err := s.compiled.Validate(payload); err != nil {
		return fmt.Errorf("compliance: transaction intent failed schema validation: %w", err)
	}
	return nil
}
