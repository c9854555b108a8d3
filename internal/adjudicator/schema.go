package adjudicator

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// ValidateParams checks params against schemaJSON, a JSON Schema document.
// Reference Adjudicators call this from Init to turn a malformed
// gameParams map into a precise *domain.InvalidParamsError reason rather
// than a panic deep inside game-specific parsing.
func ValidateParams(schemaJSON string, params map[string]any) error {
	if params == nil {
		params = map[string]any{}
	}
	paramsBytes, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("marshal params: %w", err)
	}
	var paramsDoc any
	if err := json.Unmarshal(paramsBytes, &paramsDoc); err != nil {
		return fmt.Errorf("unmarshal params: %w", err)
	}

	var schemaDoc any
	if err := json.Unmarshal([]byte(schemaJSON), &schemaDoc); err != nil {
		return fmt.Errorf("unmarshal schema: %w", err)
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource("params.json", schemaDoc); err != nil {
		return fmt.Errorf("add schema resource: %w", err)
	}
	schema, err := c.Compile("params.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	if err := schema.Validate(paramsDoc); err != nil {
		return fmt.Errorf("gameParams: %w", err)
	}
	return nil
}
