package llm

import (
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
)

// ValidateFinalOutput checks text (the final assistant message) against
// rawSchema, a JSON Schema document. Both strict-mode providers (which
// reject the schema at request time) and providers with no native
// structured-output support benefit from this local re-check: it is the
// last line of defense before a malformed final message reaches the caller.
//
// A nil/empty rawSchema is a no-op success.
func ValidateFinalOutput(rawSchema json.RawMessage, text string) error {
	if len(rawSchema) == 0 {
		return nil
	}

	var schema jsonschema.Schema
	if err := json.Unmarshal(rawSchema, &schema); err != nil {
		return fmt.Errorf("invalid final_output_json_schema: %w", err)
	}

	resolved, err := schema.Resolve(nil)
	if err != nil {
		return fmt.Errorf("failed to resolve final_output_json_schema: %w", err)
	}

	var instance interface{}
	if err := json.Unmarshal([]byte(text), &instance); err != nil {
		return fmt.Errorf("final output is not valid JSON: %w", err)
	}

	if err := resolved.Validate(instance); err != nil {
		return fmt.Errorf("final output does not match final_output_json_schema: %w", err)
	}

	return nil
}
