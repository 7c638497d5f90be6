package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateFinalOutput_NoSchemaIsNoop(t *testing.T) {
	require.NoError(t, ValidateFinalOutput(nil, "not json at all"))
}

func TestValidateFinalOutput_ValidMatch(t *testing.T) {
	schema := []byte(`{
		"type": "object",
		"properties": {"answer": {"type": "string"}},
		"required": ["answer"]
	}`)
	err := ValidateFinalOutput(schema, `{"answer": "42"}`)
	require.NoError(t, err)
}

func TestValidateFinalOutput_MissingRequiredField(t *testing.T) {
	schema := []byte(`{
		"type": "object",
		"properties": {"answer": {"type": "string"}},
		"required": ["answer"]
	}`)
	err := ValidateFinalOutput(schema, `{"wrong": "field"}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not match")
}

func TestValidateFinalOutput_NotJSON(t *testing.T) {
	schema := []byte(`{"type": "object"}`)
	err := ValidateFinalOutput(schema, "plain text response")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not valid JSON")
}

func TestValidateFinalOutput_InvalidSchemaDocument(t *testing.T) {
	err := ValidateFinalOutput([]byte(`not a schema`), `{}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid final_output_json_schema")
}
