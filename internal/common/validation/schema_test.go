// internal/common/validation/schema_test.go
package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func leadSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"deal_size": map[string]interface{}{"type": "number", "minimum": 0},
			"urgency":   map[string]interface{}{"type": "string"},
			"lead_context": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"name": map[string]interface{}{"type": "string"},
				},
				"required": []interface{}{"name"},
			},
		},
	}
}

// ==========================
// ValidateInput
// ==========================

func TestValidateInput(t *testing.T) {
	tests := []struct {
		name          string
		input         interface{}
		expectedValid bool
		expectedField string
	}{
		{
			name:          "valid record",
			input:         map[string]interface{}{"deal_size": 50000, "urgency": "high"},
			expectedValid: true,
		},
		{
			name:          "empty record",
			input:         map[string]interface{}{},
			expectedValid: true,
		},
		{
			name:          "wrong type",
			input:         map[string]interface{}{"deal_size": "big"},
			expectedField: "deal_size",
		},
		{
			name:          "below minimum",
			input:         map[string]interface{}{"deal_size": -1},
			expectedField: "deal_size",
		},
		{
			name:          "nested required",
			input:         map[string]interface{}{"lead_context": map[string]interface{}{}},
			expectedField: "lead_context.name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ValidateInput(tt.input, leadSchema())
			require.NoError(t, err)
			assert.Equal(t, tt.expectedValid, result.Valid)
			if !tt.expectedValid {
				assert.True(t, result.HasErrors(tt.expectedField), "errors: %v", result.GetErrorMessages())
				assert.NotEmpty(t, result.GetErrorsForField(tt.expectedField)[0].Code)
			}
		})
	}
}

func TestValidateInput_RootRequired(t *testing.T) {
	schema := map[string]interface{}{"type": "object", "required": []interface{}{"stage"}}

	result, err := ValidateInput(map[string]interface{}{}, schema)
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.True(t, result.HasErrors("stage"))
	assert.Equal(t, "REQUIRED", result.Errors[0].Code)
}

func TestValidateInput_EmptySchemaAcceptsAnything(t *testing.T) {
	result, err := ValidateInput([]interface{}{1, "two"}, nil)
	require.NoError(t, err)
	assert.True(t, result.Valid)
}

func TestValidateInput_BrokenSchema(t *testing.T) {
	_, err := ValidateInput(map[string]interface{}{}, map[string]interface{}{"type": 12})
	assert.Error(t, err)
}

func TestGetErrorsForField_IncludesNested(t *testing.T) {
	vr := &ValidationResult{Errors: []ValidationError{
		{Field: "lead_context.name"},
		{Field: "lead_contextual"},
		{Field: "lead_context"},
	}}

	assert.Len(t, vr.GetErrorsForField("lead_context"), 2)
	assert.Equal(t, []string{"lead_context.name: ", "lead_contextual: ", "lead_context: "}, vr.GetErrorMessages())
}

// ==========================
// ValidateEvaluatorName
// ==========================

func TestValidateEvaluatorName(t *testing.T) {
	for _, name := range []string{"lead_qualifier", "followup", "sales_coach"} {
		assert.NoError(t, ValidateEvaluatorName(name), name)
	}
	for _, name := range []string{"", "Lead", "lead-qualifier", "lead__qualifier", "_lead", "lead1"} {
		assert.Error(t, ValidateEvaluatorName(name), name)
	}
}
