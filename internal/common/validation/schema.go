// internal/common/validation/schema.go
package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const rootField = "(root)"

var evaluatorNamePattern = regexp.MustCompile(`^[a-z]+(_[a-z]+)*$`)

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ValidateInput checks a decoded input record against a JSON schema. An empty schema accepts
// everything. The returned error is set only when the schema itself cannot be compiled.
func ValidateInput(input interface{}, schema map[string]interface{}) (*ValidationResult, error) {
	if len(schema) == 0 {
		return &ValidationResult{Valid: true}, nil
	}

	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(schema), gojsonschema.NewGoLoader(input))
	if err != nil {
		return nil, fmt.Errorf("schema validation error: %w", err)
	}

	vr := &ValidationResult{Valid: result.Valid()}
	for _, desc := range result.Errors() {
		vr.Errors = append(vr.Errors, ValidationError{
			Field:   fieldOf(desc),
			Message: desc.Description(),
			Code:    strings.ToUpper(desc.Type()),
		})
	}
	return vr, nil
}

// fieldOf reports the offending property path; required errors name the missing property.
func fieldOf(desc gojsonschema.ResultError) string {
	field := desc.Field()
	if desc.Type() != "required" {
		return field
	}
	property, _ := desc.Details()["property"].(string)
	if property == "" {
		return field
	}
	if field == rootField || field == "" {
		return property
	}
	return field + "." + property
}

// ValidateEvaluatorName checks an evaluator identifier is lower snake case, e.g. lead_qualifier.
func ValidateEvaluatorName(name string) error {
	if !evaluatorNamePattern.MatchString(name) {
		return fmt.Errorf("evaluator name %q must be lower snake case (e.g. lead_qualifier)", name)
	}
	return nil
}

// GetErrorMessages returns a simple list of error messages
func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		messages[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return messages
}

// HasErrors checks if validation has errors for specific field
func (vr *ValidationResult) HasErrors(field string) bool {
	for _, err := range vr.Errors {
		if err.Field == field {
			return true
		}
	}
	return false
}

// GetErrorsForField returns errors for a field and anything nested below it.
func (vr *ValidationResult) GetErrorsForField(field string) []ValidationError {
	var fieldErrors []ValidationError
	for _, err := range vr.Errors {
		if err.Field == field || strings.HasPrefix(err.Field, field+".") {
			fieldErrors = append(fieldErrors, err)
		}
	}
	return fieldErrors
}
