// Package errors defines the typed failures raised by evaluators and the engine,
// and their mapping onto BPMN errors for the workflow transport.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

type ErrorCode string

// Validation errors. Never retried.
const (
	ErrCodeInvalidInput         ErrorCode = "INVALID_INPUT"
	ErrCodeUnknownEvaluator     ErrorCode = "UNKNOWN_EVALUATOR"
	ErrCodeUnknownPipelineStage ErrorCode = "UNKNOWN_PIPELINE_STAGE"
	ErrCodeTemplateRenderFailed ErrorCode = "TEMPLATE_RENDER_FAILED"
	ErrCodeTemplateNotFound     ErrorCode = "TEMPLATE_NOT_FOUND"
	ErrCodeInvalidConfiguration ErrorCode = "INVALID_CONFIGURATION"
)

// Technical errors.
const (
	ErrCodeEvaluationInternal     ErrorCode = "EVALUATION_INTERNAL_ERROR"
	ErrCodeEvaluationTimeout      ErrorCode = "EVALUATION_TIMEOUT"
	ErrCodeCacheUnavailable       ErrorCode = "CACHE_UNAVAILABLE"
	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
)

// StandardError is the single error shape surfaced by the engine.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// WithMetadata returns e after attaching key/value context.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError is what gets thrown or failed back to the workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables flattens the error into process variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

func newError(code ErrorCode, message, details string, retryable bool) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidInputError reports a record that does not match the evaluator's input schema.
func NewInvalidInputError(details string) *StandardError {
	return newError(ErrCodeInvalidInput, "Input record failed validation", details, false)
}

func NewUnknownEvaluatorError(name string) *StandardError {
	return newError(ErrCodeUnknownEvaluator, "No evaluator registered under this name",
		fmt.Sprintf("evaluator: %s", name), false).WithMetadata("evaluator", name)
}

// NewUnknownPipelineStageError is raised when a deal's stage is not in the configured stage list.
func NewUnknownPipelineStageError(stage string, known []string) *StandardError {
	return newError(ErrCodeUnknownPipelineStage, "Pipeline stage is not configured",
		fmt.Sprintf("stage: %q, known stages: %s", stage, strings.Join(known, ", ")), false).
		WithMetadata("stage", stage)
}

// NewTemplateRenderFailedError is raised when a template references a placeholder that has no value.
func NewTemplateRenderFailedError(templateKey, placeholder string) *StandardError {
	return newError(ErrCodeTemplateRenderFailed, "Template references an unknown placeholder",
		fmt.Sprintf("template: %s, placeholder: {%s}", templateKey, placeholder), false).
		WithMetadata("placeholder", placeholder)
}

func NewTemplateNotFoundError(templateKey string) *StandardError {
	return newError(ErrCodeTemplateNotFound, "Template not found in configuration",
		fmt.Sprintf("template: %s", templateKey), false)
}

func NewInvalidConfigurationError(details string) *StandardError {
	return newError(ErrCodeInvalidConfiguration, "Rule configuration is invalid", details, false)
}

// NewInternalError wraps a failure that is not the caller's fault.
func NewInternalError(err error) *StandardError {
	return newError(ErrCodeEvaluationInternal, "Unexpected evaluation error", err.Error(), false)
}

func NewEvaluationTimeoutError(evaluator string) *StandardError {
	return newError(ErrCodeEvaluationTimeout, "Evaluation did not finish in time",
		fmt.Sprintf("evaluator: %s", evaluator), true)
}

func NewCacheUnavailableError(err error) *StandardError {
	return newError(ErrCodeCacheUnavailable, "Result cache unavailable", err.Error(), true)
}

func NewNotificationSendFailedError(channel string, err error) *StandardError {
	return newError(ErrCodeNotificationSendFailed, "Notification delivery failed",
		fmt.Sprintf("channel: %s, error: %s", channel, err.Error()), true)
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal codes onto the codes modelled in the process diagrams.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeInvalidInput:           "INVALID_INPUT",
	ErrCodeUnknownEvaluator:       "UNKNOWN_EVALUATOR",
	ErrCodeUnknownPipelineStage:   "UNKNOWN_PIPELINE_STAGE",
	ErrCodeTemplateRenderFailed:   "TEMPLATE_ERROR",
	ErrCodeTemplateNotFound:       "TEMPLATE_ERROR",
	ErrCodeInvalidConfiguration:   "CONFIGURATION_ERROR",
	ErrCodeEvaluationInternal:     "EVALUATION_FAILED",
	ErrCodeEvaluationTimeout:      "EVALUATION_FAILED",
	ErrCodeCacheUnavailable:       "CACHE_UNAVAILABLE",
	ErrCodeNotificationSendFailed: "NOTIFICATION_SEND_FAILED",
}

// GetRetryCount returns the recommended job retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeCacheUnavailable, ErrCodeNotificationSendFailed:
		return 3
	case ErrCodeEvaluationTimeout:
		return 2
	default:
		return 0
	}
}

func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, ok := BPMNErrorMapping[stdErr.Code]
	if !ok {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      bpmnCode,
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// AsStandardError unwraps err into a *StandardError, wrapping anything else as internal.
func AsStandardError(err error) *StandardError {
	if err == nil {
		return nil
	}
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	return NewInternalError(err)
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code ErrorCode) bool {
	var stdErr *StandardError
	return stderrors.As(err, &stdErr) && stdErr.Code == code
}

// IsValidationError reports whether err was caused by the input or the configuration
// rather than by infrastructure.
func IsValidationError(err error) bool {
	var stdErr *StandardError
	if !stderrors.As(err, &stdErr) {
		return false
	}
	return GetErrorCategory(stdErr.Code) == "VALIDATION" || GetErrorCategory(stdErr.Code) == "TEMPLATE"
}

func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "TEMPLATE"):
		return "TEMPLATE"
	case strings.HasPrefix(codeStr, "UNKNOWN_"),
		strings.Contains(codeStr, "INVALID"),
		strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	case strings.Contains(codeStr, "CACHE"):
		return "CACHE"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "EVALUATION"):
		return "EVALUATION"
	default:
		return "OTHER"
	}
}
