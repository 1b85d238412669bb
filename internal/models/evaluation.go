// internal/models/evaluation.go
package models

// EvaluationResult is the common envelope every evaluator returns.
type EvaluationResult struct {
	Summary   string   `json:"summary"`
	Topic     string   `json:"topic"`
	ToolsUsed []string `json:"tools_used"`
	// Source lists document references. None of the rule evaluators produce one.
	Source []string `json:"source"`
}

// NewEvaluationResult builds a result attributed to a single evaluator.
func NewEvaluationResult(evaluator, topic, summary string) EvaluationResult {
	return EvaluationResult{
		Summary:   summary,
		Topic:     topic,
		ToolsUsed: []string{evaluator},
		Source:    []string{},
	}
}
