// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"crm-decision-engine/internal/common/validation"
)

const Version = "1.0.0"

func LoadRegistry(path string) (*ActivityRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg ActivityRegistry
	err = json.Unmarshal(data, &reg)
	return &reg, err
}

// SaveRegistry writes reg as indented JSON, creating the parent directory.
func SaveRegistry(reg *ActivityRegistry, path string) error {
	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write registry file: %w", err)
	}
	return nil
}

// Default returns the built-in evaluator catalogue.
func Default() *ActivityRegistry {
	return &ActivityRegistry{
		Version:     Version,
		LastUpdated: time.Now().UTC().Format(time.RFC3339),
		Activities:  defaultActivities(),
	}
}

// Find returns the activity with the given evaluator name.
func (r *ActivityRegistry) Find(id string) (Activity, bool) {
	for _, a := range r.Activities {
		if a.ID == id {
			return a, true
		}
	}
	return Activity{}, false
}

// IDs lists evaluator names in registry order.
func (r *ActivityRegistry) IDs() []string {
	ids := make([]string, 0, len(r.Activities))
	for _, a := range r.Activities {
		ids = append(ids, a.ID)
	}
	return ids
}

// Validate checks required fields, naming and uniqueness.
func (r *ActivityRegistry) Validate() error {
	if len(r.Activities) == 0 {
		return fmt.Errorf("registry contains no activities")
	}

	ids := make(map[string]bool)
	for _, activity := range r.Activities {
		if activity.ID == "" {
			return fmt.Errorf("activity missing required field: ID")
		}
		if ids[activity.ID] {
			return fmt.Errorf("duplicate activity ID: %s", activity.ID)
		}
		ids[activity.ID] = true

		if err := validation.ValidateEvaluatorName(activity.ID); err != nil {
			return err
		}
		if activity.DisplayName == "" {
			return fmt.Errorf("activity %s missing required field: DisplayName", activity.ID)
		}
		if activity.TaskType == "" {
			return fmt.Errorf("activity %s missing required field: TaskType", activity.ID)
		}
		if activity.Category == "" {
			return fmt.Errorf("activity %s missing required field: Category", activity.ID)
		}
	}
	return nil
}

func defaultActivities() []Activity {
	return []Activity{
		{
			ID:          "lead_qualifier",
			DisplayName: "Lead Qualifier",
			Description: "Advanced lead scoring and qualification system. " +
				"Input: deal_size (number), urgency ('high'/'medium'/'low'), past_behavior ('positive'/'neutral'/'negative'). " +
				"Returns detailed qualification analysis with score, segment, and recommendations.",
			Category: "sales",
			Version:  Version,
			TaskType: "lead-qualifier",
			Topic:    "Lead Qualification",
			InputSchema: object(map[string]interface{}{
				"deal_size":     minimum(typed("number", "Expected deal value"), 0),
				"urgency":       typed("string", "high, medium or low"),
				"past_behavior": typed("string", "positive, neutral or negative"),
			}),
			ErrorCodes:    []string{"INVALID_INPUT"},
			Timeout:       "10s",
			Deterministic: true,
			Tags:          []string{"scoring", "segmentation"},
		},
		{
			ID:          "followup",
			DisplayName: "Follow-up Planner",
			Description: "Smart follow-up system with templating and scheduling. " +
				"Input: lead_context (object with name, custom_message), last_interaction (string). " +
				"Returns personalized message and scheduling recommendations.",
			Category: "sales",
			Version:  Version,
			TaskType: "followup-planner",
			Topic:    "Follow-up",
			InputSchema: object(map[string]interface{}{
				"lead_context": object(map[string]interface{}{
					"name":           typed("string", "Contact name"),
					"custom_message": typed("string", "Free text appended to the message"),
				}),
				"last_interaction": typed("string", "Description of the last touchpoint"),
			}),
			ErrorCodes: []string{"INVALID_INPUT", "TEMPLATE_RENDER_FAILED", "TEMPLATE_NOT_FOUND"},
			Timeout:    "10s",
			Tags:       []string{"templating", "scheduling"},
		},
		{
			ID:          "quotation",
			DisplayName: "Quotation Engine",
			Description: "Advanced quotation generation system with smart template selection and dynamic pricing. " +
				"Input: base_price (number), deal_size (number), urgency (string), customer_type (string). " +
				"Returns detailed quotation with pricing analysis and special terms.",
			Category: "sales",
			Version:  Version,
			TaskType: "quotation-engine",
			Topic:    "Quotation Generation",
			InputSchema: object(map[string]interface{}{
				"base_price":    typed("number", "List price before adjustments"),
				"deal_size":     typed("number", "Used as the base price when base_price is absent"),
				"urgency":       typed("string", "high, medium or low"),
				"customer_type": typed("string", "new, regular, premium or vip"),
			}),
			ErrorCodes:    []string{"INVALID_INPUT", "TEMPLATE_NOT_FOUND"},
			Timeout:       "10s",
			Deterministic: true,
			Tags:          []string{"pricing"},
		},
		{
			ID:          "pipeline_manager",
			DisplayName: "Pipeline Risk Assessor",
			Description: "Advanced pipeline management system with risk assessment and action planning. " +
				"Input: deal status including stage, inactive_days, price_sensitivity, competitor_mentioned, response_delay. " +
				"Returns comprehensive pipeline analysis with risk assessment and next steps.",
			Category: "pipeline",
			Version:  Version,
			TaskType: "pipeline-manager",
			Topic:    "Pipeline Analysis",
			InputSchema: object(map[string]interface{}{
				"deal_id":              typed("string", "CRM deal identifier"),
				"stage":                typed("string", "Current pipeline stage"),
				"inactive_days":        typed("number", "Days since the last activity"),
				"price_sensitivity":    typed("number", "Observed price sensitivity, 0 to 1"),
				"competitor_mentioned": typed("boolean", "Whether a competitor is involved"),
				"response_delay":       typed("number", "Average prospect response delay in days"),
			}),
			ErrorCodes:    []string{"INVALID_INPUT", "UNKNOWN_PIPELINE_STAGE"},
			Timeout:       "10s",
			Deterministic: true,
			Tags:          []string{"risk", "pipeline"},
		},
		{
			ID:          "sales_coach",
			DisplayName: "Sales Coach",
			Description: "Advanced sales coaching system with pattern analysis and targeted recommendations. " +
				"Input: kind 'feedback' with a feedback string, or kind 'patterns' with a deals list. " +
				"Returns actionable coaching insights and recommendations.",
			Category: "coaching",
			Version:  Version,
			TaskType: "sales-coach",
			Topic:    "Sales Coaching",
			InputSchema: object(map[string]interface{}{
				"kind":     map[string]interface{}{"type": "string", "description": "feedback or patterns"},
				"feedback": typed("string", "Free text describing a lost deal"),
				"deals":    map[string]interface{}{"description": "Closed deals with status, days_to_close and value"},
			}),
			ErrorCodes:    []string{"INVALID_INPUT"},
			Timeout:       "10s",
			Deterministic: true,
			Tags:          []string{"coaching", "patterns"},
		},
	}
}
