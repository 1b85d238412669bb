// internal/workers/sales/followup/models.go
package followup

import "crm-decision-engine/internal/models"

type Input struct {
	LeadContext     LeadContext `json:"lead_context"`
	LastInteraction string      `json:"last_interaction"`
}

type LeadContext struct {
	Name          string `json:"name"`
	CustomMessage string `json:"custom_message"`
}

type Output struct {
	models.EvaluationResult
	TemplateKey  string `json:"template_key"`
	Subject      string `json:"subject"`
	Message      string `json:"message"`
	DelayDays    int    `json:"delay_days"`
	ScheduledFor string `json:"scheduled_for"` // YYYY-MM-DD
}
