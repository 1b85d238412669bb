// internal/workers/sales/quotation/models.go
package quotation

import "crm-decision-engine/internal/models"

type Input struct {
	BasePrice    float64 `json:"base_price"`
	DealSize     float64 `json:"deal_size"`
	Urgency      string  `json:"urgency"`
	CustomerType string  `json:"customer_type"`
}

type Output struct {
	models.EvaluationResult
	Tier         string   `json:"tier"`
	TemplateName string   `json:"template_name"`
	CustomerType string   `json:"customer_type"`
	BasePrice    float64  `json:"base_price"`
	FinalPrice   float64  `json:"final_price"`
	Terms        string   `json:"terms"`
	Delivery     string   `json:"delivery"`
	Validity     string   `json:"validity"`
	SpecialNotes []string `json:"special_notes"`
}
