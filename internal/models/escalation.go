// internal/models/escalation.go
package models

// DealEscalation is published when a pipeline assessment flags a deal at risk.
type DealEscalation struct {
	DealID             string   `json:"deal_id"`
	Stage              string   `json:"stage"`
	RiskScore          float64  `json:"risk_score"`
	RiskReasons        []string `json:"risk_reasons"`
	RecommendedActions []string `json:"recommended_actions"`
	ProcessInstanceKey int64    `json:"process_instance_key,omitempty"`
}
