// internal/workers/pipeline/pipeline-manager/models.go
package pipelinemanager

import "crm-decision-engine/internal/models"

type Input struct {
	DealID              string  `json:"deal_id"`
	Stage               string  `json:"stage"`
	InactiveDays        float64 `json:"inactive_days"`
	PriceSensitivity    float64 `json:"price_sensitivity"`
	CompetitorMentioned bool    `json:"competitor_mentioned"`
	ResponseDelay       float64 `json:"response_delay"`
}

type Output struct {
	models.EvaluationResult
	Stage              string   `json:"stage"`
	RiskScore          float64  `json:"risk_score"`
	IsAtRisk           bool     `json:"is_at_risk"`
	RiskReasons        []string `json:"risk_reasons"`
	RecommendedActions []string `json:"recommended_actions"`
	NextStage          string   `json:"next_stage,omitempty"`
}

// RiskAssessment is the factor breakdown for one deal.
type RiskAssessment struct {
	Score   float64
	AtRisk  bool
	Reasons []string
}
