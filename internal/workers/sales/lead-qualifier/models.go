// internal/workers/sales/lead-qualifier/models.go
package leadqualifier

import "crm-decision-engine/internal/models"

type Input struct {
	DealSize     float64 `json:"deal_size"`
	Urgency      string  `json:"urgency"`
	PastBehavior string  `json:"past_behavior"`
}

type Output struct {
	models.EvaluationResult
	Score              float64        `json:"score"`
	Segment            string         `json:"segment"`
	Priority           string         `json:"priority"`
	Breakdown          ScoreBreakdown `json:"breakdown"`
	RecommendedActions []string       `json:"recommended_actions"`
}

// ScoreBreakdown holds the unweighted factor scores, each in [0, 1].
type ScoreBreakdown struct {
	DealSize     float64 `json:"deal_size"`
	Urgency      float64 `json:"urgency"`
	PastBehavior float64 `json:"past_behavior"`
}
