// internal/workers/coaching/sales-coach/models.go
package salescoach

import "crm-decision-engine/internal/models"

// Input kinds.
const (
	KindFeedback = "feedback"
	KindPatterns = "patterns"
)

// Input carries one of two requests. Kind selects which field is read; when Kind is empty
// it is inferred from whichever of Feedback or Deals is present. Deals is kept loosely typed
// so that a record of the wrong shape gets the need-more-info reply instead of a decode error.
type Input struct {
	Kind     string      `json:"kind"`
	Feedback string      `json:"feedback,omitempty"`
	Deals    interface{} `json:"deals,omitempty"`
}

// Deal is one closed deal used for pattern analysis.
type Deal struct {
	Status      string
	DaysToClose *float64
	Value       float64
}

type PatternAnalysis struct {
	QuickWins        int      `json:"quick_wins"`
	HighValueWins    int      `json:"high_value_wins"`
	QuickWinFactors  []string `json:"quick_win_factors"`
	HighValueFactors []string `json:"high_value_factors"`
}

type Output struct {
	models.EvaluationResult
	Mode       string           `json:"mode"`
	LossReason string           `json:"loss_reason,omitempty"`
	Tips       []string         `json:"tips,omitempty"`
	Patterns   *PatternAnalysis `json:"patterns,omitempty"`
}
