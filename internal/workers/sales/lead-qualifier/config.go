// internal/workers/sales/lead-qualifier/config.go
package leadqualifier

import (
	"time"

	"crm-decision-engine/internal/common/config"
)

type Config struct {
	Scoring config.LeadScoringRules
	Timeout time.Duration
}

func LoadConfig(rules config.RulesConfig) *Config {
	return &Config{
		Scoring: rules.LeadScoring,
		Timeout: 10 * time.Second,
	}
}
