// internal/workers/coaching/sales-coach/config.go
package salescoach

import (
	"time"

	"crm-decision-engine/internal/common/config"
)

type Config struct {
	Rules   config.CoachingRules
	Timeout time.Duration
}

func LoadConfig(rules config.RulesConfig) *Config {
	return &Config{
		Rules:   rules.Coaching,
		Timeout: 10 * time.Second,
	}
}
