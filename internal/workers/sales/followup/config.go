// internal/workers/sales/followup/config.go
package followup

import (
	"time"

	"crm-decision-engine/internal/common/config"
)

type Config struct {
	Templates map[string]config.FollowupTemplate
	// Now is the clock used to compute the scheduled date.
	Now     func() time.Time
	Timeout time.Duration
}

func LoadConfig(rules config.RulesConfig) *Config {
	return &Config{
		Templates: rules.FollowupTemplates,
		Now:       time.Now,
		Timeout:   10 * time.Second,
	}
}
