// internal/workers/sales/quotation/config.go
package quotation

import (
	"time"

	"crm-decision-engine/internal/common/config"
)

type Config struct {
	Rules   config.QuotationRules
	Timeout time.Duration
}

func LoadConfig(rules config.RulesConfig) *Config {
	return &Config{
		Rules:   rules.Quotation,
		Timeout: 10 * time.Second,
	}
}
