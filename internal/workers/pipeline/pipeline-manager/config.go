// internal/workers/pipeline/pipeline-manager/config.go
package pipelinemanager

import (
	"time"

	"crm-decision-engine/internal/common/config"
)

type Config struct {
	Stages      []string
	RiskFactors config.RiskFactors
	Timeout     time.Duration
}

func LoadConfig(rules config.RulesConfig) *Config {
	return &Config{
		Stages:      rules.PipelineStages,
		RiskFactors: rules.RiskFactors,
		Timeout:     10 * time.Second,
	}
}
