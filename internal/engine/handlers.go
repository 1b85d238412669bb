// internal/engine/handlers.go
package engine

import (
	"time"

	"crm-decision-engine/internal/common/camunda"
	"crm-decision-engine/internal/common/config"
	"crm-decision-engine/internal/common/logger"
	salescoach "crm-decision-engine/internal/workers/coaching/sales-coach"
	pipelinemanager "crm-decision-engine/internal/workers/pipeline/pipeline-manager"
	"crm-decision-engine/internal/workers/sales/followup"
	leadqualifier "crm-decision-engine/internal/workers/sales/lead-qualifier"
	"crm-decision-engine/internal/workers/sales/quotation"
)

// Handlers holds one handler per evaluator, built from a single rule set.
type Handlers struct {
	LeadQualifier *leadqualifier.Handler
	Followup      *followup.Handler
	Quotation     *quotation.Handler
	Pipeline      *pipelinemanager.Handler
	SalesCoach    *salescoach.Handler
}

// NewHandlers wires every evaluator to rules. now overrides the follow-up clock when non-nil.
func NewHandlers(rules config.RulesConfig, log logger.Logger, now func() time.Time) *Handlers {
	followupCfg := followup.LoadConfig(rules)
	if now != nil {
		followupCfg.Now = now
	}

	return &Handlers{
		LeadQualifier: leadqualifier.NewHandler(leadqualifier.LoadConfig(rules), log),
		Followup:      followup.NewHandler(followupCfg, log),
		Quotation:     quotation.NewHandler(quotation.LoadConfig(rules), log),
		Pipeline:      pipelinemanager.NewHandler(pipelinemanager.LoadConfig(rules), log),
		SalesCoach:    salescoach.NewHandler(salescoach.LoadConfig(rules), log),
	}
}

// Evaluators returns the handlers in catalogue order.
func (h *Handlers) Evaluators() []Evaluator {
	return []Evaluator{h.LeadQualifier, h.Followup, h.Quotation, h.Pipeline, h.SalesCoach}
}

// JobHandlers maps Zeebe task types to their job handlers.
func (h *Handlers) JobHandlers() map[string]camunda.JobHandler {
	return map[string]camunda.JobHandler{
		leadqualifier.TaskType:   h.LeadQualifier,
		followup.TaskType:        h.Followup,
		quotation.TaskType:       h.Quotation,
		pipelinemanager.TaskType: h.Pipeline,
		salescoach.TaskType:      h.SalesCoach,
	}
}
