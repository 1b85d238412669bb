// internal/workers/pipeline/pipeline-manager/handler.go
package pipelinemanager

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"crm-decision-engine/internal/common/camunda"
	"crm-decision-engine/internal/common/config"
	"crm-decision-engine/internal/common/errors"
	"crm-decision-engine/internal/common/format"
	"crm-decision-engine/internal/common/logger"
	"crm-decision-engine/internal/common/metrics"
	"crm-decision-engine/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType      = "pipeline-manager"
	EvaluatorName = "pipeline_manager"
	Topic         = "Pipeline Analysis"

	defaultStage = "lead"
)

var escalationActions = []string{
	"Schedule urgent review meeting",
	"Prepare risk mitigation plan",
	"Consider escalation to senior sales",
}

// Escalator publishes at-risk deals to the sales leadership channel.
type Escalator interface {
	Escalate(ctx context.Context, escalation models.DealEscalation) error
}

type Handler struct {
	config    *Config
	logger    logger.Logger
	escalator Escalator
}

func NewHandler(config *Config, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

// WithEscalator enables escalation of at-risk deals processed through Handle.
func (h *Handler) WithEscalator(e Escalator) *Handler {
	h.escalator = e
	return h
}

func (h *Handler) Name() string { return EvaluatorName }

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":             job.Key,
		"processInstanceKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := camunda.DecodeVariables(job, &input); err != nil {
		camunda.FailJob(ctx, client, job, err, h.logger)
		return
	}

	output, err := h.Execute(ctx, &input)
	if err != nil {
		camunda.FailJob(ctx, client, job, err, h.logger)
		return
	}

	h.escalate(ctx, &input, output, job.ProcessInstanceKey)

	camunda.CompleteJob(ctx, client, job, output, h.logger)
}

func (h *Handler) Evaluate(ctx context.Context, record []byte) (*models.EvaluationResult, error) {
	var input Input
	if err := json.Unmarshal(record, &input); err != nil {
		return nil, errors.NewInvalidInputError(fmt.Sprintf("decode deal status: %v", err))
	}
	output, err := h.Execute(ctx, &input)
	if err != nil {
		return nil, err
	}
	return &output.EvaluationResult, nil
}

func (h *Handler) Execute(_ context.Context, input *Input) (*Output, error) {
	stage := input.Stage
	if strings.TrimSpace(stage) == "" {
		stage = defaultStage
	}

	position := h.stageIndex(stage)
	if position < 0 {
		return nil, errors.NewUnknownPipelineStageError(stage, h.config.Stages)
	}

	assessment := AssessRisk(h.config.RiskFactors, input)

	var actions []string
	var nextStage string
	if assessment.AtRisk {
		actions = append(actions, escalationActions...)
		metrics.DealsAtRisk.WithLabelValues(stage).Inc()
	} else if position < len(h.config.Stages)-1 {
		nextStage = h.config.Stages[position+1]
		actions = append(actions, fmt.Sprintf("Prepare for %s stage", format.Title(nextStage)))
	}

	h.logger.Info("pipeline assessed", map[string]interface{}{
		"dealId":    input.DealID,
		"stage":     stage,
		"riskScore": assessment.Score,
		"atRisk":    assessment.AtRisk,
	})

	output := &Output{
		Stage:              stage,
		RiskScore:          assessment.Score,
		IsAtRisk:           assessment.AtRisk,
		RiskReasons:        assessment.Reasons,
		RecommendedActions: actions,
		NextStage:          nextStage,
	}
	output.EvaluationResult = models.NewEvaluationResult(EvaluatorName, Topic, buildSummary(output))
	return output, nil
}

// escalate publishes at-risk deals. A publish failure is logged and does not fail the job.
func (h *Handler) escalate(ctx context.Context, input *Input, output *Output, processInstanceKey int64) {
	if !output.IsAtRisk || h.escalator == nil {
		return
	}
	escalation := models.DealEscalation{
		DealID:             input.DealID,
		Stage:              output.Stage,
		RiskScore:          output.RiskScore,
		RiskReasons:        output.RiskReasons,
		RecommendedActions: output.RecommendedActions,
		ProcessInstanceKey: processInstanceKey,
	}
	if err := h.escalator.Escalate(ctx, escalation); err != nil {
		h.logger.Warn("deal escalation failed", map[string]interface{}{
			"dealId": input.DealID,
			"error":  err.Error(),
		})
	}
}

func (h *Handler) stageIndex(stage string) int {
	for i, s := range h.config.Stages {
		if s == stage {
			return i
		}
	}
	return -1
}

// AssessRisk sums the weight of every triggered factor. The score is rounded to two decimals
// before it is compared with the at-risk threshold.
func AssessRisk(rf config.RiskFactors, input *Input) RiskAssessment {
	var score float64
	var reasons []string

	if input.InactiveDays >= float64(rf.InactiveDays) {
		score += rf.InactivityWeight
		reasons = append(reasons, fmt.Sprintf("No activity for %s days", strconv.FormatFloat(input.InactiveDays, 'f', -1, 64)))
	}
	if input.PriceSensitivity >= rf.PriceSensitivityThreshold {
		score += rf.PriceSensitivityWeight
		reasons = append(reasons, "High price sensitivity")
	}
	if rf.CompetitorMentioned && input.CompetitorMentioned {
		score += rf.CompetitorWeight
		reasons = append(reasons, "Competitor actively involved")
	}
	if input.ResponseDelay >= float64(rf.DelayedResponse) {
		score += rf.ResponseDelayWeight
		reasons = append(reasons, "Delayed responses from prospect")
	}

	score = math.Round(score*100) / 100
	return RiskAssessment{
		Score:   score,
		AtRisk:  score >= rf.AtRiskThreshold,
		Reasons: reasons,
	}
}

func buildSummary(o *Output) string {
	status := "Healthy"
	if o.IsAtRisk {
		status = "At Risk"
	}

	var b strings.Builder
	b.WriteString("### Pipeline Status Update\n")
	fmt.Fprintf(&b, "**Current Stage:** %s\n", format.Title(o.Stage))
	fmt.Fprintf(&b, "**Risk Score:** %s\n", strconv.FormatFloat(o.RiskScore, 'f', -1, 64))
	fmt.Fprintf(&b, "**Status:** %s\n", status)

	if len(o.RiskReasons) > 0 {
		b.WriteString("**Risk Factors:**\n")
		b.WriteString(strings.Join(format.Bullets(o.RiskReasons), "\n"))
		b.WriteString("\n")
	}
	if len(o.RecommendedActions) > 0 {
		b.WriteString("\n**Recommended Actions:**\n")
		b.WriteString(strings.Join(format.Bullets(o.RecommendedActions), "\n"))
	}
	return b.String()
}
