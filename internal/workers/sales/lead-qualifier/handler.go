// internal/workers/sales/lead-qualifier/handler.go
package leadqualifier

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
	TaskType      = "lead-qualifier"
	EvaluatorName = "lead_qualifier"
	Topic         = "Lead Qualification"
)

type Handler struct {
	config *Config
	logger logger.Logger
}

func NewHandler(config *Config, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
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

	camunda.CompleteJob(ctx, client, job, output, h.logger)
}

// Evaluate decodes a JSON record and returns the common result envelope.
func (h *Handler) Evaluate(ctx context.Context, record []byte) (*models.EvaluationResult, error) {
	var input Input
	if err := json.Unmarshal(record, &input); err != nil {
		return nil, errors.NewInvalidInputError(fmt.Sprintf("decode lead record: %v", err))
	}
	output, err := h.Execute(ctx, &input)
	if err != nil {
		return nil, err
	}
	return &output.EvaluationResult, nil
}

func (h *Handler) Execute(_ context.Context, input *Input) (*Output, error) {
	urgency := format.Normalize(input.Urgency, "low")
	behavior := format.Normalize(input.PastBehavior, "neutral")

	breakdown := ScoreBreakdown{
		DealSize:     h.dealSizeScore(input.DealSize),
		Urgency:      lookup(h.config.Scoring.Urgency, urgency),
		PastBehavior: lookup(h.config.Scoring.PastBehavior, behavior),
	}
	score := h.weightedScore(breakdown)
	segment := classify(h.config.Scoring.Segments, score)

	metrics.LeadSegments.WithLabelValues(strings.ToLower(segment.Name)).Inc()
	h.logger.Info("lead qualified", map[string]interface{}{
		"score":    score,
		"segment":  segment.Name,
		"dealSize": input.DealSize,
	})

	summary := buildSummary(score, segment, input.DealSize, urgency, behavior)

	return &Output{
		EvaluationResult:   models.NewEvaluationResult(EvaluatorName, Topic, summary),
		Score:              score,
		Segment:            segment.Name,
		Priority:           segment.Priority,
		Breakdown:          breakdown,
		RecommendedActions: segment.Actions,
	}, nil
}

func (h *Handler) dealSizeScore(dealSize float64) float64 {
	t := h.config.Scoring.DealSize.Thresholds
	switch {
	case dealSize >= t.High:
		return 1.0
	case dealSize >= t.Medium:
		return 0.6
	default:
		return 0.3
	}
}

// weightedScore returns 100 x the weighted factor sum, rounded to two decimals.
func (h *Handler) weightedScore(b ScoreBreakdown) float64 {
	s := h.config.Scoring
	raw := b.DealSize*s.DealSize.Weight + b.Urgency*s.Urgency.Weight + b.PastBehavior*s.PastBehavior.Weight
	return math.Round(raw*100*100) / 100
}

func lookup(rule config.WeightedLookup, key string) float64 {
	if v, ok := rule.Values[key]; ok {
		return v
	}
	return rule.Default
}

// classify picks the first segment whose threshold the score reaches. The last segment
// is the floor for anything below every threshold.
func classify(segments []config.Segment, score float64) config.Segment {
	for _, seg := range segments {
		if score >= seg.MinScore {
			return seg
		}
	}
	return segments[len(segments)-1]
}

func buildSummary(score float64, segment config.Segment, dealSize float64, urgency, behavior string) string {
	lines := []string{
		"### Lead Qualification Results",
		fmt.Sprintf("**Score:** %s/100", strconv.FormatFloat(score, 'f', -1, 64)),
		fmt.Sprintf("**Segment:** %s (%s Priority)", format.Capitalize(segment.Name), format.Capitalize(segment.Priority)),
		"",
		"**Analysis:**",
		fmt.Sprintf("- Deal size: $%s", format.Thousands(dealSize)),
		fmt.Sprintf("- Urgency: %s", format.Capitalize(urgency)),
		fmt.Sprintf("- Historical Engagement: %s", format.Capitalize(behavior)),
		"",
		"**Recommended Actions:**",
	}
	lines = append(lines, format.Bullets(segment.Actions)...)
	return strings.Join(lines, "\n")
}
