// internal/workers/sales/quotation/handler.go
package quotation

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"crm-decision-engine/internal/common/camunda"
	"crm-decision-engine/internal/common/errors"
	"crm-decision-engine/internal/common/format"
	"crm-decision-engine/internal/common/logger"
	"crm-decision-engine/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType      = "quotation-engine"
	EvaluatorName = "quotation"
	Topic         = "Quotation Generation"
)

const (
	TierStandard   = "standard"
	TierPremium    = "premium"
	TierEnterprise = "enterprise"
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

func (h *Handler) Evaluate(ctx context.Context, record []byte) (*models.EvaluationResult, error) {
	var input Input
	if err := json.Unmarshal(record, &input); err != nil {
		return nil, errors.NewInvalidInputError(fmt.Sprintf("decode deal context: %v", err))
	}
	output, err := h.Execute(ctx, &input)
	if err != nil {
		return nil, err
	}
	return &output.EvaluationResult, nil
}

func (h *Handler) Execute(_ context.Context, input *Input) (*Output, error) {
	rules := h.config.Rules
	urgency := format.Normalize(input.Urgency, "medium")
	customerType := format.Normalize(input.CustomerType, "regular")

	basePrice := h.resolveBasePrice(input)
	tier := h.selectTier(basePrice, customerType)
	tpl, ok := rules.Templates[tier]
	if !ok {
		return nil, errors.NewTemplateNotFoundError(tier)
	}

	finalPrice := h.adjustPrice(basePrice, urgency, customerType)

	var notes []string
	if urgency == "high" {
		notes = append(notes, "Expedited delivery available")
	}
	if customerType == "vip" {
		notes = append(notes, "Premium support included")
	}

	h.logger.Info("quotation generated", map[string]interface{}{
		"tier":       tier,
		"basePrice":  basePrice,
		"finalPrice": finalPrice,
	})

	output := &Output{
		Tier:         tier,
		TemplateName: tpl.Name,
		CustomerType: format.Capitalize(customerType),
		BasePrice:    basePrice,
		FinalPrice:   finalPrice,
		Terms:        tpl.Terms,
		Delivery:     tpl.Delivery,
		Validity:     rules.Validity,
		SpecialNotes: notes,
	}
	output.EvaluationResult = models.NewEvaluationResult(EvaluatorName, Topic, buildSummary(output))
	return output, nil
}

// resolveBasePrice prefers base_price, then deal_size, then the configured default.
func (h *Handler) resolveBasePrice(input *Input) float64 {
	switch {
	case input.BasePrice > 0:
		return input.BasePrice
	case input.DealSize > 0:
		return input.DealSize
	default:
		return h.config.Rules.DefaultBasePrice
	}
}

func (h *Handler) selectTier(price float64, customerType string) string {
	rules := h.config.Rules
	switch {
	case price >= rules.EnterpriseThreshold || customerType == "vip":
		return TierEnterprise
	case price >= rules.PremiumThreshold || customerType == "premium":
		return TierPremium
	default:
		return TierStandard
	}
}

// adjustPrice applies the urgency multiplier and customer discount, rounded to cents.
// Unknown urgencies and customer types leave the price unchanged.
func (h *Handler) adjustPrice(base float64, urgency, customerType string) float64 {
	factors := h.config.Rules.PricingFactors
	multiplier := 1.0
	if m, ok := factors.UrgencyMultiplier[urgency]; ok {
		multiplier = m
	}
	discount := 1.0
	if d, ok := factors.CustomerTypeDiscount[customerType]; ok {
		discount = d
	}
	return math.Round(base*multiplier*discount*100) / 100
}

func buildSummary(o *Output) string {
	summary := strings.Join([]string{
		"### Quotation Details",
		fmt.Sprintf("**Template:** %s", o.TemplateName),
		fmt.Sprintf("**Customer Type:** %s", o.CustomerType),
		fmt.Sprintf("**Base Price:** %s", format.Money(o.BasePrice)),
		fmt.Sprintf("**Final Price:** %s", format.Money(o.FinalPrice)),
		fmt.Sprintf("**Terms:** %s", o.Terms),
		fmt.Sprintf("**Delivery:** %s", o.Delivery),
		fmt.Sprintf("**Validity:** %s", o.Validity),
	}, "\n")

	if len(o.SpecialNotes) > 0 {
		summary += "\n\n**Special Notes:**\n" + strings.Join(format.Bullets(o.SpecialNotes), "\n")
	}
	return summary
}
