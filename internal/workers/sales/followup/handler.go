// internal/workers/sales/followup/handler.go
package followup

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"crm-decision-engine/internal/common/camunda"
	"crm-decision-engine/internal/common/config"
	"crm-decision-engine/internal/common/errors"
	"crm-decision-engine/internal/common/logger"
	"crm-decision-engine/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType      = "followup-planner"
	EvaluatorName = "followup"
	Topic         = "Follow-up"

	defaultName            = "Valued Customer"
	defaultInteractionType = "last interaction"
	dateLayout             = "2006-01-02"
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
		return nil, errors.NewInvalidInputError(fmt.Sprintf("decode follow-up record: %v", err))
	}
	output, err := h.Execute(ctx, &input)
	if err != nil {
		return nil, err
	}
	return &output.EvaluationResult, nil
}

func (h *Handler) Execute(_ context.Context, input *Input) (*Output, error) {
	key, tpl, err := h.resolveTemplate(SelectTemplate(input.LastInteraction))
	if err != nil {
		return nil, err
	}

	name := input.LeadContext.Name
	if strings.TrimSpace(name) == "" {
		name = defaultName
	}
	interaction := strings.ToLower(strings.TrimSpace(input.LastInteraction))
	if interaction == "" {
		interaction = defaultInteractionType
	}

	message, err := Render(key, tpl.Template, map[string]string{
		"name":             name,
		"custom_message":   input.LeadContext.CustomMessage,
		"interaction_type": interaction,
		"delay_days":       strconv.Itoa(tpl.DelayDays),
	})
	if err != nil {
		h.logger.Warn("follow-up template failed to render", map[string]interface{}{
			"template": key,
			"error":    err.Error(),
		})
		return nil, err
	}

	scheduled := h.config.Now().AddDate(0, 0, tpl.DelayDays).Format(dateLayout)

	h.logger.Info("follow-up planned", map[string]interface{}{
		"template":     key,
		"delayDays":    tpl.DelayDays,
		"scheduledFor": scheduled,
	})

	summary := strings.Join([]string{
		"### Follow-up Plan",
		fmt.Sprintf("**Subject:** %s", tpl.Subject),
		"**Message:**",
		message,
		fmt.Sprintf("**Schedule for:** %s", scheduled),
		fmt.Sprintf("**Delay:** %d days", tpl.DelayDays),
	}, "\n")

	return &Output{
		EvaluationResult: models.NewEvaluationResult(EvaluatorName, Topic, summary),
		TemplateKey:      key,
		Subject:          tpl.Subject,
		Message:          message,
		DelayDays:        tpl.DelayDays,
		ScheduledFor:     scheduled,
	}, nil
}

// resolveTemplate falls back to the general template when the selected one is not configured.
func (h *Handler) resolveTemplate(key string) (string, config.FollowupTemplate, error) {
	if tpl, ok := h.config.Templates[key]; ok {
		return key, tpl, nil
	}
	if tpl, ok := h.config.Templates[TemplateGeneral]; ok {
		return TemplateGeneral, tpl, nil
	}
	return "", config.FollowupTemplate{}, errors.NewTemplateNotFoundError(key)
}
