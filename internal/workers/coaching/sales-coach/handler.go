// internal/workers/coaching/sales-coach/handler.go
package salescoach

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"crm-decision-engine/internal/common/camunda"
	"crm-decision-engine/internal/common/config"
	"crm-decision-engine/internal/common/errors"
	"crm-decision-engine/internal/common/format"
	"crm-decision-engine/internal/common/logger"
	"crm-decision-engine/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType      = "sales-coach"
	EvaluatorName = "sales_coach"
	Topic         = "Sales Coaching"
)

const (
	modeTips     = "tips"
	modeGeneric  = "generic"
	modePatterns = "patterns"
	modeNeedInfo = "need_more_info"

	genericTip      = "Tip: Focus on understanding customer needs and pain points."
	needMoreInfoMsg = "Please provide more specific deal information for targeted coaching."
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
		return nil, errors.NewInvalidInputError(fmt.Sprintf("decode coaching request: %v", err))
	}
	output, err := h.Execute(ctx, &input)
	if err != nil {
		return nil, err
	}
	return &output.EvaluationResult, nil
}

func (h *Handler) Execute(_ context.Context, input *Input) (*Output, error) {
	var output *Output

	switch resolveKind(input) {
	case KindFeedback:
		output = h.coachFeedback(input.Feedback)
	case KindPatterns:
		deals, ok := toDeals(input.Deals)
		if !ok || len(deals) == 0 {
			output = needMoreInfo()
			break
		}
		output = h.analyzePatterns(deals)
	default:
		output = needMoreInfo()
	}

	h.logger.Info("coaching generated", map[string]interface{}{
		"mode":       output.Mode,
		"lossReason": output.LossReason,
	})

	output.EvaluationResult = models.NewEvaluationResult(EvaluatorName, Topic, output.Summary)
	return output, nil
}

func resolveKind(input *Input) string {
	kind := strings.ToLower(strings.TrimSpace(input.Kind))
	if kind != "" {
		return kind
	}
	switch {
	case input.Deals != nil:
		return KindPatterns
	case input.Feedback != "":
		return KindFeedback
	default:
		return ""
	}
}

func (h *Handler) coachFeedback(feedback string) *Output {
	reason, ok := MatchLossReason(h.config.Rules.LostReasons, feedback)
	if !ok {
		out := &Output{Mode: modeGeneric}
		out.Summary = genericTip
		return out
	}

	lines := append([]string{
		fmt.Sprintf("### Coaching Tips for %s Challenge", format.Capitalize(reason.Keyword)),
	}, format.Bullets(reason.Tips)...)

	out := &Output{Mode: modeTips, LossReason: reason.Keyword, Tips: reason.Tips}
	out.Summary = strings.Join(lines, "\n")
	return out
}

// MatchLossReason returns the first configured loss reason whose keyword occurs in the
// lower-cased feedback text.
func MatchLossReason(reasons []config.LossReason, feedback string) (config.LossReason, bool) {
	text := strings.ToLower(feedback)
	for _, reason := range reasons {
		keyword := strings.ToLower(reason.Keyword)
		if keyword != "" && strings.Contains(text, keyword) {
			return reason, true
		}
	}
	return config.LossReason{}, false
}

func (h *Handler) analyzePatterns(deals []Deal) *Output {
	analysis := AnalyzePatterns(h.config.Rules.WinPatterns, deals)

	var b strings.Builder
	b.WriteString("### Sales Pattern Analysis\n")
	if analysis.QuickWins > 0 {
		fmt.Fprintf(&b, "\n**Quick Win Patterns** (%d deals):\nKey Success Factors:\n", analysis.QuickWins)
		b.WriteString(strings.Join(titledBullets(analysis.QuickWinFactors), "\n"))
	}
	if analysis.HighValueWins > 0 {
		fmt.Fprintf(&b, "\n**High Value Win Patterns** (%d deals):\nKey Success Factors:\n", analysis.HighValueWins)
		b.WriteString(strings.Join(titledBullets(analysis.HighValueFactors), "\n"))
	}

	out := &Output{Mode: modePatterns, Patterns: &analysis}
	out.Summary = b.String()
	return out
}

// AnalyzePatterns counts won deals that closed quickly and won deals above the high value
// threshold. A deal can fall in both groups. A deal without days_to_close is never a quick win.
func AnalyzePatterns(patterns config.WinPatterns, deals []Deal) PatternAnalysis {
	analysis := PatternAnalysis{
		QuickWinFactors:  patterns.QuickClose.KeyFactors,
		HighValueFactors: patterns.HighValue.KeyFactors,
	}
	for _, deal := range deals {
		if deal.Status != "won" {
			continue
		}
		if deal.DaysToClose != nil && *deal.DaysToClose <= patterns.QuickClose.DaysToClose {
			analysis.QuickWins++
		}
		if deal.Value >= patterns.HighValue.DealSizeThreshold {
			analysis.HighValueWins++
		}
	}
	return analysis
}

// toDeals converts decoded JSON deal records. It reports false unless raw is a list of objects.
func toDeals(value interface{}) ([]Deal, bool) {
	raw, ok := value.([]interface{})
	if !ok {
		return nil, false
	}
	deals := make([]Deal, 0, len(raw))
	for _, item := range raw {
		record, ok := item.(map[string]interface{})
		if !ok {
			return nil, false
		}
		var deal Deal
		deal.Status, _ = record["status"].(string)
		if days, ok := record["days_to_close"].(float64); ok {
			deal.DaysToClose = &days
		}
		deal.Value, _ = record["value"].(float64)
		deals = append(deals, deal)
	}
	return deals, true
}

func titledBullets(factors []string) []string {
	titled := make([]string, 0, len(factors))
	for _, f := range factors {
		titled = append(titled, format.Title(f))
	}
	return format.Bullets(titled)
}

func needMoreInfo() *Output {
	out := &Output{Mode: modeNeedInfo}
	out.Summary = needMoreInfoMsg
	return out
}
