// internal/workers/sales/followup/handler_test.go
package followup

import (
	"context"
	"testing"
	"time"

	"crm-decision-engine/internal/common/config"
	"crm-decision-engine/internal/common/errors"
	"crm-decision-engine/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

var fixedNow = time.Date(2024, time.March, 1, 9, 30, 0, 0, time.UTC)

func createTestConfig() *Config {
	cfg := LoadConfig(config.DefaultRules())
	cfg.Now = func() time.Time { return fixedNow }
	return cfg
}

func createTestHandler(t *testing.T, cfg *Config) *Handler {
	return NewHandler(cfg, logger.NewTestLogger(t))
}

// ==========================
// Template Selection Tests
// ==========================

func TestSelectTemplate(t *testing.T) {
	tests := []struct {
		interaction string
		expected    string
	}{
		{"site visit", TemplateSiteVisit},
		{"Visited the SITE yesterday", TemplateSiteVisit},
		{"visit", TemplateGeneral},
		{"sent quotation", TemplateQuotationSent},
		{"Quote review", TemplateQuotationSent},
		{"phone call", TemplateGeneral},
		{"", TemplateGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.interaction, func(t *testing.T) {
			assert.Equal(t, tt.expected, SelectTemplate(tt.interaction))
		})
	}
}

// ==========================
// Render Tests
// ==========================

func TestRender(t *testing.T) {
	values := map[string]string{"name": "Ana", "delay_days": "3"}

	tests := []struct {
		name        string
		template    string
		expected    string
		placeholder string
	}{
		{name: "substitutes placeholders", template: "Hi {name}, in {delay_days} days", expected: "Hi Ana, in 3 days"},
		{name: "escaped braces", template: "{{literal}} {name}", expected: "{literal} Ana"},
		{name: "no placeholders", template: "plain text", expected: "plain text"},
		{name: "unknown placeholder", template: "Hi {first_name}", placeholder: "first_name"},
		{name: "unterminated placeholder", template: "Hi {name", placeholder: "name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Render("test", tt.template, values)
			if tt.placeholder != "" {
				require.Error(t, err)
				assert.True(t, errors.HasCode(err, errors.ErrCodeTemplateRenderFailed))
				assert.Contains(t, err.Error(), tt.placeholder)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, out)
		})
	}
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute(t *testing.T) {
	tests := []struct {
		name              string
		input             *Input
		expectedTemplate  string
		expectedDelay     int
		expectedScheduled string
		expectedMessage   string
		summaryContains   []string
	}{
		{
			name: "site visit",
			input: &Input{
				LeadContext:     LeadContext{Name: "Jordan", CustomMessage: "Loved the tour."},
				LastInteraction: "Site Visit",
			},
			expectedTemplate:  TemplateSiteVisit,
			expectedDelay:     3,
			expectedScheduled: "2024-03-04",
			expectedMessage:   "Hi Jordan, thank you for your time during the site visit. Loved the tour. We'll follow up in 3 days.",
			summaryContains: []string{
				"### Follow-up Plan",
				"**Subject:** Thank you for your time during the site visit",
				"**Schedule for:** 2024-03-04",
				"**Delay:** 3 days",
			},
		},
		{
			name:              "quotation sent",
			input:             &Input{LeadContext: LeadContext{Name: "Sam"}, LastInteraction: "sent the quotation"},
			expectedTemplate:  TemplateQuotationSent,
			expectedDelay:     2,
			expectedScheduled: "2024-03-03",
			expectedMessage:   "Hi Sam, I wanted to follow up on the quotation we sent.  Would you like to discuss any aspects in detail?",
		},
		{
			name:              "general uses lowercased interaction and default name",
			input:             &Input{LastInteraction: "Phone Call"},
			expectedTemplate:  TemplateGeneral,
			expectedDelay:     5,
			expectedScheduled: "2024-03-06",
			expectedMessage:   "Hi Valued Customer, just checking in after our phone call. ",
			summaryContains:   []string{"**Subject:** Checking in"},
		},
		{
			name:              "empty record",
			input:             &Input{},
			expectedTemplate:  TemplateGeneral,
			expectedDelay:     5,
			expectedScheduled: "2024-03-06",
			expectedMessage:   "Hi Valued Customer, just checking in after our last interaction. ",
		},
		{
			name:              "blank interaction",
			input:             &Input{LeadContext: LeadContext{Name: "Meera"}, LastInteraction: "   "},
			expectedTemplate:  TemplateGeneral,
			expectedDelay:     5,
			expectedScheduled: "2024-03-06",
			expectedMessage:   "Hi Meera, just checking in after our last interaction. ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := createTestHandler(t, createTestConfig())

			output, err := handler.Execute(context.Background(), tt.input)

			require.NoError(t, err)
			assert.Equal(t, tt.expectedTemplate, output.TemplateKey)
			assert.Equal(t, tt.expectedDelay, output.DelayDays)
			assert.Equal(t, tt.expectedScheduled, output.ScheduledFor)
			assert.Equal(t, tt.expectedMessage, output.Message)
			assert.Equal(t, Topic, output.Topic)
			assert.Equal(t, []string{EvaluatorName}, output.ToolsUsed)
			assert.Contains(t, output.Summary, "**Message:**\n"+tt.expectedMessage)
			for _, fragment := range tt.summaryContains {
				assert.Contains(t, output.Summary, fragment)
			}
		})
	}
}

func TestHandler_Execute_ScheduleFollowsClock(t *testing.T) {
	cfg := createTestConfig()
	handler := createTestHandler(t, cfg)
	input := &Input{LastInteraction: "site visit"}

	first, err := handler.Execute(context.Background(), input)
	require.NoError(t, err)

	cfg.Now = func() time.Time { return fixedNow.AddDate(0, 0, 10) }
	second, err := handler.Execute(context.Background(), input)
	require.NoError(t, err)

	assert.Equal(t, "2024-03-04", first.ScheduledFor)
	assert.Equal(t, "2024-03-14", second.ScheduledFor)
	assert.Equal(t, first.Message, second.Message)
}

func TestHandler_Execute_MissingTemplateFallsBackToGeneral(t *testing.T) {
	cfg := createTestConfig()
	cfg.Templates = map[string]config.FollowupTemplate{
		TemplateGeneral: {Subject: "Hello", DelayDays: 1, Template: "Hi {name}"},
	}
	handler := createTestHandler(t, cfg)

	output, err := handler.Execute(context.Background(), &Input{LastInteraction: "site visit"})

	require.NoError(t, err)
	assert.Equal(t, TemplateGeneral, output.TemplateKey)
	assert.Equal(t, "Hi Valued Customer", output.Message)
}

func TestHandler_Execute_NoTemplates(t *testing.T) {
	cfg := createTestConfig()
	cfg.Templates = map[string]config.FollowupTemplate{}
	handler := createTestHandler(t, cfg)

	_, err := handler.Execute(context.Background(), &Input{})

	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeTemplateNotFound))
}

func TestHandler_Execute_UnknownPlaceholderFails(t *testing.T) {
	cfg := createTestConfig()
	cfg.Templates = map[string]config.FollowupTemplate{
		TemplateGeneral: {Subject: "Hello", DelayDays: 1, Template: "Hi {name}, your rep is {rep_name}"},
	}
	handler := createTestHandler(t, cfg)

	output, err := handler.Execute(context.Background(), &Input{})

	require.Error(t, err)
	assert.Nil(t, output)
	assert.True(t, errors.HasCode(err, errors.ErrCodeTemplateRenderFailed))
	assert.True(t, errors.IsValidationError(err))
}

func TestHandler_Evaluate_NestedContext(t *testing.T) {
	handler := createTestHandler(t, createTestConfig())

	result, err := handler.Evaluate(context.Background(),
		[]byte(`{"lead_context": {"name": "Priya", "custom_message": "See attached."}, "last_interaction": "quotation"}`))

	require.NoError(t, err)
	assert.Contains(t, result.Summary, "Hi Priya, I wanted to follow up on the quotation we sent. See attached.")
}
