// internal/workers/sales/quotation/handler_test.go
package quotation

import (
	"context"
	"testing"

	"crm-decision-engine/internal/common/config"
	"crm-decision-engine/internal/common/errors"
	"crm-decision-engine/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func createTestConfig() *Config {
	return LoadConfig(config.DefaultRules())
}

func createTestHandler(t *testing.T, cfg *Config) *Handler {
	return NewHandler(cfg, logger.NewTestLogger(t))
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute(t *testing.T) {
	tests := []struct {
		name          string
		input         *Input
		expectedTier  string
		expectedBase  float64
		expectedFinal float64
		expectedNotes []string
		summary       []string
	}{
		{
			name:          "empty record uses default price",
			input:         &Input{},
			expectedTier:  TierStandard,
			expectedBase:  10000,
			expectedFinal: 10000,
			summary: []string{
				"### Quotation Details",
				"**Template:** Standard Quotation",
				"**Customer Type:** Regular",
				"**Base Price:** $10,000.00",
				"**Final Price:** $10,000.00",
				"**Terms:** Net 30 days",
				"**Delivery:** 7 days",
				"**Validity:** 30 days",
			},
		},
		{
			name:          "vip customer gets enterprise tier and discount",
			input:         &Input{BasePrice: 10000, Urgency: "high", CustomerType: "vip"},
			expectedTier:  TierEnterprise,
			expectedBase:  10000,
			expectedFinal: 10350,
			expectedNotes: []string{"Expedited delivery available", "Premium support included"},
			summary: []string{
				"**Template:** Enterprise Solution",
				"**Customer Type:** Vip",
				"**Final Price:** $10,350.00",
				"\n\n**Special Notes:**\n- Expedited delivery available\n- Premium support included",
			},
		},
		{
			name:          "large base price is enterprise",
			input:         &Input{BasePrice: 120000, Urgency: "low"},
			expectedTier:  TierEnterprise,
			expectedBase:  120000,
			expectedFinal: 114000,
			summary:       []string{"**Base Price:** $120,000.00", "**Final Price:** $114,000.00"},
		},
		{
			name:          "deal size is the fallback price",
			input:         &Input{DealSize: 60000, Urgency: "high", CustomerType: "new"},
			expectedTier:  TierPremium,
			expectedBase:  60000,
			expectedFinal: 72450,
			expectedNotes: []string{"Expedited delivery available"},
			summary:       []string{"**Template:** Premium Service Quotation", "**Customer Type:** New"},
		},
		{
			name:          "premium customer type with small price",
			input:         &Input{BasePrice: 5000, CustomerType: "premium"},
			expectedTier:  TierPremium,
			expectedBase:  5000,
			expectedFinal: 5000,
		},
		{
			name:          "inputs are case insensitive",
			input:         &Input{BasePrice: 1000, Urgency: "HIGH", CustomerType: "VIP"},
			expectedTier:  TierEnterprise,
			expectedBase:  1000,
			expectedFinal: 1035,
			expectedNotes: []string{"Expedited delivery available", "Premium support included"},
		},
		{
			name:          "unknown urgency leaves price unchanged",
			input:         &Input{BasePrice: 2000, Urgency: "whenever"},
			expectedTier:  TierStandard,
			expectedBase:  2000,
			expectedFinal: 2000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := createTestHandler(t, createTestConfig())

			output, err := handler.Execute(context.Background(), tt.input)

			require.NoError(t, err)
			assert.Equal(t, tt.expectedTier, output.Tier)
			assert.Equal(t, tt.expectedBase, output.BasePrice)
			assert.Equal(t, tt.expectedFinal, output.FinalPrice)
			assert.Equal(t, tt.expectedNotes, output.SpecialNotes)
			assert.Equal(t, "30 days", output.Validity)
			assert.Equal(t, Topic, output.Topic)
			assert.Equal(t, []string{EvaluatorName}, output.ToolsUsed)
			for _, fragment := range tt.summary {
				assert.Contains(t, output.Summary, fragment)
			}
			if len(tt.expectedNotes) == 0 {
				assert.NotContains(t, output.Summary, "Special Notes")
			}
		})
	}
}

func TestHandler_Execute_FinalPriceRoundedToCents(t *testing.T) {
	handler := createTestHandler(t, createTestConfig())

	output, err := handler.Execute(context.Background(), &Input{BasePrice: 333.33, Urgency: "high", CustomerType: "new"})

	require.NoError(t, err)
	assert.Equal(t, 402.5, output.FinalPrice)
	assert.Contains(t, output.Summary, "**Final Price:** $402.50")
}

func TestHandler_Execute_UrgencyNeverLowersPrice(t *testing.T) {
	handler := createTestHandler(t, createTestConfig())

	for _, basePrice := range []float64{0.01, 999.99, 10000, 75000, 250000} {
		for _, customerType := range []string{"vip", "regular", "new", "unknown"} {
			previous := 0.0
			for _, urgency := range []string{"low", "medium", "high"} {
				output, err := handler.Execute(context.Background(), &Input{
					BasePrice: basePrice, Urgency: urgency, CustomerType: customerType,
				})
				require.NoError(t, err)
				assert.GreaterOrEqual(t, output.FinalPrice, previous,
					"base %v customer %s urgency %s", basePrice, customerType, urgency)
				previous = output.FinalPrice
			}
		}
	}
}

func TestHandler_Execute_TierFollowsResolvedPrice(t *testing.T) {
	tests := []struct {
		name         string
		input        Input
		expectedTier string
		expectedBase float64
	}{
		{
			name:         "deal size stands in for missing base price",
			input:        Input{DealSize: 200000},
			expectedTier: TierEnterprise,
			expectedBase: 200000,
		},
		{
			name:         "deal size in premium band",
			input:        Input{DealSize: 60000},
			expectedTier: TierPremium,
			expectedBase: 60000,
		},
		{
			name:         "base price wins over deal size",
			input:        Input{BasePrice: 5000, DealSize: 200000},
			expectedTier: TierStandard,
			expectedBase: 5000,
		},
		{
			name:         "default base price",
			input:        Input{},
			expectedTier: TierStandard,
			expectedBase: 10000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := createTestHandler(t, createTestConfig())
			input := tt.input

			output, err := handler.Execute(context.Background(), &input)

			require.NoError(t, err)
			assert.Equal(t, tt.expectedTier, output.Tier)
			assert.Equal(t, tt.expectedBase, output.BasePrice)
		})
	}
}

func TestHandler_Execute_MissingTierTemplate(t *testing.T) {
	cfg := createTestConfig()
	cfg.Rules.Templates = map[string]config.QuotationTemplate{
		TierStandard: {Name: "Standard Quotation"},
	}
	handler := createTestHandler(t, cfg)

	_, err := handler.Execute(context.Background(), &Input{CustomerType: "vip"})

	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeTemplateNotFound))
}

func TestHandler_Evaluate(t *testing.T) {
	handler := createTestHandler(t, createTestConfig())

	result, err := handler.Evaluate(context.Background(), []byte(`{"base_price": 75000, "customer_type": "regular"}`))

	require.NoError(t, err)
	assert.Contains(t, result.Summary, "Premium Service Quotation")

	_, err = handler.Evaluate(context.Background(), []byte(`[1, 2]`))
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidInput))
}
