// internal/engine/engine_test.go
package engine

import (
	"context"
	"testing"
	"time"

	"crm-decision-engine/internal/common/config"
	"crm-decision-engine/internal/common/errors"
	"crm-decision-engine/internal/common/logger"
	"crm-decision-engine/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// ==========================
// Test Helper Functions
// ==========================

var fixedNow = func() time.Time { return time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC) }

func createTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	opts = append([]Option{WithClock(fixedNow)}, opts...)
	e, err := New(config.DefaultRules(), logger.NewTestLogger(t), opts...)
	require.NoError(t, err)
	return e
}

func createTestCache(t *testing.T) (*ResultCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewResultCache(client, time.Minute, "test:eval:", logger.NewTestLogger(t)), mr
}

// ==========================
// Dispatch Tests
// ==========================

func TestEvaluate_Functional(t *testing.T) {
	result, err := Evaluate(context.Background(), "lead_qualifier", map[string]interface{}{
		"deal_size":     50000,
		"urgency":       "high",
		"past_behavior": "positive",
	}, config.DefaultRules())
	require.NoError(t, err)

	assert.Equal(t, "Lead Qualification", result.Topic)
	assert.Equal(t, []string{"lead_qualifier"}, result.ToolsUsed)
	assert.Contains(t, result.Summary, "**Score:** 100/100")
	assert.Contains(t, result.Summary, "**Segment:** Hot (High Priority)")
	assert.Empty(t, result.Source)
}

func TestEngine_EveryEvaluatorReportsItself(t *testing.T) {
	e := createTestEngine(t)

	inputs := map[string]map[string]interface{}{
		"lead_qualifier":   {"deal_size": 1000},
		"followup":         {"last_interaction": "sent the quotation"},
		"quotation":        {"base_price": 2500, "customer_type": "premium"},
		"pipeline_manager": {"stage": "qualified"},
		"sales_coach":      {"kind": "feedback", "feedback": "competition was cheaper"},
	}

	require.Equal(t, []string{"lead_qualifier", "followup", "quotation", "pipeline_manager", "sales_coach"}, e.Evaluators())
	for _, name := range e.Evaluators() {
		t.Run(name, func(t *testing.T) {
			result, err := e.Evaluate(context.Background(), name, inputs[name])
			require.NoError(t, err)
			assert.NotEmpty(t, result.Summary)
			assert.Equal(t, []string{name}, result.ToolsUsed)

			activity, ok := e.Registry().Find(name)
			require.True(t, ok)
			assert.Equal(t, activity.Topic, result.Topic)
		})
	}
}

func TestEngine_FollowupUsesInjectedClock(t *testing.T) {
	e := createTestEngine(t)

	result, err := e.Evaluate(context.Background(), "followup", map[string]interface{}{
		"lead_context":     map[string]interface{}{"name": "Priya"},
		"last_interaction": "we had a great site visit yesterday",
	})
	require.NoError(t, err)
	assert.Contains(t, result.Summary, "**Subject:** Thank you for your time during the site visit")
	assert.Contains(t, result.Summary, "**Schedule for:** 2024-03-04")
}

func TestEngine_Deterministic(t *testing.T) {
	e := createTestEngine(t)
	input := map[string]interface{}{"base_price": 75000, "urgency": "high", "customer_type": "new"}

	first, err := e.Evaluate(context.Background(), "quotation", input)
	require.NoError(t, err)
	second, err := e.Evaluate(context.Background(), "quotation", input)
	require.NoError(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("repeat evaluation differs (-first +second):\n%s", diff)
	}
}

func TestEngine_ConcurrentCallers(t *testing.T) {
	e := createTestEngine(t)

	var g errgroup.Group
	results := make([]*models.EvaluationResult, 20)
	for i := range results {
		i := i
		g.Go(func() error {
			r, err := e.Evaluate(context.Background(), "pipeline_manager", map[string]interface{}{
				"stage":         "negotiation",
				"inactive_days": 20,
			})
			results[i] = r
			return err
		})
	}
	require.NoError(t, g.Wait())

	for _, r := range results[1:] {
		assert.Empty(t, cmp.Diff(results[0], r))
	}
}

// ==========================
// Error Handling Tests
// ==========================

func TestEngine_Errors(t *testing.T) {
	tests := []struct {
		name         string
		evaluator    string
		input        map[string]interface{}
		expectedCode errors.ErrorCode
		contains     string
	}{
		{
			name:         "unknown evaluator",
			evaluator:    "web_search",
			expectedCode: errors.ErrCodeUnknownEvaluator,
		},
		{
			name:         "schema type mismatch",
			evaluator:    "lead_qualifier",
			input:        map[string]interface{}{"deal_size": "big"},
			expectedCode: errors.ErrCodeInvalidInput,
			contains:     "deal_size",
		},
		{
			name:         "nested schema mismatch",
			evaluator:    "followup",
			input:        map[string]interface{}{"lead_context": "Priya"},
			expectedCode: errors.ErrCodeInvalidInput,
			contains:     "lead_context",
		},
		{
			name:         "unknown pipeline stage",
			evaluator:    "pipeline_manager",
			input:        map[string]interface{}{"stage": "bogus_stage"},
			expectedCode: errors.ErrCodeUnknownPipelineStage,
			contains:     "bogus_stage",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := createTestEngine(t)
			result, err := e.Evaluate(context.Background(), tt.evaluator, tt.input)
			require.Error(t, err)
			assert.Nil(t, result)
			assert.True(t, errors.HasCode(err, tt.expectedCode), "got %v", err)
			assert.True(t, errors.IsValidationError(err))
			if tt.contains != "" {
				assert.Contains(t, err.Error(), tt.contains)
			}
		})
	}
}

func TestNew_RejectsInvalidRules(t *testing.T) {
	rules := config.DefaultRules()
	rules.PipelineStages = nil

	_, err := New(rules, logger.NewNoOpLogger())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}

func TestEngine_CancelledContext(t *testing.T) {
	e := createTestEngine(t, WithTimeout(time.Second))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Evaluate(ctx, "lead_qualifier", nil)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeEvaluationTimeout))
}

// ==========================
// Cache Tests
// ==========================

func TestEngine_CachesDeterministicResults(t *testing.T) {
	cache, mr := createTestCache(t)
	e := createTestEngine(t, WithCache(cache))
	input := map[string]interface{}{"deal_size": 30000, "urgency": "medium"}

	first, err := e.Evaluate(context.Background(), "lead_qualifier", input)
	require.NoError(t, err)
	require.Len(t, mr.Keys(), 1)

	second, err := e.Evaluate(context.Background(), "lead_qualifier", input)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(first, second))
	assert.Len(t, mr.Keys(), 1)
	assert.Contains(t, mr.Keys()[0], "test:eval:lead_qualifier:")
}

func TestEngine_SkipsCacheForClockDependentEvaluator(t *testing.T) {
	cache, mr := createTestCache(t)
	e := createTestEngine(t, WithCache(cache))

	_, err := e.Evaluate(context.Background(), "followup", map[string]interface{}{"last_interaction": "call"})
	require.NoError(t, err)
	assert.Empty(t, mr.Keys())
}

func TestEngine_ServesCachedEntry(t *testing.T) {
	cache, mr := createTestCache(t)
	e := createTestEngine(t, WithCache(cache))
	input := map[string]interface{}{"stage": "lead"}

	_, err := e.Evaluate(context.Background(), "pipeline_manager", input)
	require.NoError(t, err)
	require.Len(t, mr.Keys(), 1)

	stored := `{"summary":"from cache","topic":"Pipeline Analysis","tools_used":["pipeline_manager"],"source":[]}`
	require.NoError(t, mr.Set(mr.Keys()[0], stored))

	result, err := e.Evaluate(context.Background(), "pipeline_manager", input)
	require.NoError(t, err)
	assert.Equal(t, "from cache", result.Summary)
}

func TestEngine_CacheOutageFallsBackToEvaluation(t *testing.T) {
	cache, mr := createTestCache(t)
	e := createTestEngine(t, WithCache(cache))
	mr.Close()

	result, err := e.Evaluate(context.Background(), "quotation", map[string]interface{}{"base_price": 100})
	require.NoError(t, err)
	assert.Contains(t, result.Summary, "**Final Price:** $100.00")
}

func TestResultCache_KeyDependsOnRules(t *testing.T) {
	cache, _ := createTestCache(t)
	record := []byte(`{"deal_size":1}`)

	a := cache.Key("lead_qualifier", fingerprint(config.DefaultRules()), record)
	rules := config.DefaultRules()
	rules.LeadScoring.DealSize.Weight = 0.5
	b := cache.Key("lead_qualifier", fingerprint(rules), record)

	assert.NotEqual(t, a, b)
	assert.Equal(t, a, cache.Key("lead_qualifier", fingerprint(config.DefaultRules()), record))
	assert.NotEqual(t, a, cache.Key("quotation", fingerprint(config.DefaultRules()), record))
}

func TestEvaluationIDFrom(t *testing.T) {
	ctx := ContextWithEvaluationID(context.Background(), "eval-123")
	assert.Equal(t, "eval-123", EvaluationIDFrom(ctx))

	generated := EvaluationIDFrom(context.Background())
	assert.Len(t, generated, 36)
	assert.NotEqual(t, generated, EvaluationIDFrom(context.Background()))
}
