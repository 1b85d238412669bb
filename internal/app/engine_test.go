// internal/app/engine_test.go
package app

import (
	"context"
	"testing"

	"crm-decision-engine/internal/common/config"
	"crm-decision-engine/internal/common/logger"
	"crm-decision-engine/internal/common/observability"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildEngine_WithoutCache(t *testing.T) {
	rt, err := BuildEngine(context.Background(), config.Default(), logger.NewTestLogger(t), observability.NewNoop())
	require.NoError(t, err)
	defer rt.Close()

	assert.Nil(t, rt.Redis)
	assert.Empty(t, rt.ReadinessChecks())
	assert.Len(t, rt.Engine.Evaluators(), 5)
}

func TestBuildEngine_WithCache(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := config.Default()
	cfg.Cache.Enabled = true
	cfg.Database.Redis.Address = mr.Addr()

	rt, err := BuildEngine(context.Background(), cfg, logger.NewTestLogger(t), observability.NewNoop())
	require.NoError(t, err)
	defer rt.Close()

	require.NotNil(t, rt.Redis)
	require.Contains(t, rt.ReadinessChecks(), "redis")
	assert.NoError(t, rt.ReadinessChecks()["redis"](context.Background()))

	_, err = rt.Engine.Evaluate(context.Background(), "quotation", map[string]interface{}{"base_price": 500})
	require.NoError(t, err)
	assert.Len(t, mr.Keys(), 1)
}

func TestBuildEngine_UnreachableRedisRunsUncached(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := config.Default()
	cfg.Cache.Enabled = true
	cfg.Database.Redis.Address = addr

	rt, err := BuildEngine(context.Background(), cfg, logger.NewTestLogger(t), observability.NewNoop())
	require.NoError(t, err)
	defer rt.Close()
	assert.Nil(t, rt.Redis)
}

func TestBuildEngine_InvalidRules(t *testing.T) {
	cfg := config.Default()
	cfg.Rules.PipelineStages = []string{"lead", "lead"}

	_, err := BuildEngine(context.Background(), cfg, logger.NewTestLogger(t), observability.NewNoop())
	assert.Error(t, err)
}
