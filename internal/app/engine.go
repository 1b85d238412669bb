// internal/app/engine.go
package app

import (
	"context"
	"time"

	"crm-decision-engine/internal/common/config"
	"crm-decision-engine/internal/common/database"
	"crm-decision-engine/internal/common/logger"
	"crm-decision-engine/internal/common/observability"
	"crm-decision-engine/internal/engine"
)

// Runtime bundles the engine with the resources it was built on.
type Runtime struct {
	Engine *engine.Engine
	Redis  *database.RedisClient
}

// BuildEngine creates the evaluation engine from cfg. When the cache is enabled but Redis is
// unreachable the engine runs uncached and a warning is logged.
func BuildEngine(ctx context.Context, cfg *config.Config, log logger.Logger, obs *observability.Observability) (*Runtime, error) {
	opts := []engine.Option{
		engine.WithObservability(obs),
		engine.WithTimeout(config.GetDuration(cfg.Camunda.RequestTimeout)),
	}

	rt := &Runtime{}
	if cfg.Cache.Enabled {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		rdb, err := database.NewRedis(pingCtx, cfg.Database.Redis)
		cancel()
		if err != nil {
			log.Warn("result cache disabled", map[string]interface{}{"error": err.Error()})
		} else {
			rt.Redis = rdb
			ttl := time.Duration(cfg.Cache.TTL) * time.Second
			opts = append(opts, engine.WithCache(engine.NewResultCache(rdb.Client, ttl, cfg.Cache.KeyPrefix, log)))
		}
	}

	eng, err := engine.New(cfg.Rules, log, opts...)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.Engine = eng
	return rt, nil
}

// ReadinessChecks returns the dependency probes for the HTTP /ready endpoint.
func (rt *Runtime) ReadinessChecks() map[string]func(context.Context) error {
	checks := make(map[string]func(context.Context) error)
	if rt.Redis != nil {
		checks["redis"] = rt.Redis.Ping
	}
	return checks
}

func (rt *Runtime) Close() {
	if rt.Redis != nil {
		_ = rt.Redis.Close()
	}
}
