// internal/engine/engine.go
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"crm-decision-engine/internal/common/config"
	"crm-decision-engine/internal/common/errors"
	"crm-decision-engine/internal/common/logger"
	"crm-decision-engine/internal/common/metrics"
	"crm-decision-engine/internal/common/observability"
	"crm-decision-engine/internal/common/validation"
	"crm-decision-engine/internal/models"
	"crm-decision-engine/pkg/registry"

	"github.com/google/uuid"
)

const (
	outcomeSuccess    = "success"
	outcomeValidation = "validation_error"
	outcomeError      = "error"
	outcomeCached     = "cached"
)

// Evaluator is one rule evaluator addressed by name.
type Evaluator interface {
	Name() string
	Evaluate(ctx context.Context, record []byte) (*models.EvaluationResult, error)
}

type Option func(*Engine)

// WithCache enables the Redis result cache for deterministic evaluators.
func WithCache(cache *ResultCache) Option {
	return func(e *Engine) { e.cache = cache }
}

func WithObservability(obs *observability.Observability) Option {
	return func(e *Engine) { e.obs = obs }
}

// WithClock overrides the wall clock used by the follow-up planner.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithTimeout bounds every evaluation. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

func WithRegistry(reg *registry.ActivityRegistry) Option {
	return func(e *Engine) { e.registry = reg }
}

// Engine dispatches evaluation requests to the configured evaluators. It is safe for
// concurrent use; rules are read-only after New.
type Engine struct {
	handlers    *Handlers
	evaluators  map[string]Evaluator
	registry    *registry.ActivityRegistry
	cache       *ResultCache
	obs         *observability.Observability
	logger      logger.Logger
	now         func() time.Time
	timeout     time.Duration
	fingerprint string
}

// New validates rules and builds every evaluator from them.
func New(rules config.RulesConfig, log logger.Logger, opts ...Option) (*Engine, error) {
	if err := rules.Validate(); err != nil {
		return nil, errors.NewInvalidConfigurationError(err.Error())
	}

	e := &Engine{
		registry:    registry.Default(),
		obs:         observability.NewNoop(),
		logger:      log.WithFields(map[string]interface{}{"component": "engine"}),
		fingerprint: fingerprint(rules),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.handlers = NewHandlers(rules, log, e.now)
	e.evaluators = make(map[string]Evaluator)
	for _, ev := range e.handlers.Evaluators() {
		e.evaluators[ev.Name()] = ev
	}
	return e, nil
}

// Evaluate runs a single evaluation with a throwaway engine. It is the plain functional form:
// the rules are passed explicitly and nothing is cached.
func Evaluate(ctx context.Context, name string, input map[string]interface{}, rules config.RulesConfig) (*models.EvaluationResult, error) {
	e, err := New(rules, logger.NewNoOpLogger())
	if err != nil {
		return nil, err
	}
	return e.Evaluate(ctx, name, input)
}

func (e *Engine) Handlers() *Handlers { return e.handlers }

func (e *Engine) Registry() *registry.ActivityRegistry { return e.registry }

// Evaluators lists the registered evaluator names in catalogue order.
func (e *Engine) Evaluators() []string {
	var names []string
	for _, id := range e.registry.IDs() {
		if _, ok := e.evaluators[id]; ok {
			names = append(names, id)
		}
	}
	return names
}

// Evaluate validates input against the evaluator's schema and runs it. Validation failures are
// returned as *errors.StandardError with a VALIDATION category; nothing partial is returned.
func (e *Engine) Evaluate(ctx context.Context, name string, input map[string]interface{}) (*models.EvaluationResult, error) {
	start := time.Now()
	log := e.logger.WithFields(map[string]interface{}{
		"evaluationId": EvaluationIDFrom(ctx),
		"evaluator":    name,
	})

	result, outcome, err := e.evaluate(ctx, name, input)

	elapsed := time.Since(start)
	metrics.EvaluationsTotal.WithLabelValues(name, outcome).Inc()
	metrics.EvaluationDuration.WithLabelValues(name).Observe(elapsed.Seconds())
	e.obs.RecordEvaluation(ctx, name, outcome, elapsed)

	if err != nil {
		fields := map[string]interface{}{"outcome": outcome, "duration": elapsed.String()}
		if outcome == outcomeValidation {
			log.Info("evaluation rejected", mergeFields(fields, "error", err.Error()))
		} else {
			log.WithError(err).Error("evaluation failed", fields)
		}
		return nil, err
	}

	log.Debug("evaluation completed", map[string]interface{}{
		"outcome":  outcome,
		"duration": elapsed.String(),
	})
	return result, nil
}

type evaluationIDKey struct{}

// ContextWithEvaluationID tags ctx with the ID the engine logs for the evaluation.
func ContextWithEvaluationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, evaluationIDKey{}, id)
}

// EvaluationIDFrom returns the ID attached to ctx, or a fresh one.
func EvaluationIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(evaluationIDKey{}).(string); ok && id != "" {
		return id
	}
	return uuid.NewString()
}

func (e *Engine) evaluate(ctx context.Context, name string, input map[string]interface{}) (*models.EvaluationResult, string, error) {
	ev, ok := e.evaluators[name]
	if !ok {
		return nil, outcomeValidation, errors.NewUnknownEvaluatorError(name)
	}
	activity, _ := e.registry.Find(name)

	if input == nil {
		input = map[string]interface{}{}
	}
	check, err := validation.ValidateInput(input, activity.InputSchema)
	if err != nil {
		return nil, outcomeError, errors.NewInternalError(err)
	}
	if !check.Valid {
		return nil, outcomeValidation, errors.NewInvalidInputError(strings.Join(check.GetErrorMessages(), "; "))
	}

	record, err := json.Marshal(input)
	if err != nil {
		return nil, outcomeValidation, errors.NewInvalidInputError(fmt.Sprintf("encode input: %v", err))
	}

	cacheKey := ""
	if e.cache != nil && activity.Deterministic {
		cacheKey = e.cache.Key(name, e.fingerprint, record)
		if cached, hit := e.cache.Get(ctx, name, cacheKey); hit {
			return cached, outcomeCached, nil
		}
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	if ctx.Err() != nil {
		return nil, outcomeError, errors.NewEvaluationTimeoutError(name)
	}

	result, err := ev.Evaluate(ctx, record)
	if err != nil {
		if errors.IsValidationError(err) {
			return nil, outcomeValidation, err
		}
		return nil, outcomeError, errors.AsStandardError(err)
	}

	if cacheKey != "" {
		e.cache.Set(ctx, cacheKey, result)
	}
	return result, outcomeSuccess, nil
}

func mergeFields(fields map[string]interface{}, key string, value interface{}) map[string]interface{} {
	fields[key] = value
	return fields
}
