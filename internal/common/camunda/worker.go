// internal/common/camunda/worker.go
package camunda

import (
	"context"
	"encoding/json"
	"fmt"

	"crm-decision-engine/internal/common/config"
	"crm-decision-engine/internal/common/errors"
	"crm-decision-engine/internal/common/logger"
	"crm-decision-engine/internal/common/metrics"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

// JobHandler is implemented by every evaluator handler.
type JobHandler interface {
	Handle(client worker.JobClient, job entities.Job)
}

// WorkerSet owns the job workers opened on one Zeebe client.
type WorkerSet struct {
	client  zbc.Client
	logger  logger.Logger
	workers map[string]worker.JobWorker
}

func NewWorkerSet(client zbc.Client, log logger.Logger) *WorkerSet {
	return &WorkerSet{
		client:  client,
		logger:  log,
		workers: make(map[string]worker.JobWorker),
	}
}

// Start opens a job worker for taskType. Disabled task types are skipped.
func (s *WorkerSet) Start(taskType string, wc config.WorkerConfig, handler JobHandler) {
	if !wc.Enabled {
		s.logger.Info("worker disabled", map[string]interface{}{"taskType": taskType})
		return
	}

	jw := s.client.NewJobWorker().
		JobType(taskType).
		Handler(func(client worker.JobClient, job entities.Job) {
			metrics.WorkerJobsActive.WithLabelValues(taskType).Inc()
			defer metrics.WorkerJobsActive.WithLabelValues(taskType).Dec()
			handler.Handle(client, job)
		}).
		MaxJobsActive(wc.MaxJobsActive).
		Timeout(config.GetDuration(wc.Timeout)).
		Open()

	s.workers[taskType] = jw
	s.logger.Info("worker started", map[string]interface{}{
		"taskType":      taskType,
		"maxJobsActive": wc.MaxJobsActive,
	})
}

// TaskTypes lists the task types with an open worker.
func (s *WorkerSet) TaskTypes() []string {
	out := make([]string, 0, len(s.workers))
	for t := range s.workers {
		out = append(out, t)
	}
	return out
}

// Close stops every worker and waits for in-flight jobs.
func (s *WorkerSet) Close() {
	for taskType, jw := range s.workers {
		jw.Close()
		jw.AwaitClose()
		s.logger.Info("worker stopped", map[string]interface{}{"taskType": taskType})
	}
}

// DecodeVariables unmarshals the job's variables into target, reporting failures as invalid input.
func DecodeVariables(job entities.Job, target interface{}) error {
	if job.Variables == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(job.Variables), target); err != nil {
		return errors.NewInvalidInputError(fmt.Sprintf("parse job variables: %v", err))
	}
	return nil
}

// CompleteJob sends output back as process variables.
func CompleteJob(ctx context.Context, client worker.JobClient, job entities.Job, output interface{}, log logger.Logger) {
	cmd, err := client.NewCompleteJobCommand().JobKey(job.Key).VariablesFromObject(output)
	if err != nil {
		FailJob(ctx, client, job, errors.NewInternalError(fmt.Errorf("encode output: %w", err)), log)
		return
	}

	if _, err := cmd.Send(ctx); err != nil {
		log.Error("failed to complete job", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}

	metrics.WorkerJobsCompleted.WithLabelValues(job.Type).Inc()
	log.Info("job completed", map[string]interface{}{"jobKey": job.Key})
}

// FailJob reports err through the BPMN error handler.
func FailJob(ctx context.Context, client worker.JobClient, job entities.Job, err error, log logger.Logger) {
	stdErr := errors.AsStandardError(err)
	metrics.WorkerJobsFailed.WithLabelValues(job.Type, string(stdErr.Code)).Inc()
	errors.NewErrorHandler(log).HandleJobError(ctx, client, job, stdErr)
}
