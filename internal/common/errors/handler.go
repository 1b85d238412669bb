// internal/common/errors/handler.go
package errors

import (
	"context"
	"encoding/json"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

// Logger is the subset of logger.Logger the handler needs.
type Logger interface {
	Error(msg string, fields map[string]interface{})
}

// ErrorHandler reports a failed evaluation job back to Zeebe.
// Technical failures fail the job with retries; everything else is thrown as a BPMN error
// so the process can route it through a boundary event.
type ErrorHandler struct {
	logger Logger
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Decide returns the BPMN error for err and whether the job should be failed with retries.
func (h *ErrorHandler) Decide(job entities.Job, err error) (*BPMNError, bool) {
	stdErr := AsStandardError(err)
	bpmnErr := ConvertToBPMNError(stdErr)
	return bpmnErr, bpmnErr.Retries > 0 && job.Retries > 0
}

func (h *ErrorHandler) HandleJobError(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	stdErr := AsStandardError(err)
	bpmnErr, retry := h.Decide(job, stdErr)

	h.logger.Error("Evaluation job failed", map[string]interface{}{
		"jobKey":             job.Key,
		"jobType":            job.Type,
		"errorCode":          string(stdErr.Code),
		"bpmnErrorCode":      bpmnErr.Code,
		"details":            stdErr.Details,
		"retryable":          stdErr.Retryable,
		"retry":              retry,
		"errorCategory":      GetErrorCategory(stdErr.Code),
		"processInstanceKey": job.ProcessInstanceKey,
	})

	if retry {
		h.failWithRetries(ctx, client, job, bpmnErr)
		return
	}
	h.throw(ctx, client, job, bpmnErr)
}

func (h *ErrorHandler) failWithRetries(ctx context.Context, client worker.JobClient, job entities.Job, bpmnErr *BPMNError) {
	// never hand back more retries than the job still has
	retries := bpmnErr.Retries
	if int(job.Retries)-1 < retries {
		retries = int(job.Retries) - 1
	}
	if retries < 0 {
		retries = 0
	}

	cmd := client.NewFailJobCommand().
		JobKey(job.Key).
		Retries(int32(retries)).
		ErrorMessage(bpmnErr.Message)

	if vars, err := json.Marshal(bpmnErr.ToErrorVariables()); err == nil {
		if withVars, err := cmd.VariablesFromString(string(vars)); err == nil {
			_, sendErr := withVars.Send(ctx)
			h.logSendFailure(job, sendErr)
			return
		}
	}
	_, sendErr := cmd.Send(ctx)
	h.logSendFailure(job, sendErr)
}

func (h *ErrorHandler) throw(ctx context.Context, client worker.JobClient, job entities.Job, bpmnErr *BPMNError) {
	cmd := client.NewThrowErrorCommand().
		JobKey(job.Key).
		ErrorCode(bpmnErr.Code).
		ErrorMessage(bpmnErr.Message)

	if vars, err := json.Marshal(bpmnErr.ToErrorVariables()); err == nil {
		if withVars, err := cmd.VariablesFromString(string(vars)); err == nil {
			_, sendErr := withVars.Send(ctx)
			h.logSendFailure(job, sendErr)
			return
		}
	}
	_, sendErr := cmd.Send(ctx)
	h.logSendFailure(job, sendErr)
}

func (h *ErrorHandler) logSendFailure(job entities.Job, err error) {
	if err == nil {
		return
	}
	h.logger.Error("Failed to report job error to broker", map[string]interface{}{
		"jobKey": job.Key,
		"error":  err.Error(),
	})
}
