// internal/workers/decision/explain-decision/handler.go
package explaindecision

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	cerrors "decision-workers/internal/common/errors"
	"decision-workers/internal/common/logger"
	"decision-workers/internal/common/metrics"
	"decision-workers/internal/engine/advisor"
	"decision-workers/internal/engine/features"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "explain-decision"
)

var (
	ErrValidationFailed  = errors.New("VALIDATION_FAILED")
	ErrExplanationFailed = errors.New("EXPLANATION_FAILED")
)

type Handler struct {
	config  *Config
	advisor *advisor.Advisor
	logger  logger.Logger
}

func NewHandler(config *Config, adv *advisor.Advisor, log logger.Logger) *Handler {
	return &Handler{
		config:  config,
		advisor: adv,
		logger:  log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.failJob(client, job, "PARSE_ERROR", fmt.Sprintf("parse input: %v", err), 0)
		return
	}
	if input.ApplicationID == "" {
		h.failJob(client, job, "PARSE_ERROR", "applicationId is required", 0)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		errorCode := "UNKNOWN_ERROR"
		if errors.Is(err, ErrValidationFailed) {
			errorCode = string(cerrors.ErrCodeValidationFailed)
		} else if errors.Is(err, ErrExplanationFailed) {
			errorCode = "EXPLANATION_FAILED"
		}
		retries := int32(cerrors.GetRetryCount(cerrors.ErrorCode(errorCode)))
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, errorCode).Inc()
		h.failJob(client, job, errorCode, err.Error(), retries)
		return
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	h.completeJob(client, job, output)
}

func (h *Handler) execute(_ context.Context, input *Input) (*Output, error) {
	seed := input.Seed
	if seed == 0 {
		seed = deriveSeed(input.ApplicationID)
	}

	attrs, err := h.advisor.ExplainDecision(input.Features, seed)
	if err != nil {
		var verr *features.ValidationError
		if errors.As(err, &verr) {
			return nil, fmt.Errorf("%w: %v", ErrValidationFailed, verr)
		}
		return nil, fmt.Errorf("%w: %v", ErrExplanationFailed, err)
	}

	// An empty attribution list is a valid, degraded outcome.
	if len(attrs) == 0 {
		metrics.ExplanationsDegraded.Inc()
		h.logger.Warn("explanation degraded", map[string]interface{}{
			"applicationId": input.ApplicationID,
		})
	}

	return &Output{
		ApplicationID: input.ApplicationID,
		Attributions:  attrs,
		Degraded:      len(attrs) == 0,
		Seed:          seed,
	}, nil
}

func deriveSeed(applicationID string) int64 {
	hash := fnv.New64a()
	hash.Write([]byte(applicationID))
	return int64(hash.Sum64() & 0x7FFFFFFFFFFFFFFF)
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	_, err = cmd.Send(context.Background())
	if err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func (h *Handler) failJob(client worker.JobClient, job entities.Job, errorCode, errorMessage string, _ int32) {
	h.logger.Error("job failed", map[string]interface{}{
		"jobKey":       job.Key,
		"errorCode":    errorCode,
		"errorMessage": errorMessage,
	})

	_, err := client.NewThrowErrorCommand().
		JobKey(job.Key).
		ErrorCode(errorCode).
		ErrorMessage(errorMessage).
		Send(context.Background())
	if err != nil {
		h.logger.Error("failed to throw error", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
