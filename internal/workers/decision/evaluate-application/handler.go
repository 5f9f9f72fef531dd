// internal/workers/decision/evaluate-application/handler.go
package evaluateapplication

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
	"github.com/redis/go-redis/v9"
)

const (
	TaskType = "evaluate-application"
)

var (
	ErrValidationFailed = errors.New("VALIDATION_FAILED")
	ErrEvaluationFailed = errors.New("EVALUATION_FAILED")
)

type Handler struct {
	config  *Config
	advisor *advisor.Advisor
	redis   *redis.Client
	logger  logger.Logger
}

func NewHandler(config *Config, adv *advisor.Advisor, redisClient *redis.Client, log logger.Logger) *Handler {
	return &Handler{
		config:  config,
		advisor: adv,
		redis:   redisClient,
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
		stdErr := cerrors.NewEvaluationFailedError(err)
		if errors.Is(err, ErrValidationFailed) {
			stdErr = cerrors.NewValidationFailedError(err.Error())
		}
		bpmnErr := cerrors.ConvertToBPMNError(stdErr)
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, bpmnErr.Code).Inc()
		h.failJob(client, job, bpmnErr.Code, bpmnErr.Details, int32(bpmnErr.Retries))
		return
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	h.completeJob(client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	seed := input.Seed
	if seed == 0 {
		seed = deriveSeed(input.ApplicationID)
	}

	cacheKey := fmt.Sprintf("decision:%s:%d", input.ApplicationID, seed)
	if h.redis != nil {
		if val, err := h.redis.Get(ctx, cacheKey).Result(); err == nil {
			var cached advisor.Decision
			if err := json.Unmarshal([]byte(val), &cached); err == nil {
				h.logger.Debug("decision served from cache", map[string]interface{}{
					"applicationId": input.ApplicationID,
				})
				return &Output{Decision: &cached, FromCache: true}, nil
			}
		}
	}

	decision, err := h.advisor.Evaluate(input.ApplicationID, input.Features, seed)
	if err != nil {
		var verr *features.ValidationError
		if errors.As(err, &verr) {
			return nil, fmt.Errorf("%w: %v", ErrValidationFailed, verr)
		}
		return nil, fmt.Errorf("%w: %v", ErrEvaluationFailed, err)
	}

	if h.redis != nil {
		if data, err := json.Marshal(decision); err == nil {
			h.redis.Set(ctx, cacheKey, data, h.config.CacheTTL)
		}
	}

	return &Output{Decision: decision}, nil
}

// deriveSeed hashes the application id so unseeded jobs still explain the
// same application the same way on every retry.
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
