// internal/workers/decision/record-decision/handler.go
package recorddecision

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	cerrors "decision-workers/internal/common/errors"
	"decision-workers/internal/common/logger"
	"decision-workers/internal/common/metrics"
	"decision-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

const (
	TaskType = "record-decision"

	uniqueViolation = pq.ErrorCode("23505")
)

var (
	ErrRecordFailed = errors.New("DECISION_RECORD_FAILED")
)

type Handler struct {
	config *Config
	db     *sql.DB
	logger logger.Logger
}

func NewHandler(config *Config, db *sql.DB, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		db:     db,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
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
	if input.Decision == nil || input.Decision.ApplicationID == "" {
		h.failJob(client, job, "PARSE_ERROR", "decision with applicationId is required", 0)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		bpmnErr := cerrors.ConvertToBPMNError(cerrors.NewDecisionRecordFailedError(err))
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, bpmnErr.Code).Inc()
		h.failJob(client, job, bpmnErr.Code, bpmnErr.Details, int32(bpmnErr.Retries))
		return
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	h.completeJob(client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	d := input.Decision

	payload, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal decision: %v", ErrRecordFailed, err)
	}

	record := models.DecisionRecord{
		RecordID:      uuid.New().String(),
		ApplicationID: d.ApplicationID,
		PD:            d.PD,
		Band:          string(d.Band),
		ModelID:       d.ModelID,
		ModelVersion:  d.ModelVersion,
		Degraded:      d.Degraded,
		EvaluatedAt:   d.EvaluatedAt,
		RecordedAt:    time.Now().UTC(),
	}

	query := `INSERT INTO loan_decisions
		(record_id, application_id, pd, band, model_id, model_version, degraded, payload, evaluated_at, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err = h.db.ExecContext(ctx, query,
		record.RecordID, record.ApplicationID, record.PD, record.Band,
		record.ModelID, record.ModelVersion, record.Degraded, payload,
		record.EvaluatedAt, record.RecordedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return h.existingRecord(ctx, d.ApplicationID)
		}
		return nil, fmt.Errorf("%w: %v", ErrRecordFailed, err)
	}

	h.logger.Info("decision recorded", map[string]interface{}{
		"applicationId": d.ApplicationID,
		"recordId":      record.RecordID,
		"band":          record.Band,
	})
	return &Output{RecordID: record.RecordID, ApplicationID: d.ApplicationID}, nil
}

// existingRecord resolves a duplicate insert to the record already stored,
// so retried jobs complete idempotently.
func (h *Handler) existingRecord(ctx context.Context, applicationID string) (*Output, error) {
	var recordID string
	query := `SELECT record_id FROM loan_decisions WHERE application_id = $1`
	if err := h.db.QueryRowContext(ctx, query, applicationID).Scan(&recordID); err != nil {
		return nil, fmt.Errorf("%w: resolve duplicate: %v", ErrRecordFailed, err)
	}

	h.logger.Warn("decision already recorded", map[string]interface{}{
		"applicationId": applicationID,
		"recordId":      recordID,
	})
	return &Output{RecordID: recordID, ApplicationID: applicationID, Duplicate: true}, nil
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
