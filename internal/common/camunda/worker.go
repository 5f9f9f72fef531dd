// internal/common/camunda/worker.go
package camunda

import (
	"context"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"go.uber.org/zap"

	"decision-workers/internal/common/observability"
)

// HandlerFunc is the job handler signature shared by all decision workers.
type HandlerFunc func(client worker.JobClient, job entities.Job)

// DecisionWorker binds one task type to its handler on a Zeebe client.
type DecisionWorker struct {
	client   zbc.Client
	worker   worker.JobWorker
	logger   *zap.Logger
	taskType string
}

func NewWorker(
	client zbc.Client,
	taskType string,
	maxJobsActive int,
	handler HandlerFunc,
	obs *observability.Observability,
	logger *zap.Logger,
) *DecisionWorker {
	wrapped := handler
	if obs != nil {
		wrapped = func(jobClient worker.JobClient, job entities.Job) {
			start := time.Now()
			handler(jobClient, job)
			obs.RecordJobProcessed(context.Background(), taskType)
			obs.RecordJobDuration(context.Background(), taskType, time.Since(start))
		}
	}

	jobWorker := client.NewJobWorker().
		JobType(taskType).
		Handler(worker.JobHandler(wrapped)).
		MaxJobsActive(maxJobsActive).
		Open()

	logger.Info("worker started", zap.String("taskType", taskType))

	return &DecisionWorker{
		client:   client,
		worker:   jobWorker,
		logger:   logger,
		taskType: taskType,
	}
}

func (w *DecisionWorker) Stop(_ context.Context) {
	w.logger.Info("stopping worker", zap.String("taskType", w.taskType))
	w.worker.Close()
}
