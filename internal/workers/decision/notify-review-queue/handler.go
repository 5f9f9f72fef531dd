// internal/workers/decision/notify-review-queue/handler.go
package notifyreviewqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	cerrors "decision-workers/internal/common/errors"
	"decision-workers/internal/common/logger"
	"decision-workers/internal/common/metrics"
	"decision-workers/internal/engine/advisor"
	"decision-workers/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
)

const (
	TaskType = "notify-review-queue"
)

var (
	ErrNotificationSendFailed = errors.New("NOTIFICATION_SEND_FAILED")
)

// Interfaces for mocking the AWS clients.
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type Handler struct {
	config    *Config
	logger    logger.Logger
	sesClient SESService
	snsClient SNSService
}

func NewHandler(config *Config, log logger.Logger) (*Handler, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(config.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	return &Handler{
		config:    config,
		logger:    log.WithFields(map[string]interface{}{"taskType": TaskType}),
		sesClient: ses.NewFromConfig(awsCfg),
		snsClient: sns.NewFromConfig(awsCfg),
	}, nil
}

// NewHandlerWithClients injects the AWS clients, used by tests.
func NewHandlerWithClients(config *Config, sesClient SESService, snsClient SNSService, log logger.Logger) *Handler {
	return &Handler{
		config:    config,
		logger:    log.WithFields(map[string]interface{}{"taskType": TaskType}),
		sesClient: sesClient,
		snsClient: snsClient,
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
		bpmnErr := cerrors.ConvertToBPMNError(cerrors.NewNotificationSendFailedError("review", err))
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
	sentAt := time.Now().UTC().Format(time.RFC3339)
	notificationID := uuid.New().String()

	if d.Band != advisor.BandManualReview {
		h.logger.Debug("decision needs no review notification", map[string]interface{}{
			"applicationId": d.ApplicationID,
			"band":          string(d.Band),
		})
		return &Output{
			NotificationID: notificationID,
			ApplicationID:  d.ApplicationID,
			Status:         StatusSkipped,
			SentAt:         sentAt,
		}, nil
	}

	notification := models.NewReviewNotification(d, buildSummary(d))
	payload, err := json.Marshal(notification)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal notification: %v", ErrNotificationSendFailed, err)
	}

	emailSent := false
	queuePublished := false

	if h.config.EmailEnabled && h.config.OfficerEmail != "" {
		if err := h.sendEmail(ctx, notification); err != nil {
			return nil, fmt.Errorf("%w: email: %v", ErrNotificationSendFailed, err)
		}
		emailSent = true
	}

	if h.config.QueueEnabled && h.config.ReviewQueueARN != "" {
		if err := h.publishToQueue(ctx, d.ApplicationID, payload); err != nil {
			return nil, fmt.Errorf("%w: queue: %v", ErrNotificationSendFailed, err)
		}
		queuePublished = true
	}

	status := StatusDisabled
	if emailSent || queuePublished {
		status = StatusSent
	}

	h.logger.Info("review notification dispatched", map[string]interface{}{
		"applicationId":  d.ApplicationID,
		"status":         status,
		"emailSent":      emailSent,
		"queuePublished": queuePublished,
	})
	return &Output{
		NotificationID: notificationID,
		ApplicationID:  d.ApplicationID,
		Status:         status,
		EmailSent:      emailSent,
		QueuePublished: queuePublished,
		SentAt:         sentAt,
	}, nil
}

// buildSummary renders the officer-facing digest of a borderline decision.
func buildSummary(d *advisor.Decision) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Application %s requires manual review (PD %.1f%%).", d.ApplicationID, d.PD*100)
	if d.Recommendation != nil {
		fmt.Fprintf(&b, " %d interview questions, %d documents requested, %d improvement actions.",
			len(d.Recommendation.Questions),
			len(d.Recommendation.Documents),
			len(d.Recommendation.Actions))
		p := d.Recommendation.Projection
		if p.EstimatedImprovement > 0 {
			fmt.Fprintf(&b, " Projected PD %.1f%% if all actions are taken.", p.ProjectedPD*100)
		}
	}
	if d.FraudScreen.Score > 0 {
		fmt.Fprintf(&b, " Fraud suspicion score %.2f.", d.FraudScreen.Score)
	}
	return b.String()
}

func (h *Handler) sendEmail(ctx context.Context, n models.ReviewNotification) error {
	subject := fmt.Sprintf("Manual review required: application %s", n.ApplicationID)
	_, err := h.sesClient.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{h.config.OfficerEmail},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(n.Summary)},
			},
		},
		Source: aws.String(h.config.SenderEmail),
	})
	return err
}

func (h *Handler) publishToQueue(ctx context.Context, applicationID string, payload []byte) error {
	_, err := h.snsClient.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(h.config.ReviewQueueARN),
		Subject:  aws.String("loan-review:" + applicationID),
		Message:  aws.String(string(payload)),
	})
	return err
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
