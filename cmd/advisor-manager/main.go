// cmd/advisor-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"decision-workers/internal/common/camunda"
	"decision-workers/internal/common/config"
	"decision-workers/internal/common/database"
	"decision-workers/internal/common/logger"
	"decision-workers/internal/common/observability"
	"decision-workers/internal/engine/advisor"
	"decision-workers/internal/engine/classifier"
	"decision-workers/internal/engine/explain"
	"decision-workers/internal/engine/fraud"
	"decision-workers/internal/engine/knowledge"

	ea "decision-workers/internal/workers/decision/evaluate-application"
	ed "decision-workers/internal/workers/decision/explain-decision"
	nrq "decision-workers/internal/workers/decision/notify-review-queue"
	rd "decision-workers/internal/workers/decision/record-decision"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting advisor manager...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	obs := observability.New("advisor-manager")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init Zeebe Client with retry ---
	var zeebeClient zbc.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebeClient, err = zbc.NewClient(&zbc.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: true,
		})
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")

	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- Build the decision engine ---
	artifact := classifier.DefaultArtifact()
	if cfg.Engine.ModelArtifactPath != "" {
		artifact, err = classifier.LoadArtifact(cfg.Engine.ModelArtifactPath)
		if err != nil {
			zapLog.Fatal("model artifact load failed", zap.Error(err))
		}
	}
	zapLog.Info("Model artifact loaded",
		zap.String("modelId", artifact.ModelID),
		zap.String("version", artifact.Version),
	)

	kb := knowledge.NewDefault(log)
	if cfg.Engine.KnowledgeBasePath != "" {
		kb, err = knowledge.LoadFile(cfg.Engine.KnowledgeBasePath, log)
		if err != nil {
			zapLog.Fatal("knowledge base load failed", zap.Error(err))
		}
	}

	adv := advisor.New(
		classifier.NewAdapter(artifact, log),
		explain.New(cfg.Engine.SampleCount, log),
		kb,
		fraud.NewDetector(log),
		cfg.Engine,
		log,
	)
	zapLog.Info("Decision engine initialized",
		zap.Float64("approveBelow", cfg.Engine.ApproveBelow),
		zap.Float64("rejectAtOrAbove", cfg.Engine.RejectAtOrAbove),
		zap.Int("knowledgeRules", kb.Size()),
	)

	// --- Register Decision Workers ---
	var runningWorkers []*camunda.DecisionWorker

	if cfg.Workers[ea.TaskType].Enabled {
		handler := ea.NewHandler(
			&ea.Config{
				Timeout:  time.Duration(cfg.Workers[ea.TaskType].Timeout) * time.Millisecond,
				CacheTTL: 10 * time.Minute,
			},
			adv, redis.Client, log,
		)
		runningWorkers = append(runningWorkers, startWorker(zeebeClient, ea.TaskType, cfg.Workers[ea.TaskType], handler.Handle, obs, zapLog))
	}

	if cfg.Workers[ed.TaskType].Enabled {
		handler := ed.NewHandler(
			&ed.Config{
				Timeout: time.Duration(cfg.Workers[ed.TaskType].Timeout) * time.Millisecond,
			},
			adv, log,
		)
		runningWorkers = append(runningWorkers, startWorker(zeebeClient, ed.TaskType, cfg.Workers[ed.TaskType], handler.Handle, obs, zapLog))
	}

	if cfg.Workers[rd.TaskType].Enabled {
		handler := rd.NewHandler(
			&rd.Config{
				Timeout: time.Duration(cfg.Workers[rd.TaskType].Timeout) * time.Millisecond,
			},
			pg.DB, log,
		)
		runningWorkers = append(runningWorkers, startWorker(zeebeClient, rd.TaskType, cfg.Workers[rd.TaskType], handler.Handle, obs, zapLog))
	}

	if cfg.Workers[nrq.TaskType].Enabled {
		handler, err := nrq.NewHandler(
			&nrq.Config{
				Timeout:        time.Duration(cfg.Workers[nrq.TaskType].Timeout) * time.Millisecond,
				AWSRegion:      cfg.Notifications.AWSRegion,
				SenderEmail:    cfg.Notifications.SenderEmail,
				OfficerEmail:   cfg.Notifications.OfficerEmail,
				ReviewQueueARN: cfg.Notifications.ReviewQueueARN,
				EmailEnabled:   cfg.Notifications.OfficerEmail != "",
				QueueEnabled:   cfg.Notifications.ReviewQueueARN != "",
			},
			log,
		)
		if err != nil {
			zapLog.Fatal("failed to create notify-review-queue handler", zap.Error(err))
		}
		runningWorkers = append(runningWorkers, startWorker(zeebeClient, nrq.TaskType, cfg.Workers[nrq.TaskType], handler.Handle, obs, zapLog))
	}

	zapLog.Info("All decision workers registered successfully")

	// --- Health & Metrics Server ---
	go func() {
		http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "healthy",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "ready",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.Handle("/metrics", promhttp.Handler())
		zapLog.Info("Health/Metrics server listening on :8080")
		if err := http.ListenAndServe(":8080", nil); err != nil {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	for _, w := range runningWorkers {
		w.Stop(shutdownCtx)
	}

	if err := zeebeClient.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Advisor manager stopped gracefully")
}

func startWorker(client zbc.Client, taskType string, wcfg config.WorkerConfig, handlerFunc camunda.HandlerFunc, obs *observability.Observability, zapLog *zap.Logger) *camunda.DecisionWorker {
	maxJobs := wcfg.MaxJobsActive
	if maxJobs <= 0 {
		maxJobs = 10
	}

	return camunda.NewWorker(client, taskType, maxJobs, handlerFunc, obs, zapLog)
}
