package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/moyuteach/lessongen/pkg/logger"
	"github.com/moyuteach/lessongen/pkg/queue"
)

// Ingester 执行一个已入队的文档解析任务
type Ingester interface {
	Ingest(ctx context.Context, payload *queue.IngestPayload) error
}

type IngestWorker struct {
	BaseWorker
	svc Ingester
}

func NewIngestWorker(cfg *Config, svc Ingester, log logger.Logger) (*IngestWorker, error) {
	queues := cfg.Queues
	if len(queues) == 0 {
		queues = defaultQueues()
	}

	server := asynq.NewServer(
		asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB},
		asynq.Config{
			Concurrency: cfg.Concurrency,
			Queues:      queues,
			RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
				return time.Duration(n) * time.Minute
			},
		},
	)

	w := &IngestWorker{
		BaseWorker: BaseWorker{
			server:   server,
			mux:      asynq.NewServeMux(),
			logger:   log,
			stopChan: make(chan struct{}),
		},
		svc: svc,
	}

	// 注册任务处理器
	w.registerHandlers()
	return w, nil
}

func (w *IngestWorker) registerHandlers() {
	w.mux.HandleFunc(queue.TaskTypeDocumentIngest, w.handleDocumentIngest)
}

func (w *IngestWorker) handleDocumentIngest(ctx context.Context, t *asynq.Task) error {
	var payload queue.IngestPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		w.logger.Error("Failed to unmarshal ingest payload",
			logger.Error(err),
			logger.String("payload", string(t.Payload())),
		)
		// 载荷损坏没有重试价值
		return fmt.Errorf("failed to unmarshal ingest payload: %v: %w", err, asynq.SkipRetry)
	}

	if payload.DocumentID == "" || payload.UserID == "" {
		return fmt.Errorf("invalid ingest payload: missing document or user id: %w", asynq.SkipRetry)
	}

	w.logger.Info("Processing ingest task",
		logger.String("documentId", payload.DocumentID),
		logger.String("fileName", payload.FileName),
	)

	// 解码失败属于终态, 服务内部会把文档标记为 failed 并返回 nil,
	// 返回非空错误意味着基础设施问题, 交给 asynq 重试
	if err := w.svc.Ingest(ctx, &payload); err != nil {
		w.logger.Error("Ingest task failed",
			logger.String("documentId", payload.DocumentID),
			logger.Error(err),
		)
		return err
	}

	return nil
}

func (w *IngestWorker) Start(ctx context.Context) error {
	go func() {
		if err := w.server.Run(w.mux); err != nil {
			w.logger.Error("Worker server stopped", logger.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		w.Stop()
	}()

	return nil
}
