package worker

import (
    "context"
    "sync"

    "github.com/hibiken/asynq"

    "github.com/moyuteach/lessongen/pkg/logger"
)

type Worker interface {
    Start(ctx context.Context) error
    Stop() error
}

type Config struct {
    RedisAddr     string
    RedisPassword string
    RedisDB       int
    Concurrency   int
    Queues        map[string]int
}

// 默认队列权重, 与入队侧的优先级映射保持一致
func defaultQueues() map[string]int {
    return map[string]int{
        "critical": 6,
        "default":  3,
        "low":      1,
    }
}

type BaseWorker struct {
    server   *asynq.Server
    mux      *asynq.ServeMux
    logger   logger.Logger
    stopChan chan struct{}
    stopOnce sync.Once
}

// Stop 可以被信号处理和 ctx 取消同时触发, 只有第一次生效
func (w *BaseWorker) Stop() error {
    w.stopOnce.Do(func() {
        close(w.stopChan)
        w.server.Stop()
        w.server.Shutdown()
    })
    return nil
}
