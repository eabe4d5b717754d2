// pkg/queue/queue.go
package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "time"

    "github.com/hibiken/asynq"
    "github.com/redis/go-redis/v9"
)

// TaskType 定义任务类型
const (
    TaskTypeDocumentIngest = "document:ingest"
)

// 优先级, 入队时映射到对应的 asynq 队列
const (
    PriorityHigh    = 1
    PriorityDefault = 2
    PriorityLow     = 3
)

// ErrAlreadyQueued 同一文档的解析任务已经在队列里
var ErrAlreadyQueued = errors.New("ingest task already queued for document")

// Queue 接口定义
type Queue interface {
    EnqueueIngest(ctx context.Context, payload *IngestPayload, priority int) error
    AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
    Close() error
}

// IngestPayload 文档解析任务载荷
type IngestPayload struct {
    DocumentID string `json:"documentId"`
    UserID     string `json:"userId"`
    ObjectKey  string `json:"objectKey"`
    FileName   string `json:"fileName"`
    MimeType   string `json:"mimeType"`
}

// QueueConfig 定义队列配置
type QueueConfig struct {
    RedisAddr      string
    RedisPassword  string
    RedisDB        int
    MaxRetries     int
    ProcessTimeout time.Duration
}

// AsynqQueue 实现
type AsynqQueue struct {
    client *asynq.Client
    redis  *redis.Client
    cfg    *QueueConfig
}

// NewAsynqQueue 创建新的队列实例
func NewAsynqQueue(cfg *QueueConfig) *AsynqQueue {
    redisOpt := asynq.RedisClientOpt{
        Addr:     cfg.RedisAddr,
        Password: cfg.RedisPassword,
        DB:       cfg.RedisDB,
    }

    // 锁用的 Redis 客户端与 asynq 各自持有连接
    redisClient := redis.NewClient(&redis.Options{
        Addr:     cfg.RedisAddr,
        Password: cfg.RedisPassword,
        DB:       cfg.RedisDB,
    })

    return &AsynqQueue{
        client: asynq.NewClient(redisOpt),
        redis:  redisClient,
        cfg:    cfg,
    }
}

// EnqueueIngest 将文档解析任务加入队列
// 任务ID取文档ID, 同一文档重复入队返回 ErrAlreadyQueued
func (q *AsynqQueue) EnqueueIngest(ctx context.Context, payload *IngestPayload, priority int) error {
    data, err := json.Marshal(payload)
    if err != nil {
        return fmt.Errorf("failed to marshal payload: %w", err)
    }

    maxRetries := q.cfg.MaxRetries
    if maxRetries <= 0 {
        maxRetries = 3
    }
    timeout := q.cfg.ProcessTimeout
    if timeout <= 0 {
        timeout = 30 * time.Minute
    }

    // 设置任务选项
    opts := []asynq.Option{
        asynq.ProcessIn(time.Second),
        asynq.MaxRetry(maxRetries),
        asynq.Timeout(timeout),
        asynq.TaskID(payload.DocumentID),
    }

    // 根据优先级选择队列
    switch priority {
    case PriorityHigh:
        opts = append(opts, asynq.Queue("critical"))
    case PriorityDefault:
        opts = append(opts, asynq.Queue("default"))
    default:
        opts = append(opts, asynq.Queue("low"))
    }

    task := asynq.NewTask(TaskTypeDocumentIngest, data, opts...)
    if _, err := q.client.EnqueueContext(ctx, task); err != nil {
        if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
            return ErrAlreadyQueued
        }
        return fmt.Errorf("failed to enqueue task: %w", err)
    }

    return nil
}

// AcquireLock 尝试获取一把带过期时间的锁, 拿到返回 true
// 恢复扫描用它保证同一时刻只有一个实例在补投任务
func (q *AsynqQueue) AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
    ok, err := q.redis.SetNX(ctx, key, time.Now().Format(time.RFC3339), ttl).Result()
    if err != nil {
        return false, fmt.Errorf("failed to acquire lock: %w", err)
    }
    return ok, nil
}

// Close 关闭底层连接
func (q *AsynqQueue) Close() error {
    if err := q.client.Close(); err != nil {
        return err
    }
    return q.redis.Close()
}
