package main

import (
    "context"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/moyuteach/lessongen/config"
    "github.com/moyuteach/lessongen/internal/chunker"
    "github.com/moyuteach/lessongen/internal/extract"
    "github.com/moyuteach/lessongen/internal/service/document"
    "github.com/moyuteach/lessongen/internal/store"
    "github.com/moyuteach/lessongen/pkg/logger"
    "github.com/moyuteach/lessongen/pkg/queue"
    "github.com/moyuteach/lessongen/pkg/storage"
    "github.com/moyuteach/lessongen/pkg/worker"
)

func main() {
    cfg, err := config.Load()
    if err != nil {
        panic(err)
    }

    // 初始化日志
    log, err := logger.NewLogger(
        logger.WithLevel(cfg.Log.Level),
        logger.WithEncoding(cfg.Log.Encoding),
        logger.WithOutputPaths([]string{"stdout", "logs/worker.log"}),
    )
    if err != nil {
        panic(err)
    }
    defer log.Sync()

    // 连接 MongoDB
    connectCtx, connectCancel := context.WithTimeout(context.Background(), 10*time.Second)
    defer connectCancel()
    mongoClient, err := store.Connect(connectCtx, cfg.Mongo.URI)
    if err != nil {
        log.Error("Failed to connect to mongodb", logger.Error(err))
        os.Exit(1)
    }
    defer mongoClient.Disconnect(context.Background())

    db := mongoClient.Database(cfg.Mongo.Database)
    docStore := store.NewMongoDocumentStore(db, "documents")
    chunkStore := store.NewMongoChunkStore(db, "chunks")

    // 对象存储
    objectStorage, err := storage.NewStorage(&storage.Config{
        Type:      cfg.Storage.Type,
        Endpoint:  cfg.Storage.Endpoint,
        AccessKey: cfg.Storage.AccessKey,
        SecretKey: cfg.Storage.SecretKey,
        Bucket:    cfg.Storage.Bucket,
        Region:    cfg.Storage.Region,
        UseSSL:    cfg.Storage.UseSSL,
    }, log)
    if err != nil {
        log.Error("Failed to init object storage", logger.Error(err))
        os.Exit(1)
    }

    // 任务队列, 恢复扫描补投任务时用
    taskQueue := queue.NewAsynqQueue(&queue.QueueConfig{
        RedisAddr:      cfg.Redis.Addr,
        RedisPassword:  cfg.Redis.Password,
        RedisDB:        cfg.Redis.DB,
        MaxRetries:     cfg.Ingest.MaxRetries,
        ProcessTimeout: time.Duration(cfg.Ingest.ProcessTimeoutMin) * time.Minute,
    })
    defer taskQueue.Close()

    // 创建文档服务
    extractor := extract.NewExtractor(extract.NewPDFReader(), extract.NewDocxReader(), log)
    splitter := chunker.New(
        chunker.WithChunkSize(cfg.Ingest.ChunkSize),
        chunker.WithOverlap(cfg.Ingest.ChunkOverlap),
    )
    docService := document.NewService(docStore, chunkStore, objectStorage, taskQueue, extractor, splitter, log,
        &document.ServiceConfig{
            MaxFileSize: int64(cfg.Ingest.MaxFileSizeMB) << 20,
            StaleAfter:  time.Duration(cfg.Ingest.StaleAfterMin) * time.Minute,
        })

    // 创建 worker
    ingestWorker, err := worker.NewIngestWorker(&worker.Config{
        RedisAddr:     cfg.Redis.Addr,
        RedisPassword: cfg.Redis.Password,
        RedisDB:       cfg.Redis.DB,
        Concurrency:   cfg.Ingest.Concurrency,
    }, docService, log)
    if err != nil {
        log.Error("Failed to create ingest worker", logger.Error(err))
        os.Exit(1)
    }

    ctx, cancel := context.WithCancel(context.Background())
    defer cancel()

    // 启动 worker
    if err := ingestWorker.Start(ctx); err != nil {
        log.Error("Failed to start ingest worker", logger.Error(err))
        os.Exit(1)
    }

    // 启动后先补投一轮滞留任务, 上一个进程崩溃留下的 processing 文档靠这里捞回
    sweepCtx, sweepCancel := context.WithTimeout(ctx, time.Minute)
    if err := docService.SweepStale(sweepCtx); err != nil {
        log.Error("Startup sweep failed", logger.Error(err))
    }
    sweepCancel()

    // 等待中断信号
    sigChan := make(chan os.Signal, 1)
    signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
    <-sigChan

    // 优雅关闭
    log.Info("Shutting down worker...")
    ingestWorker.Stop()
    log.Info("Worker stopped")
}
