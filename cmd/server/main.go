package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/moyuteach/lessongen/api/handlers"
	"github.com/moyuteach/lessongen/api/routes"
	"github.com/moyuteach/lessongen/config"
	"github.com/moyuteach/lessongen/internal/chunker"
	"github.com/moyuteach/lessongen/internal/extract"
	"github.com/moyuteach/lessongen/internal/llm"
	"github.com/moyuteach/lessongen/internal/retrieval"
	"github.com/moyuteach/lessongen/internal/service/document"
	"github.com/moyuteach/lessongen/internal/service/export"
	"github.com/moyuteach/lessongen/internal/service/generation"
	"github.com/moyuteach/lessongen/internal/store"
	"github.com/moyuteach/lessongen/pkg/logger"
	"github.com/moyuteach/lessongen/pkg/queue"
	"github.com/moyuteach/lessongen/pkg/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	// init logger
	log, err := logger.NewLogger(
		logger.WithLevel(cfg.Log.Level),
		logger.WithEncoding(cfg.Log.Encoding),
		logger.WithOutputPaths([]string{"stdout", "logs/server.log"}),
	)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// init mongodb
	connectCtx, connectCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer connectCancel()
	mongoClient, err := store.Connect(connectCtx, cfg.Mongo.URI)
	if err != nil {
		log.Fatal("Failed to connect to mongodb", logger.Error(err))
	}
	defer mongoClient.Disconnect(context.Background())

	db := mongoClient.Database(cfg.Mongo.Database)
	docStore := store.NewMongoDocumentStore(db, "documents")
	chunkStore := store.NewMongoChunkStore(db, "chunks")
	genStore := store.NewMongoGenerationStore(db, "generations")

	// init object storage
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
		log.Fatal("Failed to init object storage", logger.Error(err))
	}

	// init task queue
	taskQueue := queue.NewAsynqQueue(&queue.QueueConfig{
		RedisAddr:      cfg.Redis.Addr,
		RedisPassword:  cfg.Redis.Password,
		RedisDB:        cfg.Redis.DB,
		MaxRetries:     cfg.Ingest.MaxRetries,
		ProcessTimeout: time.Duration(cfg.Ingest.ProcessTimeoutMin) * time.Minute,
	})
	defer taskQueue.Close()

	// init services
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

	selector := retrieval.NewSelector(chunkStore,
		retrieval.WithMaxChunks(cfg.Retrieval.MaxChunks),
		retrieval.WithMaxChars(cfg.Retrieval.MaxChars),
		retrieval.WithFallbackPerDoc(cfg.Retrieval.FallbackPerDoc),
	)
	completer := llm.NewClient(llm.Config{
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		TimeoutSec:  cfg.LLM.TimeoutSec,
	}, log)
	genService := generation.NewService(genStore, docStore, selector, completer, log)
	exporter := export.NewExporter(log)

	// init handlers
	h := handlers.NewHandlers(docService, genService, exporter, mongoClient, log)
	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(gin.Recovery())
	routes.SetupRoutes(r, h)

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: r,
	}

	// start server
	go func() {
		log.Info("Server starting", logger.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server error", logger.Error(err))
		}
	}()

	// wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	// graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.Server.ShutdownTimeoutSec)*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", logger.Error(err))
	}
}
