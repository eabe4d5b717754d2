package document

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/moyuteach/lessongen/internal/chunker"
	"github.com/moyuteach/lessongen/internal/models"
	"github.com/moyuteach/lessongen/internal/store"
	"github.com/moyuteach/lessongen/internal/utils/validator"
	"github.com/moyuteach/lessongen/pkg/logger"
	"github.com/moyuteach/lessongen/pkg/queue"
	"github.com/moyuteach/lessongen/pkg/storage"
)

// sweepLockKey 恢复扫描的分布式锁, 多实例同时启动只扫一遍
const sweepLockKey = "lessongen:ingest:sweep"

type DocumentService struct {
	docs      store.DocumentStore
	chunks    store.ChunkStore
	storage   storage.Storage
	queue     queue.Queue
	extractor TextExtractor
	chunker   *chunker.Chunker
	validator *validator.UploadValidator
	logger    logger.Logger
	config    *ServiceConfig
}

type ServiceConfig struct {
	MaxFileSize  int64
	AllowedTypes []string
	StaleAfter   time.Duration
}

func NewService(
	docs store.DocumentStore,
	chunks store.ChunkStore,
	st storage.Storage,
	q queue.Queue,
	extractor TextExtractor,
	ck *chunker.Chunker,
	log logger.Logger,
	cfg *ServiceConfig,
) Service {
	if cfg == nil {
		cfg = &ServiceConfig{}
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 20 * 1024 * 1024 // 20MB
	}
	if len(cfg.AllowedTypes) == 0 {
		cfg.AllowedTypes = []string{".pdf", ".doc", ".docx", ".txt", ".md"}
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = 15 * time.Minute
	}

	return &DocumentService{
		docs:      docs,
		chunks:    chunks,
		storage:   st,
		queue:     q,
		extractor: extractor,
		chunker:   ck,
		validator: validator.New(cfg.MaxFileSize, cfg.AllowedTypes),
		logger:    log,
		config:    cfg,
	}
}

// Upload 校验并保存上传文件, 建立文档记录后把解析任务交给队列。
// 任何一步失败都拒绝本次上传, 已写入的部分尽力回收。
func (s *DocumentService) Upload(
	ctx context.Context,
	userID string,
	file multipart.File,
	header *multipart.FileHeader,
) (*models.Document, error) {
	if _, err := s.validator.Validate(file, header); err != nil {
		s.logger.Warn("upload rejected",
			logger.String("filename", header.Filename),
			logger.Error(err),
		)
		return nil, err
	}

	id := uuid.New().String()
	ext := strings.ToLower(filepath.Ext(header.Filename))
	objectKey := fmt.Sprintf("documents/%s/%s%s", userID, id, ext)
	contentType := header.Header.Get("Content-Type")

	if err := s.storage.Store(ctx, file, header.Size, objectKey, contentType); err != nil {
		s.logger.Error("failed to store uploaded file",
			logger.String("filename", header.Filename),
			logger.Error(err),
		)
		return nil, fmt.Errorf("failed to store file: %w", err)
	}

	now := time.Now()
	doc := &models.Document{
		ID:        id,
		UserID:    userID,
		FileName:  header.Filename,
		FileSize:  header.Size,
		MimeType:  contentType,
		ObjectKey: objectKey,
		Status:    models.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.docs.Insert(ctx, doc); err != nil {
		s.cleanupObject(ctx, objectKey)
		return nil, fmt.Errorf("failed to insert document: %w", err)
	}

	payload := &queue.IngestPayload{
		DocumentID: id,
		UserID:     userID,
		ObjectKey:  objectKey,
		FileName:   header.Filename,
		MimeType:   contentType,
	}
	if err := s.queue.EnqueueIngest(ctx, payload, queue.PriorityDefault); err != nil && !errors.Is(err, queue.ErrAlreadyQueued) {
		if derr := s.docs.Delete(ctx, userID, id); derr != nil {
			s.logger.Error("failed to roll back document record",
				logger.String("documentId", id),
				logger.Error(derr),
			)
		}
		s.cleanupObject(ctx, objectKey)
		return nil, fmt.Errorf("failed to enqueue ingest task: %w", err)
	}

	s.logger.Info("document uploaded",
		logger.String("documentId", id),
		logger.String("filename", header.Filename),
		logger.Int64("size", header.Size),
	)

	return doc, nil
}

// Ingest 执行一个入队的解析任务: 取回字节, 抽取文本, 切片入库。
// 解码失败是终态, 把文档标记为 failed 后返回 nil; 基础设施错误返回
// 非空, 由队列按策略重试。
func (s *DocumentService) Ingest(ctx context.Context, payload *queue.IngestPayload) error {
	doc, err := s.docs.GetByID(ctx, payload.UserID, payload.DocumentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// 文档在任务执行前被删掉, 任务作废
			s.logger.Warn("document gone before ingestion, dropping task",
				logger.String("documentId", payload.DocumentID),
			)
			return nil
		}
		return fmt.Errorf("failed to load document: %w", err)
	}

	if doc.Status == models.StatusCompleted {
		// 恢复扫描和正常处理可能重复投递同一文档
		return nil
	}

	if err := s.docs.MarkProcessing(ctx, doc.ID); err != nil {
		return fmt.Errorf("failed to mark document processing: %w", err)
	}

	reader, err := s.storage.Get(ctx, doc.ObjectKey)
	if err != nil {
		return fmt.Errorf("failed to get stored file: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return fmt.Errorf("failed to read stored file: %w", err)
	}

	text, err := s.extractor.Extract(ctx, doc.FileName, doc.MimeType, data)
	if err != nil {
		// 错误信息原样落库供排查, 不重试, 用户需要重新上传
		if merr := s.docs.MarkFailed(ctx, doc.ID, err.Error()); merr != nil {
			return fmt.Errorf("failed to mark document failed: %w", merr)
		}
		s.logger.Warn("document extraction failed",
			logger.String("documentId", doc.ID),
			logger.String("filename", doc.FileName),
			logger.Error(err),
		)
		return nil
	}

	pieces := s.chunker.Split(text)

	now := time.Now()
	chunks := make([]*models.Chunk, 0, len(pieces))
	for _, p := range pieces {
		chunks = append(chunks, &models.Chunk{
			ID:         uuid.New().String(),
			DocumentID: doc.ID,
			UserID:     doc.UserID,
			Index:      p.Index,
			Content:    p.Content,
			CharCount:  p.CharCount,
			CreatedAt:  now,
		})
	}

	// 上一次中断可能留下残块, 先清掉再写
	if err := s.chunks.DeleteByDocumentID(ctx, doc.ID); err != nil {
		return fmt.Errorf("failed to clear old chunks: %w", err)
	}
	if err := s.chunks.InsertMany(ctx, chunks); err != nil {
		return fmt.Errorf("failed to insert chunks: %w", err)
	}

	if err := s.docs.MarkCompleted(ctx, doc.ID, len(chunks), text); err != nil {
		return fmt.Errorf("failed to mark document completed: %w", err)
	}

	s.logger.Info("document ingested",
		logger.String("documentId", doc.ID),
		logger.String("filename", doc.FileName),
		logger.Int("chunk_count", len(chunks)),
	)

	return nil
}

// Get 返回归属当前用户的文档记录
func (s *DocumentService) Get(ctx context.Context, userID, id string) (*models.Document, error) {
	return s.docs.GetByID(ctx, userID, id)
}

// List 按创建时间倒序分页列出用户文档
func (s *DocumentService) List(ctx context.Context, userID string, page, limit int) ([]*models.Document, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	docs, err := s.docs.ListByUser(ctx, userID, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list documents: %w", err)
	}
	total, err := s.docs.CountByUser(ctx, userID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return docs, total, nil
}

// Download 返回原始文件的读取流
func (s *DocumentService) Download(ctx context.Context, userID, id string) (*DownloadResult, error) {
	doc, err := s.docs.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	reader, err := s.storage.Get(ctx, doc.ObjectKey)
	if err != nil {
		return nil, fmt.Errorf("failed to get stored file: %w", err)
	}

	return &DownloadResult{
		FileName: doc.FileName,
		MimeType: doc.MimeType,
		Size:     doc.FileSize,
		Reader:   reader,
	}, nil
}

// Delete 级联删除: 先切片, 再记录, 最后对象存储
func (s *DocumentService) Delete(ctx context.Context, userID, id string) error {
	doc, err := s.docs.GetByID(ctx, userID, id)
	if err != nil {
		return err
	}

	if err := s.chunks.DeleteByDocumentID(ctx, id); err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	if err := s.docs.Delete(ctx, userID, id); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	// 记录已删, 对象清理失败只记日志
	s.cleanupObject(ctx, doc.ObjectKey)

	s.logger.Info("document deleted",
		logger.String("documentId", id),
		logger.String("filename", doc.FileName),
	)

	return nil
}

// SweepStale 重新入队卡在 pending/processing 超过阈值的文档。
// 工作进程启动时调用一次, 弥补崩溃或队列丢失造成的悬挂状态。
func (s *DocumentService) SweepStale(ctx context.Context) error {
	ok, err := s.queue.AcquireLock(ctx, sweepLockKey, 5*time.Minute)
	if err != nil {
		return fmt.Errorf("failed to acquire sweep lock: %w", err)
	}
	if !ok {
		s.logger.Info("recovery sweep already running elsewhere, skipping")
		return nil
	}

	olderThan := time.Now().Add(-s.config.StaleAfter)
	docs, err := s.docs.FindStale(ctx, olderThan)
	if err != nil {
		return fmt.Errorf("failed to find stale documents: %w", err)
	}

	requeued := 0
	for _, doc := range docs {
		payload := &queue.IngestPayload{
			DocumentID: doc.ID,
			UserID:     doc.UserID,
			ObjectKey:  doc.ObjectKey,
			FileName:   doc.FileName,
			MimeType:   doc.MimeType,
		}
		err := s.queue.EnqueueIngest(ctx, payload, queue.PriorityLow)
		if errors.Is(err, queue.ErrAlreadyQueued) {
			continue
		}
		if err != nil {
			s.logger.Error("failed to requeue stale document",
				logger.String("documentId", doc.ID),
				logger.Error(err),
			)
			continue
		}
		requeued++
	}

	if len(docs) > 0 {
		s.logger.Info("recovery sweep finished",
			logger.Int("stale", len(docs)),
			logger.Int("requeued", requeued),
		)
	}

	return nil
}

func (s *DocumentService) cleanupObject(ctx context.Context, objectKey string) {
	if err := s.storage.Delete(ctx, objectKey); err != nil {
		s.logger.Error("failed to delete stored object",
			logger.String("objectKey", objectKey),
			logger.Error(err),
		)
	}
}
