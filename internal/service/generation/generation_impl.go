package generation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/moyuteach/lessongen/internal/llm"
	"github.com/moyuteach/lessongen/internal/models"
	"github.com/moyuteach/lessongen/internal/retrieval"
	"github.com/moyuteach/lessongen/internal/store"
	"github.com/moyuteach/lessongen/pkg/logger"
)

// previewRunes 落库快照里每个切片保留的正文长度
const previewRunes = 100

type GenerationService struct {
	gens     store.GenerationStore
	docs     DocumentSource
	selector ChunkSelector
	llm      llm.Completer
	logger   logger.Logger
}

func NewService(
	gens store.GenerationStore,
	docs DocumentSource,
	selector ChunkSelector,
	completer llm.Completer,
	log logger.Logger,
) Service {
	return &GenerationService{
		gens:     gens,
		docs:     docs,
		selector: selector,
		llm:      completer,
		logger:   log,
	}
}

// Create 跑完整的生成流程: 解析模板, 检索参考切片, 拼装提示词,
// 调用模型, 落库并返回记录。检索不到内容不是错误, 生成照常进行。
func (s *GenerationService) Create(ctx context.Context, userID string, req *CreateRequest) (*models.Generation, error) {
	tpl, ok := templateFor(req.ResourceType)
	if !ok {
		return nil, fmt.Errorf("%w: unknown resource type: %s", ErrInvalidRequest, req.ResourceType)
	}
	if strings.TrimSpace(req.Topic) == "" {
		return nil, fmt.Errorf("%w: topic is required", ErrInvalidRequest)
	}

	docIDs, names, err := s.resolveDocuments(ctx, userID, req.DocumentIDs)
	if err != nil {
		return nil, err
	}

	query := strings.TrimSpace(req.Topic + " " + req.Requirement)
	retrieved, err := s.selector.Select(ctx, userID, docIDs, query, names)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve context: %w", err)
	}
	referenceBlock := retrieval.FormatContext(retrieved)

	resp, err := s.llm.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: tpl.system,
		UserPrompt:   buildUserPrompt(req, referenceBlock),
		Temperature:  tpl.temperature,
		MaxTokens:    tpl.maxTokens,
	})
	if err != nil {
		s.logger.Error("generation failed",
			logger.String("resourceType", string(req.ResourceType)),
			logger.String("topic", req.Topic),
			logger.Error(err),
		)
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	gen := &models.Generation{
		ID:               uuid.New().String(),
		UserID:           userID,
		ResourceType:     req.ResourceType,
		Topic:            req.Topic,
		Requirement:      req.Requirement,
		DocumentIDs:      docIDs,
		Content:          resp.Content,
		Model:            resp.Model,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		Retrieved:        snapshotRefs(retrieved),
		CreatedAt:        time.Now(),
	}

	if err := s.gens.Insert(ctx, gen); err != nil {
		return nil, fmt.Errorf("failed to insert generation: %w", err)
	}

	s.logger.Info("generation created",
		logger.String("generationId", gen.ID),
		logger.String("resourceType", string(gen.ResourceType)),
		logger.Int("retrieved_chunks", len(retrieved)),
		logger.Int("completion_tokens", gen.CompletionTokens),
	)

	return gen, nil
}

// Get 返回归属当前用户的生成记录
func (s *GenerationService) Get(ctx context.Context, userID, id string) (*models.Generation, error) {
	return s.gens.GetByID(ctx, userID, id)
}

// List 按创建时间倒序分页列出用户的生成记录
func (s *GenerationService) List(ctx context.Context, userID string, page, limit int) ([]*models.Generation, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	gens, err := s.gens.ListByUser(ctx, userID, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list generations: %w", err)
	}
	total, err := s.gens.CountByUser(ctx, userID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count generations: %w", err)
	}
	return gens, total, nil
}

// resolveDocuments 去重并校验归属。不存在或不属于当前用户的 ID
// 静默丢弃, 返回存活的 ID 列表和 ID 到文件名的映射。
func (s *GenerationService) resolveDocuments(ctx context.Context, userID string, ids []string) ([]string, map[string]string, error) {
	if len(ids) == 0 {
		return nil, nil, nil
	}

	owned := make([]string, 0, len(ids))
	names := make(map[string]string, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		doc, err := s.docs.GetByID(ctx, userID, id)
		if errors.Is(err, store.ErrNotFound) {
			s.logger.Warn("reference document not found, skipping",
				logger.String("documentId", id),
			)
			continue
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load document: %w", err)
		}

		owned = append(owned, doc.ID)
		names[doc.ID] = doc.FileName
	}
	return owned, names, nil
}

// snapshotRefs 压缩命中切片供落库: 分数保留两位小数, 正文只留开头
func snapshotRefs(chunks []models.RetrievedChunk) []models.RetrievedRef {
	if len(chunks) == 0 {
		return nil
	}
	refs := make([]models.RetrievedRef, len(chunks))
	for i, c := range chunks {
		refs[i] = models.RetrievedRef{
			FileName: c.FileName,
			Index:    c.Index,
			Score:    math.Round(c.Score*100) / 100,
			Preview:  preview(c.Content, previewRunes),
		}
	}
	return refs
}

func preview(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
