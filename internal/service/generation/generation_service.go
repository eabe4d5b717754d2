package generation

import (
	"context"
	"errors"

	"github.com/moyuteach/lessongen/internal/models"
)

// ErrInvalidRequest 标记客户端可修复的请求问题, handler 映射为 400
var ErrInvalidRequest = errors.New("invalid generation request")

// Service 教学资源的生成与读取
type Service interface {
	Create(ctx context.Context, userID string, req *CreateRequest) (*models.Generation, error)
	Get(ctx context.Context, userID, id string) (*models.Generation, error)
	List(ctx context.Context, userID string, page, limit int) ([]*models.Generation, int64, error)
}

// ChunkSelector 从参考文档的切片里挑出与查询相关的部分
type ChunkSelector interface {
	Select(ctx context.Context, userID string, documentIDs []string, query string, names map[string]string) ([]models.RetrievedChunk, error)
}

// DocumentSource 提供生成需要的文档元数据
type DocumentSource interface {
	GetByID(ctx context.Context, userID, id string) (*models.Document, error)
}

// CreateRequest 一次生成请求的参数。DocumentIDs 可空,
// 不存在或不属于当前用户的 ID 会被静默忽略。
type CreateRequest struct {
	ResourceType models.ResourceType `json:"resourceType" binding:"required"`
	Topic        string              `json:"topic" binding:"required"`
	Requirement  string              `json:"requirement"`
	DocumentIDs  []string            `json:"documentIds"`
}
