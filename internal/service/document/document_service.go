package document

import (
	"context"
	"io"
	"mime/multipart"

	"github.com/moyuteach/lessongen/internal/models"
	"github.com/moyuteach/lessongen/internal/utils/validator"
	"github.com/moyuteach/lessongen/pkg/queue"
)

// ErrInvalidUpload 标记客户端可修复的上传问题, handler 映射为 400。
// 校验器产出的错误直接沿用这个身份
var ErrInvalidUpload = validator.ErrInvalidFile

// Service 文档的上传, 摄取与读取
type Service interface {
	Upload(ctx context.Context, userID string, file multipart.File, header *multipart.FileHeader) (*models.Document, error)
	Ingest(ctx context.Context, payload *queue.IngestPayload) error
	Get(ctx context.Context, userID, id string) (*models.Document, error)
	List(ctx context.Context, userID string, page, limit int) ([]*models.Document, int64, error)
	Download(ctx context.Context, userID, id string) (*DownloadResult, error)
	Delete(ctx context.Context, userID, id string) error
	SweepStale(ctx context.Context) error
}

// TextExtractor 把上传文件的字节还原为纯文本
type TextExtractor interface {
	Extract(ctx context.Context, fileName, mimeType string, data []byte) (string, error)
}

// DownloadResult 原始文件的下载流, 调用方负责关闭 Reader
type DownloadResult struct {
	FileName string
	MimeType string
	Size     int64
	Reader   io.ReadCloser
}
