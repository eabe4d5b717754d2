package models

import (
    "time"
)

// DocumentStatus 文档处理状态
type DocumentStatus string

const (
    StatusPending    DocumentStatus = "pending"
    StatusProcessing DocumentStatus = "processing"
    StatusCompleted  DocumentStatus = "completed"
    StatusFailed     DocumentStatus = "failed"
)

// Document 用户上传的参考文档。状态由摄取流水线推进：
// 上传成功后为 pending，工作进程领取后置 processing，
// 抽取/切片完成后进入终态 completed 或 failed。
type Document struct {
    ID           string         `bson:"_id" json:"id"`
    UserID       string         `bson:"user_id" json:"userId"`
    FileName     string         `bson:"file_name" json:"fileName"`
    FileSize     int64          `bson:"file_size" json:"fileSize"`
    MimeType     string         `bson:"mime_type" json:"mimeType"`
    ObjectKey    string         `bson:"object_key" json:"-"`
    TextContent  string         `bson:"text_content,omitempty" json:"-"`
    Status       DocumentStatus `bson:"status" json:"status"`
    ProcessError string         `bson:"process_error,omitempty" json:"processError,omitempty"`
    ChunkCount   int            `bson:"chunk_count" json:"chunkCount"`
    CreatedAt    time.Time      `bson:"created_at" json:"createdAt"`
    UpdatedAt    time.Time      `bson:"updated_at" json:"updatedAt"`
}

// Terminal 报告文档是否已处于终态
func (s DocumentStatus) Terminal() bool {
    return s == StatusCompleted || s == StatusFailed
}

// Chunk 文档正文的一个连续切片，检索的最小单位。
// chunk_index 定义文档内全序；重叠区域会重复出现在相邻切片中。
// 切片一经写入不再修改，删除文档时整批删除。
type Chunk struct {
    ID         string    `bson:"_id" json:"id"`
    DocumentID string    `bson:"document_id" json:"documentId"`
    UserID     string    `bson:"user_id" json:"userId"`
    Index      int       `bson:"chunk_index" json:"index"`
    Content    string    `bson:"content" json:"content"`
    CharCount  int       `bson:"char_count" json:"charCount"`
    CreatedAt  time.Time `bson:"created_at" json:"createdAt"`
}
