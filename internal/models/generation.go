package models

import (
    "time"
)

// ResourceType 可生成的教学资源类型，闭合枚举。
// 新增类型时必须同时登记提示词模板，见 internal/service/generation。
type ResourceType string

const (
    ResourceLessonPlan     ResourceType = "lesson_plan"
    ResourceExercise       ResourceType = "exercise"
    ResourcePPTOutline     ResourceType = "ppt_outline"
    ResourceStudentComment ResourceType = "student_comment"
)

// Label 资源类型的中文名
func (t ResourceType) Label() string {
    switch t {
    case ResourceLessonPlan:
        return "教案"
    case ResourceExercise:
        return "练习题"
    case ResourcePPTOutline:
        return "课件大纲"
    case ResourceStudentComment:
        return "学生评语"
    }
    return string(t)
}

// RetrievedChunk 一次检索命中的切片，附带相关性分数和来源文件名。
// 每次检索临时构造，不落库；落库的摘要见 RetrievedRef。
type RetrievedChunk struct {
    DocumentID string  `json:"documentId"`
    FileName   string  `json:"fileName"`
    Index      int     `json:"chunkIndex"`
    Content    string  `json:"content"`
    Score      float64 `json:"score"`
}

// RetrievedRef 生成记录上保留的检索快照，仅供追溯，不参与后续计算
type RetrievedRef struct {
    FileName string  `bson:"file_name" json:"fileName"`
    Index    int     `bson:"chunk_index" json:"chunkIndex"`
    Score    float64 `bson:"score" json:"score"`
    Preview  string  `bson:"preview" json:"preview"`
}

// Generation 一次生成的完整记录
type Generation struct {
    ID               string         `bson:"_id" json:"id"`
    UserID           string         `bson:"user_id" json:"userId"`
    ResourceType     ResourceType   `bson:"resource_type" json:"resourceType"`
    Topic            string         `bson:"topic" json:"topic"`
    Requirement      string         `bson:"requirement,omitempty" json:"requirement,omitempty"`
    DocumentIDs      []string       `bson:"document_ids,omitempty" json:"documentIds,omitempty"`
    Content          string         `bson:"content" json:"content"`
    Model            string         `bson:"model" json:"model"`
    PromptTokens     int            `bson:"prompt_tokens" json:"promptTokens"`
    CompletionTokens int            `bson:"completion_tokens" json:"completionTokens"`
    Retrieved        []RetrievedRef `bson:"retrieved,omitempty" json:"retrieved,omitempty"`
    CreatedAt        time.Time      `bson:"created_at" json:"createdAt"`
}
