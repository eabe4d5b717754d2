package retrieval

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moyuteach/lessongen/internal/models"
)

func TestFormatContext_Empty(t *testing.T) {
	assert.Equal(t, "", FormatContext(nil))
	assert.Equal(t, "", FormatContext([]models.RetrievedChunk{}))
}

func TestFormatContext_SingleFile(t *testing.T) {
	got := FormatContext([]models.RetrievedChunk{
		{DocumentID: "doc1", FileName: "教案.pdf", Index: 0, Content: "第一段内容"},
		{DocumentID: "doc1", FileName: "教案.pdf", Index: 1, Content: "第二段内容"},
	})

	assert.True(t, strings.HasPrefix(got, contextIntro))
	assert.Contains(t, got, "【资料：教案.pdf】")
	assert.Contains(t, got, "第一段内容\n\n第二段内容")
	assert.NotContains(t, got, groupSeparator)
}

func TestFormatContext_GroupsByFirstAppearance(t *testing.T) {
	// 选择顺序: b.docx 的后块得分最高, 然后 a.pdf, 再 b.docx 的前块
	got := FormatContext([]models.RetrievedChunk{
		{DocumentID: "doc2", FileName: "b.docx", Index: 2, Content: "乙文件第三块"},
		{DocumentID: "doc1", FileName: "a.pdf", Index: 1, Content: "甲文件第二块"},
		{DocumentID: "doc2", FileName: "b.docx", Index: 0, Content: "乙文件第一块"},
	})

	headerB := strings.Index(got, "【资料：b.docx】")
	headerA := strings.Index(got, "【资料：a.pdf】")
	require.GreaterOrEqual(t, headerB, 0)
	require.GreaterOrEqual(t, headerA, 0)
	assert.Less(t, headerB, headerA, "first-seen file should lead")

	// 组内按分块序号还原原文顺序
	first := strings.Index(got, "乙文件第一块")
	third := strings.Index(got, "乙文件第三块")
	assert.Less(t, first, third)

	assert.Contains(t, got, groupSeparator)
}

func TestFormatContext_SameNameDifferentDocumentsShareGroup(t *testing.T) {
	got := FormatContext([]models.RetrievedChunk{
		{DocumentID: "doc1", FileName: "教案.pdf", Index: 0, Content: "旧版第一块"},
		{DocumentID: "doc2", FileName: "教案.pdf", Index: 0, Content: "新版第一块"},
	})

	assert.Equal(t, 1, strings.Count(got, "【资料：教案.pdf】"))
	assert.NotContains(t, got, groupSeparator)
}
