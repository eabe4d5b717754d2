package export

import (
	"archive/zip"
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moyuteach/lessongen/internal/models"
	"github.com/moyuteach/lessongen/pkg/logger"
)

// zipText 解开 office 文件并拼接所有条目内容, 供文本断言
func zipText(t *testing.T, data []byte) string {
	t.Helper()
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	var b strings.Builder
	for _, f := range r.File {
		rc, err := f.Open()
		require.NoError(t, err)
		content, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		b.Write(content)
	}
	return b.String()
}

func TestExport_WordProducesDocx(t *testing.T) {
	e := NewExporter(logger.NewTestLogger())
	gen := &models.Generation{
		ID:           "gen-1",
		Topic:        "分数的认识",
		ResourceType: models.ResourceLessonPlan,
		Content:      "教学目标：认识分数，理解平均分。\n\n教学过程：先用分月饼的例子导入。",
	}

	fileName, data, err := e.Export(gen, FormatWord)
	require.NoError(t, err)

	assert.Equal(t, "分数的认识-教案.docx", fileName)
	require.True(t, bytes.HasPrefix(data, []byte("PK")), "docx must be a zip archive")

	text := zipText(t, data)
	assert.Contains(t, text, "分数的认识")
	assert.Contains(t, text, "教学目标：认识分数，理解平均分。")
	assert.Contains(t, text, "教学过程：先用分月饼的例子导入。")
}

func TestExport_PPTProducesSlidePerSection(t *testing.T) {
	e := NewExporter(logger.NewTestLogger())
	gen := &models.Generation{
		ID:           "gen-2",
		Topic:        "分数的认识",
		ResourceType: models.ResourcePPTOutline,
		Content:      "教学目标：\n认识分数\n理解平均分\n\n1. 导入环节\n通过分月饼的情境引入",
	}

	fileName, data, err := e.Export(gen, FormatPPT)
	require.NoError(t, err)

	assert.Equal(t, "分数的认识-课件大纲.pptx", fileName)
	require.True(t, bytes.HasPrefix(data, []byte("PK")))

	text := zipText(t, data)
	assert.Contains(t, text, "分数的认识")
	assert.Contains(t, text, "教学目标")
	assert.Contains(t, text, "认识分数")
	assert.Contains(t, text, "理解平均分")
	assert.Contains(t, text, "1. 导入环节")
	assert.Contains(t, text, "通过分月饼的情境引入")
}

func TestExport_UnknownFormatIsRejected(t *testing.T) {
	e := NewExporter(logger.NewTestLogger())
	gen := &models.Generation{Topic: "主题", ResourceType: models.ResourceLessonPlan}

	_, _, err := e.Export(gen, Format("pdf"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestSplitHeading(t *testing.T) {
	tests := []struct {
		name      string
		section   string
		wantTitle string
		wantBody  []string
	}{
		{
			name:      "全角冒号结尾的短行是页标题",
			section:   "教学目标：\n认识分数\n理解平均分",
			wantTitle: "教学目标",
			wantBody:  []string{"认识分数", "理解平均分"},
		},
		{
			name:      "半角冒号同样生效",
			section:   "Warm up:\nGreetings",
			wantTitle: "Warm up",
			wantBody:  []string{"Greetings"},
		},
		{
			name:      "数字开头的行是页标题且保留编号",
			section:   "1. 复习导入\n口算练习",
			wantTitle: "1. 复习导入",
			wantBody:  []string{"口算练习"},
		},
		{
			name:      "普通首行进标题也留在正文",
			section:   "这节课我们学习分数",
			wantTitle: "这节课我们学习分数",
			wantBody:  []string{"这节课我们学习分数"},
		},
		{
			name:      "超长首行截断并加省略号",
			section:   strings.Repeat("长", 40),
			wantTitle: strings.Repeat("长", 30) + "...",
			wantBody:  []string{strings.Repeat("长", 40)},
		},
		{
			name:      "过长的冒号行不算标题",
			section:   strings.Repeat("标", 50) + "：",
			wantTitle: strings.Repeat("标", 30) + "...",
			wantBody:  []string{strings.Repeat("标", 50) + "："},
		},
		{
			name:      "正文里的空行被丢弃",
			section:   "要点：\n第一条\n\n第二条",
			wantTitle: "要点",
			wantBody:  []string{"第一条", "第二条"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			title, body := splitHeading(tt.section)
			assert.Equal(t, tt.wantTitle, title)
			assert.Equal(t, tt.wantBody, body)
		})
	}
}

func TestSections(t *testing.T) {
	got := sections("目标\n\n\n过程\n\n\n\n总结\n\n  \n\n")
	assert.Equal(t, []string{"目标", "过程", "总结"}, got)

	assert.Empty(t, sections(""))
	assert.Empty(t, sections("\n\n\n"))
}

func TestSafeName(t *testing.T) {
	assert.Equal(t, "比例-尺的应用", safeName("比例/尺的应用"))
	assert.Equal(t, "a-b-c-d", safeName(`a/b\c:d`))
	assert.Equal(t, "正常名字", safeName("正常名字"))
}
