// Package export renders generation content into downloadable Word
// and PowerPoint files.
package export

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/unidoc/unioffice/v2/document"
	"github.com/unidoc/unioffice/v2/measurement"
	"github.com/unidoc/unioffice/v2/presentation"
	"github.com/unidoc/unioffice/v2/schema/soo/wml"

	"github.com/moyuteach/lessongen/internal/models"
	"github.com/moyuteach/lessongen/pkg/logger"
)

type Format string

const (
	FormatWord Format = "word"
	FormatPPT  Format = "ppt"
)

// ErrUnsupportedFormat 请求了未知的导出格式, handler 映射为 400
var ErrUnsupportedFormat = errors.New("unsupported export format")

// 幻灯片标题启发式: 首行短于该长度且以冒号结尾或以数字开头时当作页标题
const headingMaxRunes = 50

// 非标题首行截断长度
const titleTruncateRunes = 30

type Exporter struct {
	logger logger.Logger
}

func NewExporter(log logger.Logger) *Exporter {
	return &Exporter{logger: log}
}

// Export 把一条生成记录渲染成指定格式的文件, 返回建议文件名和字节
func (e *Exporter) Export(gen *models.Generation, format Format) (string, []byte, error) {
	var (
		data []byte
		ext  string
		err  error
	)

	switch format {
	case FormatWord:
		data, err = e.wordBytes(gen.Topic, gen.Content)
		ext = ".docx"
	case FormatPPT:
		data, err = e.pptBytes(gen.Topic, gen.Content)
		ext = ".pptx"
	default:
		return "", nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return "", nil, err
	}

	fileName := safeName(gen.Topic) + "-" + gen.ResourceType.Label() + ext

	e.logger.Debug("generation exported",
		logger.String("generationId", gen.ID),
		logger.String("format", string(format)),
		logger.Int("bytes", len(data)),
	)

	return fileName, data, nil
}

// wordBytes 生成 Word 文档: 居中加粗的18磅标题, 空行,
// 然后按空行切段落, 1.5倍行距, 段后12磅
func (e *Exporter) wordBytes(title, content string) ([]byte, error) {
	doc := document.New()

	titlePara := doc.AddParagraph()
	titlePara.Properties().SetAlignment(wml.ST_JcCenter)
	run := titlePara.AddRun()
	run.AddText(title)
	run.Properties().SetBold(true)
	run.Properties().SetSize(18 * measurement.Point)

	doc.AddParagraph()

	for _, para := range sections(content) {
		p := doc.AddParagraph()
		// line="360" lineRule="auto" 即 1.5 倍行距
		p.SetLineSpacing(18*measurement.Point, wml.ST_LineSpacingRuleAuto)
		p.Properties().Spacing().SetAfter(12 * measurement.Point)
		p.AddRun().AddText(para)
	}

	var buf bytes.Buffer
	if err := doc.Save(&buf); err != nil {
		return nil, fmt.Errorf("failed to save docx: %w", err)
	}
	return buf.Bytes(), nil
}

// pptBytes 生成演示文稿: 标题页加每个小节一页
func (e *Exporter) pptBytes(title, content string) ([]byte, error) {
	ppt := presentation.New()

	cover := addSlide(ppt, "Title Slide")
	fillSlide(cover, title, nil)

	for _, section := range sections(content) {
		heading, body := splitHeading(section)
		slide := addSlide(ppt, "Title and Content")
		fillSlide(slide, heading, body)
	}

	var buf bytes.Buffer
	if err := ppt.Save(&buf); err != nil {
		return nil, fmt.Errorf("failed to save pptx: %w", err)
	}
	return buf.Bytes(), nil
}

// addSlide 优先用模板里的版式, 默认主题找不到时退回空白页
func addSlide(ppt *presentation.Presentation, layoutName string) presentation.Slide {
	layout, err := ppt.GetLayoutByName(layoutName)
	if err != nil {
		return ppt.AddSlide()
	}
	slide, err := ppt.AddSlideWithLayout(layout)
	if err != nil {
		return ppt.AddSlide()
	}
	return slide
}

// fillSlide 有标题和正文占位符时分开写入, 空白页则整页一个文本框,
// 标题占首段
func fillSlide(slide presentation.Slide, title string, body []string) {
	phs := slide.PlaceHolders()
	if len(phs) >= 2 {
		phs[0].SetText(title)
		phs[1].SetText(strings.Join(body, "\n"))
		return
	}

	tb := slide.AddTextBox()
	titlePara := tb.AddParagraph()
	titlePara.AddRun().SetText(title)
	for _, line := range body {
		para := tb.AddParagraph()
		para.AddRun().SetText(line)
	}
}

// sections 按空行切分并丢弃空白小节
func sections(content string) []string {
	var out []string
	for _, s := range strings.Split(content, "\n\n") {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// splitHeading 把小节拆成页标题和正文行。
// 首行短且以冒号结尾或以数字开头时作为标题并从正文去掉;
// 否则截断首行作标题, 首行保留在正文里。
func splitHeading(section string) (string, []string) {
	lines := strings.Split(section, "\n")
	first := strings.TrimSpace(lines[0])
	runes := []rune(first)

	isHeading := len(runes) < headingMaxRunes &&
		(strings.HasSuffix(first, ":") || strings.HasSuffix(first, "：") ||
			(len(runes) > 0 && unicode.IsDigit(runes[0])))

	if isHeading {
		return strings.TrimRight(first, ":："), bodyLines(lines[1:])
	}

	title := first
	if len(runes) > titleTruncateRunes {
		title = string(runes[:titleTruncateRunes]) + "..."
	}
	return title, bodyLines(lines)
}

func bodyLines(lines []string) []string {
	var out []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

// safeName 过滤文件名里的路径分隔符和保留字符
func safeName(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '-'
		}
		if r < 0x20 {
			return '-'
		}
		return r
	}, s)
}
