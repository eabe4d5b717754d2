// Package extract converts uploaded document bytes into plain text.
// Format dispatch follows the declared MIME type first, the file
// extension second, and content sniffing when neither says anything.
package extract

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/gabriel-vasile/mimetype"

	"github.com/moyuteach/lessongen/pkg/logger"
)

const (
	mimePDF  = "application/pdf"
	mimeDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimeDoc  = "application/msword"
)

// PDFDecoder pulls the text layer out of a PDF file.
type PDFDecoder interface {
	DecodePDF(ctx context.Context, data []byte) (string, error)
}

// DocxDecoder pulls the paragraph text out of a .docx file.
type DocxDecoder interface {
	DecodeDocx(ctx context.Context, data []byte) (string, error)
}

type Extractor struct {
	pdf    PDFDecoder
	docx   DocxDecoder
	logger logger.Logger
}

func NewExtractor(pdf PDFDecoder, docx DocxDecoder, log logger.Logger) *Extractor {
	return &Extractor{
		pdf:    pdf,
		docx:   docx,
		logger: log,
	}
}

// Extract returns the plain text of an uploaded file. A format without a
// text layer yields an empty string, not an error. Only a failing PDF or
// DOCX decode counts as an extraction failure.
func (e *Extractor) Extract(ctx context.Context, fileName, mimeType string, data []byte) (string, error) {
	mime := strings.ToLower(strings.TrimSpace(mimeType))
	if mime == "" {
		// 浏览器没有上报类型时按文件头嗅探
		mime = mimetype.Detect(data).String()
	}
	ext := strings.ToLower(filepath.Ext(fileName))

	switch {
	case mime == mimePDF || ext == ".pdf":
		text, err := e.pdf.DecodePDF(ctx, data)
		if err != nil {
			return "", fmt.Errorf("failed to decode pdf: %w", err)
		}
		return text, nil

	case mime == mimeDocx || ext == ".docx":
		text, err := e.docx.DecodeDocx(ctx, data)
		if err != nil {
			return "", fmt.Errorf("failed to decode docx: %w", err)
		}
		return text, nil

	case mime == mimeDoc || ext == ".doc":
		// 旧版 .doc 是二进制容器, 没有纯文本层, 只能尽力扫出可读片段
		return scrubBinary(data), nil

	case strings.HasPrefix(mime, "text/") || ext == ".txt" || ext == ".md":
		return decodeText(data), nil

	default:
		e.logger.Warn("no text layer for uploaded file, skipping extraction",
			logger.String("file_name", fileName),
			logger.String("mime_type", mime))
		return "", nil
	}
}

// decodeText decodes bytes as UTF-8, dropping invalid sequences and a
// leading BOM.
func decodeText(data []byte) string {
	s := strings.ToValidUTF8(string(data), "")
	return strings.TrimPrefix(s, "﻿")
}

// scrubBinary keeps the readable runs of a binary container, replacing
// everything else with spaces so the chunker can clean them up later.
func scrubBinary(data []byte) string {
	s := strings.ToValidUTF8(string(data), " ")
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\n' || r == '\t':
			b.WriteRune(r)
		case unicode.IsPrint(r):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return b.String()
}
