package extract

import (
	"bytes"
	"context"
	"strings"

	"github.com/unidoc/unioffice/v2/document"
)

// DocxReader extracts paragraph text from .docx files. Runs inside a
// paragraph are concatenated, paragraphs are separated by newlines.
// Tables, headers and embedded objects are ignored.
type DocxReader struct{}

func NewDocxReader() *DocxReader {
	return &DocxReader{}
}

func (d *DocxReader) DecodeDocx(ctx context.Context, data []byte) (string, error) {
	doc, err := document.Read(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, p := range doc.Paragraphs() {
		for _, r := range p.Runs() {
			b.WriteString(r.Text())
		}
		b.WriteString("\n")
	}
	return b.String(), nil
}
