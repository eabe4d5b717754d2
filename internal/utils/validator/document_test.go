package validator

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sniffFile struct {
	*bytes.Reader
}

func (sniffFile) Close() error { return nil }

func fileHeader(name string, size int64) *multipart.FileHeader {
	return &multipart.FileHeader{
		Filename: name,
		Size:     size,
		Header:   textproto.MIMEHeader{},
	}
}

func newTestValidator() *UploadValidator {
	return New(1<<20, []string{".pdf", ".doc", ".docx", ".txt", ".md"})
}

func TestValidate_AcceptsTextUpload(t *testing.T) {
	v := newTestValidator()
	content := []byte("三年级数学上册的教学笔记")
	f := sniffFile{bytes.NewReader(content)}

	info, err := v.Validate(f, fileHeader("笔记.txt", int64(len(content))))
	require.NoError(t, err)
	assert.Equal(t, ".txt", info.Extension)
	assert.True(t, strings.HasPrefix(info.DetectedMime, "text/plain"), "got %q", info.DetectedMime)
}

func TestValidate_AcceptsPDFMagic(t *testing.T) {
	v := newTestValidator()
	content := []byte("%PDF-1.7\n%âãÏÓ\n1 0 obj")
	f := sniffFile{bytes.NewReader(content)}

	info, err := v.Validate(f, fileHeader("分数讲义.pdf", int64(len(content))))
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", info.DetectedMime)
}

func TestValidate_AcceptsDocxZipMagic(t *testing.T) {
	v := newTestValidator()
	content := []byte("PK\x03\x04rest-of-archive")
	f := sniffFile{bytes.NewReader(content)}

	_, err := v.Validate(f, fileHeader("教案.docx", int64(len(content))))
	require.NoError(t, err)
}

func TestValidate_RejectsOversizedFile(t *testing.T) {
	v := newTestValidator()
	f := sniffFile{bytes.NewReader([]byte("x"))}

	_, err := v.Validate(f, fileHeader("big.pdf", 2<<20))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidFile)
	assert.Contains(t, err.Error(), "exceeds maximum limit")
}

func TestValidate_RejectsUnlistedExtension(t *testing.T) {
	v := newTestValidator()
	f := sniffFile{bytes.NewReader([]byte("MZ"))}

	_, err := v.Validate(f, fileHeader("setup.exe", 2))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidFile)
	assert.Contains(t, err.Error(), ".exe")
}

func TestValidate_RejectsDisguisedContent(t *testing.T) {
	v := newTestValidator()
	// 纯文本改名成 .pdf, 嗅探出 text/plain 与扩展名冲突
	content := []byte("这只是一段普通文本, 不是 PDF")
	f := sniffFile{bytes.NewReader(content)}

	_, err := v.Validate(f, fileHeader("假装.pdf", int64(len(content))))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidFile)
	assert.Contains(t, err.Error(), "does not match extension")
}

func TestValidate_AcceptsLegacyDocHeader(t *testing.T) {
	v := newTestValidator()
	// 老版 doc 的 OLE 容器头
	content := []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1, 0x00, 0x00}
	f := sniffFile{bytes.NewReader(content)}

	_, err := v.Validate(f, fileHeader("老教案.doc", int64(len(content))))
	require.NoError(t, err)
}

func TestValidate_AllowsUndetectableContent(t *testing.T) {
	v := newTestValidator()
	// 嗅探不出类型的内容放行, 交给后面的抽取器处理
	content := []byte{0x81, 0x82, 0x83, 0x84}
	f := sniffFile{bytes.NewReader(content)}

	_, err := v.Validate(f, fileHeader("未知.pdf", int64(len(content))))
	require.NoError(t, err)
}

func TestValidate_ResetsReadPosition(t *testing.T) {
	v := newTestValidator()
	content := []byte("%PDF-1.4 content body")
	f := sniffFile{bytes.NewReader(content)}

	_, err := v.Validate(f, fileHeader("讲义.pdf", int64(len(content))))
	require.NoError(t, err)

	// 校验之后调用方还要把整个文件写进对象存储
	rest, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, content, rest)
}
