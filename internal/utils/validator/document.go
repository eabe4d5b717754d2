package validator

import (
    "errors"
    "fmt"
    "io"
    "mime/multipart"
    "path/filepath"
    "slices"
    "strings"

    "github.com/gabriel-vasile/mimetype"
)

// ErrInvalidFile 上传文件未通过校验
var ErrInvalidFile = errors.New("invalid upload")

// sniffLimit 嗅探读取的字节数, 取 mimetype 库自己的默认上限
const sniffLimit = 3072

// UploadValidator 上传前的文件校验: 大小上限, 扩展名白名单,
// 再嗅探文件头排除扩展名伪装的内容
type UploadValidator struct {
    maxFileSize  int64
    allowedTypes map[string][]string
}

// FileInfo 校验通过后得到的文件信息
type FileInfo struct {
    Extension    string
    Size         int64
    DetectedMime string
}

// 扩展名对应的合法嗅探结果。docx 本质是 zip 包, 内容不全时
// 只能识别到 zip 这一层; 老版 doc 是 OLE 容器
var allowedMimes = map[string][]string{
    ".pdf":  {"application/pdf"},
    ".doc":  {"application/msword", "application/x-ole-storage"},
    ".docx": {"application/vnd.openxmlformats-officedocument.wordprocessingml.document", "application/zip"},
    ".txt":  {"text/plain", "text/html"},
    ".md":   {"text/plain", "text/html", "text/markdown"},
}

// New 创建上传校验器, extensions 是允许的扩展名白名单
func New(maxFileSize int64, extensions []string) *UploadValidator {
    allowed := make(map[string][]string, len(extensions))
    for _, ext := range extensions {
        ext = strings.ToLower(ext)
        allowed[ext] = allowedMimes[ext]
    }
    return &UploadValidator{
        maxFileSize:  maxFileSize,
        allowedTypes: allowed,
    }
}

// Validate 检查上传文件, 通过时返回嗅探出的文件信息。
// 读过文件头后会把读取位置拨回开头
func (v *UploadValidator) Validate(file multipart.File, header *multipart.FileHeader) (*FileInfo, error) {
    if header.Size > v.maxFileSize {
        return nil, fmt.Errorf("%w: file size exceeds maximum limit of %d bytes", ErrInvalidFile, v.maxFileSize)
    }

    ext := strings.ToLower(filepath.Ext(header.Filename))
    mimes, ok := v.allowedTypes[ext]
    if !ok {
        return nil, fmt.Errorf("%w: unsupported file type: %s", ErrInvalidFile, ext)
    }

    mtype, err := detectMime(file)
    if err != nil {
        return nil, fmt.Errorf("failed to detect content type: %w", err)
    }
    if !mimeAllowed(mtype, mimes) {
        return nil, fmt.Errorf("%w: content type %s does not match extension %s", ErrInvalidFile, mtype.String(), ext)
    }

    return &FileInfo{
        Extension:    ext,
        Size:         header.Size,
        DetectedMime: mtype.String(),
    }, nil
}

func detectMime(file multipart.File) (*mimetype.MIME, error) {
    buf := make([]byte, sniffLimit)
    n, err := file.Read(buf)
    if err != nil && err != io.EOF {
        return nil, err
    }
    if _, err := file.Seek(0, io.SeekStart); err != nil {
        return nil, err
    }
    return mimetype.Detect(buf[:n]), nil
}

// 嗅探不出来的内容(octet-stream)一律放行, 解不开的文件抽取器自有兜底;
// 白名单里没登记类型的扩展名也不拦
func mimeAllowed(mtype *mimetype.MIME, mimes []string) bool {
    if len(mimes) == 0 || mtype.Is("application/octet-stream") {
        return true
    }
    return slices.ContainsFunc(mimes, mtype.Is)
}
