package extract

import (
    "bytes"
    "context"
    "fmt"
    "strings"

    "github.com/ledongthuc/pdf"
    "golang.org/x/sync/errgroup"
)

// PDFReader extracts the embedded text layer of a PDF. Pages are decoded
// in parallel but reassembled in page order. Scanned PDFs without a text
// layer produce an empty string.
type PDFReader struct {
    maxWorkers int
}

func NewPDFReader() *PDFReader {
    return &PDFReader{
        maxWorkers: 4,
    }
}

func (p *PDFReader) DecodePDF(ctx context.Context, data []byte) (string, error) {
    // pdf.NewReader 需要 io.ReaderAt
    reader := bytes.NewReader(data)
    pdfReader, err := pdf.NewReader(reader, reader.Size())
    if err != nil {
        return "", err
    }

    numPages := pdfReader.NumPage()
    pages := make([]string, numPages)

    g, ctx := errgroup.WithContext(ctx)
    sem := make(chan struct{}, p.maxWorkers)

    for i := 1; i <= numPages; i++ {
        pageNum := i
        g.Go(func() error {
            // 使用信号量控制并发
            select {
            case sem <- struct{}{}:
                defer func() { <-sem }()
            case <-ctx.Done():
                return ctx.Err()
            }

            page := pdfReader.Page(pageNum)
            if page.V.IsNull() {
                return nil
            }

            text, err := page.GetPlainText(nil)
            if err != nil {
                return fmt.Errorf("failed to get text from page %d: %w", pageNum, err)
            }

            // 每个页面写入独立下标, 无需加锁
            pages[pageNum-1] = text
            return nil
        })
    }

    if err := g.Wait(); err != nil {
        return "", err
    }

    nonEmpty := make([]string, 0, numPages)
    for _, page := range pages {
        if trimmed := strings.TrimSpace(page); trimmed != "" {
            nonEmpty = append(nonEmpty, trimmed)
        }
    }
    return strings.Join(nonEmpty, "\n\n"), nil
}
