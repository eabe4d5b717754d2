// Package chunker splits extracted document text into ordered, overlapping,
// roughly fixed-size pieces suitable for independent relevance scoring.
package chunker

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultChunkSize is the default target size of a piece, in characters.
const DefaultChunkSize = 800

// DefaultOverlap is the default number of characters shared between
// consecutive pieces.
const DefaultOverlap = 100

// Piece is one slice of a document's text. Index is zero-based and defines
// the document-local order. CharCount is the rune count of Content.
type Piece struct {
	Index     int
	Content   string
	CharCount int
}

// Chunker carries the windowing parameters. Sizes are rune counts, so
// Chinese and Latin text are budgeted alike.
type Chunker struct {
	chunkSize int
	overlap   int
}

// Option configures a Chunker.
type Option func(*Chunker)

// WithChunkSize sets the target piece size in characters.
func WithChunkSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between consecutive pieces in characters.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

// New creates a Chunker with the given options.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultOverlap,
	}

	for _, opt := range opts {
		opt(c)
	}

	// Overlap must stay below the chunk size or the window cannot advance.
	if c.overlap >= c.chunkSize {
		c.overlap = c.chunkSize / 4
	}

	return c
}

var multiNewline = regexp.MustCompile(`\n{3,}`)

// Clean normalizes paragraph boundaries (three or more consecutive newlines
// become exactly two) and trims surrounding whitespace.
func Clean(text string) string {
	return strings.TrimSpace(multiNewline.ReplaceAllString(text, "\n\n"))
}

// Split cleans the text and walks it left to right, cutting a piece per
// window. Each window prefers to end at a paragraph break, then at a
// sentence end, and falls back to a hard cut at the target size. Boundary
// cuts are only accepted past 30% of the window, which keeps pathologically
// small pieces out. The next window starts overlap characters before the
// previous cut.
func (c *Chunker) Split(text string) []Piece {
	cleaned := Clean(text)
	if cleaned == "" {
		return nil
	}

	runes := []rune(cleaned)
	total := len(runes)
	if total <= c.chunkSize {
		return []Piece{{Index: 0, Content: cleaned, CharCount: total}}
	}

	step := c.chunkSize - c.overlap
	pieces := make([]Piece, 0, total/step+1)

	index := 0
	start := 0
	for start < total {
		cut := start + c.chunkSize
		if cut >= total {
			cut = total
		} else {
			cut = c.findCut(runes, start, cut)
		}

		content := strings.TrimSpace(string(runes[start:cut]))
		if content != "" {
			pieces = append(pieces, Piece{
				Index:     index,
				Content:   content,
				CharCount: utf8.RuneCountInString(content),
			})
			index++
		}

		if cut >= total {
			break
		}

		// Rewind by the overlap, but never give up forward progress.
		next := cut - c.overlap
		if next <= start {
			next = cut
		}
		start = next
	}

	return pieces
}

// findCut searches backward inside the window [start, limit) for the best
// boundary: a paragraph break first, then a sentence end. Both are accepted
// only past 30% of the window. Failing both, the fixed-size cut stands.
func (c *Chunker) findCut(runes []rune, start, limit int) int {
	floor := start + c.chunkSize*3/10

	for p := limit - 2; p > floor; p-- {
		if runes[p] == '\n' && runes[p+1] == '\n' {
			return p + 2
		}
	}

	for p := limit - 1; p > floor; p-- {
		if isSentenceEnd(runes, p) {
			return p + 1
		}
	}

	return limit
}

// isSentenceEnd reports whether the rune at p ends a sentence. CJK
// full-width marks count on their own; Latin marks only when a space
// follows, so decimals like 3.14 do not split.
func isSentenceEnd(runes []rune, p int) bool {
	switch runes[p] {
	case '。', '！', '？':
		return true
	case '.', '!', '?':
		return p+1 < len(runes) && runes[p+1] == ' '
	}
	return false
}
