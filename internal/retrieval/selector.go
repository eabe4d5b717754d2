// Package retrieval implements the query-time half of the pipeline:
// tokenizing a topic into terms, scoring stored chunks against them by
// lexical overlap, and assembling the best chunks into a prompt context
// block under fixed chunk and character caps. Scoring is pure term
// matching, no embeddings involved, so results are fully deterministic
// and cheap enough to run on every generation request.
package retrieval

import (
	"context"
	"fmt"
	"sort"

	"github.com/moyuteach/lessongen/internal/models"
)

const (
	DefaultMaxChunks      = 20
	DefaultMaxChars       = 6000
	DefaultFallbackPerDoc = 3
)

// ChunkSource is the slice of the chunk store the selector depends on.
type ChunkSource interface {
	FindByDocumentIDs(ctx context.Context, userID string, documentIDs []string) ([]models.Chunk, error)
}

// Selector picks the chunks worth sending to the model for a query.
type Selector struct {
	source         ChunkSource
	maxChunks      int
	maxChars       int
	fallbackPerDoc int
}

type SelectorOption func(*Selector)

// WithMaxChunks caps how many chunks a single selection may return.
func WithMaxChunks(n int) SelectorOption {
	return func(s *Selector) {
		if n > 0 {
			s.maxChunks = n
		}
	}
}

// WithMaxChars caps the total character count of a selection. Counted in
// runes, consistent with the chunker.
func WithMaxChars(n int) SelectorOption {
	return func(s *Selector) {
		if n > 0 {
			s.maxChars = n
		}
	}
}

// WithFallbackPerDoc sets how many leading chunks per document the
// fallback takes when no chunk matches the query.
func WithFallbackPerDoc(n int) SelectorOption {
	return func(s *Selector) {
		if n > 0 {
			s.fallbackPerDoc = n
		}
	}
}

func NewSelector(source ChunkSource, opts ...SelectorOption) *Selector {
	s := &Selector{
		source:         source,
		maxChunks:      DefaultMaxChunks,
		maxChars:       DefaultMaxChars,
		fallbackPerDoc: DefaultFallbackPerDoc,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type scoredChunk struct {
	chunk models.Chunk
	score float64
}

// Select fetches the chunks of the given documents, scores them against
// the query text and returns the winners in selection order. names maps
// document IDs to display names carried onto the results.
//
// Chunks are ranked by score, ties broken by document ID then chunk
// index, and accepted greedily until either budget is hit. Once any
// chunk has been accepted, the first zero-scored one ends the walk. If
// no chunk matches the query at all, the selection falls back to the
// leading chunks of each document so generation still sees material.
func (s *Selector) Select(ctx context.Context, userID string, documentIDs []string, query string, names map[string]string) ([]models.RetrievedChunk, error) {
	if len(documentIDs) == 0 {
		return nil, nil
	}

	chunks, err := s.source.FindByDocumentIDs(ctx, userID, documentIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load chunks: %w", err)
	}
	if len(chunks) == 0 {
		return nil, nil
	}

	queryTerms := QueryTerms(query)
	scored := make([]scoredChunk, len(chunks))
	for i, c := range chunks {
		scored[i] = scoredChunk{chunk: c, score: Score(c.Content, queryTerms)}
	}
	// (score, 文档ID, 序号) 构成全序, 排序结果与存储返回顺序无关
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		if scored[i].chunk.DocumentID != scored[j].chunk.DocumentID {
			return scored[i].chunk.DocumentID < scored[j].chunk.DocumentID
		}
		return scored[i].chunk.Index < scored[j].chunk.Index
	})

	selected := make([]models.RetrievedChunk, 0, s.maxChunks)
	chars := 0
	for _, sc := range scored {
		if len(selected) >= s.maxChunks {
			break
		}
		if chars+sc.chunk.CharCount > s.maxChars {
			break
		}
		if sc.score == 0 && len(selected) > 0 {
			break
		}
		selected = append(selected, s.retrieved(sc.chunk, sc.score, names))
		chars += sc.chunk.CharCount
	}

	for _, rc := range selected {
		if rc.Score > 0 {
			return selected, nil
		}
	}
	return s.fallback(chunks, documentIDs, names), nil
}

// fallback returns the first chunks of each document, in the caller's
// document order, when scoring found nothing. Scores stay zero so the
// caller can tell retrieval matched nothing.
func (s *Selector) fallback(chunks []models.Chunk, documentIDs []string, names map[string]string) []models.RetrievedChunk {
	byDoc := make(map[string][]models.Chunk)
	for _, c := range chunks {
		byDoc[c.DocumentID] = append(byDoc[c.DocumentID], c)
	}

	out := make([]models.RetrievedChunk, 0, s.maxChunks)
	chars := 0
	seen := make(map[string]struct{}, len(documentIDs))
	for _, id := range documentIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		docChunks := byDoc[id]
		if len(docChunks) == 0 {
			continue
		}
		sort.Slice(docChunks, func(i, j int) bool {
			return docChunks[i].Index < docChunks[j].Index
		})

		taken := 0
		for _, c := range docChunks {
			if taken >= s.fallbackPerDoc {
				break
			}
			if len(out) >= s.maxChunks {
				return out
			}
			if chars+c.CharCount > s.maxChars {
				return out
			}
			out = append(out, s.retrieved(c, 0, names))
			chars += c.CharCount
			taken++
		}
	}
	return out
}

func (s *Selector) retrieved(c models.Chunk, score float64, names map[string]string) models.RetrievedChunk {
	name, ok := names[c.DocumentID]
	if !ok {
		name = c.DocumentID
	}
	return models.RetrievedChunk{
		DocumentID: c.DocumentID,
		FileName:   name,
		Index:      c.Index,
		Content:    c.Content,
		Score:      score,
	}
}
