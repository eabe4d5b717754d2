package retrieval

import (
	"context"
	"errors"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moyuteach/lessongen/internal/models"
)

type fakeChunkSource struct {
	chunks []models.Chunk
	err    error
	calls  int
}

func (f *fakeChunkSource) FindByDocumentIDs(ctx context.Context, userID string, documentIDs []string) ([]models.Chunk, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	var out []models.Chunk
	for _, c := range f.chunks {
		for _, id := range documentIDs {
			if c.DocumentID == id {
				out = append(out, c)
				break
			}
		}
	}
	return out, nil
}

func mkChunk(docID string, index int, content string) models.Chunk {
	return models.Chunk{
		ID:         docID + "-" + string(rune('0'+index)),
		DocumentID: docID,
		UserID:     "u1",
		Index:      index,
		Content:    content,
		CharCount:  utf8.RuneCountInString(content),
	}
}

func TestSelector_EmptyDocumentIDs(t *testing.T) {
	source := &fakeChunkSource{}
	s := NewSelector(source)

	got, err := s.Select(context.Background(), "u1", nil, "分数教学", nil)

	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Zero(t, source.calls, "store should not be touched without document ids")
}

func TestSelector_StoreErrorPropagates(t *testing.T) {
	boom := errors.New("connection reset")
	source := &fakeChunkSource{err: boom}
	s := NewSelector(source)

	_, err := s.Select(context.Background(), "u1", []string{"doc1"}, "分数教学", nil)

	assert.ErrorIs(t, err, boom)
}

func TestSelector_RanksByScore(t *testing.T) {
	source := &fakeChunkSource{chunks: []models.Chunk{
		mkChunk("doc1", 0, "体育课安排在周三下午进行"),
		mkChunk("doc1", 1, "分数加法要先通分再相加"),
		mkChunk("doc2", 0, "分数加法和分数减法都属于分数运算"),
	}}
	s := NewSelector(source)
	names := map[string]string{"doc1": "教案.pdf", "doc2": "练习.docx"}

	got, err := s.Select(context.Background(), "u1", []string{"doc1", "doc2"}, "分数加法", names)

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "doc2", got[0].DocumentID)
	assert.Equal(t, "练习.docx", got[0].FileName)
	assert.Equal(t, "doc1", got[1].DocumentID)
	assert.Equal(t, 1, got[1].Index)
	assert.Greater(t, got[0].Score, got[1].Score)
	assert.Greater(t, got[1].Score, 0.0)
}

func TestSelector_TieBreakIsDeterministic(t *testing.T) {
	// 三个分块内容一致, 得分相同, 按 (文档ID, 序号) 决出顺序
	source := &fakeChunkSource{chunks: []models.Chunk{
		mkChunk("doc2", 1, "分数教学设计"),
		mkChunk("doc1", 3, "分数教学设计"),
		mkChunk("doc1", 0, "分数教学设计"),
	}}
	s := NewSelector(source)

	first, err := s.Select(context.Background(), "u1", []string{"doc1", "doc2"}, "分数", nil)
	require.NoError(t, err)
	second, err := s.Select(context.Background(), "u1", []string{"doc1", "doc2"}, "分数", nil)
	require.NoError(t, err)

	require.Len(t, first, 3)
	assert.Equal(t, "doc1", first[0].DocumentID)
	assert.Equal(t, 0, first[0].Index)
	assert.Equal(t, "doc1", first[1].DocumentID)
	assert.Equal(t, 3, first[1].Index)
	assert.Equal(t, "doc2", first[2].DocumentID)
	assert.Equal(t, first, second)
}

func TestSelector_MaxChunksBudget(t *testing.T) {
	source := &fakeChunkSource{chunks: []models.Chunk{
		mkChunk("doc1", 0, "分数教学的重点"),
		mkChunk("doc1", 1, "分数教学的重点"),
		mkChunk("doc1", 2, "分数教学的重点"),
		mkChunk("doc1", 3, "分数教学的重点"),
	}}
	s := NewSelector(source, WithMaxChunks(2))

	got, err := s.Select(context.Background(), "u1", []string{"doc1"}, "分数教学", nil)

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 0, got[0].Index)
	assert.Equal(t, 1, got[1].Index)
}

func TestSelector_CharBudgetStopsSelection(t *testing.T) {
	source := &fakeChunkSource{chunks: []models.Chunk{
		mkChunk("doc1", 0, "分数分数分数分数分数"),
		mkChunk("doc1", 1, "分数加法练习题目示例"),
		mkChunk("doc1", 2, "分数"),
	}}
	s := NewSelector(source, WithMaxChars(11))

	got, err := s.Select(context.Background(), "u1", []string{"doc1"}, "分数", nil)

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 0, got[0].Index)
}

func TestSelector_ZeroScoreStopsAfterFirstAccept(t *testing.T) {
	source := &fakeChunkSource{chunks: []models.Chunk{
		mkChunk("doc1", 0, "分数加法的教学设计"),
		mkChunk("doc1", 1, "体育课安排在周三"),
		mkChunk("doc1", 2, "音乐课安排在周五"),
	}}
	s := NewSelector(source)

	got, err := s.Select(context.Background(), "u1", []string{"doc1"}, "分数加法", nil)

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 0, got[0].Index)
	assert.Greater(t, got[0].Score, 0.0)
}

func TestSelector_FallbackWhenNothingMatches(t *testing.T) {
	source := &fakeChunkSource{chunks: []models.Chunk{
		mkChunk("doc1", 0, "体育课热身活动"),
		mkChunk("doc1", 1, "体育课热身活动"),
		mkChunk("doc1", 2, "体育课热身活动"),
		mkChunk("doc1", 3, "体育课热身活动"),
		mkChunk("doc1", 4, "体育课热身活动"),
		mkChunk("doc2", 0, "美术课材料清单"),
		mkChunk("doc2", 1, "美术课材料清单"),
	}}
	s := NewSelector(source)

	// 查询与所有分块都不相关, 退回每篇文档开头的分块
	got, err := s.Select(context.Background(), "u1", []string{"doc2", "doc1"}, "英语口语练习", nil)

	require.NoError(t, err)
	require.Len(t, got, 5)
	assert.Equal(t, "doc2", got[0].DocumentID)
	assert.Equal(t, 0, got[0].Index)
	assert.Equal(t, "doc2", got[1].DocumentID)
	assert.Equal(t, 1, got[1].Index)
	assert.Equal(t, "doc1", got[2].DocumentID)
	assert.Equal(t, 0, got[2].Index)
	assert.Equal(t, 2, got[4].Index)
	for _, rc := range got {
		assert.Zero(t, rc.Score)
	}
}

func TestSelector_FallbackAlsoRunsForSingleDocument(t *testing.T) {
	source := &fakeChunkSource{chunks: []models.Chunk{
		mkChunk("doc1", 0, "体育课热身活动"),
		mkChunk("doc1", 1, "体育课热身活动"),
		mkChunk("doc1", 2, "体育课热身活动"),
		mkChunk("doc1", 3, "体育课热身活动"),
		mkChunk("doc1", 4, "体育课热身活动"),
	}}
	s := NewSelector(source)

	got, err := s.Select(context.Background(), "u1", []string{"doc1"}, "英语口语练习", nil)

	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, rc := range got {
		assert.Equal(t, i, rc.Index)
		assert.Zero(t, rc.Score)
	}
}

func TestSelector_FallbackRespectsCharBudget(t *testing.T) {
	source := &fakeChunkSource{chunks: []models.Chunk{
		mkChunk("doc1", 0, "材材材材材材材材材材"),
		mkChunk("doc1", 1, "材材材材材材材材材材"),
		mkChunk("doc1", 2, "材材材材材材材材材材"),
	}}
	s := NewSelector(source, WithMaxChars(25))

	got, err := s.Select(context.Background(), "u1", []string{"doc1"}, "英语口语", nil)

	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestSelector_UnknownDocumentNameFallsBackToID(t *testing.T) {
	source := &fakeChunkSource{chunks: []models.Chunk{
		mkChunk("doc1", 0, "分数加法的教学设计"),
	}}
	s := NewSelector(source)

	got, err := s.Select(context.Background(), "u1", []string{"doc1"}, "分数加法", map[string]string{})

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "doc1", got[0].FileName)
}
