package generation

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moyuteach/lessongen/internal/llm"
	"github.com/moyuteach/lessongen/internal/models"
	"github.com/moyuteach/lessongen/internal/store"
	"github.com/moyuteach/lessongen/pkg/logger"
)

type fakeGenStore struct {
	inserted  []*models.Generation
	insertErr error
}

func (f *fakeGenStore) Insert(ctx context.Context, gen *models.Generation) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserted = append(f.inserted, gen)
	return nil
}

func (f *fakeGenStore) GetByID(ctx context.Context, userID, id string) (*models.Generation, error) {
	for _, g := range f.inserted {
		if g.ID == id && g.UserID == userID {
			return g, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeGenStore) ListByUser(ctx context.Context, userID string, page, limit int) ([]*models.Generation, error) {
	var out []*models.Generation
	for _, g := range f.inserted {
		if g.UserID == userID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (f *fakeGenStore) CountByUser(ctx context.Context, userID string) (int64, error) {
	var n int64
	for _, g := range f.inserted {
		if g.UserID == userID {
			n++
		}
	}
	return n, nil
}

type fakeDocSource struct {
	docs map[string]*models.Document
	err  error
}

func (f *fakeDocSource) GetByID(ctx context.Context, userID, id string) (*models.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	doc, ok := f.docs[id]
	if !ok || doc.UserID != userID {
		return nil, store.ErrNotFound
	}
	return doc, nil
}

type fakeSelector struct {
	chunks    []models.RetrievedChunk
	err       error
	gotUserID string
	gotDocIDs []string
	gotQuery  string
	gotNames  map[string]string
	calls     int
}

func (f *fakeSelector) Select(ctx context.Context, userID string, documentIDs []string, query string, names map[string]string) ([]models.RetrievedChunk, error) {
	f.calls++
	f.gotUserID = userID
	f.gotDocIDs = documentIDs
	f.gotQuery = query
	f.gotNames = names
	if f.err != nil {
		return nil, f.err
	}
	return f.chunks, nil
}

type fakeCompleter struct {
	resp  *llm.CompletionResponse
	err   error
	got   llm.CompletionRequest
	calls int
}

func (f *fakeCompleter) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	f.calls++
	f.got = req
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

type genFixture struct {
	svc       Service
	gens      *fakeGenStore
	docs      *fakeDocSource
	selector  *fakeSelector
	completer *fakeCompleter
}

func newGenFixture(t *testing.T) *genFixture {
	t.Helper()
	f := &genFixture{
		gens: &fakeGenStore{},
		docs: &fakeDocSource{docs: make(map[string]*models.Document)},
		selector: &fakeSelector{},
		completer: &fakeCompleter{
			resp: &llm.CompletionResponse{
				Content: "生成的教案内容",
				Model:   "deepseek-chat",
				Usage:   llm.Usage{PromptTokens: 320, CompletionTokens: 1280},
			},
		},
	}
	f.svc = NewService(f.gens, f.docs, f.selector, f.completer, logger.NewTestLogger())
	return f
}

func TestCreate_RunsFullPipeline(t *testing.T) {
	f := newGenFixture(t)
	f.docs.docs["doc-1"] = &models.Document{ID: "doc-1", UserID: "user-1", FileName: "数学教案.pdf"}
	f.selector.chunks = []models.RetrievedChunk{
		{DocumentID: "doc-1", FileName: "数学教案.pdf", Index: 0, Content: "分数表示把一个整体平均分成若干份。", Score: 0.1234},
	}

	gen, err := f.svc.Create(context.Background(), "user-1", &CreateRequest{
		ResourceType: models.ResourceLessonPlan,
		Topic:        "分数的认识",
		Requirement:  "小学三年级",
		DocumentIDs:  []string{"doc-1", "doc-1"},
	})
	require.NoError(t, err)

	// 检索用去重后的 ID, 查询是主题加要求
	assert.Equal(t, "user-1", f.selector.gotUserID)
	assert.Equal(t, []string{"doc-1"}, f.selector.gotDocIDs)
	assert.Equal(t, "分数的认识 小学三年级", f.selector.gotQuery)
	assert.Equal(t, map[string]string{"doc-1": "数学教案.pdf"}, f.selector.gotNames)

	assert.Contains(t, f.completer.got.SystemPrompt, "教案")
	assert.Contains(t, f.completer.got.UserPrompt, "主题：分数的认识")
	assert.Contains(t, f.completer.got.UserPrompt, "补充要求：小学三年级")
	assert.Contains(t, f.completer.got.UserPrompt, "分数表示把一个整体平均分成若干份。")
	assert.Contains(t, f.completer.got.UserPrompt, "数学教案.pdf")

	assert.Equal(t, "生成的教案内容", gen.Content)
	assert.Equal(t, "deepseek-chat", gen.Model)
	assert.Equal(t, 320, gen.PromptTokens)
	assert.Equal(t, 1280, gen.CompletionTokens)
	assert.Equal(t, []string{"doc-1"}, gen.DocumentIDs)

	require.Len(t, gen.Retrieved, 1)
	ref := gen.Retrieved[0]
	assert.Equal(t, "数学教案.pdf", ref.FileName)
	assert.Equal(t, 0, ref.Index)
	assert.Equal(t, 0.12, ref.Score)

	require.Len(t, f.gens.inserted, 1)
	assert.Equal(t, gen.ID, f.gens.inserted[0].ID)
}

func TestCreate_UnknownResourceTypeIsRejected(t *testing.T) {
	f := newGenFixture(t)

	_, err := f.svc.Create(context.Background(), "user-1", &CreateRequest{
		ResourceType: models.ResourceType("poem"),
		Topic:        "春天",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.Equal(t, 0, f.completer.calls)
}

func TestCreate_EmptyTopicIsRejected(t *testing.T) {
	f := newGenFixture(t)

	_, err := f.svc.Create(context.Background(), "user-1", &CreateRequest{
		ResourceType: models.ResourceLessonPlan,
		Topic:        "   ",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestCreate_MissingDocumentsAreDropped(t *testing.T) {
	f := newGenFixture(t)
	f.docs.docs["doc-1"] = &models.Document{ID: "doc-1", UserID: "user-1", FileName: "讲义.txt"}

	_, err := f.svc.Create(context.Background(), "user-1", &CreateRequest{
		ResourceType: models.ResourceExercise,
		Topic:        "分数加法",
		DocumentIDs:  []string{"doc-1", "ghost", "doc-of-other-user"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"doc-1"}, f.selector.gotDocIDs)
	require.Len(t, f.gens.inserted, 1)
	assert.Equal(t, []string{"doc-1"}, f.gens.inserted[0].DocumentIDs)
}

func TestCreate_WithoutDocumentsSkipsReferenceBlock(t *testing.T) {
	f := newGenFixture(t)

	gen, err := f.svc.Create(context.Background(), "user-1", &CreateRequest{
		ResourceType: models.ResourceStudentComment,
		Topic:        "王小明本学期表现",
	})
	require.NoError(t, err)

	assert.Equal(t, "主题：王小明本学期表现\n", f.completer.got.UserPrompt)
	assert.Empty(t, gen.Retrieved)
	assert.Empty(t, gen.DocumentIDs)
}

func TestCreate_LLMFailurePersistsNothing(t *testing.T) {
	f := newGenFixture(t)
	f.completer.err = errors.New("rate limited")

	_, err := f.svc.Create(context.Background(), "user-1", &CreateRequest{
		ResourceType: models.ResourceLessonPlan,
		Topic:        "分数的认识",
	})
	require.Error(t, err)
	assert.Empty(t, f.gens.inserted)
}

func TestCreate_SelectorErrorStopsBeforeLLM(t *testing.T) {
	f := newGenFixture(t)
	f.docs.docs["doc-1"] = &models.Document{ID: "doc-1", UserID: "user-1", FileName: "讲义.txt"}
	f.selector.err = errors.New("mongo timeout")

	_, err := f.svc.Create(context.Background(), "user-1", &CreateRequest{
		ResourceType: models.ResourceLessonPlan,
		Topic:        "分数的认识",
		DocumentIDs:  []string{"doc-1"},
	})
	require.Error(t, err)
	assert.Equal(t, 0, f.completer.calls)
	assert.Empty(t, f.gens.inserted)
}

func TestCreate_InsertFailureSurfaces(t *testing.T) {
	f := newGenFixture(t)
	f.gens.insertErr = errors.New("mongo down")

	_, err := f.svc.Create(context.Background(), "user-1", &CreateRequest{
		ResourceType: models.ResourcePPTOutline,
		Topic:        "光合作用",
	})
	require.Error(t, err)
}

func TestCreate_SnapshotTruncatesPreview(t *testing.T) {
	f := newGenFixture(t)
	f.docs.docs["doc-1"] = &models.Document{ID: "doc-1", UserID: "user-1", FileName: "讲义.txt"}
	f.selector.chunks = []models.RetrievedChunk{
		{DocumentID: "doc-1", FileName: "讲义.txt", Index: 2, Content: strings.Repeat("分", 150), Score: 1.0},
	}

	gen, err := f.svc.Create(context.Background(), "user-1", &CreateRequest{
		ResourceType: models.ResourceLessonPlan,
		Topic:        "分数的认识",
		DocumentIDs:  []string{"doc-1"},
	})
	require.NoError(t, err)

	require.Len(t, gen.Retrieved, 1)
	assert.Equal(t, 100, utf8.RuneCountInString(gen.Retrieved[0].Preview))
}

func TestGet_IsOwnerScoped(t *testing.T) {
	f := newGenFixture(t)
	f.gens.inserted = []*models.Generation{{ID: "gen-1", UserID: "user-1", Content: "内容"}}

	got, err := f.svc.Get(context.Background(), "user-1", "gen-1")
	require.NoError(t, err)
	assert.Equal(t, "内容", got.Content)

	_, err = f.svc.Get(context.Background(), "user-2", "gen-1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestTemplateTableCoversEveryResourceType(t *testing.T) {
	types := []models.ResourceType{
		models.ResourceLessonPlan,
		models.ResourceExercise,
		models.ResourcePPTOutline,
		models.ResourceStudentComment,
	}
	for _, rt := range types {
		tpl, ok := templateFor(rt)
		require.True(t, ok, "no template registered for %s", rt)
		assert.NotEmpty(t, tpl.system, "empty system prompt for %s", rt)
	}

	_, ok := templateFor(models.ResourceType("unknown"))
	assert.False(t, ok)
}
