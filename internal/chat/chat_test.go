package chat

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"document-chat/internal/models"
	"document-chat/internal/session"
	"document-chat/internal/store"
)

type fakeModel struct {
	prompts []string
	answer  string
	err     error
}

func (f *fakeModel) Generate(ctx context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

func newTestService(t *testing.T, model *fakeModel) (*Service, *store.JSONStore) {
	t.Helper()
	s := store.NewJSONStore(filepath.Join(t.TempDir(), "saved_files.json"))
	return NewService(s, model, Limiter{}), s
}

func TestService_Upload(t *testing.T) {
	svc, _ := newTestService(t, &fakeModel{})
	state := &session.State{ID: "s1"}

	results := svc.Upload(state, []File{
		{Name: "notes.txt", Data: []byte("hello world")},
		{Name: "table.csv", Data: []byte("a,b\n1,2")},
		{Name: "empty.txt", Data: nil},
		{Name: "broken.pdf", Data: []byte("not a pdf")},
	})

	require.Len(t, results, 4)
	assert.Equal(t, models.UploadAccepted, results[0].Status)
	assert.Equal(t, "text", results[0].Format)
	assert.Equal(t, models.UploadUnsupported, results[1].Status)
	assert.Equal(t, models.UploadEmpty, results[2].Status)
	assert.Equal(t, models.UploadFailed, results[3].Status)
	assert.NotEmpty(t, results[3].Error)

	assert.Equal(t, []models.Document{{Name: "notes.txt", Content: "hello world"}}, state.Uploads)
	assert.Equal(t, results, state.Results)
}

func TestService_UploadUnsupportedAddsNothing(t *testing.T) {
	svc, _ := newTestService(t, &fakeModel{})
	state := &session.State{ID: "s1"}

	svc.Upload(state, []File{{Name: "data.csv", Data: []byte("x")}})
	assert.Empty(t, state.Uploads)
}

func TestService_SaveForLater(t *testing.T) {
	ctx := context.Background()
	svc, s := newTestService(t, &fakeModel{})
	state := &session.State{ID: "s1", Uploads: []models.Document{{Name: "a", Content: "X"}, {Name: "b", Content: "Y"}}}

	doc, err := svc.SaveForLater(ctx, state, 1)
	require.NoError(t, err)
	assert.Equal(t, "b", doc.Name)

	saved, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.Document{{Name: "b", Content: "Y"}}, saved)

	_, err = svc.SaveForLater(ctx, state, 5)
	assert.ErrorIs(t, err, ErrNoSuchUpload)
}

func TestService_Ask(t *testing.T) {
	ctx := context.Background()
	model := &fakeModel{answer: "42"}
	svc, s := newTestService(t, model)
	require.NoError(t, s.Save(ctx, []models.Document{{Name: "a", Content: "X"}}))
	state := &session.State{ID: "s1", Uploads: []models.Document{{Name: "b", Content: "Y"}}}

	res, err := svc.Ask(ctx, state, "Q?")
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.Equal(t, []string{"Based on the uploaded documents:\nX\nY\n\nQ?"}, model.prompts)
	assert.Equal(t, "42", res.Content)
	assert.False(t, res.Truncated)
	assert.Equal(t, "42", state.Response)
	assert.True(t, state.HasResponse)
}

func TestService_AskBlankQuestionIsNoop(t *testing.T) {
	model := &fakeModel{answer: "new"}
	svc, _ := newTestService(t, model)
	state := &session.State{ID: "s1", Response: "previous", HasResponse: true}

	res, err := svc.Ask(context.Background(), state, "   ")
	require.NoError(t, err)
	assert.Nil(t, res)
	assert.Empty(t, model.prompts)
	assert.Equal(t, "previous", state.Response)
}

func TestService_AskModelFailureKeepsAnswer(t *testing.T) {
	modelErr := models.NewError(models.KindModel, "generate", "gpt-3.5-turbo", errors.New("401 unauthorized"))
	svc, _ := newTestService(t, &fakeModel{err: modelErr})
	state := &session.State{ID: "s1", Response: "previous", HasResponse: true}

	_, err := svc.Ask(context.Background(), state, "Q?")
	require.Error(t, err)
	assert.True(t, models.IsKind(err, models.KindModel))
	assert.Equal(t, "previous", state.Response)
}

func TestService_AskStoreFailure(t *testing.T) {
	// a directory cannot be read as the store file
	model := &fakeModel{answer: "x"}
	svc := NewService(store.NewJSONStore(t.TempDir()), model, Limiter{})
	state := &session.State{ID: "s1"}

	_, err := svc.Ask(context.Background(), state, "Q?")
	require.Error(t, err)
	assert.True(t, models.IsKind(err, models.KindStoreRead))
	assert.Empty(t, model.prompts)
}

func TestService_AskTruncates(t *testing.T) {
	model := &fakeModel{answer: "ok"}
	s := store.NewJSONStore(filepath.Join(t.TempDir(), "saved_files.json"))
	svc := NewService(s, model, Limiter{MaxChars: 60})
	state := &session.State{ID: "s1", Uploads: []models.Document{{Content: string(make([]byte, 500))}}}

	res, err := svc.Ask(context.Background(), state, "Q?")
	require.NoError(t, err)
	assert.True(t, res.Truncated)
	require.Len(t, model.prompts, 1)
	assert.LessOrEqual(t, len(model.prompts[0]), 60)
}

func TestService_UploadKeepsWhitespaceOnlyText(t *testing.T) {
	svc, _ := newTestService(t, &fakeModel{})
	state := &session.State{ID: "s1"}

	results := svc.Upload(state, []File{{Name: "blank.txt", Data: []byte(" \n")}})
	require.Len(t, results, 1)
	assert.Equal(t, models.UploadAccepted, results[0].Status)
	assert.Equal(t, []models.Document{{Name: "blank.txt", Content: " \n"}}, state.Uploads)
}
