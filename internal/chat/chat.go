package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"document-chat/internal/llmservice"
	"document-chat/internal/models"
	"document-chat/internal/parser"
	"document-chat/internal/session"
	"document-chat/internal/store"
)

// ErrNoSuchUpload is returned when saving an upload index the session does not have.
var ErrNoSuchUpload = errors.New("no such uploaded file")

// File is one raw upload.
type File struct {
	Name string
	Data []byte
}

// Service runs the upload, save and submit interactions of a session.
type Service struct {
	store   store.Store
	model   llmservice.Generator
	limiter Limiter
}

func NewService(s store.Store, model llmservice.Generator, limiter Limiter) *Service {
	return &Service{store: s, model: model, limiter: limiter}
}

// SavedDocuments lists the documents kept in the store.
func (s *Service) SavedDocuments(ctx context.Context) ([]models.Document, error) {
	return s.store.Load(ctx)
}

// Upload extracts every file and appends the readable ones to the session's
// uploads. Unsupported files and files with no text are left out; a file that
// fails to extract does not stop the others.
func (s *Service) Upload(state *session.State, files []File) []models.UploadResult {
	results := make([]models.UploadResult, 0, len(files))
	for _, f := range files {
		result := models.UploadResult{
			Name:   f.Name,
			Format: parser.DetectFormat(f.Name).String(),
		}

		text, err := parser.Extract(f.Name, f.Data)
		switch {
		case models.IsKind(err, models.KindUnsupportedFormat):
			result.Status = models.UploadUnsupported
			log.Info().Str("file", f.Name).Msg("Skipping unsupported file")
		case err != nil:
			result.Status = models.UploadFailed
			result.Error = err.Error()
			log.Error().Err(err).Str("file", f.Name).Msg("Error extracting file")
		case text == "":
			result.Status = models.UploadEmpty
			log.Warn().Str("file", f.Name).Msg("No text extracted, skipping file")
		default:
			result.Status = models.UploadAccepted
			state.Uploads = append(state.Uploads, models.Document{Name: f.Name, Content: text})
			log.Debug().Str("file", f.Name).Int("chars", len(text)).Msg("Extracted file")
		}
		results = append(results, result)
	}
	state.Results = results
	return results
}

// SaveForLater appends the session upload at index to the store.
func (s *Service) SaveForLater(ctx context.Context, state *session.State, index int) (models.Document, error) {
	if index < 0 || index >= len(state.Uploads) {
		return models.Document{}, fmt.Errorf("%w: %d", ErrNoSuchUpload, index)
	}
	doc := state.Uploads[index]
	if err := store.Append(ctx, s.store, doc); err != nil {
		return models.Document{}, err
	}
	log.Info().Str("file", doc.Name).Msg("Saved file for later")
	return doc, nil
}

// Ask answers question from the saved documents and the session uploads and
// stores the answer in state. A blank question is ignored: it returns nil
// without touching the model or the previous answer. On failure the previous
// answer is kept.
func (s *Service) Ask(ctx context.Context, state *session.State, question string) (*models.PromptResponse, error) {
	if IsBlank(question) {
		return nil, nil
	}

	saved, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	prompt, truncated := s.limiter.Assemble(saved, state.Uploads, question)
	if truncated {
		log.Warn().Int("max_chars", s.limiter.MaxChars).Msg("Prompt exceeded limit, document context truncated")
	}
	log.Debug().Int("saved", len(saved)).Int("uploads", len(state.Uploads)).Int("prompt_chars", len(prompt)).Msg("Submitting question")

	answer, err := s.model.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	state.Response = answer
	state.HasResponse = true
	return &models.PromptResponse{
		Query:     question,
		Prompt:    prompt,
		Content:   answer,
		Truncated: truncated,
	}, nil
}
