package llmservice

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"document-chat/internal/config"
	"document-chat/internal/models"
)

// ErrEmptyResponse is returned when the endpoint answers without any choice.
var ErrEmptyResponse = errors.New("model returned no choices")

// Generator turns a prompt into the model's answer.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Client sends one chat-completion request per call. The underlying model is
// built on every call, so a missing credential only fails the request that
// needs it.
type Client struct {
	cfg config.LLMConfig
}

func NewClient(cfg config.LLMConfig) *Client {
	return &Client{cfg: cfg}
}

// Generate sends prompt as a single user message and returns the text of
// the first choice. Failures are reported as KindModel errors; nothing is
// retried.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}

	res, err := GenerateContent(ctx, &c.cfg, messages)
	if err != nil {
		return "", models.NewError(models.KindModel, "generate", c.cfg.Model, err)
	}
	if len(res.Choices) == 0 {
		return "", models.NewError(models.KindModel, "generate", c.cfg.Model, ErrEmptyResponse)
	}
	return res.Choices[0].Content, nil
}

// call llm
func GenerateContent(ctx context.Context, llmConfig *config.LLMConfig, messages []llms.MessageContent) (*llms.ContentResponse, error) {
	log.Debug().
		Str("provider", llmConfig.Provider).
		Str("base_url", llmConfig.BaseURL).
		Str("model", llmConfig.Model).
		Msg("Generating content")

	llm, err := newModel(llmConfig)
	if err != nil {
		return nil, err
	}

	return llm.GenerateContent(ctx, messages,
		llms.WithTemperature(llmConfig.Temperature),
		llms.WithMaxTokens(llmConfig.MaxTokens),
	)
}

func newModel(llmConfig *config.LLMConfig) (llms.Model, error) {
	switch llmConfig.Provider {
	case "", "openai":
		opts := []openai.Option{
			openai.WithToken(strings.TrimPrefix(llmConfig.Key, "Bearer ")),
			openai.WithModel(llmConfig.Model),
		}
		if llmConfig.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(llmConfig.BaseURL))
		}
		llm, err := openai.New(opts...)
		if err != nil {
			return nil, err
		}
		return llm, nil
	case "ollama":
		opts := []ollama.Option{ollama.WithModel(llmConfig.Model)}
		if llmConfig.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(llmConfig.BaseURL))
		}
		llm, err := ollama.New(opts...)
		if err != nil {
			return nil, err
		}
		return llm, nil
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", llmConfig.Provider)
	}
}
