package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ppiankov/credence/internal/model"
	"github.com/ppiankov/credence/internal/util"
	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
)

// Gemini exposes an OpenAI-compatible chat endpoint
const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"

// OpenAIProvider implements the Provider interface for OpenAI-compatible chat APIs
type OpenAIProvider struct {
	name         string
	client       *openai.Client
	config       Config
	defaultModel string
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(config Config) (*OpenAIProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	return newChatProvider("openai", config, config.BaseURL, openai.GPT4oMini), nil
}

// NewGeminiProvider creates a provider for Google Gemini through its
// OpenAI-compatible endpoint
func NewGeminiProvider(config Config) (*OpenAIProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required (GEMINI_API_KEY)")
	}
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = geminiBaseURL
	}
	return newChatProvider("gemini", config, baseURL, "gemini-2.0-flash"), nil
}

func newChatProvider(name string, config Config, baseURL, defaultModel string) *OpenAIProvider {
	clientConfig := openai.DefaultConfig(config.APIKey)
	if baseURL != "" {
		clientConfig.BaseURL = strings.TrimSuffix(baseURL, "/")
	}
	if config.HTTPProxy != "" || config.HTTPSProxy != "" {
		clientConfig.HTTPClient = &http.Client{
			Transport: util.NewTransport(config.HTTPProxy, config.HTTPSProxy, config.NoProxy),
		}
	}

	return &OpenAIProvider{
		name:         name,
		client:       openai.NewClientWithConfig(clientConfig),
		config:       config,
		defaultModel: defaultModel,
	}
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return p.name
}

// IsAvailable checks if the provider is properly configured
func (p *OpenAIProvider) IsAvailable(ctx context.Context) bool {
	if _, err := p.client.ListModels(ctx); err != nil {
		logrus.WithField("provider", p.name).WithError(err).Warn("LLM availability check failed")
		return false
	}
	return true
}

// Complete runs the prompt through the Chat Completions API
func (p *OpenAIProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	modelName := req.Model
	if modelName == "" {
		modelName = p.config.Model
	}
	if modelName == "" {
		modelName = p.defaultModel
	}

	system := req.System
	if system == "" {
		system = defaultSystemPrompt
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, requestTimeout(p.config.Timeout, 30*time.Second))
	defer cancel()

	resp, err := p.client.CreateChatCompletion(ctxWithTimeout, openai.ChatCompletionRequest{
		Model: modelName,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
		MaxTokens:   p.config.maxTokens(req.MaxTokens),
		Temperature: req.Temperature,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return nil, &model.CollaboratorError{Service: p.name, StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message}
		}
		var reqErr *openai.RequestError
		if errors.As(err, &reqErr) {
			return nil, &model.CollaboratorError{Service: p.name, StatusCode: reqErr.HTTPStatusCode, Message: reqErr.Error()}
		}
		return nil, fmt.Errorf("%s API error: %w", p.name, err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices from %s", model.ErrMalformedResponse, p.name)
	}

	return &CompletionResponse{
		Text:       strings.TrimSpace(resp.Choices[0].Message.Content),
		Model:      modelName,
		TokensUsed: resp.Usage.TotalTokens,
	}, nil
}

func requestTimeout(seconds int, fallback time.Duration) time.Duration {
	if seconds <= 0 {
		return fallback
	}
	return time.Duration(seconds) * time.Second
}
