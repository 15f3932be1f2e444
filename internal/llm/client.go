// Package llm provides the chat-completion client that turns a composed prompt into an answer.
package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-4o-mini"

// AllowedModels lists the models the assistant may be configured with.
var AllowedModels = []string{"gpt-4o-mini", "gpt-4o", "gpt-4", "gpt-3.5-turbo"}

var (
	// ErrNoAPIKey is returned when the client is built without a key.
	ErrNoAPIKey = errors.New("LLM API key not configured")
	// ErrNoChoices is returned when the endpoint answers with no completion.
	ErrNoChoices = errors.New("completion returned no choices")
)

// Client completes a prompt.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Config configures an OpenAIClient.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

// OpenAIClient calls an OpenAI-compatible chat-completion endpoint.
type OpenAIClient struct {
	client *openai.Client
	cfg    Config
	logger *zap.Logger
}

// Option configures an OpenAIClient.
type Option func(*OpenAIClient)

// WithLogger sets the client's logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *OpenAIClient) { c.logger = l }
}

// NewOpenAIClient validates cfg and creates a client. The caller owns the
// client and passes it to whatever needs completions.
func NewOpenAIClient(cfg Config, opts ...Option) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if !IsAllowedModel(cfg.Model) {
		return nil, fmt.Errorf("model %q not allowed (allowed: %s)", cfg.Model, strings.Join(AllowedModels, ", "))
	}
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	c := &OpenAIClient{
		client: openai.NewClientWithConfig(clientConfig),
		cfg:    cfg,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	return c, nil
}

// Model returns the configured model name.
func (c *OpenAIClient) Model() string {
	return c.cfg.Model
}

// Complete sends prompt as a single user message and returns the first choice.
func (c *OpenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}
	// go-openai omits a zero temperature from the request, which the API
	// reads as its default of 1.
	temperature := c.cfg.Temperature
	if temperature == 0 {
		temperature = math.SmallestNonzeroFloat32
	}
	req := openai.ChatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: temperature,
		MaxTokens:   c.cfg.MaxTokens,
	}
	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}
	c.logger.Debug("chat completion",
		zap.String("model", c.cfg.Model),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Duration("duration", time.Since(start)))
	return resp.Choices[0].Message.Content, nil
}

// IsAllowedModel reports whether model is in AllowedModels.
func IsAllowedModel(model string) bool {
	for _, m := range AllowedModels {
		if m == model {
			return true
		}
	}
	return false
}
