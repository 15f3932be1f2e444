package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hyperjump/kbassist/internal/llm"
	"github.com/hyperjump/kbassist/internal/metrics"
	"github.com/hyperjump/kbassist/internal/retrieval"
	"go.uber.org/zap"
)

// ErrNoKnowledgeBase is returned when there is no index to answer from.
var ErrNoKnowledgeBase = errors.New("no knowledge base available")

// Retriever is the retrieval surface a Chain needs.
type Retriever interface {
	Retrieve(query string) []retrieval.Document
	Ready() bool
}

// Answer is the model's reply and the chunks it was given.
type Answer struct {
	Text    string               `json:"text"`
	Sources []retrieval.Document `json:"sources"`
}

// Chain runs retrieval-augmented question answering.
type Chain struct {
	retriever Retriever
	client    llm.Client
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// Option configures a Chain.
type Option func(*Chain)

// WithLogger sets the chain's logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Chain) { c.logger = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Chain) { c.metrics = m }
}

// NewChain creates a chain over retriever and client.
func NewChain(retriever Retriever, client llm.Client, opts ...Option) *Chain {
	c := &Chain{retriever: retriever, client: client}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	return c
}

// Ask retrieves context for question, prompts the model with it and the
// conversation so far, and records both turns in mem. Nothing is recorded
// when the model call fails.
func (c *Chain) Ask(ctx context.Context, mem *Memory, question string) (*Answer, error) {
	if !c.retriever.Ready() {
		c.metrics.ObserveChat(false)
		return nil, ErrNoKnowledgeBase
	}

	start := time.Now()
	docs := c.retriever.Retrieve(question)
	c.metrics.ObserveRetrieval(time.Since(start), len(docs))
	c.logger.Debug("retrieved context", zap.Int("documents", len(docs)), zap.Duration("duration", time.Since(start)))

	prompt := BuildPrompt(retrieval.FormatContext(docs), mem.Format(), question)

	llmStart := time.Now()
	text, err := c.client.Complete(ctx, prompt)
	c.metrics.ObserveLLM(time.Since(llmStart))
	if err != nil {
		c.metrics.ObserveChat(false)
		c.logger.Error("llm call failed", zap.Error(err))
		return nil, fmt.Errorf("failed to generate answer: %w", err)
	}

	mem.AddUser(question)
	mem.AddAssistant(text)
	c.metrics.ObserveChat(true)
	return &Answer{Text: text, Sources: docs}, nil
}
