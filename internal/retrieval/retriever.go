// Package retrieval adapts index query results into scored documents for prompt assembly.
package retrieval

import (
	"strings"

	"github.com/hyperjump/kbassist/internal/lexical"
)

// Searcher is the index surface the retriever needs.
type Searcher interface {
	Query(text string, k int, threshold float64) []lexical.Result
}

// readiness is implemented by searchers that can report an empty knowledge base.
type readiness interface {
	Ready() bool
}

// Config fixes the result count and minimum score of every retrieval.
type Config struct {
	K              int     `json:"k" yaml:"k"`
	ScoreThreshold float64 `json:"score_threshold" yaml:"score_threshold"`
}

// Document is a retrieved chunk with its relevance score.
type Document struct {
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// Retriever queries a Searcher with a fixed configuration.
type Retriever struct {
	searcher Searcher
	config   Config
}

// New creates a retriever over searcher.
func New(searcher Searcher, cfg Config) *Retriever {
	return &Retriever{searcher: searcher, config: cfg}
}

// Config returns the retriever's configuration.
func (r *Retriever) Config() Config {
	return r.config
}

// Retrieve returns the documents most similar to query.
func (r *Retriever) Retrieve(query string) []Document {
	return r.RetrieveWith(query, r.config)
}

// RetrieveWith is Retrieve with a per-call configuration.
func (r *Retriever) RetrieveWith(query string, cfg Config) []Document {
	results := r.searcher.Query(query, cfg.K, cfg.ScoreThreshold)
	docs := make([]Document, len(results))
	for i, res := range results {
		docs[i] = Document{Content: res.Text, Score: res.Score}
	}
	return docs
}

// Ready reports whether the underlying searcher has anything to search.
// Searchers that cannot tell are assumed ready.
func (r *Retriever) Ready() bool {
	if rd, ok := r.searcher.(readiness); ok {
		return rd.Ready()
	}
	return true
}

// FormatContext joins document contents for inclusion in a prompt.
func FormatContext(docs []Document) string {
	parts := make([]string, len(docs))
	for i, d := range docs {
		parts[i] = d.Content
	}
	return strings.Join(parts, "\n\n")
}
