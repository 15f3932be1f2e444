// Package lexical provides the TF-IDF vector store: a sparse term-weighted index
// over text chunks queried by cosine similarity.
package lexical

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hyperjump/kbassist/pkg/utils"
	"go.uber.org/zap"
)

// ErrNotFitted is returned when an operation needs a fitted index.
var ErrNotFitted = errors.New("index is not fitted")

// State is the lifecycle state of an Index.
type State int

const (
	// StateEmpty means the corpus has no texts.
	StateEmpty State = iota
	// StateDirty means texts were added since the last successful fit.
	StateDirty
	// StateFitted means the matrix matches the corpus.
	StateFitted
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateDirty:
		return "dirty"
	case StateFitted:
		return "fitted"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Result is one query hit.
type Result struct {
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// Index is a TF-IDF vector store. Add and Fit are serialized internally but
// the index expects a single writer; queries against a fitted index are safe
// to run concurrently.
type Index struct {
	mu     sync.RWMutex
	params Params
	texts  []string
	state  State
	vec    *Vectorizer
	matrix *Matrix
	logger *zap.Logger
}

// Option configures an Index.
type Option func(*Index)

// WithLogger sets the logger for fit and query events.
func WithLogger(l *zap.Logger) Option {
	return func(x *Index) { x.logger = l }
}

// WithParams overrides the vectorizer parameters.
func WithParams(p Params) Option {
	return func(x *Index) { x.params = p }
}

// WithTexts seeds the corpus. The index starts dirty.
func WithTexts(texts []string) Option {
	return func(x *Index) { x.texts = append(x.texts, texts...) }
}

// New creates an index. Without WithTexts the index is empty.
func New(opts ...Option) *Index {
	x := &Index{params: DefaultParams()}
	for _, opt := range opts {
		opt(x)
	}
	if x.logger == nil {
		x.logger = zap.NewNop()
	}
	if len(x.texts) > 0 {
		x.state = StateDirty
	}
	return x
}

// Add appends texts to the corpus and marks the index dirty. Empty input is a no-op.
func (x *Index) Add(texts []string) {
	if len(texts) == 0 {
		return
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	x.texts = append(x.texts, texts...)
	x.state = StateDirty
}

// Fit recomputes the vocabulary and term-weight matrix over the whole corpus.
// An empty corpus is not an error: a warning is logged and the index stays empty.
// On failure the index stays dirty.
func (x *Index) Fit() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.fitLocked()
}

func (x *Index) fitLocked() error {
	if len(x.texts) == 0 {
		x.logger.Warn("no texts to fit")
		x.state = StateEmpty
		return nil
	}
	vec, m, err := fitVectorizer(x.texts, x.params)
	if err != nil {
		x.logger.Error("fit vectorizer failed", zap.Int("texts", len(x.texts)), zap.Error(err))
		x.state = StateDirty
		return fmt.Errorf("failed to fit vectorizer: %w", err)
	}
	x.vec, x.matrix, x.state = vec, m, StateFitted
	x.logger.Info("fitted vectorizer",
		zap.Int("texts", len(x.texts)),
		zap.Int("terms", vec.Len()),
		zap.Int("nnz", m.NNZ()))
	return nil
}

// Query returns up to k texts whose cosine similarity to text is at least
// threshold, highest first; ties keep corpus order.
//
// A dirty index is fitted synchronously first, so the first query after Add
// pays the full fit cost. Query never fails: an empty index, a failed fit or
// k <= 0 all yield no results.
func (x *Index) Query(text string, k int, threshold float64) (results []Result) {
	if k <= 0 {
		return nil
	}
	if x.State() == StateDirty {
		start := time.Now()
		x.mu.Lock()
		var err error
		if x.state == StateDirty {
			err = x.fitLocked()
		}
		x.mu.Unlock()
		if err != nil {
			return nil
		}
		x.logger.Info("lazy fit before query", zap.Duration("duration", time.Since(start)))
	}

	x.mu.RLock()
	state, vec, m, texts := x.state, x.vec, x.matrix, x.texts
	x.mu.RUnlock()
	if state != StateFitted || vec == nil || m == nil {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			x.logger.Error("similarity search failed", zap.Any("panic", r))
			results = nil
		}
	}()

	q := vec.Transform(text)
	scores := m.Dot(m.dense(q))
	hits := make([]Result, 0, len(scores))
	for i, s := range scores {
		s = utils.Clamp01(s)
		if s >= threshold {
			hits = append(hits, Result{Text: texts[i], Score: s})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

// State returns the lifecycle state.
func (x *Index) State() State {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.state
}

// Ready reports whether the corpus has any texts to search.
func (x *Index) Ready() bool {
	return x.Len() > 0
}

// Len returns the number of texts in the corpus.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.texts)
}

// Terms returns the fitted vocabulary size, or 0 when unfitted.
func (x *Index) Terms() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if x.vec == nil || x.state != StateFitted {
		return 0
	}
	return x.vec.Len()
}

// Texts returns a copy of the corpus.
func (x *Index) Texts() []string {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return append([]string(nil), x.texts...)
}
