package models

import (
	"fmt"
	"strings"
)

// MaxRetrieveK caps the number of results a single retrieval may request.
const MaxRetrieveK = 100

// RetrieveQuery is a direct retrieval request. Zero K and nil ScoreThreshold
// take the server defaults.
type RetrieveQuery struct {
	Query          string   `json:"query"`
	K              int      `json:"k,omitempty"`
	ScoreThreshold *float64 `json:"score_threshold,omitempty"`
}

// Validate rejects empty queries and normalizes K and ScoreThreshold against the defaults.
func (q *RetrieveQuery) Validate(defaultK int, defaultThreshold float64) error {
	q.Query = strings.TrimSpace(q.Query)
	if q.Query == "" {
		return fmt.Errorf("query cannot be empty")
	}
	if q.K <= 0 {
		q.K = defaultK
	}
	if q.K > MaxRetrieveK {
		q.K = MaxRetrieveK
	}
	if q.ScoreThreshold == nil {
		th := defaultThreshold
		q.ScoreThreshold = &th
	}
	if *q.ScoreThreshold < 0 || *q.ScoreThreshold > 1 {
		return fmt.Errorf("score_threshold must be between 0 and 1")
	}
	return nil
}

// ChatRequest asks a question within an optional existing session.
type ChatRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Question  string `json:"question"`
}

// Validate rejects empty questions.
func (r *ChatRequest) Validate() error {
	r.Question = strings.TrimSpace(r.Question)
	if r.Question == "" {
		return fmt.Errorf("question cannot be empty")
	}
	return nil
}
