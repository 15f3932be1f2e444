package models

// RetrievedChunk is one ranked chunk.
type RetrievedChunk struct {
	Content string  `json:"content"`
	Score   float64 `json:"score"`
	Rank    int     `json:"rank"`
}

// RetrieveResponse is the response for a retrieval request.
type RetrieveResponse struct {
	Query     string            `json:"query"`
	Results   []*RetrievedChunk `json:"results"`
	Total     int               `json:"total"`
	QueryTime int64             `json:"query_time_ms"`
}

// ChatResponse is the answer to a ChatRequest.
type ChatResponse struct {
	SessionID string            `json:"session_id"`
	Answer    string            `json:"answer"`
	Sources   []*RetrievedChunk `json:"sources"`
}
