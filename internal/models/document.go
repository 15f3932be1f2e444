// Package models defines the records shared by the registry, library, and API.
package models

import "time"

// Document is a PDF held in the document library.
type Document struct {
	ID           string    `json:"id" db:"id"`
	StoredName   string    `json:"stored_name" db:"stored_name"`
	OriginalName string    `json:"original_name" db:"original_name"`
	SizeBytes    int64     `json:"size_bytes" db:"size_bytes"`
	SHA256       string    `json:"sha256" db:"sha256"`
	Description  string    `json:"description,omitempty" db:"description"`
	UploadedAt   time.Time `json:"uploaded_at" db:"uploaded_at"`
}

// BuildStatus is the outcome of an index build.
type BuildStatus string

const (
	BuildSucceeded BuildStatus = "succeeded"
	BuildFailed    BuildStatus = "failed"
)

// Build records one ingestion attempt.
type Build struct {
	ID        string      `json:"id" db:"id"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"`
	NumChunks int         `json:"num_chunks" db:"num_chunks"`
	NumPDFs   int         `json:"num_pdfs" db:"num_pdfs"`
	Status    BuildStatus `json:"status" db:"status"`
	Error     string      `json:"error,omitempty" db:"error"`
}

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}
