// Package storage persists the document registry and the index build history.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/kbassist/internal/models"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Registry records library documents and index builds.
type Registry interface {
	// Document operations
	CreateDocument(ctx context.Context, doc *models.Document) error
	GetDocumentByName(ctx context.Context, storedName string) (*models.Document, error)
	ListDocuments(ctx context.Context) ([]*models.Document, error)
	DeleteDocumentByName(ctx context.Context, storedName string) error
	CountDocuments(ctx context.Context) (int64, error)

	// Build history
	RecordBuild(ctx context.Context, b *models.Build) error
	LatestBuild(ctx context.Context) (*models.Build, error)
	ListBuilds(ctx context.Context, limit int) ([]*models.Build, error)

	Close() error
}
