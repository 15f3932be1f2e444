package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/kbassist/internal/models"
)

// SQLiteRegistry implements Registry using SQLite.
type SQLiteRegistry struct {
	db *sql.DB
}

// NewSQLiteRegistry opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteRegistry(dbPath string) (*SQLiteRegistry, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteRegistry{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		stored_name TEXT NOT NULL UNIQUE,
		original_name TEXT NOT NULL,
		size_bytes INTEGER NOT NULL,
		sha256 TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		uploaded_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_documents_uploaded_at ON documents(uploaded_at);

	CREATE TABLE IF NOT EXISTS builds (
		id TEXT PRIMARY KEY,
		created_at TIMESTAMP NOT NULL,
		num_chunks INTEGER NOT NULL,
		num_pdfs INTEGER NOT NULL,
		status TEXT NOT NULL,
		error TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_builds_created_at ON builds(created_at);
	`
	if _, err := db.Exec(schema); err != nil {
		return err
	}
	return addColumnIfMissing(db, "documents", "description", "TEXT NOT NULL DEFAULT ''")
}

// addColumnIfMissing upgrades tables created by older schema versions.
func addColumnIfMissing(db *sql.DB, table, column, decl string) error {
	rows, err := db.Query("SELECT name FROM pragma_table_info(?)", table)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return err
		}
		if name == column {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	_, err = db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, decl))
	return err
}

// CreateDocument inserts a document, replacing any row with the same stored name.
func (s *SQLiteRegistry) CreateDocument(ctx context.Context, doc *models.Document) error {
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO documents (id, stored_name, original_name, size_bytes, sha256, description, uploaded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.StoredName, doc.OriginalName, doc.SizeBytes, doc.SHA256, doc.Description, doc.UploadedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}
	return nil
}

// GetDocumentByName returns a document by stored name.
func (s *SQLiteRegistry) GetDocumentByName(ctx context.Context, storedName string) (*models.Document, error) {
	var doc models.Document
	err := s.db.QueryRowContext(ctx,
		`SELECT id, stored_name, original_name, size_bytes, sha256, description, uploaded_at
		 FROM documents WHERE stored_name = ?`, storedName,
	).Scan(&doc.ID, &doc.StoredName, &doc.OriginalName, &doc.SizeBytes, &doc.SHA256, &doc.Description, &doc.UploadedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document %s: %w", storedName, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// ListDocuments returns all documents ordered by stored name.
func (s *SQLiteRegistry) ListDocuments(ctx context.Context) ([]*models.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, stored_name, original_name, size_bytes, sha256, description, uploaded_at
		 FROM documents ORDER BY stored_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*models.Document
	for rows.Next() {
		var doc models.Document
		if err := rows.Scan(&doc.ID, &doc.StoredName, &doc.OriginalName, &doc.SizeBytes, &doc.SHA256, &doc.Description, &doc.UploadedAt); err != nil {
			return nil, err
		}
		docs = append(docs, &doc)
	}
	return docs, rows.Err()
}

// DeleteDocumentByName removes a document. Deleting a missing row is not an error.
func (s *SQLiteRegistry) DeleteDocumentByName(ctx context.Context, storedName string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM documents WHERE stored_name = ?", storedName)
	return err
}

// CountDocuments returns the number of registered documents.
func (s *SQLiteRegistry) CountDocuments(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents").Scan(&count)
	return count, err
}

// RecordBuild stores a build attempt. ID and CreatedAt are filled in when empty.
func (s *SQLiteRegistry) RecordBuild(ctx context.Context, b *models.Build) error {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO builds (id, created_at, num_chunks, num_pdfs, status, error)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		b.ID, b.CreatedAt, b.NumChunks, b.NumPDFs, string(b.Status), b.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to record build: %w", err)
	}
	return nil
}

// LatestBuild returns the most recent build.
func (s *SQLiteRegistry) LatestBuild(ctx context.Context) (*models.Build, error) {
	builds, err := s.ListBuilds(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(builds) == 0 {
		return nil, fmt.Errorf("build: %w", ErrNotFound)
	}
	return builds[0], nil
}

// ListBuilds returns up to limit builds, newest first. limit <= 0 returns all.
func (s *SQLiteRegistry) ListBuilds(ctx context.Context, limit int) ([]*models.Build, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, num_chunks, num_pdfs, status, error
		 FROM builds ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var builds []*models.Build
	for rows.Next() {
		var b models.Build
		var status string
		if err := rows.Scan(&b.ID, &b.CreatedAt, &b.NumChunks, &b.NumPDFs, &status, &b.Error); err != nil {
			return nil, err
		}
		b.Status = models.BuildStatus(status)
		builds = append(builds, &b)
	}
	return builds, rows.Err()
}

// Close closes the database.
func (s *SQLiteRegistry) Close() error {
	return s.db.Close()
}
