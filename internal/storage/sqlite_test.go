package storage

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperjump/kbassist/internal/models"
)

func TestSQLiteRegistry_Documents(t *testing.T) {
	dir := t.TempDir()
	store, err := NewSQLiteRegistry(filepath.Join(dir, "nested", "registry.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	ctx := context.Background()

	doc := &models.Document{
		ID:           "pdf:1",
		StoredName:   "20240101_120000_abcdef12_ard.pdf",
		OriginalName: "ard.pdf",
		SizeBytes:    1024,
		SHA256:       "abcdef12",
		Description:  "ARD committee guide",
	}
	if err := store.CreateDocument(ctx, doc); err != nil {
		t.Fatal(err)
	}
	if doc.UploadedAt.IsZero() {
		t.Error("UploadedAt should be set")
	}
	got, err := store.GetDocumentByName(ctx, doc.StoredName)
	if err != nil {
		t.Fatal(err)
	}
	if got.OriginalName != "ard.pdf" || got.SizeBytes != 1024 || got.Description != "ARD committee guide" {
		t.Errorf("got %+v", got)
	}

	other := &models.Document{ID: "pdf:2", StoredName: "0_b.pdf", OriginalName: "b.pdf"}
	if err := store.CreateDocument(ctx, other); err != nil {
		t.Fatal(err)
	}
	docs, err := store.ListDocuments(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 2 || docs[0].StoredName != "0_b.pdf" || docs[1].Description != "ARD committee guide" {
		t.Errorf("ListDocuments = %+v", docs)
	}
	if n, _ := store.CountDocuments(ctx); n != 2 {
		t.Errorf("CountDocuments = %d", n)
	}

	if err := store.DeleteDocumentByName(ctx, doc.StoredName); err != nil {
		t.Fatal(err)
	}
	if _, err := store.GetDocumentByName(ctx, doc.StoredName); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteRegistry_UpgradesDocumentsTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.db")
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatal(err)
	}
	_, err = db.Exec(`CREATE TABLE documents (
		id TEXT PRIMARY KEY,
		stored_name TEXT NOT NULL UNIQUE,
		original_name TEXT NOT NULL,
		size_bytes INTEGER NOT NULL,
		sha256 TEXT NOT NULL,
		uploaded_at TIMESTAMP NOT NULL
	);
	INSERT INTO documents VALUES ('pdf:1', 'a.pdf', 'a.pdf', 1, 'aa', CURRENT_TIMESTAMP);`)
	_ = db.Close()
	if err != nil {
		t.Fatal(err)
	}

	store, err := NewSQLiteRegistry(path)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	ctx := context.Background()
	got, err := store.GetDocumentByName(ctx, "a.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if got.Description != "" {
		t.Errorf("Description = %q, want empty", got.Description)
	}
	doc := &models.Document{ID: "pdf:2", StoredName: "b.pdf", OriginalName: "b.pdf", Description: "notes"}
	if err := store.CreateDocument(ctx, doc); err != nil {
		t.Fatal(err)
	}
	if got, _ := store.GetDocumentByName(ctx, "b.pdf"); got == nil || got.Description != "notes" {
		t.Errorf("GetDocumentByName = %+v", got)
	}
}

func TestSQLiteRegistry_Builds(t *testing.T) {
	store, err := NewSQLiteRegistry(filepath.Join(t.TempDir(), "registry.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	ctx := context.Background()

	if _, err := store.LatestBuild(ctx); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	builds := []*models.Build{
		{CreatedAt: base, NumChunks: 10, NumPDFs: 1, Status: models.BuildSucceeded},
		{CreatedAt: base.Add(time.Hour), Status: models.BuildFailed, Error: "no terms remain"},
		{CreatedAt: base.Add(2 * time.Hour), NumChunks: 12, NumPDFs: 2, Status: models.BuildSucceeded},
	}
	for _, b := range builds {
		if err := store.RecordBuild(ctx, b); err != nil {
			t.Fatal(err)
		}
		if b.ID == "" {
			t.Error("build ID should be assigned")
		}
	}
	latest, err := store.LatestBuild(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if latest.NumChunks != 12 || latest.Status != models.BuildSucceeded {
		t.Errorf("latest = %+v", latest)
	}
	two, err := store.ListBuilds(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(two) != 2 || two[1].Error != "no terms remain" {
		t.Errorf("ListBuilds(2) = %+v", two)
	}
	all, _ := store.ListBuilds(ctx, 0)
	if len(all) != 3 {
		t.Errorf("ListBuilds(0) returned %d", len(all))
	}
}
