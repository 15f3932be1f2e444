// Package integration provides end-to-end tests (requires real storage and indices).
package integration

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/kbassist/internal/chunker"
	"github.com/hyperjump/kbassist/internal/knowledge"
	"github.com/hyperjump/kbassist/internal/library"
	"github.com/hyperjump/kbassist/internal/mirror"
	"github.com/hyperjump/kbassist/internal/models"
	"github.com/hyperjump/kbassist/internal/retrieval"
	"github.com/hyperjump/kbassist/internal/storage"
)

func TestIntegration_UploadBuildMirrorReload(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	registry, err := storage.NewSQLiteRegistry(filepath.Join(dir, "db.sqlite"))
	if err != nil {
		t.Fatal(err)
	}
	defer registry.Close()

	lib := library.New(library.Config{
		PDFDir:            filepath.Join(dir, "pdfs"),
		BackupDir:         filepath.Join(dir, "backups"),
		MaxFileSize:       1 << 20,
		MaxFiles:          5,
		AllowedExtensions: []string{".txt"},
	}, registry)

	results, err := lib.UploadMany(ctx, []library.File{
		{Name: "consent.txt", Reader: strings.NewReader("Written informed consent is required before the initial evaluation.")},
		{Name: "timeline.txt", Reader: strings.NewReader("The initial evaluation timeline is forty five school days.")},
		{Name: "placement.txt", Reader: strings.NewReader("Placement decisions consider the least restrictive environment.")},
	})
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range results {
		if r.Error != "" {
			t.Fatalf("upload %s: %s", r.Name, r.Error)
		}
	}
	if n, _ := registry.CountDocuments(ctx); n != 3 {
		t.Fatalf("registry has %d documents, want 3", n)
	}

	store := mirror.NewMemoryStore()
	m := mirror.New(store, "")
	builder := knowledge.NewBuilder(
		knowledge.Layout{Root: filepath.Join(dir, "embeddings")},
		chunker.NewSplitter(100, 10, "\n"),
		knowledge.WithRegistry(registry),
		knowledge.WithMirror(m),
		knowledge.WithExtensions(".txt"),
	)
	res, err := builder.Build(ctx, lib.Dir())
	if err != nil {
		t.Fatal(err)
	}
	if res.MirrorErr != nil {
		t.Fatalf("mirror push: %v", res.MirrorErr)
	}
	if res.Manifest.StorageType != knowledge.StorageMirror || res.Manifest.NumPDFs != 3 {
		t.Errorf("unexpected manifest: %+v", res.Manifest)
	}
	latest, err := registry.LatestBuild(ctx)
	if err != nil || latest.Status != models.BuildSucceeded {
		t.Fatalf("LatestBuild() = %+v, %v", latest, err)
	}
	for _, key := range []string{m.ManifestKey(), m.TextChunksKey(), "embeddings/faiss_index/vectors.bin.zst"} {
		if ok, _ := store.Exists(ctx, key); !ok {
			t.Errorf("mirror is missing %s", key)
		}
	}

	// A second deployment with an empty disk recovers the index from the mirror.
	fresh := knowledge.NewBase(knowledge.Layout{Root: filepath.Join(dir, "other")}, knowledge.WithMirror(m))
	if src := fresh.Load(ctx); src != knowledge.SourceMirror {
		t.Fatalf("Load() source = %q, want %q", src, knowledge.SourceMirror)
	}
	if fresh.Manifest() == nil || fresh.Manifest().NumChunks != res.Manifest.NumChunks {
		t.Errorf("mirrored manifest = %+v", fresh.Manifest())
	}

	r := retrieval.New(fresh, retrieval.Config{K: 2})
	docs := r.Retrieve("initial evaluation timeline")
	if len(docs) == 0 {
		t.Fatal("expected results from the mirrored index")
	}
	want := res.Index.Query("initial evaluation timeline", 2, 0)
	if docs[0].Content != want[0].Text {
		t.Errorf("mirrored top result %q, built %q", docs[0].Content, want[0].Text)
	}
}
