package mirror

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/hyperjump/kbassist/internal/lexical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStore struct {
	*MemoryStore
	failKey string
}

func (f *failingStore) Put(ctx context.Context, key string, data []byte, ct string) error {
	if key == f.failKey {
		return errors.New("bucket unavailable")
	}
	return f.MemoryStore.Put(ctx, key, data, ct)
}

func saveIndex(t *testing.T, dir string) *lexical.Index {
	t.Helper()
	idx := lexical.New(lexical.WithTexts([]string{"cat law", "dog law", "space law"}))
	require.NoError(t, idx.Fit())
	require.NoError(t, idx.Save(dir))
	return idx
}

func TestMirror_PushPull(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	indexDir := filepath.Join(root, "faiss_index")
	manifest := filepath.Join(root, "metadata.json")
	idx := saveIndex(t, indexDir)
	require.NoError(t, os.WriteFile(manifest, []byte(`{"num_chunks":3}`), 0644))

	store := NewMemoryStore()
	m := New(store, "")
	require.True(t, m.Enabled())
	require.NoError(t, m.Push(ctx, indexDir, manifest))

	keys := store.Keys()
	sort.Strings(keys)
	assert.Equal(t, []string{
		"embeddings/faiss_index/metadata.json",
		"embeddings/faiss_index/texts.cbor",
		"embeddings/faiss_index/vectorizer.cbor",
		"embeddings/faiss_index/vectors.bin.zst",
		"embeddings/metadata.json",
		"embeddings/text_chunks.pkl",
	}, keys)

	dest := t.TempDir()
	destManifest := filepath.Join(dest, "metadata.json")
	require.NoError(t, m.Pull(ctx, filepath.Join(dest, "faiss_index"), destManifest))
	loaded, err := lexical.Load(filepath.Join(dest, "faiss_index"))
	require.NoError(t, err)
	assert.Equal(t, idx.Query("cat", 3, 0), loaded.Query("cat", 3, 0))
	b, err := os.ReadFile(destManifest)
	require.NoError(t, err)
	assert.JSONEq(t, `{"num_chunks":3}`, string(b))
}

func TestMirror_PushReportsEveryFailure(t *testing.T) {
	root := t.TempDir()
	saveIndex(t, root)
	store := &failingStore{MemoryStore: NewMemoryStore(), failKey: "kb/text_chunks.pkl"}
	m := New(store, "kb")
	err := m.Push(context.Background(), root, filepath.Join(root, "missing-manifest.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket unavailable")
	assert.Contains(t, err.Error(), "missing-manifest.json")
	ok, _ := store.Exists(context.Background(), "kb/faiss_index/vectors.bin.zst")
	assert.True(t, ok, "other artifacts should still be uploaded")
}

func TestMirror_HasIndex(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	manifest := filepath.Join(root, "metadata.json")
	saveIndex(t, filepath.Join(root, "faiss_index"))
	require.NoError(t, os.WriteFile(manifest, []byte(`{"num_chunks":3}`), 0644))

	store := NewMemoryStore()
	m := New(store, "kb")
	ok, err := m.HasIndex(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "empty store")

	require.NoError(t, m.Push(ctx, filepath.Join(root, "faiss_index"), manifest))
	ok, err = m.HasIndex(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	partial := NewMemoryStore()
	require.NoError(t, partial.Put(ctx, "kb/metadata.json", []byte(`{}`), "application/json"))
	ok, err = New(partial, "kb").HasIndex(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "manifest without artifacts")

	ok, err = New(nil, "kb").HasIndex(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "disabled mirror")
}

func TestMirror_PullMissingArtifact(t *testing.T) {
	err := New(NewMemoryStore(), "").Pull(context.Background(), t.TempDir(), "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNop(t *testing.T) {
	m := New(nil, "")
	assert.False(t, m.Enabled())
	assert.NoError(t, m.Push(context.Background(), t.TempDir(), ""))
	_, err := m.FetchManifest(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
}
