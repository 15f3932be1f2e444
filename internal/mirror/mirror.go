package mirror

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/hyperjump/kbassist/internal/lexical"
	"github.com/hyperjump/kbassist/pkg/utils"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// DefaultPrefix is the key prefix used when none is configured.
const DefaultPrefix = "embeddings"

// Mirror pushes a saved index and its build manifest to a Store and pulls them back.
//
// Keys under the prefix:
//
//	<prefix>/faiss_index/<artifact>   each index artifact
//	<prefix>/text_chunks.pkl          copy of the texts artifact (legacy bucket layout)
//	<prefix>/metadata.json            build manifest
type Mirror struct {
	store  Store
	prefix string
	logger *zap.Logger
}

// Option configures a Mirror.
type Option func(*Mirror)

// WithLogger sets the mirror's logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Mirror) { m.logger = l }
}

// New creates a mirror over store. An empty prefix uses DefaultPrefix.
func New(store Store, prefix string, opts ...Option) *Mirror {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if store == nil {
		store = Nop{}
	}
	m := &Mirror{store: store, prefix: prefix}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = zap.NewNop()
	}
	return m
}

// Enabled reports whether the mirror writes anywhere.
func (m *Mirror) Enabled() bool {
	_, nop := m.store.(Nop)
	return !nop
}

// Name returns the underlying store name.
func (m *Mirror) Name() string {
	return m.store.Name()
}

// ArtifactKey returns the key of an index artifact.
func (m *Mirror) ArtifactKey(name string) string {
	return path.Join(m.prefix, "faiss_index", name)
}

// TextChunksKey returns the key of the standalone chunk list.
func (m *Mirror) TextChunksKey() string {
	return path.Join(m.prefix, "text_chunks.pkl")
}

// ManifestKey returns the key of the build manifest.
func (m *Mirror) ManifestKey() string {
	return path.Join(m.prefix, "metadata.json")
}

// Push uploads every artifact in indexDir plus the manifest file. All uploads
// are attempted; the returned error combines every failure.
func (m *Mirror) Push(ctx context.Context, indexDir, manifestPath string) error {
	if !m.Enabled() {
		return nil
	}
	var errs error
	put := func(key, file, contentType string) {
		data, err := os.ReadFile(file)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("failed to read %s: %w", file, err))
			return
		}
		if err := m.store.Put(ctx, key, data, contentType); err != nil {
			errs = multierr.Append(errs, err)
			return
		}
		m.logger.Debug("mirrored object", zap.String("key", key), zap.Int("bytes", len(data)))
	}
	for _, name := range lexical.ArtifactFiles {
		put(m.ArtifactKey(name), filepath.Join(indexDir, name), contentTypeFor(name))
	}
	put(m.TextChunksKey(), filepath.Join(indexDir, lexical.TextsFile), "application/cbor")
	if manifestPath != "" {
		put(m.ManifestKey(), manifestPath, "application/json")
	}
	if errs != nil {
		m.logger.Warn("mirror push incomplete", zap.String("store", m.Name()), zap.Error(errs))
		return errs
	}
	m.logger.Info("mirrored index", zap.String("store", m.Name()), zap.String("prefix", m.prefix))
	return nil
}

// Pull downloads the index artifacts into dir and the manifest to manifestPath
// (skipped when empty). Any missing artifact fails the pull; a missing manifest
// does not.
func (m *Mirror) Pull(ctx context.Context, dir, manifestPath string) error {
	for _, name := range lexical.ArtifactFiles {
		data, err := m.store.Get(ctx, m.ArtifactKey(name))
		if err != nil {
			return fmt.Errorf("failed to pull %s: %w", name, err)
		}
		if err := utils.WriteFileAtomic(filepath.Join(dir, name), data, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
	}
	if manifestPath == "" {
		return nil
	}
	data, err := m.FetchManifest(ctx)
	if err != nil {
		m.logger.Warn("mirror has no build manifest", zap.Error(err))
		return nil
	}
	if err := utils.WriteFileAtomic(manifestPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// HasIndex reports whether the mirror holds a build manifest and every index
// artifact. It stops at the first missing object.
func (m *Mirror) HasIndex(ctx context.Context) (bool, error) {
	if !m.Enabled() {
		return false, nil
	}
	keys := []string{m.ManifestKey()}
	for _, name := range lexical.ArtifactFiles {
		keys = append(keys, m.ArtifactKey(name))
	}
	for _, key := range keys {
		ok, err := m.store.Exists(ctx, key)
		if err != nil {
			return false, fmt.Errorf("failed to check %s: %w", key, err)
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// FetchManifest returns the raw manifest stored in the mirror.
func (m *Mirror) FetchManifest(ctx context.Context) ([]byte, error) {
	return m.store.Get(ctx, m.ManifestKey())
}

func contentTypeFor(name string) string {
	switch filepath.Ext(name) {
	case ".json":
		return "application/json"
	case ".cbor":
		return "application/cbor"
	case ".zst":
		return "application/zstd"
	default:
		return "application/octet-stream"
	}
}
