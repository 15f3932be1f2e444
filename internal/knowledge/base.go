package knowledge

import (
	"context"
	"sync"

	"github.com/hyperjump/kbassist/internal/lexical"
	"go.uber.org/zap"
)

// Sources a Base can be loaded from.
const (
	SourceNone   = "none"
	SourceMirror = "mirror"
	SourceLocal  = "local"
	SourceBuild  = "build"
)

// Base holds the live index. Rebuilds construct a new index elsewhere and
// Swap it in, so queries never see a partially fitted index.
type Base struct {
	layout Layout
	opts   options

	mu       sync.RWMutex
	idx      *lexical.Index
	manifest *Manifest
	source   string
}

// NewBase creates a base with no index loaded.
func NewBase(layout Layout, opts ...Option) *Base {
	return &Base{layout: layout, opts: newOptions(opts), source: SourceNone}
}

// Load installs the most authoritative index available: the mirror first,
// then the local artifacts. When neither loads the base is left without a
// knowledge base; Load itself never fails. It returns the source used.
func (b *Base) Load(ctx context.Context) string {
	log := b.opts.logger
	if b.opts.mirror.Enabled() {
		idx, manifest, err := b.loadMirror(ctx)
		b.opts.metrics.ObserveMirror("pull", err == nil)
		if err == nil {
			b.swap(idx, manifest, SourceMirror)
			return SourceMirror
		}
		log.Warn("mirror load failed, trying local artifacts", zap.Error(err))
	}

	idx, err := lexical.Load(b.layout.IndexDir(), lexical.WithLogger(log), lexical.WithParams(b.opts.params))
	if err != nil {
		log.Warn("no knowledge base available", zap.String("dir", b.layout.IndexDir()), zap.Error(err))
		b.swap(nil, nil, SourceNone)
		return SourceNone
	}
	manifest, err := ReadManifest(b.layout.ManifestPath())
	if err != nil {
		log.Debug("local build manifest unavailable", zap.Error(err))
		manifest = nil
	}
	b.swap(idx, manifest, SourceLocal)
	return SourceLocal
}

func (b *Base) loadMirror(ctx context.Context) (*lexical.Index, *Manifest, error) {
	cache := Layout{Root: b.layout.MirrorCacheDir()}
	if err := b.opts.mirror.Pull(ctx, cache.IndexDir(), cache.ManifestPath()); err != nil {
		return nil, nil, err
	}
	idx, err := lexical.Load(cache.IndexDir(), lexical.WithLogger(b.opts.logger), lexical.WithParams(b.opts.params))
	if err != nil {
		return nil, nil, err
	}
	manifest, err := ReadManifest(cache.ManifestPath())
	if err != nil {
		manifest = nil
	}
	return idx, manifest, nil
}

// Swap replaces the live index, typically with the result of a rebuild.
func (b *Base) Swap(idx *lexical.Index, manifest *Manifest) {
	b.swap(idx, manifest, SourceBuild)
}

func (b *Base) swap(idx *lexical.Index, manifest *Manifest, source string) {
	b.mu.Lock()
	b.idx, b.manifest, b.source = idx, manifest, source
	b.mu.Unlock()
	chunks := 0
	if idx != nil {
		chunks = idx.Len()
	}
	b.opts.metrics.SetChunks(chunks)
	b.opts.logger.Info("knowledge base installed", zap.String("source", source), zap.Int("chunks", chunks))
}

func (b *Base) current() *lexical.Index {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.idx
}

// Query searches the live index. Without one it returns no results.
func (b *Base) Query(text string, k int, threshold float64) []lexical.Result {
	idx := b.current()
	if idx == nil {
		return nil
	}
	return idx.Query(text, k, threshold)
}

// Ready reports whether a non-empty index is installed.
func (b *Base) Ready() bool {
	idx := b.current()
	return idx != nil && idx.Ready()
}

// Len returns the chunk count of the live index.
func (b *Base) Len() int {
	if idx := b.current(); idx != nil {
		return idx.Len()
	}
	return 0
}

// Manifest returns the manifest of the live index, if known.
func (b *Base) Manifest() *Manifest {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.manifest
}

// Source returns where the live index came from.
func (b *Base) Source() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.source
}

// Status describes the live index and the stored builds.
type Status struct {
	Ready          bool      `json:"ready"`
	Source         string    `json:"source"`
	Chunks         int       `json:"chunks"`
	Terms          int       `json:"terms"`
	State          string    `json:"state"`
	Mirror         string    `json:"mirror"`
	MirrorHasIndex bool      `json:"mirror_has_index"`
	LocalManifest  *Manifest `json:"local_manifest,omitempty"`
	MirrorManifest *Manifest `json:"mirror_manifest,omitempty"`
}

// Status reports readiness, both manifests, and whether the mirror holds a
// complete index. A mirror that cannot be read is logged and left out.
func (b *Base) Status(ctx context.Context) *Status {
	st := &Status{
		Ready:  b.Ready(),
		Source: b.Source(),
		Mirror: b.opts.mirror.Name(),
		State:  lexical.StateEmpty.String(),
	}
	if idx := b.current(); idx != nil {
		st.Chunks = idx.Len()
		st.Terms = idx.Terms()
		st.State = idx.State().String()
	}
	if m, err := ReadManifest(b.layout.ManifestPath()); err == nil {
		st.LocalManifest = m
	}
	if b.opts.mirror.Enabled() {
		ok, err := b.opts.mirror.HasIndex(ctx)
		if err != nil {
			b.opts.logger.Debug("mirror index check failed", zap.Error(err))
		}
		st.MirrorHasIndex = ok
		data, err := b.opts.mirror.FetchManifest(ctx)
		if err == nil {
			st.MirrorManifest, err = parseManifest(data)
		}
		if err != nil {
			b.opts.logger.Debug("mirror manifest unavailable", zap.Error(err))
		}
	}
	return st
}

// MirrorEnabled reports whether artifacts are mirrored to an object store.
func (b *Base) MirrorEnabled() bool {
	return b.opts.mirror.Enabled()
}
