package knowledge

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hyperjump/kbassist/internal/chunker"
	"github.com/hyperjump/kbassist/internal/extract"
	"github.com/hyperjump/kbassist/internal/lexical"
	"github.com/hyperjump/kbassist/internal/models"
	"go.uber.org/zap"
)

// ErrNoDocuments is returned when no file in the PDF directory yields text.
var ErrNoDocuments = errors.New("no documents with extractable text")

// BuildResult describes a successful build.
type BuildResult struct {
	Index    *lexical.Index
	Manifest *Manifest
	Build    *models.Build
	// Skipped lists files that could not be extracted or had no text.
	Skipped []string
	// MirrorErr is set when the build succeeded locally but mirroring failed.
	MirrorErr error
}

// Builder performs full rebuilds of the knowledge base from a PDF directory.
// Concurrent calls to Build are serialized.
type Builder struct {
	layout    Layout
	splitter  *chunker.Splitter
	extractor *extract.Extractor
	opts      options
	mu        sync.Mutex
}

// NewBuilder creates a builder writing under layout.
func NewBuilder(layout Layout, splitter *chunker.Splitter, opts ...Option) *Builder {
	return &Builder{
		layout:    layout,
		splitter:  splitter,
		extractor: extract.NewExtractor(),
		opts:      newOptions(opts),
	}
}

// Build extracts every document in pdfDir, chunks the joined text, fits a new
// index and persists it with its manifest. A failed fit or save leaves the
// previous artifacts untouched and is recorded as a failed build. Mirroring
// runs last and never fails the build.
func (b *Builder) Build(ctx context.Context, pdfDir string) (*BuildResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	log := b.opts.logger
	start := b.opts.now()
	files, err := listFiles(pdfDir, b.opts.extensions)
	if err != nil {
		return nil, b.fail(ctx, start, 0, 0, err)
	}

	res := &BuildResult{}
	var texts, names []string
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, err := b.extractor.Extract(path)
		if err != nil {
			log.Warn("skipping unreadable document", zap.String("path", path), zap.Error(err))
			res.Skipped = append(res.Skipped, filepath.Base(path))
			continue
		}
		if strings.TrimSpace(text) == "" {
			log.Warn("skipping document without text", zap.String("path", path))
			res.Skipped = append(res.Skipped, filepath.Base(path))
			continue
		}
		texts = append(texts, text)
		names = append(names, filepath.Base(path))
	}
	if len(texts) == 0 {
		return nil, b.fail(ctx, start, 0, 0, fmt.Errorf("%s: %w", pdfDir, ErrNoDocuments))
	}

	chunks := b.splitter.Split(strings.Join(texts, "\n"))
	log.Info("split documents", zap.Int("documents", len(texts)), zap.Int("chunks", len(chunks)))

	idx := lexical.New(
		lexical.WithParams(b.opts.params),
		lexical.WithLogger(log),
		lexical.WithTexts(chunks),
	)
	if err := idx.Fit(); err != nil {
		return nil, b.fail(ctx, start, len(chunks), len(names), err)
	}
	if err := idx.Save(b.layout.IndexDir()); err != nil {
		return nil, b.fail(ctx, start, len(chunks), len(names), fmt.Errorf("failed to save index: %w", err))
	}

	storageType := StorageLocal
	if b.opts.mirror.Enabled() {
		storageType = StorageMirror
	}
	manifest := &Manifest{
		CreatedAt:      start,
		NumChunks:      len(chunks),
		NumPDFs:        len(names),
		PDFNames:       names,
		StorageType:    storageType,
		EmbeddingModel: EmbeddingModel,
	}
	if err := manifest.write(b.layout.ManifestPath()); err != nil {
		return nil, b.fail(ctx, start, len(chunks), len(names), err)
	}

	build := &models.Build{
		CreatedAt: start,
		NumChunks: len(chunks),
		NumPDFs:   len(names),
		Status:    models.BuildSucceeded,
	}
	b.record(ctx, build)
	b.opts.metrics.ObserveBuild(true, len(chunks))

	res.Index, res.Manifest, res.Build = idx, manifest, build
	if b.opts.mirror.Enabled() {
		res.MirrorErr = b.opts.mirror.Push(ctx, b.layout.IndexDir(), b.layout.ManifestPath())
		b.opts.metrics.ObserveMirror("push", res.MirrorErr == nil)
		if res.MirrorErr != nil {
			log.Warn("index saved locally but mirroring failed", zap.Error(res.MirrorErr))
		}
	}

	log.Info("knowledge base built",
		zap.Int("pdfs", len(names)),
		zap.Int("chunks", len(chunks)),
		zap.Int("skipped", len(res.Skipped)),
		zap.Duration("duration", time.Since(start)))
	return res, nil
}

func (b *Builder) fail(ctx context.Context, start time.Time, chunks, pdfs int, err error) error {
	b.opts.logger.Error("knowledge base build failed", zap.Error(err))
	b.record(ctx, &models.Build{
		CreatedAt: start,
		NumChunks: chunks,
		NumPDFs:   pdfs,
		Status:    models.BuildFailed,
		Error:     err.Error(),
	})
	b.opts.metrics.ObserveBuild(false, 0)
	return err
}

func (b *Builder) record(ctx context.Context, build *models.Build) {
	if b.opts.registry == nil {
		return
	}
	if err := b.opts.registry.RecordBuild(ctx, build); err != nil {
		b.opts.logger.Warn("failed to record build", zap.Error(err))
	}
}

// listFiles returns the files in dir with one of exts, sorted by name.
func listFiles(dir string, exts []string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if !e.Type().IsRegular() || !hasExtension(e.Name(), exts) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

func hasExtension(name string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range exts {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}
