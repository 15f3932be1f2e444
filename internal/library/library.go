// Package library manages the PDF collection the knowledge base is built from:
// validated uploads, deletion with backup, and full backup/restore.
package library

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/hyperjump/kbassist/internal/fileid"
	"github.com/hyperjump/kbassist/internal/models"
	"github.com/hyperjump/kbassist/internal/storage"
	"github.com/hyperjump/kbassist/pkg/utils"
	"go.uber.org/zap"
)

var (
	// ErrInvalidFile is returned for empty files, disallowed extensions, and bad names.
	ErrInvalidFile = errors.New("invalid file")
	// ErrTooLarge is returned when a file exceeds the size limit or too many files are sent.
	ErrTooLarge = errors.New("file too large")
	// ErrNotFound is returned when a named PDF or backup does not exist.
	ErrNotFound = errors.New("not found")
	// ErrExists is returned when a named backup is already taken.
	ErrExists = errors.New("already exists")
)

const manifestName = "backup_manifest.json"

// Config configures a Library.
type Config struct {
	PDFDir            string
	BackupDir         string
	MaxFileSize       int64
	MaxFiles          int
	AllowedExtensions []string
}

// Entry is a PDF on disk, annotated with its registry record when one exists.
type Entry struct {
	Name       string           `json:"name"`
	SizeBytes  int64            `json:"size_bytes"`
	ModifiedAt time.Time        `json:"modified_at"`
	Document   *models.Document `json:"document,omitempty"`
}

// Description returns the registry description, or "" when unrecorded.
func (e Entry) Description() string {
	if e.Document == nil {
		return ""
	}
	return e.Document.Description
}

// BackupManifest describes a backup directory.
type BackupManifest struct {
	BackupName      string    `json:"backup_name"`
	CreatedAt       time.Time `json:"created_at"`
	PDFCount        int       `json:"pdf_count"`
	SourceDirectory string    `json:"source_directory"`
}

// Info summarizes the library.
type Info struct {
	PDFCount    int    `json:"pdf_count"`
	TotalBytes  int64  `json:"total_bytes"`
	PDFDir      string `json:"pdf_dir"`
	BackupCount int    `json:"backup_count"`
}

// UploadResult reports the outcome of one file in UploadMany.
type UploadResult struct {
	Name     string           `json:"name"`
	Document *models.Document `json:"document,omitempty"`
	Error    string           `json:"error,omitempty"`
}

// File is one named upload with an optional description.
type File struct {
	Name        string
	Description string
	Reader      io.Reader
}

// Library stores PDFs under PDFDir and records them in a registry.
type Library struct {
	cfg      Config
	registry storage.Registry
	logger   *zap.Logger
	now      func() time.Time
}

// Option configures a Library.
type Option func(*Library)

// WithLogger sets the library's logger.
func WithLogger(l *zap.Logger) Option {
	return func(lib *Library) { lib.logger = l }
}

// WithClock overrides the time source used for stored names and backups.
func WithClock(now func() time.Time) Option {
	return func(lib *Library) { lib.now = now }
}

// New creates a library. registry may be nil, in which case uploads are not recorded.
func New(cfg Config, registry storage.Registry, opts ...Option) *Library {
	if len(cfg.AllowedExtensions) == 0 {
		cfg.AllowedExtensions = []string{".pdf"}
	}
	lib := &Library{cfg: cfg, registry: registry, now: time.Now}
	for _, opt := range opts {
		opt(lib)
	}
	if lib.logger == nil {
		lib.logger = zap.NewNop()
	}
	return lib
}

// Dir returns the PDF directory.
func (l *Library) Dir() string {
	return l.cfg.PDFDir
}

// Upload validates and stores one file. The stored file is removed again if
// the registry rejects the record.
func (l *Library) Upload(ctx context.Context, originalName, description string, r io.Reader) (*models.Document, error) {
	name := fileid.SafeBase(originalName)
	if !l.allowed(name) {
		return nil, fmt.Errorf("%w: %s: extension not allowed (allowed: %s)",
			ErrInvalidFile, name, strings.Join(l.cfg.AllowedExtensions, ", "))
	}
	var buf bytes.Buffer
	limit := l.cfg.MaxFileSize
	src := r
	if limit > 0 {
		src = io.LimitReader(r, limit+1)
	}
	if _, err := io.Copy(&buf, src); err != nil {
		return nil, fmt.Errorf("failed to read upload %s: %w", name, err)
	}
	if limit > 0 && int64(buf.Len()) > limit {
		return nil, fmt.Errorf("%w: %s exceeds %d MB", ErrTooLarge, name, limit>>20)
	}
	if buf.Len() == 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrInvalidFile, name)
	}

	content := buf.Bytes()
	sum := fileid.Checksum(content)
	uploadedAt := l.now()
	stored := fileid.StoredName(uploadedAt, sum, name)
	path := filepath.Join(l.cfg.PDFDir, stored)
	if err := utils.WriteFileAtomic(path, content, 0644); err != nil {
		return nil, fmt.Errorf("failed to store %s: %w", name, err)
	}
	doc := &models.Document{
		ID:           fileid.DocID(stored),
		StoredName:   stored,
		OriginalName: name,
		SizeBytes:    int64(len(content)),
		SHA256:       sum,
		Description:  strings.TrimSpace(description),
		UploadedAt:   uploadedAt,
	}
	if l.registry != nil {
		if err := l.registry.CreateDocument(ctx, doc); err != nil {
			if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
				l.logger.Warn("failed to remove unregistered upload", zap.String("name", stored), zap.Error(rmErr))
			}
			return nil, fmt.Errorf("failed to register %s: %w", stored, err)
		}
	}
	l.logger.Info("stored upload", zap.String("name", stored), zap.Int64("bytes", doc.SizeBytes))
	return doc, nil
}

// UploadMany stores up to MaxFiles files and reports each outcome. Exceeding
// the file count rejects the whole batch.
func (l *Library) UploadMany(ctx context.Context, files []File) ([]UploadResult, error) {
	if l.cfg.MaxFiles > 0 && len(files) > l.cfg.MaxFiles {
		return nil, fmt.Errorf("%w: %d files sent, at most %d allowed", ErrTooLarge, len(files), l.cfg.MaxFiles)
	}
	results := make([]UploadResult, len(files))
	for i, f := range files {
		results[i].Name = f.Name
		doc, err := l.Upload(ctx, f.Name, f.Description, f.Reader)
		if err != nil {
			results[i].Error = err.Error()
			continue
		}
		results[i].Document = doc
	}
	return results, nil
}

// List returns the PDFs on disk sorted by name.
func (l *Library) List(ctx context.Context) ([]Entry, error) {
	names, err := l.pdfNames(l.cfg.PDFDir)
	if err != nil {
		return nil, err
	}
	records := map[string]*models.Document{}
	if l.registry != nil {
		docs, err := l.registry.ListDocuments(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list registry: %w", err)
		}
		for _, d := range docs {
			records[d.StoredName] = d
		}
	}
	entries := make([]Entry, 0, len(names))
	for _, name := range names {
		info, err := os.Stat(filepath.Join(l.cfg.PDFDir, name))
		if err != nil {
			continue
		}
		entries = append(entries, Entry{
			Name:       name,
			SizeBytes:  info.Size(),
			ModifiedAt: info.ModTime(),
			Document:   records[name],
		})
	}
	return entries, nil
}

// Paths returns the absolute paths of every PDF on disk, sorted by name.
func (l *Library) Paths() ([]string, error) {
	names, err := l.pdfNames(l.cfg.PDFDir)
	if err != nil {
		return nil, err
	}
	paths := make([]string, len(names))
	for i, n := range names {
		paths[i] = filepath.Join(l.cfg.PDFDir, n)
	}
	return paths, nil
}

// Delete copies the PDF to the backup directory as deleted_<ts>_<name>, then
// removes it from disk and the registry.
func (l *Library) Delete(ctx context.Context, name string) error {
	if name != fileid.SafeBase(name) {
		return fmt.Errorf("%w: bad name %q", ErrInvalidFile, name)
	}
	src := filepath.Join(l.cfg.PDFDir, name)
	if _, err := os.Stat(src); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return err
	}
	backup := filepath.Join(l.cfg.BackupDir, "deleted_"+l.timestamp()+"_"+name)
	if err := utils.CopyFile(src, backup); err != nil {
		return fmt.Errorf("failed to back up %s: %w", name, err)
	}
	if err := os.Remove(src); err != nil {
		return fmt.Errorf("failed to delete %s: %w", name, err)
	}
	if l.registry != nil {
		if err := l.registry.DeleteDocumentByName(ctx, name); err != nil {
			return fmt.Errorf("failed to unregister %s: %w", name, err)
		}
	}
	l.logger.Info("deleted pdf", zap.String("name", name), zap.String("backup", backup))
	return nil
}

// Backup copies every PDF into a new backup directory and writes its manifest.
// An empty name yields backup_<ts>, suffixed _1, _2, ... when that directory
// already exists. A given name is reduced to its base name and must be unused.
func (l *Library) Backup(ctx context.Context, name string) (*BackupManifest, error) {
	paths, err := l.Paths()
	if err != nil {
		return nil, err
	}
	name, dir, err := l.createBackupDir(name)
	if err != nil {
		return nil, err
	}
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := utils.CopyFile(p, filepath.Join(dir, filepath.Base(p))); err != nil {
			return nil, fmt.Errorf("failed to back up %s: %w", filepath.Base(p), err)
		}
	}
	manifest := &BackupManifest{
		BackupName:      name,
		CreatedAt:       l.now(),
		PDFCount:        len(paths),
		SourceDirectory: l.cfg.PDFDir,
	}
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := utils.WriteFileAtomic(filepath.Join(dir, manifestName), data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write backup manifest: %w", err)
	}
	l.logger.Info("created backup", zap.String("name", name), zap.Int("pdfs", len(paths)))
	return manifest, nil
}

// Restore copies the PDFs of a backup back into the PDF directory, overwriting
// files with the same name. It returns the number of files restored.
func (l *Library) Restore(ctx context.Context, backupName string) (int, error) {
	if backupName != fileid.SafeBase(backupName) {
		return 0, fmt.Errorf("%w: bad backup name %q", ErrInvalidFile, backupName)
	}
	dir := filepath.Join(l.cfg.BackupDir, backupName)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return 0, fmt.Errorf("%w: backup %s", ErrNotFound, backupName)
	}
	names, err := l.pdfNames(dir)
	if err != nil {
		return 0, err
	}
	for _, n := range names {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if err := utils.CopyFile(filepath.Join(dir, n), filepath.Join(l.cfg.PDFDir, n)); err != nil {
			return 0, fmt.Errorf("failed to restore %s: %w", n, err)
		}
	}
	l.logger.Info("restored backup", zap.String("name", backupName), zap.Int("pdfs", len(names)))
	return len(names), nil
}

// ListBackups returns one manifest per directory under BackupDir, sorted by
// name descending. Backups without a readable manifest are described from the
// directory alone.
func (l *Library) ListBackups() ([]BackupManifest, error) {
	entries, err := os.ReadDir(l.cfg.BackupDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read backup dir: %w", err)
	}
	var backups []BackupManifest
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(l.cfg.BackupDir, e.Name())
		var m BackupManifest
		data, err := os.ReadFile(filepath.Join(dir, manifestName))
		if err != nil || json.Unmarshal(data, &m) != nil {
			names, _ := l.pdfNames(dir)
			m = BackupManifest{BackupName: e.Name(), PDFCount: len(names), SourceDirectory: l.cfg.PDFDir}
			if info, err := e.Info(); err == nil {
				m.CreatedAt = info.ModTime()
			}
		}
		backups = append(backups, m)
	}
	sort.Slice(backups, func(i, j int) bool { return backups[i].BackupName > backups[j].BackupName })
	return backups, nil
}

// Info summarizes the library.
func (l *Library) Info(ctx context.Context) (*Info, error) {
	entries, err := l.List(ctx)
	if err != nil {
		return nil, err
	}
	backups, err := l.ListBackups()
	if err != nil {
		return nil, err
	}
	info := &Info{PDFCount: len(entries), PDFDir: l.cfg.PDFDir, BackupCount: len(backups)}
	for _, e := range entries {
		info.TotalBytes += e.SizeBytes
	}
	return info, nil
}

func (l *Library) createBackupDir(name string) (string, string, error) {
	if err := os.MkdirAll(l.cfg.BackupDir, 0755); err != nil {
		return "", "", fmt.Errorf("failed to create backup dir: %w", err)
	}
	named := strings.TrimSpace(name) != ""
	base := "backup_" + l.timestamp()
	if named {
		base = fileid.SafeBase(strings.TrimSpace(name))
		if base == "unnamed" {
			return "", "", fmt.Errorf("%w: bad backup name %q", ErrInvalidFile, name)
		}
	}
	candidate := base
	for i := 1; ; i++ {
		dir := filepath.Join(l.cfg.BackupDir, candidate)
		err := os.Mkdir(dir, 0755)
		if err == nil {
			return candidate, dir, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return "", "", fmt.Errorf("failed to create backup dir: %w", err)
		}
		if named {
			return "", "", fmt.Errorf("%w: backup %s", ErrExists, candidate)
		}
		candidate = fmt.Sprintf("%s_%d", base, i)
	}
}

func (l *Library) pdfNames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && l.allowed(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func (l *Library) allowed(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, a := range l.cfg.AllowedExtensions {
		if strings.ToLower(a) == ext {
			return true
		}
	}
	return false
}

func (l *Library) timestamp() string {
	return l.now().Format(fileid.TimestampLayout)
}
