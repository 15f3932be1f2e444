package main

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/hyperjump/kbassist/internal/cli"
	"github.com/hyperjump/kbassist/internal/library"
	"github.com/hyperjump/kbassist/internal/storage"
)

func TestArgsReorder(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected []string
	}{
		{
			name:     "flags after query are moved first",
			args:     []string{"initial evaluation timeline", "-k", "5"},
			expected: []string{"-k", "5", "initial evaluation timeline"},
		},
		{
			name:     "flags first returns unchanged",
			args:     []string{"-k", "5", "initial evaluation timeline"},
			expected: []string{"-k", "5", "initial evaluation timeline"},
		},
		{
			name:     "query only returns unchanged",
			args:     []string{"initial evaluation timeline"},
			expected: []string{"initial evaluation timeline"},
		},
		{
			name:     "empty args returns unchanged",
			args:     []string{},
			expected: []string{},
		},
		{
			name:     "multiple positionals then flags",
			args:     []string{"one", "two", "-output", "json"},
			expected: []string{"-output", "json", "one", "two"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := argsReorder(tt.args)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("argsReorder() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestBuildQuery(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected string
	}{
		{"single word", []string{"consent"}, "consent"},
		{"multiple words", []string{"written", "consent"}, "written consent"},
		{"quoted phrase", []string{"written consent"}, "written consent"},
		{"surrounding space", []string{"  consent  "}, "consent"},
		{"empty", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := buildQuery(tt.args); got != tt.expected {
				t.Errorf("buildQuery() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	origWd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(origWd) })
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
}

func TestLoadConfig_prefersCwdConfigWhenDefaultPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
debug: true
server:
  host: "localhost"
  port: 8080
storage:
  database_path: "test.db"
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	chdir(t, dir)

	cfg, resolved, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	// On macOS, cwd can be /private/var/... while configPath from t.TempDir() is /var/...; compare canonical paths.
	resolvedCanon, _ := filepath.EvalSymlinks(resolved)
	configPathCanon, _ := filepath.EvalSymlinks(configPath)
	if resolvedCanon != configPathCanon {
		t.Errorf("resolved path = %s, want %s", resolved, configPath)
	}
	if !cfg.Debug {
		t.Error("debug should be true from cwd config.yaml")
	}
}

func TestLoadConfig_defaultsWhenNoFile(t *testing.T) {
	chdir(t, t.TempDir())
	cfg, resolved, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != "" {
		t.Errorf("resolved = %q, want empty for defaults", resolved)
	}
	if cfg.Chunking.ChunkSize != 1000 || cfg.Search.K != 30 {
		t.Errorf("defaults not applied: chunking=%+v search=%+v", cfg.Chunking, cfg.Search)
	}
	if !filepath.IsAbs(cfg.Storage.PDFDir) {
		t.Errorf("pdf dir not expanded: %s", cfg.Storage.PDFDir)
	}
}

func TestLoadConfig_usesExplicitPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "127.0.0.1"
  port: 9000
storage:
  database_path: "test.db"
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != configPath {
		t.Errorf("resolved path = %s, want %s", resolved, configPath)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Storage.DatabasePath != filepath.Join(dir, "test.db") {
		t.Errorf("database path = %s", cfg.Storage.DatabasePath)
	}
}

func TestLoadConfig_missingExplicitPath(t *testing.T) {
	if _, _, err := loadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing explicit config")
	}
}

func TestPDFCommand(t *testing.T) {
	dir := t.TempDir()
	registry, err := storage.NewSQLiteRegistry(filepath.Join(dir, "kb.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer registry.Close()
	lib := library.New(library.Config{
		PDFDir:            filepath.Join(dir, "pdfs"),
		BackupDir:         filepath.Join(dir, "backups"),
		MaxFileSize:       1 << 20,
		MaxFiles:          5,
		AllowedExtensions: []string{".pdf"},
	}, registry)
	src := filepath.Join(dir, "handbook.pdf")
	if err := os.WriteFile(src, []byte("%PDF-1.4 test"), 0644); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	text := pdfOptions{format: cli.OutputText}

	upload := pdfOptions{description: "district handbook", format: cli.OutputText}
	if err := pdfCommand(ctx, lib, "upload", []string{src}, upload); err != nil {
		t.Fatalf("upload: %v", err)
	}
	entries, err := lib.List(ctx)
	if err != nil || len(entries) != 1 || !strings.HasSuffix(entries[0].Name, "_handbook.pdf") {
		t.Fatalf("List() = %+v, %v", entries, err)
	}
	if entries[0].Document == nil || entries[0].Document.Description != "district handbook" {
		t.Errorf("registry record = %+v", entries[0].Document)
	}
	if err := pdfCommand(ctx, lib, "backup", nil, pdfOptions{backupName: "pre-delete", format: cli.OutputText}); err != nil {
		t.Fatalf("backup: %v", err)
	}
	if err := pdfCommand(ctx, lib, "delete", []string{entries[0].Name}, text); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := pdfCommand(ctx, lib, "delete", []string{entries[0].Name}, text); err == nil {
		t.Error("second delete should fail")
	}
	if err := pdfCommand(ctx, lib, "restore", []string{"pre-delete"}, text); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if _, err := os.Stat(filepath.Join(lib.Dir(), entries[0].Name)); err != nil {
		t.Errorf("restored file: %v", err)
	}

	for _, tc := range []struct {
		sub  string
		args []string
	}{
		{"upload", nil},
		{"delete", nil},
		{"restore", nil},
		{"frobnicate", nil},
	} {
		if err := pdfCommand(ctx, lib, tc.sub, tc.args, text); err == nil {
			t.Errorf("pdf %s %v: expected error", tc.sub, tc.args)
		}
	}
}
