package e2e

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/kbassist/internal/extract"
)

func TestWriteCorpus_AllFilesExtractable(t *testing.T) {
	dir := t.TempDir()
	c := BuildCorpus()
	names, err := WriteCorpus(dir, c)
	if err != nil {
		t.Fatalf("WriteCorpus: %v", err)
	}
	if len(names) != c.TotalDocs {
		t.Fatalf("wrote %d files, want %d", len(names), c.TotalDocs)
	}
	e := extract.NewExtractor()
	for i, name := range names {
		got, err := e.Extract(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("Extract(%s): %v", name, err)
		}
		if !strings.Contains(got, c.Documents[i].Content) {
			t.Errorf("extracted text %q does not contain the document content", got)
		}
	}
}
