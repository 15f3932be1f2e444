package e2e

import (
	"os"
	"path/filepath"
)

// SupportedFileExtensions are the plain-text types the extractor reads that
// the E2E tests write. PDF extraction is covered by internal/extract tests.
var SupportedFileExtensions = []string{".txt", ".md"}

// WriteCorpus writes each document to dir, cycling through
// SupportedFileExtensions, and returns the file names written.
func WriteCorpus(dir string, c *Corpus) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(c.Documents))
	for i, d := range c.Documents {
		name := d.ID + SupportedFileExtensions[i%len(SupportedFileExtensions)]
		if err := os.WriteFile(filepath.Join(dir, name), []byte(d.Text()), 0644); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, nil
}
