package knowledge

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hyperjump/kbassist/internal/config"
	"github.com/hyperjump/kbassist/internal/lexical"
)

// Validate checks that cfg describes a usable deployment and returns one
// message per problem found. An empty result means the setup is complete.
func Validate(cfg *config.Config) []string {
	var problems []string
	if err := config.Validate(cfg); err != nil {
		problems = append(problems, err.Error())
	}

	pdfDir := cfg.Storage.PDFDir
	if info, err := os.Stat(pdfDir); err != nil || !info.IsDir() {
		problems = append(problems, fmt.Sprintf("PDF directory %s does not exist", pdfDir))
	} else if files, err := listFiles(pdfDir, cfg.Upload.AllowedExtensions); err != nil || len(files) == 0 {
		problems = append(problems, fmt.Sprintf("no PDF files found in %s", pdfDir))
	}

	layout := Layout{Root: cfg.Storage.EmbeddingsDir}
	for _, name := range lexical.ArtifactFiles {
		path := filepath.Join(layout.IndexDir(), name)
		if _, err := os.Stat(path); err != nil {
			problems = append(problems, fmt.Sprintf("index artifact %s is missing; run ingest", path))
		}
	}

	if cfg.LLM.APIKey == "" {
		problems = append(problems, "LLM API key is not set (OPENAI_API_KEY)")
	}
	return problems
}
