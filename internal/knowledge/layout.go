// Package knowledge builds the retrieval index from the PDF library and holds
// the live index the chat and retrieval endpoints query.
package knowledge

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hyperjump/kbassist/pkg/utils"
)

// EmbeddingModel names the representation recorded in build manifests.
const EmbeddingModel = "tfidf-lightweight"

// Storage types recorded in build manifests.
const (
	StorageLocal  = "local"
	StorageMirror = "local+mirror"
)

// Layout locates the knowledge base files under one root directory.
type Layout struct {
	Root string
}

// IndexDir is the directory holding the index artifacts.
func (l Layout) IndexDir() string {
	return filepath.Join(l.Root, "faiss_index")
}

// ManifestPath is the build manifest written next to the index directory.
func (l Layout) ManifestPath() string {
	return filepath.Join(l.Root, "metadata.json")
}

// MirrorCacheDir is where mirrored artifacts are downloaded before loading.
func (l Layout) MirrorCacheDir() string {
	return filepath.Join(l.Root, "mirror_cache")
}

// Manifest describes one successful build.
type Manifest struct {
	CreatedAt      time.Time `json:"created_at"`
	NumChunks      int       `json:"num_chunks"`
	NumPDFs        int       `json:"num_pdfs"`
	PDFNames       []string  `json:"pdf_names"`
	StorageType    string    `json:"storage_type"`
	EmbeddingModel string    `json:"embedding_model"`
}

// ReadManifest reads a manifest file.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return parseManifest(data)
}

func parseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return &m, nil
}

func (m *Manifest) write(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	return utils.WriteFileAtomic(path, data, 0644)
}
