package lexical

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hyperjump/kbassist/internal/codec"
	"github.com/hyperjump/kbassist/pkg/utils"
	"go.uber.org/zap"
)

// Artifact file names inside an index directory.
const (
	VectorizerFile = "vectorizer.cbor"
	VectorsFile    = "vectors.bin.zst"
	TextsFile      = "texts.cbor"
	MetadataFile   = "metadata.json"
)

// ArtifactFiles lists every file Save writes, in write order.
var ArtifactFiles = []string{VectorizerFile, VectorsFile, TextsFile, MetadataFile}

// Metadata is the JSON summary stored next to the index artifacts.
type Metadata struct {
	NumTexts       int    `json:"num_texts"`
	VectorizerType string `json:"vectorizer_type"`
	Fitted         bool   `json:"fitted"`
}

// Save writes the fitted state to dir. Each artifact is replaced atomically,
// but the set as a whole is not: a crash between files can leave a mix of old
// and new artifacts, which Load detects through the row-count checks.
func (x *Index) Save(dir string) error {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if x.state != StateFitted {
		return ErrNotFitted
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create index dir: %w", err)
	}

	vecBytes, err := codec.MarshalCBOR(x.vec)
	if err != nil {
		return fmt.Errorf("failed to encode vectorizer: %w", err)
	}
	raw, err := x.matrix.MarshalBinary()
	if err != nil {
		return err
	}
	textBytes, err := codec.MarshalCBOR(x.texts)
	if err != nil {
		return fmt.Errorf("failed to encode texts: %w", err)
	}
	metaBytes, err := json.Marshal(Metadata{
		NumTexts:       len(x.texts),
		VectorizerType: "tfidf",
		Fitted:         true,
	})
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}

	artifacts := map[string][]byte{
		VectorizerFile: vecBytes,
		VectorsFile:    codec.Compress(raw),
		TextsFile:      textBytes,
		MetadataFile:   metaBytes,
	}
	for _, name := range ArtifactFiles {
		if err := utils.WriteFileAtomic(filepath.Join(dir, name), artifacts[name], 0644); err != nil {
			x.logger.Error("save artifact failed", zap.String("file", name), zap.Error(err))
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
	}
	x.logger.Info("saved index", zap.String("dir", dir), zap.Int("texts", len(x.texts)))
	return nil
}

// Load restores an index saved by Save. Every artifact must be present and
// decodable. If the matrix does not match the stored texts, the index is
// re-fitted from the texts instead of trusting the stored state.
func Load(dir string, opts ...Option) (*Index, error) {
	x := New(opts...)

	read := func(name string) ([]byte, error) {
		b, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
		return b, nil
	}

	vecBytes, err := read(VectorizerFile)
	if err != nil {
		return nil, err
	}
	var vec Vectorizer
	if err := codec.UnmarshalCBOR(vecBytes, &vec); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", VectorizerFile, err)
	}
	if len(vec.Terms) != len(vec.IDF) {
		return nil, fmt.Errorf("failed to decode %s: %d terms but %d weights", VectorizerFile, len(vec.Terms), len(vec.IDF))
	}
	vec.buildIndex()

	compressed, err := read(VectorsFile)
	if err != nil {
		return nil, err
	}
	raw, err := codec.Decompress(compressed)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", VectorsFile, err)
	}
	var m Matrix
	if err := m.UnmarshalBinary(raw); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", VectorsFile, err)
	}

	textBytes, err := read(TextsFile)
	if err != nil {
		return nil, err
	}
	var texts []string
	if err := codec.UnmarshalCBOR(textBytes, &texts); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", TextsFile, err)
	}

	metaBytes, err := read(MetadataFile)
	if err != nil {
		return nil, err
	}
	var meta Metadata
	if err := json.Unmarshal(metaBytes, &meta); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", MetadataFile, err)
	}

	x.texts = texts
	x.params = vec.Params
	logger := x.logger.With(zap.String("dir", dir), zap.Int("texts", len(texts)))

	if m.Rows() != len(texts) || m.Cols() != vec.Len() || meta.NumTexts != len(texts) {
		logger.Warn("index artifacts disagree, re-fitting from texts",
			zap.Int("matrix_rows", m.Rows()),
			zap.Int("matrix_cols", m.Cols()),
			zap.Int("vocabulary", vec.Len()),
			zap.Int("metadata_texts", meta.NumTexts))
		if err := x.Fit(); err != nil {
			return nil, err
		}
		return x, nil
	}
	if !meta.Fitted {
		logger.Warn("stored index was not marked fitted; artifacts are consistent, treating as fitted")
	}
	x.vec, x.matrix = &vec, &m
	x.state = StateFitted
	if len(texts) == 0 {
		x.state = StateEmpty
	}
	logger.Info("loaded index")
	return x, nil
}
