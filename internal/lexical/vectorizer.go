package lexical

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/hyperjump/kbassist/pkg/utils"
)

var (
	// ErrEmptyVocabulary is returned when no document yields a single term.
	ErrEmptyVocabulary = errors.New("empty vocabulary; perhaps the documents only contain stop words")
	// ErrNoTermsRemain is returned when the document-frequency bounds prune every term.
	ErrNoTermsRemain = errors.New("after pruning, no terms remain; try a lower min_df or a higher max_df")
)

// Params configures the vectorizer.
type Params struct {
	// MaxFeatures caps the vocabulary at the most frequent terms. 0 means no cap.
	MaxFeatures int `cbor:"max_features" json:"max_features" yaml:"max_features"`
	// MinDF is the minimum number of documents a term must appear in.
	MinDF int `cbor:"min_df" json:"min_df" yaml:"min_df"`
	// MaxDF is the maximum fraction of documents a term may appear in.
	MaxDF float64 `cbor:"max_df" json:"max_df" yaml:"max_df"`
	// SmallCorpus relaxes the bounds to MinDF=1, MaxDF=1.0 when the corpus has
	// fewer documents than this. 0 disables the relaxation.
	SmallCorpus int `cbor:"small_corpus" json:"small_corpus" yaml:"small_corpus"`
}

// DefaultParams returns the standard vectorizer configuration.
func DefaultParams() Params {
	return Params{
		MaxFeatures: 10000,
		MinDF:       2,
		MaxDF:       0.95,
		SmallCorpus: 10,
	}
}

// bounds returns the inclusive document-count range a term must fall in for a
// corpus of n documents.
func (p Params) bounds(n int) (low, high float64) {
	minDF, maxDF := p.MinDF, p.MaxDF
	if p.SmallCorpus > 0 && n < p.SmallCorpus {
		minDF, maxDF = 1, 1.0
	}
	if minDF < 1 {
		minDF = 1
	}
	if maxDF <= 0 || maxDF > 1 {
		maxDF = 1
	}
	return float64(minDF), maxDF * float64(n)
}

// Vectorizer maps analyzed text onto a fixed vocabulary with IDF weights.
// A fitted Vectorizer is immutable.
type Vectorizer struct {
	Params  Params    `cbor:"params"`
	Terms   []string  `cbor:"terms"`
	IDF     []float64 `cbor:"idf"`
	NumDocs int       `cbor:"num_docs"`

	index map[string]int
}

// fitVectorizer learns the vocabulary and IDF weights of docs and returns the
// L2-normalized TF-IDF matrix of docs.
func fitVectorizer(docs []string, params Params) (*Vectorizer, *Matrix, error) {
	n := len(docs)
	counts := make([]map[string]int, n)
	df := make(map[string]int)
	total := make(map[string]int)
	for i, doc := range docs {
		counts[i] = termCounts(doc)
		for term, c := range counts[i] {
			df[term]++
			total[term] += c
		}
	}
	if len(df) == 0 {
		return nil, nil, ErrEmptyVocabulary
	}

	low, high := params.bounds(n)
	if high < low {
		return nil, nil, fmt.Errorf("max_df corresponds to %.2f documents, fewer than min_df %.0f", high, low)
	}
	kept := make([]string, 0, len(df))
	for term, d := range df {
		if float64(d) >= low && float64(d) <= high {
			kept = append(kept, term)
		}
	}
	if len(kept) == 0 {
		return nil, nil, ErrNoTermsRemain
	}
	if params.MaxFeatures > 0 && len(kept) > params.MaxFeatures {
		sort.Slice(kept, func(i, j int) bool {
			if total[kept[i]] != total[kept[j]] {
				return total[kept[i]] > total[kept[j]]
			}
			return kept[i] < kept[j]
		})
		kept = kept[:params.MaxFeatures]
	}
	sort.Strings(kept)

	v := &Vectorizer{
		Params:  params,
		Terms:   kept,
		IDF:     make([]float64, len(kept)),
		NumDocs: n,
	}
	for j, term := range kept {
		v.IDF[j] = math.Log(float64(1+n)/float64(1+df[term])) + 1
	}
	v.buildIndex()

	m := newMatrix(len(kept))
	for _, c := range counts {
		m.appendRow(v.weigh(c))
	}
	return v, m, nil
}

func (v *Vectorizer) buildIndex() {
	v.index = make(map[string]int, len(v.Terms))
	for j, t := range v.Terms {
		v.index[t] = j
	}
}

// Len returns the vocabulary size.
func (v *Vectorizer) Len() int {
	return len(v.Terms)
}

// Transform projects text into the vocabulary's weighted space. Terms outside
// the vocabulary are ignored.
func (v *Vectorizer) Transform(text string) SparseVector {
	return v.weigh(termCounts(text))
}

// weigh turns raw term counts into an L2-normalized TF-IDF row sorted by column.
func (v *Vectorizer) weigh(counts map[string]int) SparseVector {
	var row SparseVector
	for term, c := range counts {
		j, ok := v.index[term]
		if !ok {
			continue
		}
		row.Indices = append(row.Indices, uint32(j))
		row.Values = append(row.Values, float64(c)*v.IDF[j])
	}
	sort.Sort(&row)
	utils.NormalizeL2(row.Values)
	return row
}
