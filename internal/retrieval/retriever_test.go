package retrieval

import (
	"testing"

	"github.com/hyperjump/kbassist/internal/lexical"
)

type stubSearcher struct {
	gotK   int
	gotTh  float64
	ready  bool
	result []lexical.Result
}

func (s *stubSearcher) Query(_ string, k int, th float64) []lexical.Result {
	s.gotK, s.gotTh = k, th
	return s.result
}

func (s *stubSearcher) Ready() bool { return s.ready }

func TestRetriever_Retrieve(t *testing.T) {
	s := &stubSearcher{result: []lexical.Result{{Text: "a", Score: 0.9}, {Text: "b", Score: 0.5}}}
	r := New(s, Config{K: 30, ScoreThreshold: 0.42})
	docs := r.Retrieve("question")
	if s.gotK != 30 || s.gotTh != 0.42 {
		t.Errorf("searcher called with k=%d threshold=%v", s.gotK, s.gotTh)
	}
	if len(docs) != 2 || docs[0] != (Document{Content: "a", Score: 0.9}) {
		t.Errorf("docs = %+v", docs)
	}
	if got := FormatContext(docs); got != "a\n\nb" {
		t.Errorf("FormatContext = %q", got)
	}
}

func TestRetriever_Ready(t *testing.T) {
	s := &stubSearcher{}
	if New(s, Config{}).Ready() {
		t.Error("expected not ready")
	}
	s.ready = true
	if !New(s, Config{}).Ready() {
		t.Error("expected ready")
	}
}

func TestRetriever_OverLexicalIndex(t *testing.T) {
	idx := lexical.New(lexical.WithTexts([]string{"cat law", "dog law", "space law"}))
	r := New(idx, Config{K: 2, ScoreThreshold: 0.1})
	docs := r.Retrieve("cat")
	if len(docs) != 1 || docs[0].Content != "cat law" {
		t.Errorf("docs = %+v", docs)
	}
	if !r.Ready() {
		t.Error("index with texts should be ready")
	}
	if docs := New(lexical.New(), Config{K: 2}).Retrieve("cat"); len(docs) != 0 {
		t.Errorf("empty index returned %+v", docs)
	}
}
