package benchmark

import (
	"fmt"
	"strings"
	"testing"

	"github.com/hyperjump/kbassist/internal/chunker"
	"github.com/hyperjump/kbassist/internal/lexical"
)

var terms = []string{
	"evaluation", "consent", "placement", "eligibility", "dyslexia", "autism",
	"behavior", "intervention", "transition", "services", "committee", "parent",
	"timeline", "reevaluation", "accommodations", "hearing", "mediation", "notice",
}

func corpus(n int) []string {
	docs := make([]string, n)
	for i := range docs {
		var b strings.Builder
		for j := 0; j < 40; j++ {
			b.WriteString(terms[(i*7+j*3)%len(terms)])
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "section %d", i%50)
		docs[i] = b.String()
	}
	return docs
}

func BenchmarkIndexFit(b *testing.B) {
	docs := corpus(1000)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		idx := lexical.New(lexical.WithTexts(docs))
		if err := idx.Fit(); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkIndexQuery(b *testing.B) {
	idx := lexical.New(lexical.WithTexts(corpus(1000)))
	if err := idx.Fit(); err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = idx.Query("initial evaluation timeline consent", 30, 0)
	}
}

func BenchmarkSplit(b *testing.B) {
	text := strings.Join(corpus(500), "\n")
	s := chunker.NewSplitter(1000, 200, "\n")
	b.SetBytes(int64(len(text)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = s.Split(text)
	}
}
