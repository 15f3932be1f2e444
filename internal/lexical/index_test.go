package lexical

import (
	"fmt"
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestIndex_StateMachine(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	x := New(WithLogger(zap.New(core)))
	if x.State() != StateEmpty || x.Ready() {
		t.Fatalf("new index state = %v", x.State())
	}
	if err := x.Fit(); err != nil {
		t.Fatalf("Fit on empty corpus: %v", err)
	}
	if x.State() != StateEmpty {
		t.Errorf("state after empty fit = %v", x.State())
	}
	if n := logs.FilterMessage("no texts to fit").Len(); n != 1 {
		t.Errorf("empty fit logged %d warnings, want 1", n)
	}
	if got := x.Query("anything", 3, 0); len(got) != 0 {
		t.Errorf("empty index returned %v", got)
	}

	x.Add(nil)
	if x.State() != StateEmpty {
		t.Errorf("Add(nil) changed state to %v", x.State())
	}
	x.Add([]string{"cat law", "dog law"})
	if x.State() != StateDirty {
		t.Errorf("state after add = %v", x.State())
	}
	if err := x.Fit(); err != nil {
		t.Fatal(err)
	}
	if x.State() != StateFitted || x.Len() != 2 || x.Terms() == 0 {
		t.Errorf("state=%v len=%d terms=%d", x.State(), x.Len(), x.Terms())
	}
	x.Add([]string{"space law"})
	if x.State() != StateDirty || x.Terms() != 0 {
		t.Errorf("state after second add = %v", x.State())
	}
}

func TestIndex_QueryScenario(t *testing.T) {
	x := New(WithTexts([]string{"cat law", "dog law", "space law"}))
	got := x.Query("cat", 1, 0)
	if len(got) != 1 {
		t.Fatalf("got %d results", len(got))
	}
	if got[0].Text != "cat law" {
		t.Errorf("top result = %q", got[0].Text)
	}
	if x.State() != StateFitted {
		t.Errorf("query should have fitted lazily, state = %v", x.State())
	}
	all := x.Query("cat", 3, 0)
	if len(all) != 3 {
		t.Fatalf("got %d results", len(all))
	}
	for _, r := range all[1:] {
		if r.Score >= all[0].Score {
			t.Errorf("%q scored %v, not below top %v", r.Text, r.Score, all[0].Score)
		}
	}
	// Zero-score ties keep corpus order.
	if all[1].Text != "dog law" || all[2].Text != "space law" {
		t.Errorf("tie order = %q, %q", all[1].Text, all[2].Text)
	}
}

func TestIndex_ChunkMatchesItself(t *testing.T) {
	corpus := []string{
		"Parents may attend the ARD committee meeting by telephone.",
		"The district must provide written notice five school days before the meeting.",
		"A full individual evaluation must be completed within 45 school days.",
		"Transition services begin at age fourteen under Texas law.",
	}
	x := New(WithTexts(corpus))
	for i, text := range corpus {
		got := x.Query(text, 1, 0)
		if len(got) != 1 || got[0].Text != corpus[i] {
			t.Errorf("query of chunk %d returned %v", i, got)
		}
	}
}

func TestIndex_QueryBounds(t *testing.T) {
	words := []string{"alpha", "beta", "gamma", "delta"}
	var corpus []string
	for i := 0; i < 20; i++ {
		corpus = append(corpus, fmt.Sprintf("special education evaluation timeline section %s notice", words[i%4]))
	}
	x := New(WithTexts(corpus))
	for _, k := range []int{1, 3, 50} {
		for _, th := range []float64{0, 0.3, 0.9} {
			got := x.Query("alpha notice", k, th)
			if len(got) > k {
				t.Errorf("k=%d: got %d results", k, len(got))
			}
			for i, r := range got {
				if r.Score < th || r.Score > 1 {
					t.Errorf("k=%d th=%v: score %v", k, th, r.Score)
				}
				if i > 0 && r.Score > got[i-1].Score {
					t.Errorf("results not descending at %d", i)
				}
			}
		}
	}
	if got := x.Query("alpha", 50, 0.01); len(got) != 5 {
		t.Errorf("expected the 5 alpha chunks, got %d", len(got))
	}
	if got := x.Query("alpha", 0, 0); got != nil {
		t.Errorf("k=0 returned %v", got)
	}
}

func TestIndex_FitFailureLeavesDirty(t *testing.T) {
	texts := make([]string, 12)
	for i := range texts {
		texts[i] = fmt.Sprintf("token%c", 'a'+i)
	}
	x := New(WithTexts(texts))
	if err := x.Fit(); err == nil {
		t.Fatal("expected fit error when every term is pruned")
	}
	if x.State() != StateDirty {
		t.Errorf("state = %v, want dirty", x.State())
	}
	if got := x.Query("tokena", 5, 0); len(got) != 0 {
		t.Errorf("query after failed fit returned %v", got)
	}
}

func TestIndex_ConcurrentQueries(t *testing.T) {
	x := New(WithTexts([]string{"cat law", "dog law", "space law"}))
	if err := x.Fit(); err != nil {
		t.Fatal(err)
	}
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if got := x.Query("dog", 1, 0); len(got) != 1 || got[0].Text != "dog law" {
					t.Errorf("got %v", got)
					return
				}
			}
		}()
	}
	wg.Wait()
}
