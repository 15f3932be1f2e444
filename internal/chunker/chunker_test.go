package chunker

import (
	"reflect"
	"strings"
	"testing"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		sep       string
		chunkSize int
		overlap   int
		want      []string
	}{
		{
			name:      "three lines with overlap",
			text:      "aaaaaaaaaa\nbbbbbbbbbb\ncccccccccc",
			sep:       "\n",
			chunkSize: 20,
			overlap:   5,
			want:      []string{"aaaaaaaaaa", "aaaaa\nbbbbbbbbbb", "bbbbb\ncccccccccc"},
		},
		{
			name:      "lines merged up to the cap",
			text:      "one\ntwo\nthree\nfour",
			sep:       "\n",
			chunkSize: 9,
			overlap:   0,
			want:      []string{"one\ntwo", "three", "four"},
		},
		{
			name:      "oversized unit is force split",
			text:      strings.Repeat("x", 25),
			sep:       "\n",
			chunkSize: 10,
			overlap:   3,
			want:      []string{"xxxxxxxxxx", "xxxxxxxxxx", "xxxxx"},
		},
		{
			name:      "oversized unit after a buffered line",
			text:      "ab\n" + strings.Repeat("x", 25),
			sep:       "\n",
			chunkSize: 10,
			overlap:   3,
			want:      []string{"ab", "xxxxxxxxxx", "xxxxxxxxxx", "xxxxx"},
		},
		{
			name:      "overlap is shortened to fit",
			text:      "aaaaaaaaaa\nbbbbbbbb",
			sep:       "\n",
			chunkSize: 10,
			overlap:   5,
			want:      []string{"aaaaaaaaaa", "a\nbbbbbbbb"},
		},
		{
			name:      "whitespace only chunks are dropped",
			text:      "   \n   ",
			sep:       "\n",
			chunkSize: 3,
			overlap:   0,
			want:      nil,
		},
		{
			name:      "empty separator keeps text as one unit",
			text:      "hello world",
			sep:       "",
			chunkSize: 100,
			overlap:   10,
			want:      []string{"hello world"},
		},
		{
			name:      "characters not bytes",
			text:      "ééééé\nüüüüü",
			sep:       "\n",
			chunkSize: 11,
			overlap:   0,
			want:      []string{"ééééé\nüüüüü"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Split(tt.text, tt.sep, tt.chunkSize, tt.overlap)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Split() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSplit_Empty(t *testing.T) {
	if got := Split("", "\n", 10, 2); len(got) != 0 {
		t.Errorf("empty text should give no chunks, got %q", got)
	}
	if got := Split("abc", "\n", 0, 0); len(got) != 0 {
		t.Errorf("zero chunk size should give no chunks, got %q", got)
	}
	if got := Split("abc", "\n", 10, -4); !reflect.DeepEqual(got, []string{"abc"}) {
		t.Errorf("negative overlap: got %q", got)
	}
}

func sampleText() string {
	words := []string{
		"Section 300.322 parent participation",
		"The ARD committee must meet annually",
		"Notice is given five school days before",
		"x",
		"Evaluations are completed within forty five school days of consent",
		"A very long line " + strings.Repeat("without separators ", 12),
		"Texas Education Code 26.008",
	}
	return strings.Join(words, "\n")
}

func TestSplit_ChunksWithinSize(t *testing.T) {
	text := sampleText()
	for _, size := range []int{5, 17, 40, 64, 200} {
		for _, overlap := range []int{0, 3, 10, 50} {
			for _, ch := range Split(text, "\n", size, overlap) {
				if Len(ch) > size {
					t.Errorf("size=%d overlap=%d: chunk %q has %d chars", size, overlap, ch, Len(ch))
				}
			}
		}
	}
}

func TestSplit_NoOverlapPreservesUnits(t *testing.T) {
	lines := []string{"alpha beta", "gamma", "delta epsilon zeta", "eta", "theta iota kappa"}
	text := strings.Join(lines, "\n")
	chunks := Split(text, "\n", 20, 0)
	if got := strings.Join(chunks, "\n"); got != text {
		t.Errorf("rejoined chunks = %q, want %q", got, text)
	}
	for i := 1; i < len(chunks); i++ {
		prev := strings.Split(chunks[i-1], "\n")
		first := strings.Split(chunks[i], "\n")[0]
		if first == prev[len(prev)-1] {
			t.Errorf("chunk %d repeats unit %q from its predecessor", i, first)
		}
	}
}

func TestSplit_OverlapCarriesTail(t *testing.T) {
	lines := []string{"aaaa1111", "bbbb2222", "cccc3333", "dddd4444"}
	chunks := Split(strings.Join(lines, "\n"), "\n", 20, 4)
	if len(chunks) < 2 {
		t.Fatalf("expected several chunks, got %q", chunks)
	}
	var units []string
	for i, ch := range chunks {
		parts := strings.Split(ch, "\n")
		if i > 0 {
			prev := chunks[i-1]
			if !strings.HasPrefix(ch, prev[len(prev)-4:]) {
				t.Errorf("chunk %q does not start with tail of %q", ch, prev)
			}
			parts = parts[1:]
		}
		units = append(units, parts...)
	}
	if !reflect.DeepEqual(units, lines) {
		t.Errorf("units after stripping overlap = %q, want %q", units, lines)
	}
}

func TestSplitter_Split(t *testing.T) {
	s := NewSplitter(20, 5, "\n")
	got := s.Split("aaaaaaaaaa\nbbbbbbbbbb\ncccccccccc")
	if len(got) != 3 {
		t.Errorf("expected 3 chunks, got %q", got)
	}
}
