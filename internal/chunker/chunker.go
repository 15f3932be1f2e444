// Package chunker splits extracted document text into bounded, overlapping chunks.
package chunker

import (
	"strings"
	"unicode/utf8"
)

// Splitter splits text on a separator into chunks of at most ChunkSize characters,
// seeding each new chunk with the last Overlap characters of the previous one.
type Splitter struct {
	ChunkSize int
	Overlap   int
	Separator string
}

// NewSplitter creates a splitter with the given size and overlap (in characters).
func NewSplitter(chunkSize, overlap int, separator string) *Splitter {
	return &Splitter{
		ChunkSize: chunkSize,
		Overlap:   overlap,
		Separator: separator,
	}
}

// Split splits text using the splitter's settings.
func (s *Splitter) Split(text string) []string {
	return Split(text, s.Separator, s.ChunkSize, s.Overlap)
}

// Split splits text on separator into units and packs consecutive units into chunks
// no longer than chunkSize characters. When a unit does not fit, the current chunk is
// closed and the next one starts with the tail of the closed chunk (up to overlap
// characters, shortened so the new chunk still fits), the separator and the unit.
// A unit longer than chunkSize is cut into chunkSize slices. Chunks are trimmed and
// empty ones dropped. Invalid parameters never panic: chunkSize <= 0 yields no chunks
// and a negative overlap disables overlap.
func Split(text, separator string, chunkSize, overlap int) []string {
	if text == "" || chunkSize <= 0 {
		return nil
	}
	if overlap < 0 {
		overlap = 0
	}
	var units []string
	if separator == "" {
		units = []string{text}
	} else {
		units = strings.Split(text, separator)
	}
	sep := []rune(separator)

	var chunks []string
	emit := func(r []rune) {
		if s := strings.TrimSpace(string(r)); s != "" {
			chunks = append(chunks, s)
		}
	}

	var buf []rune
	for _, unit := range units {
		u := []rune(unit)
		if len(buf)+len(u)+len(sep) <= chunkSize {
			if len(buf) > 0 {
				buf = append(buf, sep...)
			}
			buf = append(buf, u...)
			continue
		}
		if len(buf) == 0 {
			if len(u) > chunkSize {
				chunks = append(chunks, forceSplit(u, chunkSize)...)
			} else {
				buf = u
			}
			continue
		}

		emit(buf)
		if len(u) > chunkSize {
			buf = nil
			chunks = append(chunks, forceSplit(u, chunkSize)...)
			continue
		}
		tail := tailOverlap(buf, overlap, chunkSize-len(sep)-len(u))
		next := make([]rune, 0, len(tail)+len(sep)+len(u))
		if len(tail) > 0 {
			next = append(next, tail...)
			next = append(next, sep...)
		}
		buf = append(next, u...)
	}
	emit(buf)
	return chunks
}

// tailOverlap returns the last overlap runes of buf, capped at room.
func tailOverlap(buf []rune, overlap, room int) []rune {
	n := overlap
	if n > len(buf) {
		n = len(buf)
	}
	if n > room {
		n = room
	}
	if n <= 0 {
		return nil
	}
	out := make([]rune, n)
	copy(out, buf[len(buf)-n:])
	return out
}

func forceSplit(u []rune, size int) []string {
	out := make([]string, 0, len(u)/size+1)
	for i := 0; i < len(u); i += size {
		end := i + size
		if end > len(u) {
			end = len(u)
		}
		if s := strings.TrimSpace(string(u[i:end])); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Len returns the length of s in characters, the unit chunk sizes are measured in.
func Len(s string) int {
	return utf8.RuneCountInString(s)
}
