package utils

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestTruncate(t *testing.T) {
	if Truncate("hello", 10) != "hello" {
		t.Error("short string unchanged")
	}
	if Truncate("hello world", 5) != "hello..." {
		t.Errorf("got %s", Truncate("hello world", 5))
	}
	if Truncate("x", 0) != "x" {
		t.Error("maxLen 0 returns as-is")
	}
	if got := Truncate("§300.322 notice", 4); got != "§300..." {
		t.Errorf("rune-safe truncate: got %q", got)
	}
}

func TestNormalizeL2(t *testing.T) {
	v := []float64{3, 4}
	if n := NormalizeL2(v); n != 5 {
		t.Errorf("norm = %v", n)
	}
	if math.Abs(v[0]-0.6) > 1e-12 || math.Abs(v[1]-0.8) > 1e-12 {
		t.Errorf("normalized = %v", v)
	}
	zero := []float64{0, 0}
	if NormalizeL2(zero) != 0 || zero[0] != 0 {
		t.Error("zero vector should be unchanged")
	}
	if Clamp01(1.0000001) != 1 || Clamp01(-0.2) != 0 || Clamp01(0.5) != 0.5 {
		t.Error("Clamp01")
	}
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "a.json")
	if err := WriteFileAtomic(path, []byte("one"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := WriteFileAtomic(path, []byte("two"), 0644); err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "two" {
		t.Errorf("got %q", got)
	}
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %d entries", len(entries))
	}

	dst := filepath.Join(dir, "copy", "b.json")
	if err := CopyFile(path, dst); err != nil {
		t.Fatal(err)
	}
	if b, _ := os.ReadFile(dst); string(b) != "two" {
		t.Errorf("copy got %q", b)
	}
}
