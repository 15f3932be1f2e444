package fileid

import (
	"strings"
	"testing"
	"time"
)

func TestChecksum(t *testing.T) {
	// sha256("abc")
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got := Checksum([]byte("abc")); got != want {
		t.Errorf("Checksum = %s", got)
	}
}

func TestDocID(t *testing.T) {
	id1 := DocID("20240101_120000_ba7816bf_ard.pdf")
	id2 := DocID("20240101_120000_ba7816bf_ard.pdf")
	if id1 != id2 {
		t.Errorf("same name should give same ID: %q vs %q", id1, id2)
	}
	if !strings.HasPrefix(id1, prefix) {
		t.Errorf("ID should have prefix %q: got %q", prefix, id1)
	}
	if DocID("a.pdf") == DocID("b.pdf") {
		t.Error("different names should give different IDs")
	}
}

func TestStoredName(t *testing.T) {
	at := time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC)
	got := StoredName(at, Checksum([]byte("abc")), "Texas ARD Guide.pdf")
	if got != "20240305_140709_ba7816bf_Texas ARD Guide.pdf" {
		t.Errorf("StoredName = %q", got)
	}
}

func TestSafeBase(t *testing.T) {
	tests := map[string]string{
		"guide.pdf":           "guide.pdf",
		"../../etc/passwd":    "passwd",
		`C:\Users\me\law.pdf`: "law.pdf",
		"..":                  "unnamed",
		"":                    "unnamed",
	}
	for in, want := range tests {
		if got := SafeBase(in); got != want {
			t.Errorf("SafeBase(%q) = %q, want %q", in, got, want)
		}
	}
}
