package idgen

import (
	"strings"
	"testing"
)

func TestNanoID(t *testing.T) {
	gen := NanoID(8)
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := gen()
		if len(id) != 8 {
			t.Fatalf("NanoID length: got %d, want 8", len(id))
		}
		for _, r := range id {
			if !strings.ContainsRune("0123456789abcdefghijklmnopqrstuvwxyz", r) {
				t.Fatalf("NanoID char %q outside alphabet", r)
			}
		}
		seen[id] = true
	}
	if len(seen) < 99 {
		t.Errorf("NanoID uniqueness: %d distinct of 100", len(seen))
	}
}

func TestUUIDv7(t *testing.T) {
	gen := UUIDv7()
	a, b := gen(), gen()
	if a == b {
		t.Error("UUIDv7 produced duplicate IDs")
	}
	if len(a) != 36 {
		t.Errorf("UUIDv7 length: got %d, want 36", len(a))
	}
}

func TestNew(t *testing.T) {
	if a, b := New(), New(); a == b {
		t.Error("New produced duplicate IDs")
	}
}

func TestPrefixed(t *testing.T) {
	gen := Prefixed("sess_", UUIDv7())
	id := gen()
	if !strings.HasPrefix(id, "sess_") {
		t.Errorf("Prefixed: got %q, want sess_ prefix", id)
	}
}
