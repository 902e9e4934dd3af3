package decaymap

import (
	"fmt"
	"testing"
	"time"
)

func TestGetSetDelete(t *testing.T) {
	m := New[string]()

	if _, ok := m.Get(t.Name()); ok {
		t.Errorf("wanted %q to be missing before Set", t.Name())
	}

	m.Set(t.Name(), "value", time.Minute)

	val, ok := m.Get(t.Name())
	if !ok {
		t.Fatalf("wanted %q to exist after Set", t.Name())
	}
	if val != "value" {
		t.Errorf("wrong value: %q", val)
	}

	if !m.Delete(t.Name()) {
		t.Error("Delete returned false for a present key")
	}

	if m.Delete(t.Name()) {
		t.Error("Delete returned true for an absent key")
	}
}

func TestExpiry(t *testing.T) {
	m := New[int]()

	m.Set(t.Name(), 42, -time.Second)

	if _, ok := m.Get(t.Name()); ok {
		t.Error("wanted an already-expired entry to read as missing")
	}

	// The lazy reap in Get must have removed it outright.
	if m.Len() != 0 {
		t.Errorf("wanted 0 entries after lazy reap, got %d", m.Len())
	}
}

func TestCleanup(t *testing.T) {
	m := New[int]()

	for i := range 64 {
		m.Set(fmt.Sprintf("stale-%d", i), i, -time.Second)
	}
	m.Set("fresh", 1, time.Minute)

	m.Cleanup()

	if m.Len() != 1 {
		t.Errorf("wanted 1 entry after Cleanup, got %d", m.Len())
	}

	if _, ok := m.Get("fresh"); !ok {
		t.Error("Cleanup removed a live entry")
	}
}
