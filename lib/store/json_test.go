package store_test

import (
	"testing"
	"time"

	"github.com/GreenledgerHQ/cerberus/lib/store"
	"github.com/GreenledgerHQ/cerberus/lib/store/memory"
)

func TestJSON(t *testing.T) {
	type record struct {
		AnswerHash string `json:"answerHash"`
	}

	st := memory.New(t.Context())
	db := store.JSON[record]{
		Underlying: st,
		Prefix:     "cerberus:challenge:",
	}

	if err := db.Set(t.Context(), "test", record{AnswerHash: t.Name()}, time.Minute); err != nil {
		t.Fatal(err)
	}

	got, err := db.Get(t.Context(), "test")
	if err != nil {
		t.Fatal(err)
	}

	if got.AnswerHash != t.Name() {
		t.Fatalf("got wrong data for key \"test\", wanted %q but got: %q", t.Name(), got.AnswerHash)
	}

	// The prefix must be applied on the raw store side.
	if _, err := st.Get(t.Context(), "cerberus:challenge:test"); err != nil {
		t.Errorf("wanted prefixed raw key to exist: %v", err)
	}

	if err := db.Delete(t.Context(), "test"); err != nil {
		t.Fatal(err)
	}

	if _, err := db.Get(t.Context(), "test"); err == nil {
		t.Fatal("wanted get after delete to fail, it did not")
	}

	// Corrupt payloads must surface as decode errors, not panics.
	if err := st.Set(t.Context(), "cerberus:challenge:test", []byte("}"), time.Minute); err != nil {
		t.Fatal(err)
	}

	if _, err := db.Get(t.Context(), "test"); err == nil {
		t.Fatal("wanted invalid get to fail, it did not")
	}
}
