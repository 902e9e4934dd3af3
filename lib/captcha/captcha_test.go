package captcha

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/GreenledgerHQ/cerberus"
	"github.com/GreenledgerHQ/cerberus/lib/store/memory"
)

// withAnswer pins the generated answer so tests can verify the happy path
// without the plaintext ever leaving the package.
func withAnswer(t *testing.T, answer string) {
	t.Helper()
	old := generateAnswer
	generateAnswer = func(int) (string, error) { return answer, nil }
	t.Cleanup(func() { generateAnswer = old })
}

func newChallenger(t *testing.T, opts Options) *Challenger {
	t.Helper()

	if opts.Store == nil {
		opts.Store = memory.New(t.Context())
	}
	if opts.Secret == "" {
		opts.Secret = "test-pepper"
	}

	result, err := New(opts)
	if err != nil {
		t.Fatal(err)
	}
	return result
}

func TestNewValidation(t *testing.T) {
	if _, err := New(Options{Secret: "x"}); !errors.Is(err, ErrNoStore) {
		t.Errorf("wanted ErrNoStore, got: %v", err)
	}

	if _, err := New(Options{Store: memory.New(t.Context())}); !errors.Is(err, ErrNoSecret) {
		t.Errorf("wanted ErrNoSecret, got: %v", err)
	}
}

func TestIssueVerifyRoundTrip(t *testing.T) {
	withAnswer(t, "Ab3dFg")
	c := newChallenger(t, Options{})

	issued, err := c.Issue(t.Context())
	if err != nil {
		t.Fatal(err)
	}

	if len(issued.ID) != 32 {
		t.Errorf("wanted a 32 char hex id, got %d chars", len(issued.ID))
	}

	if !bytes.HasPrefix(issued.PNG, []byte("\x89PNG")) {
		t.Error("issued image is not a PNG")
	}

	result, err := c.Verify(t.Context(), issued.ID, "Ab3dFg")
	if err != nil {
		t.Fatal(err)
	}
	if !result.OK || result.Reason != ReasonOK {
		t.Fatalf("wanted ok, got: %+v", result)
	}

	// Single-use: success spends the challenge.
	result, err = c.Verify(t.Context(), issued.ID, "Ab3dFg")
	if err != nil {
		t.Fatal(err)
	}
	if result.Reason != ReasonNotFound {
		t.Errorf("wanted not_found after success, got: %+v", result)
	}
}

func TestVerifyCaseInsensitive(t *testing.T) {
	withAnswer(t, "Ab3dFg")

	for _, guess := range []string{"ab3dfg", "AB3DFG", "aB3DfG"} {
		t.Run(guess, func(t *testing.T) {
			c := newChallenger(t, Options{})

			issued, err := c.Issue(t.Context())
			if err != nil {
				t.Fatal(err)
			}

			result, err := c.Verify(t.Context(), issued.ID, guess)
			if err != nil {
				t.Fatal(err)
			}
			if !result.OK {
				t.Errorf("wanted case-insensitive match for %q, got: %+v", guess, result)
			}
		})
	}
}

func TestVerifyUnknownID(t *testing.T) {
	c := newChallenger(t, Options{})

	result, err := c.Verify(t.Context(), strings.Repeat("f", 32), "whatever")
	if err != nil {
		t.Fatal(err)
	}
	if result.OK || result.Reason != ReasonNotFound {
		t.Errorf("wanted not_found, got: %+v", result)
	}
}

func TestAttemptBudget(t *testing.T) {
	withAnswer(t, "Ab3dFg")
	c := newChallenger(t, Options{MaxAttempts: 3})

	issued, err := c.Issue(t.Context())
	if err != nil {
		t.Fatal(err)
	}

	// Three wrong guesses: two mismatches, then the budget call terminates.
	for i, want := range []Reason{ReasonMismatch, ReasonMismatch, ReasonTooManyAttempts} {
		result, err := c.Verify(t.Context(), issued.ID, "wrong")
		if err != nil {
			t.Fatal(err)
		}
		if result.Reason != want {
			t.Fatalf("attempt %d: wanted %s, got: %+v", i+1, want, result)
		}
	}

	// The record is gone afterward.
	result, err := c.Verify(t.Context(), issued.ID, "Ab3dFg")
	if err != nil {
		t.Fatal(err)
	}
	if result.Reason != ReasonNotFound {
		t.Errorf("wanted not_found after exhaustion, got: %+v", result)
	}
}

func TestVerifyExpired(t *testing.T) {
	withAnswer(t, "Ab3dFg")
	c := newChallenger(t, Options{TTL: -time.Second})

	issued, err := c.Issue(t.Context())
	if err != nil {
		t.Fatal(err)
	}

	// Check order puts expiry before the digest, even a correct answer is
	// too late.
	result, err := c.Verify(t.Context(), issued.ID, "Ab3dFg")
	if err != nil {
		t.Fatal(err)
	}
	if result.OK || result.Reason != ReasonExpired {
		t.Fatalf("wanted expired, got: %+v", result)
	}

	result, err = c.Verify(t.Context(), issued.ID, "Ab3dFg")
	if err != nil {
		t.Fatal(err)
	}
	if result.Reason != ReasonNotFound {
		t.Errorf("wanted not_found after expiry eviction, got: %+v", result)
	}
}

func TestVerifyExpiredAfterWait(t *testing.T) {
	withAnswer(t, "Ab3dFg")
	c := newChallenger(t, Options{TTL: 100 * time.Millisecond, MaxAttempts: 3})

	issued, err := c.Issue(t.Context())
	if err != nil {
		t.Fatal(err)
	}

	time.Sleep(150 * time.Millisecond)

	result, err := c.Verify(t.Context(), issued.ID, "wrong")
	if err != nil {
		t.Fatal(err)
	}
	if result.OK || result.Reason != ReasonExpired {
		t.Fatalf("wanted expired, got: %+v", result)
	}

	result, err = c.Verify(t.Context(), issued.ID, "anything")
	if err != nil {
		t.Fatal(err)
	}
	if result.Reason != ReasonNotFound {
		t.Errorf("wanted not_found, got: %+v", result)
	}
}

func TestAttemptCheckBeatsExpiryCheck(t *testing.T) {
	withAnswer(t, "Ab3dFg")
	c := newChallenger(t, Options{TTL: 250 * time.Millisecond, MaxAttempts: 3})

	issued, err := c.Issue(t.Context())
	if err != nil {
		t.Fatal(err)
	}

	for range 2 {
		result, err := c.Verify(t.Context(), issued.ID, "wrong")
		if err != nil {
			t.Fatal(err)
		}
		if result.Reason != ReasonMismatch {
			t.Fatalf("wanted mismatch while live, got: %+v", result)
		}
	}

	time.Sleep(300 * time.Millisecond)

	// Both conditions hold now; the attempt budget is checked first.
	result, err := c.Verify(t.Context(), issued.ID, "wrong")
	if err != nil {
		t.Fatal(err)
	}
	if result.Reason != ReasonTooManyAttempts {
		t.Errorf("wanted too_many_attempts to win over expired, got: %+v", result)
	}
}

func TestRandomAnswer(t *testing.T) {
	answer, err := randomAnswer(cerberus.DefaultAnswerLength)
	if err != nil {
		t.Fatal(err)
	}

	if len(answer) != cerberus.DefaultAnswerLength {
		t.Errorf("wanted %d chars, got %d", cerberus.DefaultAnswerLength, len(answer))
	}

	for _, ch := range answer {
		if !strings.ContainsRune(cerberus.AnswerAlphabet, ch) {
			t.Errorf("answer contains %q which is not in the alphabet", ch)
		}
	}
}
