// Package captcha issues image challenges and verifies answers to them
// exactly once.
//
// A challenge is a random answer string rendered into a distorted PNG. Only a
// peppered digest of the answer is kept, under an unguessable id, with an
// expiry and an attempt counter. Verification is single-use: the first
// terminal outcome (match, attempt exhaustion, or expiry) removes the record.
package captcha

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/GreenledgerHQ/cerberus"
	"github.com/GreenledgerHQ/cerberus/internal"
	"github.com/GreenledgerHQ/cerberus/lib/captcha/render"
	"github.com/GreenledgerHQ/cerberus/lib/store"
)

var (
	ErrNoStore  = errors.New("captcha: no store configured")
	ErrNoSecret = errors.New("captcha: no secret configured")
)

// storeGrace keeps records in the backing store past their logical expiry so
// a late verification reports "expired" instead of "not_found". Records in
// the grace window are unanswerable either way.
const storeGrace = 10 * time.Minute

const keyPrefix = "cerberus:challenge:"

// Record is the stored state of one outstanding challenge. The plaintext
// answer is never part of it.
type Record struct {
	// AnswerHash is SHA-256 over the lowercased answer with the server
	// secret appended.
	AnswerHash string `json:"answerHash"`

	// ExpiresAt is the absolute time after which the challenge is invalid.
	ExpiresAt time.Time `json:"expiresAt"`

	// Attempts counts every verification call made against this record,
	// bumped before any other check.
	Attempts int `json:"attempts"`
}

// Reason explains a verification outcome. All of these are expected
// conditions, not errors.
type Reason string

const (
	ReasonOK              Reason = "ok"
	ReasonMismatch        Reason = "mismatch"
	ReasonExpired         Reason = "expired"
	ReasonTooManyAttempts Reason = "too_many_attempts"
	ReasonNotFound        Reason = "not_found"
)

// Result is the discriminated outcome of a verification. OK is true only for
// ReasonOK. Every reason except ReasonMismatch means the id is spent and the
// caller needs a fresh challenge.
type Result struct {
	OK     bool   `json:"ok"`
	Reason Reason `json:"reason"`
}

type Options struct {
	// Store holds outstanding challenge records.
	Store store.Interface

	// Secret is the pepper appended to answers before hashing. It has to
	// stay stable across every process sharing Store, or outstanding
	// challenges become unverifiable.
	Secret string

	// TTL is how long a challenge stays answerable. Defaults to
	// cerberus.DefaultTTL when zero; negative values are honored as-is,
	// issuing challenges that are born expired.
	TTL time.Duration

	// MaxAttempts is the verification call budget. The call that reaches it
	// terminates the challenge. Defaults to cerberus.DefaultMaxAttempts.
	MaxAttempts int

	// AnswerLength defaults to cerberus.DefaultAnswerLength.
	AnswerLength int

	// Render tunes the challenge image.
	Render render.Options
}

// Challenger issues and verifies challenges against one backing store.
type Challenger struct {
	opts    Options
	records *store.JSON[Record]

	// mu makes get-mutate-write in Verify a critical section within this
	// process. Cross-process verification races fall to the backing store's
	// per-key atomicity.
	mu sync.Mutex
}

func New(opts Options) (*Challenger, error) {
	if opts.Store == nil {
		return nil, ErrNoStore
	}
	if opts.Secret == "" {
		return nil, ErrNoSecret
	}

	if opts.TTL == 0 {
		opts.TTL = cerberus.DefaultTTL
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = cerberus.DefaultMaxAttempts
	}
	if opts.AnswerLength <= 0 {
		opts.AnswerLength = cerberus.DefaultAnswerLength
	}

	return &Challenger{
		opts: opts,
		records: &store.JSON[Record]{
			Underlying: opts.Store,
			Prefix:     keyPrefix,
		},
	}, nil
}

// Issued is what a caller gets back for a new challenge. The answer is not in
// it and has already been discarded by the time Issue returns.
type Issued struct {
	ID  string
	PNG []byte
}

// Issue creates a challenge: a fresh id, a rendered answer image, and a
// stored record holding only the answer digest.
func (c *Challenger) Issue(ctx context.Context) (*Issued, error) {
	id, err := newID()
	if err != nil {
		return nil, err
	}

	answer, err := generateAnswer(c.opts.AnswerLength)
	if err != nil {
		return nil, err
	}

	img, err := render.Render(answer, c.opts.Render)
	if err != nil {
		return nil, err
	}

	rec := Record{
		AnswerHash: c.digest(answer),
		ExpiresAt:  time.Now().Add(c.opts.TTL),
	}

	if err := c.records.Set(ctx, id, rec, c.storeTTL(rec.ExpiresAt)); err != nil {
		return nil, fmt.Errorf("captcha: can't store challenge: %w", err)
	}

	challengesIssued.Inc()

	return &Issued{ID: id, PNG: img}, nil
}

// Verify runs the challenge state machine for one guess. Check order is
// fixed: attempt budget, then expiry, then the digest comparison, so an
// exhausted-and-expired challenge reports too_many_attempts. Expected
// outcomes come back as a Result; a non-nil error means the backing store or
// the service itself failed.
func (c *Challenger) Verify(ctx context.Context, id, guess string) (Result, error) {
	result, err := c.verify(ctx, id, guess)
	if err == nil {
		verifications.WithLabelValues(string(result.Reason)).Inc()
	}
	return result, err
}

func (c *Challenger) verify(ctx context.Context, id, guess string) (Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, err := c.records.Get(ctx, id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return Result{Reason: ReasonNotFound}, nil
	case err != nil:
		return Result{}, fmt.Errorf("captcha: can't load challenge: %w", err)
	}

	// Every call burns an attempt, even ones that go on to fail on expiry.
	rec.Attempts++

	if rec.Attempts >= c.opts.MaxAttempts {
		if err := c.evict(ctx, id); err != nil {
			return Result{}, err
		}
		return Result{Reason: ReasonTooManyAttempts}, nil
	}

	if time.Now().After(rec.ExpiresAt) {
		if err := c.evict(ctx, id); err != nil {
			return Result{}, err
		}
		return Result{Reason: ReasonExpired}, nil
	}

	if subtle.ConstantTimeCompare([]byte(c.digest(guess)), []byte(rec.AnswerHash)) == 1 {
		// Single-use: a solved challenge is spent too.
		if err := c.evict(ctx, id); err != nil {
			return Result{}, err
		}
		return Result{OK: true, Reason: ReasonOK}, nil
	}

	// Wrong answer, challenge stays live with the burned attempt recorded.
	if err := c.records.Set(ctx, id, rec, c.storeTTL(rec.ExpiresAt)); err != nil {
		return Result{}, fmt.Errorf("captcha: can't update challenge: %w", err)
	}

	return Result{Reason: ReasonMismatch}, nil
}

func (c *Challenger) evict(ctx context.Context, id string) error {
	err := c.records.Delete(ctx, id)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("captcha: can't evict challenge: %w", err)
	}
	return nil
}

func (c *Challenger) digest(answer string) string {
	return internal.SHA256sum(strings.ToLower(answer) + c.opts.Secret)
}

func (c *Challenger) storeTTL(expiresAt time.Time) time.Duration {
	ttl := time.Until(expiresAt) + storeGrace
	if ttl < storeGrace {
		ttl = storeGrace
	}
	return ttl
}

// newID returns 128 bits from the system CSPRNG, hex encoded.
func newID() (string, error) {
	var raw [16]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", fmt.Errorf("captcha: can't read random id: %w", err)
	}
	return hex.EncodeToString(raw[:]), nil
}

// generateAnswer is swapped out in tests to issue a known answer.
var generateAnswer = randomAnswer

func randomAnswer(length int) (string, error) {
	alphabetLen := big.NewInt(int64(len(cerberus.AnswerAlphabet)))

	var sb strings.Builder
	for range length {
		n, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			return "", fmt.Errorf("captcha: can't read random answer: %w", err)
		}
		sb.WriteByte(cerberus.AnswerAlphabet[n.Int64()])
	}

	return sb.String(), nil
}
