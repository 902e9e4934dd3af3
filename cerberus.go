// Package cerberus contains service-wide defaults shared between the library
// and the command line tooling.
package cerberus

import "time"

// Version is the semantic version of this build of Cerberus. Set at link time.
var Version = "devel"

const (
	// DefaultTTL is how long a challenge stays answerable after issuance.
	DefaultTTL = 2 * time.Minute

	// DefaultMaxAttempts is the verification call budget per challenge.
	// The call that reaches this count terminates the challenge.
	DefaultMaxAttempts = 3

	// DefaultAnswerLength is the number of glyphs in a challenge answer.
	DefaultAnswerLength = 6

	// DefaultImageWidth and DefaultImageHeight are the challenge canvas
	// dimensions in pixels.
	DefaultImageWidth  = 240
	DefaultImageHeight = 80

	// AnswerAlphabet is the set of characters challenge answers are drawn
	// from. Curated by hand to drop glyphs that stay confusable after the
	// renderer warps them: 0/O/o, 1/l/I/i, B/8, 6/b, 9/g/q and j (its dot
	// vanishes under grain noise).
	AnswerAlphabet = "23457ACDEFGHKLMNPQRSTUVWXYZacdefhkmnprstuvwxyz"
)
