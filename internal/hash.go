package internal

import (
	"crypto/sha256"
	"encoding/hex"
)

// SHA256sum computes the hex digest of text. Challenge answers are stored as
// SHA256sum(lowercased answer + pepper), never as plaintext.
func SHA256sum(text string) string {
	hash := sha256.New()
	hash.Write([]byte(text))
	return hex.EncodeToString(hash.Sum(nil))
}
