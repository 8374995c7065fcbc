package logger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"
)

// MinHashSaltLength is the shortest salt InitHashSalt accepts.
const MinHashSaltLength = 32

const fallbackSalt = "expense-approvals-development-salt"

var hashSalt = fallbackSalt

func init() {
	if salt := os.Getenv("LOG_HASH_SALT"); salt != "" {
		hashSalt = salt
	}
}

// InitHashSalt loads LOG_HASH_SALT and panics if it is missing or shorter
// than MinHashSaltLength. serve calls it before anything is logged.
func InitHashSalt() {
	salt := os.Getenv("LOG_HASH_SALT")
	if len(salt) < MinHashSaltLength {
		panic(fmt.Sprintf("LOG_HASH_SALT must be set to at least %d characters", MinHashSaltLength))
	}
	hashSalt = salt
}

// InitHashSaltForTesting sets the salt directly.
func InitHashSaltForTesting(salt string) {
	hashSalt = salt
}

// HashUserID returns a short salted digest of a user ID so log lines can
// be correlated per user without naming them.
func HashUserID(userID int64) string {
	sum := sha256.Sum256(fmt.Appendf(nil, "user:%d:%s", userID, hashSalt))
	return hex.EncodeToString(sum[:4])
}

// RedactText replaces free text such as an expense reason or a rejection
// note with its shape.
func RedactText(text string) string {
	if strings.TrimSpace(text) == "" {
		return "<empty>"
	}
	return fmt.Sprintf("<redacted: %d words, %d chars>",
		len(strings.Fields(text)), utf8.RuneCountInString(text))
}

// RedactLogin keeps the first rune of a login name and its length.
func RedactLogin(name string) string {
	n := utf8.RuneCountInString(name)
	if n == 0 {
		return "<empty>"
	}
	first, _ := utf8.DecodeRuneInString(name)
	return fmt.Sprintf("%c***<%d chars>", first, n)
}
