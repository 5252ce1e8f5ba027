package rooms

import (
	"math/rand"
	"strings"
)

const (
	// CodeAlphabet excludes visually ambiguous characters (O, I, 0, 1)
	CodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	// CodeLength is the length of a shareable room code
	CodeLength = 6
	// CodeMaxAttempts bounds the retry loop when generating a unique code
	CodeMaxAttempts = 100
)

// NormalizeCode uppercases a room code. Lookups are case-insensitive;
// codes are always stored uppercase.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func randomCode() string {
	var b strings.Builder
	b.Grow(CodeLength)
	for i := 0; i < CodeLength; i++ {
		b.WriteByte(CodeAlphabet[rand.Intn(len(CodeAlphabet))])
	}
	return b.String()
}

// generateUniqueCode retries until exists reports a free code or the
// attempt budget runs out. Collisions are checked against currently
// active codes only; a code freed by room removal is immediately
// reusable.
func generateUniqueCode(exists func(code string) bool) (string, error) {
	for attempt := 0; attempt < CodeMaxAttempts; attempt++ {
		code := randomCode()
		if !exists(code) {
			return code, nil
		}
	}
	return "", &ErrCodeSpaceExhausted{Attempts: CodeMaxAttempts}
}
