package otp

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"strconv"
	"strings"
	"time"
)

// IdentifierPrefix scopes email-change challenges inside a shared verification store.
const IdentifierPrefix = "change-email-otp-"

// Challenge is the decoded form of a stored verification value.
type Challenge struct {
	Code     string
	Attempts int
}

var ten = big.NewInt(10)

// GenerateCode returns length uniformly random decimal digits from crypto/rand.
func GenerateCode(length int) (string, error) {
	return generateCode(rand.Reader, length)
}

func generateCode(r io.Reader, length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("otp length must be positive, got %d", length)
	}
	var b strings.Builder
	b.Grow(length)
	for i := 0; i < length; i++ {
		n, err := rand.Int(r, ten)
		if err != nil {
			return "", fmt.Errorf("generate otp digit: %w", err)
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}

// ExpiresAt returns now plus minutes as a UTC instant.
func ExpiresAt(now time.Time, minutes int) time.Time {
	return now.Add(time.Duration(minutes) * time.Minute).UTC()
}

// Encode packs a challenge into the "<code>:<attempts>" store value.
func Encode(c Challenge) string {
	return c.Code + ":" + strconv.Itoa(c.Attempts)
}

// Decode splits value on the first ':'. A missing or non-numeric counter
// decodes as zero attempts so that records written without one stay usable.
func Decode(value string) Challenge {
	code, rest, found := strings.Cut(value, ":")
	if !found {
		return Challenge{Code: code}
	}
	attempts, err := strconv.Atoi(rest)
	if err != nil || attempts < 0 {
		attempts = 0
	}
	return Challenge{Code: code, Attempts: attempts}
}

// Exhausted reports whether the attempt ceiling has been reached.
func (c Challenge) Exhausted(maxAttempts int) bool {
	return c.Attempts >= maxAttempts
}

// Matches compares the submitted code by exact string equality.
func (c Challenge) Matches(submitted string) bool {
	return c.Code == submitted
}

// NormalizeEmail trims surrounding whitespace and lower-cases the address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Identifier derives the verification store key for a target email.
func Identifier(email string) string {
	return IdentifierPrefix + NormalizeEmail(email)
}
