package token

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
)

// DefaultByteLength produces 32-character URL-safe tokens once encoded.
const DefaultByteLength = 24

// ErrRandomnessUnavailable signals that the system randomness source failed.
// Issuance must treat this as fatal for the attempt rather than fall back to
// a predictable source.
var ErrRandomnessUnavailable = errors.New("token: randomness source unavailable")

// Generate returns a new opaque access token drawn from crypto/rand.
func Generate() (string, error) {
	return GenerateN(DefaultByteLength)
}

// GenerateN returns a URL-safe token built from the requested number of random bytes.
func GenerateN(byteLength int) (string, error) {
	if byteLength < DefaultByteLength {
		byteLength = DefaultByteLength
	}

	buffer := make([]byte, byteLength)
	if _, err := rand.Read(buffer); err != nil {
		return "", fmt.Errorf("%w: %v", ErrRandomnessUnavailable, err)
	}

	return base64.RawURLEncoding.EncodeToString(buffer), nil
}
