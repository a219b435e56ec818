package session

import (
	"crypto/rand"
	"encoding/base64"

	"github.com/pkg/errors"
)

const tokenBytes = 32

// NewToken mints an opaque, unguessable capability token.
func NewToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Wrap(err, "reading random bytes")
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
