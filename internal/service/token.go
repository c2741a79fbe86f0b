package service

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// resumeTokenBytes sizes the random part of a resume token. 32 bytes keeps
// the token unguessable; it is bearer-equivalent access for its holder.
const resumeTokenBytes = 32

// NewResumeToken mints an opaque, cryptographically random resume token.
func NewResumeToken() (string, error) {
	buf := make([]byte, resumeTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate resume token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
