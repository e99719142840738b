package internal

import (
	"github.com/google/uuid"
)

// NewTokenID returns a random (version 4) UUID string used as a refresh-token jti.
// The id is the only server-side handle on a refresh token, so it must come from a
// cryptographic source; uuid.NewRandom reads crypto/rand.
func NewTokenID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
