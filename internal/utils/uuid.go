// Package utils provides general-purpose helpers shared by the client:
// item id generation and the HTTP client used by the HTTP-based drivers.
package utils

import (
	"encoding/hex"

	"github.com/google/uuid"
)

// IDGenerator produces item identifiers: 32 lowercase hex characters.
type IDGenerator struct {
}

func NewIDGenerator() *IDGenerator {
	return &IDGenerator{}
}

// Generate returns a time-ordered UUIDv7 rendered without dashes, falling
// back to a random v4 when the clock source fails.
func (g *IDGenerator) Generate() string {
	v7, err := uuid.NewV7()
	if err != nil {
		v4 := uuid.New()
		return hex.EncodeToString(v4[:])
	}

	return hex.EncodeToString(v7[:])
}
