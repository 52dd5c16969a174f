package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/MKhiriev/go-note-sync/models"
)

func TestIDGenerator_Generate(t *testing.T) {
	g := NewIDGenerator()

	seen := make(map[string]struct{})
	for range 100 {
		id := g.Generate()
		assert.True(t, models.IsValidID(id), id)
		_, dup := seen[id]
		assert.False(t, dup)
		seen[id] = struct{}{}
	}
}
