package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLock_PathRoundTrip(t *testing.T) {
	l := Lock{ClientID: "desk_top", Type: LockTypeExclusive, AcquiredAt: time.UnixMilli(1700000000123)}

	assert.Equal(t, "locks/exclusive_desk_top_1700000000123.json", l.Path())

	parsed, ok := ParseLockPath(l.Path())
	require.True(t, ok)
	assert.Equal(t, l.ClientID, parsed.ClientID)
	assert.Equal(t, l.Type, parsed.Type)
	assert.True(t, l.AcquiredAt.Equal(parsed.AcquiredAt))
}

func TestParseLockPath_Rejects(t *testing.T) {
	for _, p := range []string{
		"locks/readme.txt",
		"locks/sync_1000.json",
		"locks/shared_c1_1000.json",
		"locks/sync_c1_abc.json",
		"locks/sync__1000.json",
	} {
		_, ok := ParseLockPath(p)
		assert.False(t, ok, p)
	}
}

func TestLock_IsStale(t *testing.T) {
	now := time.Now()
	l := Lock{AcquiredAt: now.Add(-4 * time.Minute), StaleAfter: 3 * time.Minute}
	assert.True(t, l.IsStale(now))

	l.AcquiredAt = now.Add(-time.Minute)
	assert.False(t, l.IsStale(now))
}
