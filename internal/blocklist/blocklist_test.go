package blocklist

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBlockAndExpiry(t *testing.T) {
	list := New(time.Hour)
	now := time.Now()

	assert.False(t, list.IsBlocked("10.0.0.1", now))

	list.Block("10.0.0.1", now)
	assert.True(t, list.IsBlocked("10.0.0.1", now))
	assert.True(t, list.IsBlocked("10.0.0.1", now.Add(59*time.Minute)))

	// At exactly the duration boundary the block has expired.
	assert.False(t, list.IsBlocked("10.0.0.1", now.Add(time.Hour)))

	// Expired entries are dropped, so a later lookup stays unblocked.
	assert.False(t, list.IsBlocked("10.0.0.1", now))
}

func TestReblockResetsTimer(t *testing.T) {
	list := New(time.Hour)
	now := time.Now()

	list.Block("10.0.0.1", now)
	list.Block("10.0.0.1", now.Add(50*time.Minute))

	// 70 minutes after the first block, 20 after the second: still active.
	assert.True(t, list.IsBlocked("10.0.0.1", now.Add(70*time.Minute)))
}

func TestActiveBlocks(t *testing.T) {
	list := New(time.Hour)
	now := time.Now()

	list.Block("10.0.0.1", now)
	list.Block("10.0.0.2", now.Add(-2*time.Hour))

	active := list.ActiveBlocks(now.Add(10 * time.Minute))
	assert.Len(t, active, 1)
	assert.Equal(t, 3000, active["10.0.0.1"])
}
