package cache

import (
	"testing"
	"time"

	"github.com/barterlabs/loopengine/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleProjection() *graph.Projection {
	s := graph.NewStore(10)
	_, _ = s.AddNFT(graph.NFT{ID: "n1", OwnerWalletID: "A"})
	return s.Snapshot()
}

func TestGet_MissReturnsFalse(t *testing.T) {
	c := New(DefaultTTL, DefaultMaxEntries)
	_, ok := c.Get("tenant1", 123)
	assert.False(t, ok)
}

func TestPutGet_RoundTripsDeepCopy(t *testing.T) {
	c := New(DefaultTTL, DefaultMaxEntries)
	p := sampleProjection()
	c.Put("tenant1", 123, p)

	got, ok := c.Get("tenant1", 123)
	require.True(t, ok)
	assert.Equal(t, p.NFTs, got.NFTs)

	got.NFTs["n2"] = graph.NFT{ID: "n2"}
	got2, _ := c.Get("tenant1", 123)
	_, present := got2.NFTs["n2"]
	assert.False(t, present, "mutating a returned copy must not affect the cached value")
}

func TestGet_ExpiresAfterTTL(t *testing.T) {
	c := New(10*time.Millisecond, DefaultMaxEntries)
	c.Put("tenant1", 123, sampleProjection())

	time.Sleep(20 * time.Millisecond)
	_, ok := c.Get("tenant1", 123)
	assert.False(t, ok)
}

func TestInvalidateTenant_RemovesOnlyThatTenant(t *testing.T) {
	c := New(DefaultTTL, DefaultMaxEntries)
	c.Put("tenant1", 1, sampleProjection())
	c.Put("tenant2", 1, sampleProjection())

	c.InvalidateTenant("tenant1")

	_, ok := c.Get("tenant1", 1)
	assert.False(t, ok)
	_, ok = c.Get("tenant2", 1)
	assert.True(t, ok)
}

func TestPut_EvictsMinScoreWhenOverCapacity(t *testing.T) {
	c := New(DefaultTTL, 2)
	c.Put("tenant1", 1, sampleProjection())
	c.Put("tenant1", 2, sampleProjection())
	c.Put("tenant1", 3, sampleProjection())

	assert.LessOrEqual(t, c.Len(), 2)
}
