package delta

import (
	"testing"

	"github.com/barterlabs/loopengine/graph"
	"github.com/stretchr/testify/assert"
)

func buildProjection(t *testing.T) *graph.Projection {
	t.Helper()
	s := graph.NewStore(10)
	_, err := s.AddNFT(graph.NFT{ID: "n1", OwnerWalletID: "A", CollectionID: "punks"})
	assert.NoError(t, err)
	_, err = s.AddNFT(graph.NFT{ID: "n2", OwnerWalletID: "B"})
	assert.NoError(t, err)
	s.AddWant("B", "n1")
	s.AddCollectionWant("C", "punks")
	return s.Snapshot()
}

func TestNFTAdded_IncludesWantersAndCollectionWanters(t *testing.T) {
	p := buildProjection(t)
	e := New()

	affected := e.NFTAdded(p, graph.NFT{ID: "n1", OwnerWalletID: "A", CollectionID: "punks"})

	for _, w := range []string{"A", "B", "C"} {
		_, ok := affected.WalletIDs[w]
		assert.True(t, ok, "expected wallet %s in affected set", w)
	}
}

func TestWantAdded_IncludesOwnerAndBackwardNeighbors(t *testing.T) {
	p := buildProjection(t)
	e := New()

	affected := e.WantAdded(p, "B", "n1")

	_, ok := affected.WalletIDs["A"]
	assert.True(t, ok)
}

func TestAffectedSet_Empty(t *testing.T) {
	out := newSet()
	assert.True(t, out.Empty())
	out.addWallet("A")
	assert.False(t, out.Empty())
}
