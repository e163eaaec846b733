package scc

import (
	"context"
	"testing"

	"github.com/barterlabs/loopengine/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func build3Cycle(t *testing.T) *graph.Projection {
	t.Helper()
	s := graph.NewStore(10)
	must := func(_ graph.GraphChange, err error) { require.NoError(t, err) }
	must(s.AddNFT(graph.NFT{ID: "n1", OwnerWalletID: "A"}))
	must(s.AddNFT(graph.NFT{ID: "n2", OwnerWalletID: "B"}))
	must(s.AddNFT(graph.NFT{ID: "n3", OwnerWalletID: "C"}))
	s.AddWant("B", "n1")
	s.AddWant("C", "n2")
	s.AddWant("A", "n3")
	return s.Snapshot()
}

func TestFind_DetectsThreeCycle(t *testing.T) {
	p := build3Cycle(t)
	f := New(DefaultConfig())

	sccs, err := f.Find(context.Background(), p, []string{"A", "B", "C"})
	require.NoError(t, err)
	require.Len(t, sccs, 1)
	assert.Equal(t, []string{"A", "B", "C"}, sccs[0].Vertices)
}

func TestFind_DiscardsSingletons(t *testing.T) {
	s := graph.NewStore(10)
	_, err := s.AddNFT(graph.NFT{ID: "n1", OwnerWalletID: "A"})
	require.NoError(t, err)
	// Nobody wants n1 and A is the only wallet; no cycle possible.
	p := s.Snapshot()

	f := New(DefaultConfig())
	sccs, err := f.Find(context.Background(), p, []string{"A"})
	require.NoError(t, err)
	assert.Empty(t, sccs)
}

func TestFind_ExceedsMaxVertices(t *testing.T) {
	p := build3Cycle(t)
	f := New(Config{MaxVertices: 2})

	_, err := f.Find(context.Background(), p, []string{"A", "B", "C"})
	require.Error(t, err)
	var exceeds ErrSCCExceedsMaxVertices
	require.ErrorAs(t, err, &exceeds)
}
