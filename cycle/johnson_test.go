package cycle

import (
	"context"
	"testing"
	"time"

	"github.com/barterlabs/loopengine/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func build3Cycle(t *testing.T) *graph.Projection {
	t.Helper()
	s := graph.NewStore(10)
	must := func(_ graph.GraphChange, err error) { require.NoError(t, err) }
	must(s.AddNFT(graph.NFT{ID: "n1", OwnerWalletID: "A", EstimatedValue: 10}))
	must(s.AddNFT(graph.NFT{ID: "n2", OwnerWalletID: "B", EstimatedValue: 12}))
	must(s.AddNFT(graph.NFT{ID: "n3", OwnerWalletID: "C", EstimatedValue: 9}))
	s.AddWant("B", "n1")
	s.AddWant("C", "n2")
	s.AddWant("A", "n3")
	return s.Snapshot()
}

func TestFind_DiscoversThreeCycle(t *testing.T) {
	p := build3Cycle(t)
	e := New(DefaultConfig())
	budget := NewBudget(1000, time.Minute)

	cycles, truncated, err := e.Find(context.Background(), p, []string{"A", "B", "C"}, budget)
	require.NoError(t, err)
	assert.False(t, truncated)
	require.Len(t, cycles, 1)
	assert.ElementsMatch(t, []string{"A", "B", "C"}, cycles[0])
}

func TestFind_TwoPartyCycle(t *testing.T) {
	s := graph.NewStore(10)
	_, err := s.AddNFT(graph.NFT{ID: "n1", OwnerWalletID: "A", EstimatedValue: 5})
	require.NoError(t, err)
	_, err = s.AddNFT(graph.NFT{ID: "n2", OwnerWalletID: "B", EstimatedValue: 5})
	require.NoError(t, err)
	s.AddWant("B", "n1")
	s.AddWant("A", "n2")
	p := s.Snapshot()

	e := New(DefaultConfig())
	budget := NewBudget(1000, time.Minute)
	cycles, _, err := e.Find(context.Background(), p, []string{"A", "B"}, budget)
	require.NoError(t, err)
	require.Len(t, cycles, 1)
}

func TestBuildLoop_ChoosesValueClosestToMedian(t *testing.T) {
	p := build3Cycle(t)
	loop, ok := BuildLoop(p, []string{"A", "B", "C"}, graph.DefaultMaxCollectionExpansion, false)
	require.True(t, ok)
	assert.Equal(t, 3, loop.Participants)
	assert.NotEmpty(t, loop.ID)
	for _, step := range loop.Steps {
		assert.Len(t, step.Nfts, 1)
	}

	// A second candidate on the A->B edge: candidate values are 9, 10, 12
	// and 50, so the median is 11 and n1 (10) beats n4 (50).
	s := graph.NewStore(10)
	must := func(_ graph.GraphChange, err error) { require.NoError(t, err) }
	must(s.AddNFT(graph.NFT{ID: "n1", OwnerWalletID: "A", EstimatedValue: 10}))
	must(s.AddNFT(graph.NFT{ID: "n4", OwnerWalletID: "A", EstimatedValue: 50}))
	must(s.AddNFT(graph.NFT{ID: "n2", OwnerWalletID: "B", EstimatedValue: 12}))
	must(s.AddNFT(graph.NFT{ID: "n3", OwnerWalletID: "C", EstimatedValue: 9}))
	must(s.AddWant("B", "n1"))
	must(s.AddWant("B", "n4"))
	must(s.AddWant("C", "n2"))
	must(s.AddWant("A", "n3"))

	loop, ok = BuildLoop(s.Snapshot(), []string{"A", "B", "C"}, graph.DefaultMaxCollectionExpansion, false)
	require.True(t, ok)
	assert.Equal(t, "n1", loop.Steps[0].Nfts[0].ID)
}

func TestFind_RespectsCycleBudget(t *testing.T) {
	p := build3Cycle(t)
	e := New(DefaultConfig())
	budget := NewBudget(0, time.Minute)

	cycles, truncated, err := e.Find(context.Background(), p, []string{"A", "B", "C"}, budget)
	require.NoError(t, err)
	assert.True(t, truncated)
	assert.Empty(t, cycles)
}
