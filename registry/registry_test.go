package registry

import (
	"testing"

	"github.com/barterlabs/loopengine/delta"
	"github.com/barterlabs/loopengine/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loopAB() graph.TradeLoop {
	steps := []graph.Step{
		{From: "A", To: "B", Nfts: []graph.NFT{{ID: "n1"}}},
		{From: "B", To: "A", Nfts: []graph.NFT{{ID: "n2"}}},
	}
	return graph.TradeLoop{ID: graph.CanonicalLoopID(steps), Steps: steps, Participants: 2, QualityScore: 0.8}
}

func TestReconcile_InsertsNewLoop(t *testing.T) {
	r := New()
	events := r.Reconcile([]graph.TradeLoop{loopAB()}, delta.AffectedSet{WalletIDs: map[string]struct{}{"A": {}}}, "want_added")

	require.Len(t, events, 1)
	assert.Equal(t, EventDiscovered, events[0].Kind)
	assert.Equal(t, 1, r.Count())
}

func TestReconcile_InvalidatesWhenMissingFromAffectedCandidates(t *testing.T) {
	r := New()
	r.Reconcile([]graph.TradeLoop{loopAB()}, delta.AffectedSet{WalletIDs: map[string]struct{}{"A": {}}}, "t1")

	affected := delta.AffectedSet{WalletIDs: map[string]struct{}{"A": {}}}
	events := r.Reconcile(nil, affected, "want_removed")

	require.Len(t, events, 1)
	assert.Equal(t, EventInvalidated, events[0].Kind)
	assert.Equal(t, 0, r.Count())
}

func TestReconcile_LeavesUnaffectedLoopsAlone(t *testing.T) {
	r := New()
	r.Reconcile([]graph.TradeLoop{loopAB()}, delta.AffectedSet{WalletIDs: map[string]struct{}{"A": {}}}, "t1")

	affected := delta.AffectedSet{WalletIDs: map[string]struct{}{"Z": {}}}
	events := r.Reconcile(nil, affected, "unrelated")

	assert.Empty(t, events)
	assert.Equal(t, 1, r.Count())
}

func TestMarkCompleted(t *testing.T) {
	r := New()
	r.Reconcile([]graph.TradeLoop{loopAB()}, delta.AffectedSet{WalletIDs: map[string]struct{}{"A": {}}}, "t1")

	loop := loopAB()
	ev, ok := r.MarkCompleted(loop.ID)
	require.True(t, ok)
	assert.Equal(t, EventCompleted, ev.Kind)
	assert.Equal(t, 0, r.Count())
}

func TestQuery_FiltersByMinScoreAndWallet(t *testing.T) {
	r := New()
	r.Reconcile([]graph.TradeLoop{loopAB()}, delta.AffectedSet{WalletIDs: map[string]struct{}{"A": {}}}, "t1")

	results := r.Query(Query{WalletID: "A", MinScore: 0.5})
	require.Len(t, results, 1)

	assert.Empty(t, r.Query(Query{WalletID: "Z"}))
	assert.Empty(t, r.Query(Query{MinScore: 0.9}))
}
