package tenant

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/barterlabs/loopengine/graph"
	"github.com/barterlabs/loopengine/registry"
	"github.com/barterlabs/loopengine/webhook"
)

type fakeTransport struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeTransport) Deliver(ctx context.Context, req webhook.Request) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return 200, nil
}

type memStore struct {
	mu      sync.Mutex
	data    map[string]*TenantSnapshot
	changes []graph.GraphChange
}

func newMemStore() *memStore { return &memStore{data: map[string]*TenantSnapshot{}} }

func (m *memStore) LoadTenant(ctx context.Context, tenantID string) (*TenantSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[tenantID], nil
}

func (m *memStore) SaveTenant(ctx context.Context, snapshot *TenantSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[snapshot.TenantID] = snapshot
	return nil
}

func (m *memStore) AppendChange(ctx context.Context, tenantID string, change graph.GraphChange) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.changes = append(m.changes, change)
	return nil
}

func (m *memStore) changeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.changes)
}

func TestEngine_TwoPartyDirectTrade(t *testing.T) {
	transport := &fakeTransport{}
	store := newMemStore()
	eng := NewEngine(store, transport)
	ctx := context.Background()

	require.NoError(t, eng.CreateTenant(ctx, "t1", "Tenant One", DefaultConfig()))

	require.NoError(t, eng.Submit(ctx, "t1", graph.Mutation{
		Kind: graph.MutationAddNFT,
		NFT:  graph.NFT{ID: "n1", OwnerWalletID: "A", EstimatedValue: 10},
	}, "seed"))
	require.NoError(t, eng.Submit(ctx, "t1", graph.Mutation{
		Kind: graph.MutationAddNFT,
		NFT:  graph.NFT{ID: "n2", OwnerWalletID: "B", EstimatedValue: 10},
	}, "seed"))
	require.NoError(t, eng.Submit(ctx, "t1", graph.Mutation{
		Kind: graph.MutationAddWant, WalletID: "A", NFTID: "n2",
	}, "want_added"))
	require.NoError(t, eng.Submit(ctx, "t1", graph.Mutation{
		Kind: graph.MutationAddWant, WalletID: "B", NFTID: "n1",
	}, "want_added"))

	loops, err := eng.QueryLoops("t1", registry.Query{})
	require.NoError(t, err)
	require.Len(t, loops, 1)

	loop := loops[0]
	assert.Equal(t, 2, loop.Participants)
	assert.GreaterOrEqual(t, loop.QualityScore, 0.5)

	status, err := eng.Status("t1")
	require.NoError(t, err)
	assert.Equal(t, 2, status.NFTCount)
	assert.Equal(t, 1, status.ActiveLoopCount)

	require.NoError(t, eng.Submit(ctx, "t1", graph.Mutation{
		Kind: graph.MutationRemoveWant, WalletID: "A", NFTID: "n2",
	}, "want_removed"))

	loops, err = eng.QueryLoops("t1", registry.Query{})
	require.NoError(t, err)
	assert.Empty(t, loops)

	assert.Equal(t, 5, store.changeCount(), "every successful graph mutation must be appended to the external store")
}

func TestEngine_UnknownTenantIsRejected(t *testing.T) {
	eng := NewEngine(newMemStore(), &fakeTransport{})
	ctx := context.Background()

	err := eng.Submit(ctx, "ghost", graph.Mutation{Kind: graph.MutationAddNFT}, "seed")
	assert.ErrorAs(t, err, &ErrTenantNotFound{})

	_, err = eng.QueryLoops("ghost", registry.Query{})
	assert.ErrorAs(t, err, &ErrTenantNotFound{})
}

func TestEngine_ShutdownPersistsSnapshot(t *testing.T) {
	store := newMemStore()
	eng := NewEngine(store, &fakeTransport{})
	ctx := context.Background()

	require.NoError(t, eng.CreateTenant(ctx, "t1", "Tenant One", DefaultConfig()))
	require.NoError(t, eng.Submit(ctx, "t1", graph.Mutation{
		Kind: graph.MutationAddNFT,
		NFT:  graph.NFT{ID: "n1", OwnerWalletID: "A", EstimatedValue: 5},
	}, "seed"))

	require.NoError(t, eng.ShutdownTenant(ctx, "t1"))

	snap, err := store.LoadTenant(ctx, "t1")
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Len(t, snap.NFTs, 1)

	_, err = eng.Status("t1")
	assert.ErrorAs(t, err, &ErrTenantNotFound{})
}
