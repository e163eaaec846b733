package tenant

import (
	"context"

	"github.com/barterlabs/loopengine/graph"
)

// WalletSnapshot is the persisted shape of one wallet's want/rejection state
// — owned NFTs are reconstructed from NFTSnapshot.OwnerWalletID instead of
// being duplicated here.
type WalletSnapshot struct {
	ID                string
	WantedNFTs        []string
	WantedCollections []string
	RejectedWallets   []string
	RejectedNFTs      []string
}

// TenantSnapshot is the persisted state layout from spec.md §6: a graph
// snapshot, the active loop set, and the change-log ring, opaque to the
// Store implementation beyond this shape.
type TenantSnapshot struct {
	TenantID    string
	NFTs        []graph.NFT
	Wallets     []WalletSnapshot
	ActiveLoops []graph.TradeLoop
	ChangeLog   []graph.GraphChange
}

// Store is the external persistence collaborator. The core never assumes
// anything about durability or storage medium beyond this contract —
// cmd/barterd wires a concrete implementation (in-memory for local runs).
type Store interface {
	// LoadTenant returns the persisted snapshot for tenantID, or (nil, nil)
	// if the tenant has never been saved.
	LoadTenant(ctx context.Context, tenantID string) (*TenantSnapshot, error)
	SaveTenant(ctx context.Context, snapshot *TenantSnapshot) error
	AppendChange(ctx context.Context, tenantID string, change graph.GraphChange) error
}

// applySnapshot replays a TenantSnapshot into a fresh graph.Store, enforcing
// limits (the tenant's current Security configuration — which may have
// changed since the snapshot was taken). NFTs are applied before wants so
// AddWant's no-self-trade check has ownership info to consult.
func applySnapshot(snap *TenantSnapshot, changeLogCap int, limits graph.Limits) (*graph.Store, error) {
	gs := graph.NewStoreWithLimits(changeLogCap, limits)

	for _, n := range snap.NFTs {
		if _, err := gs.AddNFT(n); err != nil {
			return nil, err
		}
	}
	for _, w := range snap.Wallets {
		for _, nftID := range w.WantedNFTs {
			if _, err := gs.AddWant(w.ID, nftID); err != nil {
				return nil, err
			}
		}
		for _, collectionID := range w.WantedCollections {
			gs.AddCollectionWant(w.ID, collectionID)
		}
		if len(w.RejectedWallets) > 0 || len(w.RejectedNFTs) > 0 {
			gs.UpdateRejections(w.ID, w.RejectedWallets, w.RejectedNFTs)
		}
	}

	return gs, nil
}

// buildSnapshot captures the current state of a tenant for persistence.
func buildSnapshot(tenantID string, gs *graph.Store, activeLoops []graph.TradeLoop) *TenantSnapshot {
	proj := gs.Snapshot()

	snap := &TenantSnapshot{
		TenantID:    tenantID,
		ActiveLoops: activeLoops,
		ChangeLog:   gs.ChangeLog(),
	}
	for _, id := range proj.WalletIDs {
		wv := proj.Wallets[id]
		snap.Wallets = append(snap.Wallets, WalletSnapshot{
			ID:                id,
			WantedNFTs:        setToSlice(wv.WantedNFTs),
			WantedCollections: setToSlice(wv.WantedCollections),
			RejectedWallets:   setToSlice(wv.RejectedWallets),
			RejectedNFTs:      setToSlice(wv.RejectedNFTs),
		})
	}
	for _, n := range proj.NFTs {
		snap.NFTs = append(snap.NFTs, n)
	}

	return snap
}

func setToSlice(s map[string]struct{}) []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	return out
}
