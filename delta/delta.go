// Package delta computes the minimal AffectedSet of wallets and NFTs whose
// cycles could change as a result of a single graph mutation. The
// orchestrator restricts SCC discovery and cycle enumeration to subgraphs
// that overlap this set.
package delta

import "github.com/barterlabs/loopengine/graph"

// AffectedSet is the minimal {walletIds, nftIds} touched by a mutation. Any
// cycle whose existence depends on the change is guaranteed to intersect it.
type AffectedSet struct {
	WalletIDs map[string]struct{}
	NFTIDs    map[string]struct{}
}

func newSet() AffectedSet {
	return AffectedSet{WalletIDs: map[string]struct{}{}, NFTIDs: map[string]struct{}{}}
}

func (a AffectedSet) addWallet(ids ...string) {
	for _, id := range ids {
		if id != "" {
			a.WalletIDs[id] = struct{}{}
		}
	}
}

func (a AffectedSet) addNFT(ids ...string) {
	for _, id := range ids {
		if id != "" {
			a.NFTIDs[id] = struct{}{}
		}
	}
}

func (a AffectedSet) union(other AffectedSet) {
	for id := range other.WalletIDs {
		a.WalletIDs[id] = struct{}{}
	}
	for id := range other.NFTIDs {
		a.NFTIDs[id] = struct{}{}
	}
}

// Empty reports whether the set touches neither a wallet nor an NFT, in
// which case the orchestrator can skip discovery entirely.
func (a AffectedSet) Empty() bool {
	return len(a.WalletIDs) == 0 && len(a.NFTIDs) == 0
}

// IntersectsWallets reports whether any of walletIDs is in the set — used by
// the LoopRegistry to decide whether an existing loop needs revalidation.
func (a AffectedSet) IntersectsWallets(walletIDs []string) bool {
	for _, id := range walletIDs {
		if _, ok := a.WalletIDs[id]; ok {
			return true
		}
	}
	return false
}

// Engine computes AffectedSet for each mutation kind. It holds no state of
// its own; all context comes from the projection and active loops passed in.
type Engine struct{}

func New() *Engine { return &Engine{} }

// NFTAdded: the new owner, everyone who already wants this NFT, and anyone
// with a standing want on its collection.
func (e *Engine) NFTAdded(p *graph.Projection, n graph.NFT) AffectedSet {
	out := newSet()
	out.addWallet(n.OwnerWalletID)
	out.addNFT(n.ID)
	for w := range p.WantIndex[n.ID] {
		out.addWallet(w)
	}
	if n.CollectionID != "" {
		for _, w := range p.WalletIDs {
			if _, ok := p.Wallets[w].WantedCollections[n.CollectionID]; ok {
				out.addWallet(w)
			}
		}
	}
	return out
}

// NFTRemoved: the former owner plus every wallet that currently receives
// this NFT in any active loop.
func (e *Engine) NFTRemoved(formerOwner, nftID string, activeLoops []graph.TradeLoop) AffectedSet {
	out := newSet()
	out.addWallet(formerOwner)
	out.addNFT(nftID)
	for _, loop := range activeLoops {
		for _, step := range loop.Steps {
			for _, n := range step.Nfts {
				if n.ID == nftID {
					out.addWallet(step.To)
				}
			}
		}
	}
	return out
}

// WantAdded: the wanter, the NFT's owner, and wallets reachable backward
// from the wanter in one hop (wallets who own something the wanter wants).
func (e *Engine) WantAdded(p *graph.Projection, walletID, nftID string) AffectedSet {
	out := newSet()
	out.addWallet(walletID)
	out.addNFT(nftID)
	if n, ok := p.NFTs[nftID]; ok {
		out.addWallet(n.OwnerWalletID)
	}
	out.union(e.backwardNeighbors(p, walletID))
	return out
}

// WantRemoved has the same shape as WantAdded, plus it flags every active
// loop containing the edge owner(nftID) -> walletID justified by nftID.
func (e *Engine) WantRemoved(p *graph.Projection, walletID, nftID string, activeLoops []graph.TradeLoop) AffectedSet {
	out := e.WantAdded(p, walletID, nftID)
	for _, loop := range activeLoops {
		for _, step := range loop.Steps {
			if step.To != walletID {
				continue
			}
			for _, n := range step.Nfts {
				if n.ID == nftID {
					out.addWallet(step.From, step.To)
				}
			}
		}
	}
	return out
}

// RejectionUpdated affects every active loop involving walletID.
func (e *Engine) RejectionUpdated(walletID string, activeLoops []graph.TradeLoop) AffectedSet {
	out := newSet()
	out.addWallet(walletID)
	for _, loop := range activeLoops {
		for _, step := range loop.Steps {
			if step.From == walletID || step.To == walletID {
				for _, s := range loop.Steps {
					out.addWallet(s.From, s.To)
				}
				break
			}
		}
	}
	return out
}

// backwardNeighbors returns wallets that own an NFT wanted (directly or via
// collection) by walletID — the 1-hop predecessors of walletID in the edge
// graph.
func (e *Engine) backwardNeighbors(p *graph.Projection, walletID string) AffectedSet {
	out := newSet()
	wv, ok := p.Wallets[walletID]
	if !ok {
		return out
	}
	for nftID := range wv.WantedNFTs {
		if n, ok := p.NFTs[nftID]; ok {
			out.addWallet(n.OwnerWalletID)
		}
	}
	for collectionID := range wv.WantedCollections {
		for _, n := range p.CollectionMembers[collectionID] {
			out.addWallet(n.OwnerWalletID)
		}
	}
	return out
}
