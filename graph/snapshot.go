package graph

import (
	"context"
	"hash/fnv"
	"sort"
)

// WalletView is an immutable, deep-copied view of a wallet suitable for
// handing to the enumerator or caching.
type WalletView struct {
	ID                string
	OwnedNFTs         map[string]struct{}
	WantedNFTs        map[string]struct{}
	WantedCollections map[string]struct{}
	RejectedWallets   map[string]struct{}
	RejectedNFTs      map[string]struct{}
}

// Projection is the derived (wallets, ownership, wantIndex) structure
// consumed by the cycle enumerator. It never shares mutable state with the
// live Store: every map is a fresh copy.
type Projection struct {
	WalletIDs         []string // sorted
	Wallets           map[string]WalletView
	NFTs              map[string]NFT            // nftId -> value copy
	WantIndex         map[string]map[string]struct{} // nftId -> walletId set
	CollectionMembers map[string][]NFT          // collectionId -> members, sorted value desc then nftId asc
}

// Snapshot builds a deep-copied Projection of the current graph state. It is
// the single source of truth the TransformationCache caches and the
// enumerator consumes; callers never need to further copy it.
func (s *Store) Snapshot() *Projection {
	p, _ := s.SnapshotContext(context.Background())
	return p
}

// snapshotCheckEvery bounds how often SnapshotContext polls ctx.Done() while
// walking the store, mirroring the scc/cycle packages' periodic cancellation
// checks rather than checking on every single element.
const snapshotCheckEvery = 1024

// SnapshotContext behaves like Snapshot but observes ctx cancellation while
// walking wallets, NFTs, and collections, returning ctx.Err() if the
// projection-build deadline (spec.md §5) fires before the copy completes.
func (s *Store) SnapshotContext(ctx context.Context) (*Projection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p := &Projection{
		Wallets:           make(map[string]WalletView, len(s.wallets)),
		NFTs:              make(map[string]NFT, len(s.nfts)),
		WantIndex:         make(map[string]map[string]struct{}, len(s.wantIndex)),
		CollectionMembers: make(map[string][]NFT, len(s.collection)),
	}

	n := 0
	checkCtx := func() error {
		n++
		if n%snapshotCheckEvery != 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			return nil
		}
	}

	for id, w := range s.wallets {
		if err := checkCtx(); err != nil {
			return nil, err
		}
		p.WalletIDs = append(p.WalletIDs, id)
		p.Wallets[id] = WalletView{
			ID:                id,
			OwnedNFTs:         cloneSet(w.OwnedNFTs),
			WantedNFTs:        cloneSet(w.WantedNFTs),
			WantedCollections: cloneSet(w.WantedCollections),
			RejectedWallets:   cloneSet(w.RejectedWallets),
			RejectedNFTs:      cloneSet(w.RejectedNFTs),
		}
	}
	sort.Strings(p.WalletIDs)

	for id, n := range s.nfts {
		if err := checkCtx(); err != nil {
			return nil, err
		}
		p.NFTs[id] = *n
	}

	for nftID, set := range s.wantIndex {
		if err := checkCtx(); err != nil {
			return nil, err
		}
		p.WantIndex[nftID] = cloneSet(set)
	}

	for cid, c := range s.collection {
		if err := checkCtx(); err != nil {
			return nil, err
		}
		members := make([]NFT, 0, len(c.Members))
		for nftID := range c.Members {
			members = append(members, p.NFTs[nftID])
		}
		sort.Slice(members, func(i, j int) bool {
			if members[i].EstimatedValue != members[j].EstimatedValue {
				return members[i].EstimatedValue > members[j].EstimatedValue
			}
			return members[i].ID < members[j].ID
		})
		p.CollectionMembers[cid] = members
	}

	if err := func() error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			return nil
		}
	}(); err != nil {
		return nil, err
	}

	return p, nil
}

// Clone deep-copies the projection so a caller can hand out a defensive copy
// without touching the live store (used by the TransformationCache on read).
func (p *Projection) Clone() *Projection {
	out := &Projection{
		WalletIDs:         append([]string(nil), p.WalletIDs...),
		Wallets:           make(map[string]WalletView, len(p.Wallets)),
		NFTs:              make(map[string]NFT, len(p.NFTs)),
		WantIndex:         make(map[string]map[string]struct{}, len(p.WantIndex)),
		CollectionMembers: make(map[string][]NFT, len(p.CollectionMembers)),
	}
	for id, w := range p.Wallets {
		out.Wallets[id] = WalletView{
			ID:                w.ID,
			OwnedNFTs:         cloneSet(w.OwnedNFTs),
			WantedNFTs:        cloneSet(w.WantedNFTs),
			WantedCollections: cloneSet(w.WantedCollections),
			RejectedWallets:   cloneSet(w.RejectedWallets),
			RejectedNFTs:      cloneSet(w.RejectedNFTs),
		}
	}
	for id, n := range p.NFTs {
		out.NFTs[id] = n
	}
	for nftID, set := range p.WantIndex {
		out.WantIndex[nftID] = cloneSet(set)
	}
	for cid, members := range p.CollectionMembers {
		out.CollectionMembers[cid] = append([]NFT(nil), members...)
	}
	return out
}

// Fingerprint hashes the graph's shape — sorted wallet ids, per-wallet
// owned/wanted counts, and global counts — into a 64-bit cache key. Two
// graphs with the same fingerprint are not guaranteed identical; the
// TransformationCache does not compare a cached projection with the live
// graph, and the tenant pipeline drops all of a tenant's cache entries on
// every mutation.
func (s *Store) Fingerprint() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.wallets))
	for id := range s.wallets {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	h := fnv.New64a()
	for _, id := range ids {
		w := s.wallets[id]
		_, _ = h.Write([]byte(id))
		writeUint(h, uint64(len(w.OwnedNFTs)))
		writeUint(h, uint64(len(w.WantedNFTs)))
		writeUint(h, uint64(len(w.WantedCollections)))
	}
	writeUint(h, uint64(len(s.nfts)))
	writeUint(h, uint64(len(s.wantIndex)))
	writeUint(h, uint64(len(s.collection)))

	return h.Sum64()
}

func writeUint(h interface{ Write([]byte) (int, error) }, v uint64) {
	var b [8]byte
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
	_, _ = h.Write(b[:])
}
