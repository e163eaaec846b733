package graph

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Limits bounds a tenant's Security configuration (spec.md §6): a per-wallet
// cap on owned/wanted NFTs and a set of collections blocked from trading
// entirely. A zero value imposes no caps.
type Limits struct {
	MaxNFTsPerWallet       int
	MaxWantsPerWallet      int
	BlacklistedCollections map[string]struct{}
}

func (l Limits) blacklisted(collectionID string) bool {
	if collectionID == "" || l.BlacklistedCollections == nil {
		return false
	}
	_, ok := l.BlacklistedCollections[collectionID]
	return ok
}

// Store is the mutable, in-memory trade graph for a single tenant. It is
// mutated only by the tenant's serial pipeline (see the tenant package);
// reads happen through Snapshot, which is safe to call concurrently.
type Store struct {
	mu sync.RWMutex

	wallets    map[string]*Wallet
	nfts       map[string]*NFT
	wantIndex  map[string]map[string]struct{} // nftId -> set of walletId
	collection map[string]*Collection
	limits     Limits

	changeLog []GraphChange
	changeCap int
}

// NewStore constructs an empty graph with a bounded change-log ring and no
// Security caps. Use NewStoreWithLimits to enforce a tenant's configured caps.
func NewStore(changeLogCap int) *Store {
	return NewStoreWithLimits(changeLogCap, Limits{})
}

// NewStoreWithLimits constructs an empty graph enforcing limits on every
// AddNFT/AddWant call, per the tenant's Security configuration.
func NewStoreWithLimits(changeLogCap int, limits Limits) *Store {
	if changeLogCap <= 0 {
		changeLogCap = 10000
	}
	return &Store{
		wallets:    map[string]*Wallet{},
		nfts:       map[string]*NFT{},
		wantIndex:  map[string]map[string]struct{}{},
		collection: map[string]*Collection{},
		limits:     limits,
		changeCap:  changeLogCap,
	}
}

func (s *Store) record(kind ChangeKind, entityID string, payload any) GraphChange {
	c := GraphChange{
		ID:        uuid.NewString(),
		Kind:      kind,
		EntityID:  entityID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
	s.changeLog = append(s.changeLog, c)
	if len(s.changeLog) > s.changeCap {
		s.changeLog = s.changeLog[len(s.changeLog)-s.changeCap:]
	}
	return c
}

func (s *Store) walletOrNew(id string) *Wallet {
	w, ok := s.wallets[id]
	if !ok {
		w = newWallet(id)
		s.wallets[id] = w
	}
	return w
}

// AddNFT registers n, attaching it to its owner's OwnedNFTs and the
// collection index. Returns ErrConflict if the nftId is already owned by a
// different wallet, ErrBlacklistedCollection if n's collection is on the
// tenant's Security blacklist, or ErrLimitExceeded if the owner is already
// at the tenant's MaxNFTsPerWallet cap.
func (s *Store) AddNFT(n NFT) (GraphChange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.nfts[n.ID]; ok && existing.OwnerWalletID != n.OwnerWalletID {
		return GraphChange{}, ErrConflict{NFTID: n.ID, ExistingOwner: existing.OwnerWalletID, AttemptedNew: n.OwnerWalletID}
	}

	if s.limits.blacklisted(n.CollectionID) {
		return GraphChange{}, ErrBlacklistedCollection{CollectionID: n.CollectionID}
	}

	owner := s.walletOrNew(n.OwnerWalletID)
	if s.limits.MaxNFTsPerWallet > 0 {
		if _, already := owner.OwnedNFTs[n.ID]; !already && len(owner.OwnedNFTs) >= s.limits.MaxNFTsPerWallet {
			return GraphChange{}, ErrLimitExceeded{WalletID: n.OwnerWalletID, Limit: "maxNFTsPerWallet", Max: s.limits.MaxNFTsPerWallet}
		}
	}

	cp := n
	s.nfts[n.ID] = &cp
	owner.OwnedNFTs[n.ID] = struct{}{}

	if n.CollectionID != "" {
		c, ok := s.collection[n.CollectionID]
		if !ok {
			c = &Collection{ID: n.CollectionID, Members: map[string]struct{}{}}
			s.collection[n.CollectionID] = c
		}
		c.Members[n.ID] = struct{}{}
	}

	return s.record(ChangeNFTAdded, n.ID, n), nil
}

// RemoveNFT detaches the NFT from its owner, the collection index, and the
// want-index. It is not an error to remove an unknown id.
func (s *Store) RemoveNFT(nftID string) GraphChange {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.nfts[nftID]
	if ok {
		if owner, ok := s.wallets[n.OwnerWalletID]; ok {
			delete(owner.OwnedNFTs, nftID)
		}
		if n.CollectionID != "" {
			if c, ok := s.collection[n.CollectionID]; ok {
				delete(c.Members, nftID)
			}
		}
		delete(s.nfts, nftID)
	}
	delete(s.wantIndex, nftID)

	return s.record(ChangeNFTRemoved, nftID, nil)
}

// AddWant records that walletID wants nftID. Wanting an NFT you already own
// is silently dropped (no self-trade). Returns ErrLimitExceeded if walletID
// is already at the tenant's MaxWantsPerWallet cap.
func (s *Store) AddWant(walletID, nftID string) (GraphChange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n, ok := s.nfts[nftID]; ok && n.OwnerWalletID == walletID {
		return GraphChange{}, nil
	}

	w := s.walletOrNew(walletID)
	if s.limits.MaxWantsPerWallet > 0 {
		if _, already := w.WantedNFTs[nftID]; !already && len(w.WantedNFTs) >= s.limits.MaxWantsPerWallet {
			return GraphChange{}, ErrLimitExceeded{WalletID: walletID, Limit: "maxWantsPerWallet", Max: s.limits.MaxWantsPerWallet}
		}
	}
	w.WantedNFTs[nftID] = struct{}{}

	set, ok := s.wantIndex[nftID]
	if !ok {
		set = map[string]struct{}{}
		s.wantIndex[nftID] = set
	}
	set[walletID] = struct{}{}

	return s.record(ChangeWantAdded, nftID, walletID), nil
}

// RemoveWant undoes AddWant.
func (s *Store) RemoveWant(walletID, nftID string) GraphChange {
	s.mu.Lock()
	defer s.mu.Unlock()

	if w, ok := s.wallets[walletID]; ok {
		delete(w.WantedNFTs, nftID)
	}
	if set, ok := s.wantIndex[nftID]; ok {
		delete(set, walletID)
		if len(set) == 0 {
			delete(s.wantIndex, nftID)
		}
	}

	return s.record(ChangeWantRemoved, nftID, walletID)
}

// AddCollectionWant records a standing want for any NFT in collectionID.
func (s *Store) AddCollectionWant(walletID, collectionID string) GraphChange {
	s.mu.Lock()
	defer s.mu.Unlock()

	w := s.walletOrNew(walletID)
	w.WantedCollections[collectionID] = struct{}{}

	return s.record(ChangeWantAdded, collectionID, walletID)
}

// RemoveCollectionWant undoes AddCollectionWant.
func (s *Store) RemoveCollectionWant(walletID, collectionID string) GraphChange {
	s.mu.Lock()
	defer s.mu.Unlock()

	if w, ok := s.wallets[walletID]; ok {
		delete(w.WantedCollections, collectionID)
	}

	return s.record(ChangeWantRemoved, collectionID, walletID)
}

// UpdateRejections replaces walletID's rejection lists.
func (s *Store) UpdateRejections(walletID string, rejectedWallets, rejectedNFTs []string) GraphChange {
	s.mu.Lock()
	defer s.mu.Unlock()

	w := s.walletOrNew(walletID)
	w.RejectedWallets = toSet(rejectedWallets)
	w.RejectedNFTs = toSet(rejectedNFTs)

	return s.record(ChangeWalletRejectionUpdate, walletID, nil)
}

func toSet(ss []string) map[string]struct{} {
	m := make(map[string]struct{}, len(ss))
	for _, s := range ss {
		m[s] = struct{}{}
	}
	return m
}

// WalletOf returns the owner wallet id of nftID, or "" if unknown.
func (s *Store) WalletOf(nftID string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n, ok := s.nfts[nftID]; ok {
		return n.OwnerWalletID
	}
	return ""
}

// WantersOf returns a copy of the set of wallets that directly want nftID.
func (s *Store) WantersOf(nftID string) map[string]struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneSet(s.wantIndex[nftID])
}

// WantersOfCollection returns the wallets with a standing want for
// collectionID.
func (s *Store) WantersOfCollection(collectionID string) map[string]struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := map[string]struct{}{}
	for id, w := range s.wallets {
		if _, ok := w.WantedCollections[collectionID]; ok {
			out[id] = struct{}{}
		}
	}
	return out
}

// ChangeLog returns a copy of the tenant's append-only change log.
func (s *Store) ChangeLog() []GraphChange {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]GraphChange, len(s.changeLog))
	copy(out, s.changeLog)
	return out
}

// Counts reports the current size of the graph, used by TenantRuntime.Status.
func (s *Store) Counts() (nftCount, walletCount int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nfts), len(s.wallets)
}

func cloneSet(src map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(src))
	for k := range src {
		out[k] = struct{}{}
	}
	return out
}

// SortedWalletIDs returns every wallet id in the graph, sorted — the
// enumerator's vertex iteration order must be deterministic.
func (s *Store) SortedWalletIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.wallets))
	for id := range s.wallets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
