// Package graph implements the per-tenant trade graph: NFTs, wallets,
// collections, the want-index, and the mutation log that drives everything
// downstream.
package graph

import (
	"fmt"
	"time"
)

// NFT is a single addressable token inside a tenant's namespace.
type NFT struct {
	ID             string
	OwnerWalletID  string
	CollectionID   string // empty if the NFT belongs to no collection
	EstimatedValue float64
	Currency       string
	Name           string
}

// Wallet is a participant in the tenant's graph.
type Wallet struct {
	ID                string
	OwnedNFTs         map[string]struct{}
	WantedNFTs        map[string]struct{}
	WantedCollections map[string]struct{}
	RejectedWallets   map[string]struct{}
	RejectedNFTs      map[string]struct{}
}

func newWallet(id string) *Wallet {
	return &Wallet{
		ID:                id,
		OwnedNFTs:         map[string]struct{}{},
		WantedNFTs:        map[string]struct{}{},
		WantedCollections: map[string]struct{}{},
		RejectedWallets:   map[string]struct{}{},
		RejectedNFTs:      map[string]struct{}{},
	}
}

// Collection groups NFTs sharing a collectionId.
type Collection struct {
	ID         string
	Name       string
	FloorPrice float64
	Members    map[string]struct{} // nftId set
}

// Step is one edge of a TradeLoop: From gives Nfts to To.
type Step struct {
	From string
	To   string
	Nfts []NFT
}

// TradeLoop is an elementary directed cycle promoted to a scheduled barter.
type TradeLoop struct {
	ID                  string
	Steps               []Step
	Participants        int
	QualityScore        float64
	Efficiency          float64
	Fairness            float64
	Demand              float64
	CollectionDiversity float64
	DiscoveredAt        time.Time
}

// ChangeKind enumerates the kinds of mutation recorded in a tenant's
// append-only change log.
type ChangeKind string

const (
	ChangeNFTAdded              ChangeKind = "nft_added"
	ChangeNFTRemoved            ChangeKind = "nft_removed"
	ChangeWantAdded             ChangeKind = "want_added"
	ChangeWantRemoved           ChangeKind = "want_removed"
	ChangeWalletRejectionUpdate ChangeKind = "wallet_rejection_updated"
)

// GraphChange is one append-only entry in a tenant's change log.
type GraphChange struct {
	ID        string
	Kind      ChangeKind
	EntityID  string
	Timestamp time.Time
	Payload   any
}

// ErrConflict is returned by AddNFT when the nftId is already owned by a
// different wallet.
type ErrConflict struct {
	NFTID         string
	ExistingOwner string
	AttemptedNew  string
}

func (e ErrConflict) Error() string {
	return fmt.Sprintf("nft %q already owned by %q (attempted owner %q)", e.NFTID, e.ExistingOwner, e.AttemptedNew)
}

// ErrLimitExceeded is returned when a mutation would push a wallet's owned
// or wanted NFT count past its tenant's Security caps.
type ErrLimitExceeded struct {
	WalletID string
	Limit    string // "maxNFTsPerWallet" or "maxWantsPerWallet"
	Max      int
}

func (e ErrLimitExceeded) Error() string {
	return fmt.Sprintf("wallet %q exceeds %s (max %d)", e.WalletID, e.Limit, e.Max)
}

// ErrBlacklistedCollection is returned by AddNFT when the NFT's collection
// is on the tenant's Security blacklist.
type ErrBlacklistedCollection struct {
	CollectionID string
}

func (e ErrBlacklistedCollection) Error() string {
	return fmt.Sprintf("collection %q is blacklisted for trading", e.CollectionID)
}

// MutationKind tags the variant of a Mutation ingested via
// TenantRuntime.Submit; only the fields relevant to that variant are set.
type MutationKind string

const (
	MutationAddNFT                MutationKind = "add_nft"
	MutationRemoveNFT             MutationKind = "remove_nft"
	MutationAddWant               MutationKind = "add_want"
	MutationRemoveWant            MutationKind = "remove_want"
	MutationAddCollectionWant     MutationKind = "add_collection_want"
	MutationRemoveCollectionWant  MutationKind = "remove_collection_want"
	MutationUpdateRejection       MutationKind = "update_rejection"
	MutationMarkCompleted         MutationKind = "mark_completed"
)

// Mutation carries exactly the fields relevant to its Kind.
type Mutation struct {
	Kind MutationKind

	NFT NFT // AddNFT

	NFTID string // RemoveNFT, AddWant/RemoveWant

	WalletID     string // AddWant/RemoveWant, AddCollectionWant/RemoveCollectionWant, UpdateRejection
	CollectionID string // AddCollectionWant/RemoveCollectionWant

	RejectedWallets []string // UpdateRejection
	RejectedNFTs    []string // UpdateRejection

	LoopID string // MarkCompleted
}
