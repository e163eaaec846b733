package main

import (
	"encoding/json"

	"github.com/barterlabs/loopengine/bterr"
	"github.com/barterlabs/loopengine/graph"
)

// rawMutation is the line-delimited JSON shape barterd serve reads from
// stdin: one object per mutation, `kind` selecting which other fields apply.
type rawMutation struct {
	Kind string `json:"kind"`

	NFT struct {
		ID             string  `json:"id"`
		OwnerWalletID  string  `json:"ownerWalletId"`
		CollectionID   string  `json:"collectionId"`
		EstimatedValue float64 `json:"estimatedValue"`
		Currency       string  `json:"currency"`
		Name           string  `json:"name"`
	} `json:"nft"`

	NFTID        string `json:"nftId"`
	WalletID     string `json:"walletId"`
	CollectionID string `json:"collectionId"`

	RejectedWallets []string `json:"rejectedWallets"`
	RejectedNFTs    []string `json:"rejectedNfts"`

	LoopID string `json:"loopId"`

	Trigger string `json:"trigger"`
}

func parseMutation(line []byte) (graph.Mutation, string, error) {
	var raw rawMutation
	if err := json.Unmarshal(line, &raw); err != nil {
		return graph.Mutation{}, "", bterr.ErrInvalidInput{Field: "mutation", Reason: err.Error()}
	}

	trigger := raw.Trigger
	if trigger == "" {
		trigger = raw.Kind
	}

	switch graph.MutationKind(raw.Kind) {
	case graph.MutationAddNFT:
		return graph.Mutation{
			Kind: graph.MutationAddNFT,
			NFT: graph.NFT{
				ID:             raw.NFT.ID,
				OwnerWalletID:  raw.NFT.OwnerWalletID,
				CollectionID:   raw.NFT.CollectionID,
				EstimatedValue: raw.NFT.EstimatedValue,
				Currency:       raw.NFT.Currency,
				Name:           raw.NFT.Name,
			},
		}, trigger, nil

	case graph.MutationRemoveNFT:
		return graph.Mutation{Kind: graph.MutationRemoveNFT, NFTID: raw.NFTID}, trigger, nil

	case graph.MutationAddWant:
		return graph.Mutation{Kind: graph.MutationAddWant, WalletID: raw.WalletID, NFTID: raw.NFTID}, trigger, nil

	case graph.MutationRemoveWant:
		return graph.Mutation{Kind: graph.MutationRemoveWant, WalletID: raw.WalletID, NFTID: raw.NFTID}, trigger, nil

	case graph.MutationAddCollectionWant:
		return graph.Mutation{Kind: graph.MutationAddCollectionWant, WalletID: raw.WalletID, CollectionID: raw.CollectionID}, trigger, nil

	case graph.MutationRemoveCollectionWant:
		return graph.Mutation{Kind: graph.MutationRemoveCollectionWant, WalletID: raw.WalletID, CollectionID: raw.CollectionID}, trigger, nil

	case graph.MutationUpdateRejection:
		return graph.Mutation{
			Kind:            graph.MutationUpdateRejection,
			WalletID:        raw.WalletID,
			RejectedWallets: raw.RejectedWallets,
			RejectedNFTs:    raw.RejectedNFTs,
		}, trigger, nil

	case graph.MutationMarkCompleted:
		return graph.Mutation{Kind: graph.MutationMarkCompleted, LoopID: raw.LoopID}, trigger, nil

	default:
		return graph.Mutation{}, "", bterr.ErrInvalidInput{Field: "kind", Reason: "unrecognized mutation kind: " + raw.Kind}
	}
}
