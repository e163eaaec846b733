package graph

import "sort"

// DefaultMaxCollectionExpansion bounds how many NFTs a collection-want edge
// expands to per (A,B) pair when no tenant override is configured.
const DefaultMaxCollectionExpansion = 64

// rejects reports whether a rejects b as a counterparty, or rejects nft n,
// per Store.UpdateRejections semantics (checked both directions by callers).
func rejects(w WalletView, counterparty string, nftIDs ...string) bool {
	if _, ok := w.RejectedWallets[counterparty]; ok {
		return true
	}
	for _, id := range nftIDs {
		if _, ok := w.RejectedNFTs[id]; ok {
			return true
		}
	}
	return false
}

// EdgeNFTs returns the NFTs A owns that B wants — directly, or via a
// standing collection want capped at maxCollectionExpansion (highest
// estimatedValue first, lexicographic nftId tiebreak) — excluding any pair
// blocked by either wallet's rejection lists. A nil/empty result means no
// edge A -> B exists. When disableCollectionTrading is true (tenant config
// enableCollectionTrading:false), collection-want expansion is skipped
// entirely and only direct wants justify an edge.
func (p *Projection) EdgeNFTs(a, b string, maxCollectionExpansion int, disableCollectionTrading bool) []NFT {
	if a == b {
		return nil
	}
	if maxCollectionExpansion <= 0 {
		maxCollectionExpansion = DefaultMaxCollectionExpansion
	}

	wa, okA := p.Wallets[a]
	wb, okB := p.Wallets[b]
	if !okA || !okB {
		return nil
	}

	seen := map[string]struct{}{}
	var out []NFT

	for nftID := range wa.OwnedNFTs {
		n, ok := p.NFTs[nftID]
		if !ok {
			continue
		}
		if _, wants := wb.WantedNFTs[nftID]; !wants {
			continue
		}
		if rejects(wa, b, nftID) || rejects(wb, a, nftID) {
			continue
		}
		if _, dup := seen[nftID]; dup {
			continue
		}
		seen[nftID] = struct{}{}
		out = append(out, n)
	}

	if !disableCollectionTrading {
		var expanded []NFT
		for collectionID := range wb.WantedCollections {
			members := p.CollectionMembers[collectionID]
			for _, n := range members {
				if n.OwnerWalletID != a {
					continue
				}
				if _, dup := seen[n.ID]; dup {
					continue
				}
				if rejects(wa, b, n.ID) || rejects(wb, a, n.ID) {
					continue
				}
				seen[n.ID] = struct{}{}
				expanded = append(expanded, n)
			}
		}
		sort.Slice(expanded, func(i, j int) bool {
			if expanded[i].EstimatedValue != expanded[j].EstimatedValue {
				return expanded[i].EstimatedValue > expanded[j].EstimatedValue
			}
			return expanded[i].ID < expanded[j].ID
		})
		if len(expanded) > maxCollectionExpansion {
			expanded = expanded[:maxCollectionExpansion]
		}
		out = append(out, expanded...)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// HasEdge is a cheap existence check used by the SCC finder, which only
// needs connectivity, not the justifying NFT set.
func (p *Projection) HasEdge(a, b string, disableCollectionTrading bool) bool {
	return len(p.EdgeNFTs(a, b, DefaultMaxCollectionExpansion, disableCollectionTrading)) > 0
}

// Successors returns every wallet B such that A -> B, sorted by walletId —
// the enumerator and SCC finder both require sorted edge iteration for
// determinism.
func (p *Projection) Successors(a string, candidates []string, maxCollectionExpansion int, disableCollectionTrading bool) []string {
	var out []string
	for _, b := range candidates {
		if b == a {
			continue
		}
		if len(p.EdgeNFTs(a, b, maxCollectionExpansion, disableCollectionTrading)) > 0 {
			out = append(out, b)
		}
	}
	sort.Strings(out)
	return out
}
