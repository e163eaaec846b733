package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEdgeNFTs_CollectionWantExpandsByDefault(t *testing.T) {
	s := NewStore(100)
	_, err := s.AddNFT(NFT{ID: "n1", OwnerWalletID: "A", CollectionID: "punks", EstimatedValue: 5})
	require.NoError(t, err)
	s.AddCollectionWant("B", "punks")

	p := s.Snapshot()
	edges := p.EdgeNFTs("A", "B", DefaultMaxCollectionExpansion, false)
	assert.Len(t, edges, 1)
	assert.Equal(t, "n1", edges[0].ID)
}

func TestEdgeNFTs_DisableCollectionTradingSuppressesExpansion(t *testing.T) {
	s := NewStore(100)
	_, err := s.AddNFT(NFT{ID: "n1", OwnerWalletID: "A", CollectionID: "punks", EstimatedValue: 5})
	require.NoError(t, err)
	s.AddCollectionWant("B", "punks")

	p := s.Snapshot()
	edges := p.EdgeNFTs("A", "B", DefaultMaxCollectionExpansion, true)
	assert.Empty(t, edges, "disableCollectionTrading must suppress collection-want expansion")
}

func TestEdgeNFTs_DirectWantUnaffectedByDisableCollectionTrading(t *testing.T) {
	s := NewStore(100)
	_, err := s.AddNFT(NFT{ID: "n1", OwnerWalletID: "A"})
	require.NoError(t, err)
	s.AddWant("B", "n1")

	p := s.Snapshot()
	edges := p.EdgeNFTs("A", "B", DefaultMaxCollectionExpansion, true)
	require.Len(t, edges, 1)
	assert.Equal(t, "n1", edges[0].ID)
}
