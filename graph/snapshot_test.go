package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotContext_ReturnsErrOnAlreadyCancelledContext(t *testing.T) {
	s := NewStore(100)
	_, err := s.AddNFT(NFT{ID: "n1", OwnerWalletID: "A"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p, err := s.SnapshotContext(ctx)
	assert.Nil(t, p)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSnapshotContext_SucceedsUnderDeadline(t *testing.T) {
	s := NewStore(100)
	_, err := s.AddNFT(NFT{ID: "n1", OwnerWalletID: "A"})
	require.NoError(t, err)

	p, err := s.SnapshotContext(context.Background())
	require.NoError(t, err)
	assert.Contains(t, p.NFTs, "n1")
}
