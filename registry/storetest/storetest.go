// Package storetest holds the behaviour every registry.Store must share.
// Store implementations call Run from their own tests.
package storetest

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jasz0n/ioPlasmaVerse-Expo-sub002/registry"
	"github.com/Jasz0n/ioPlasmaVerse-Expo-sub002/types"
)

// Factory returns an empty store. Run closes it.
type Factory func(t *testing.T) registry.Store

var epoch = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// Request builds a pending QR request expiring ttl after epoch.
func Request(id string, ttl time.Duration) *types.PaymentRequest {
	return &types.PaymentRequest{
		ID:              id,
		PayeeAddress:    "0x70997970C51812dc3A010C7d01b50e0d17dc79C8",
		ChainID:         8453,
		TokenAddress:    "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913",
		Symbol:          "USDC",
		Decimals:        6,
		AmountBaseUnits: big.NewInt(10500000),
		Message:         "coffee",
		Mode:            types.ModeQR,
		Status:          types.StatusPending,
		CreatedAt:       epoch,
		ExpiresAt:       epoch.Add(ttl),
		UpdatedAt:       epoch,
	}
}

// Run exercises a store against the registry.Store contract.
func Run(t *testing.T, newStore Factory) {
	t.Run("InsertGet", func(t *testing.T) { testInsertGet(t, newStore) })
	t.Run("DuplicateInsert", func(t *testing.T) { testDuplicateInsert(t, newStore) })
	t.Run("NotFound", func(t *testing.T) { testNotFound(t, newStore) })
	t.Run("Transition", func(t *testing.T) { testTransition(t, newStore) })
	t.Run("SettlementTxUsedOnce", func(t *testing.T) { testSettlementTxUsedOnce(t, newStore) })
	t.Run("ConcurrentTransition", func(t *testing.T) { testConcurrentTransition(t, newStore) })
	t.Run("ListExpired", func(t *testing.T) { testListExpired(t, newStore) })
	t.Run("PurgeTerminal", func(t *testing.T) { testPurgeTerminal(t, newStore) })
}

func open(t *testing.T, newStore Factory) registry.Store {
	s := newStore(t)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testInsertGet(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := open(t, newStore)

	req := Request("a", time.Minute)
	req.PayerHint = "0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC"
	require.NoError(t, s.Insert(ctx, req))

	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, req.ID, got.ID)
	assert.Equal(t, req.PayeeAddress, got.PayeeAddress)
	assert.Equal(t, req.ChainID, got.ChainID)
	assert.Equal(t, req.TokenAddress, got.TokenAddress)
	assert.Equal(t, req.Symbol, got.Symbol)
	assert.Equal(t, req.Decimals, got.Decimals)
	assert.Equal(t, 0, req.AmountBaseUnits.Cmp(got.AmountBaseUnits))
	assert.Equal(t, req.Message, got.Message)
	assert.Equal(t, req.Mode, got.Mode)
	assert.Equal(t, req.PayerHint, got.PayerHint)
	assert.Equal(t, types.StatusPending, got.Status)
	assert.True(t, req.ExpiresAt.Equal(got.ExpiresAt))
	assert.True(t, req.CreatedAt.Equal(got.CreatedAt))
	assert.Nil(t, got.Settlement)

	// callers get copies
	got.AmountBaseUnits.SetInt64(1)
	again, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "10500000", again.AmountBaseUnits.String())
}

func testDuplicateInsert(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := open(t, newStore)

	require.NoError(t, s.Insert(ctx, Request("a", time.Minute)))
	assert.Error(t, s.Insert(ctx, Request("a", time.Minute)))
}

func testNotFound(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := open(t, newStore)

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, types.ErrNotFound)

	_, err = s.Transition(ctx, "missing", types.StatusPending, types.StatusCancelled, nil, epoch)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func testTransition(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := open(t, newStore)
	require.NoError(t, s.Insert(ctx, Request("a", time.Minute)))

	settledAt := epoch.Add(30 * time.Second)
	settlement := &types.Settlement{
		TxHash:          "0xdead",
		AmountBaseUnits: big.NewInt(10500000),
		Token:           "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913",
		ChainID:         8453,
		SettledAt:       settledAt,
	}

	ok, err := s.Transition(ctx, "a", types.StatusPending, types.StatusSettled, settlement, settledAt)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Transition(ctx, "a", types.StatusPending, types.StatusExpired, nil, settledAt)
	require.NoError(t, err)
	assert.False(t, ok, "second transition from pending must lose")

	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, types.StatusSettled, got.Status)
	require.NotNil(t, got.Settlement)
	assert.True(t, settlement.Equal(got.Settlement))
	assert.True(t, settledAt.Equal(got.Settlement.SettledAt))
	assert.True(t, settledAt.Equal(got.UpdatedAt))
}

func testSettlementTxUsedOnce(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := open(t, newStore)
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.Insert(ctx, Request(id, time.Minute)))
	}

	settlement := func(hash string, chainID int64) *types.Settlement {
		return &types.Settlement{
			TxHash:          hash,
			AmountBaseUnits: big.NewInt(10500000),
			Token:           "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913",
			ChainID:         chainID,
			SettledAt:       epoch,
		}
	}

	ok, err := s.Transition(ctx, "a", types.StatusPending, types.StatusSettled, settlement("0xABCD", 8453), epoch)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.Transition(ctx, "b", types.StatusPending, types.StatusSettled, settlement("0xabcd", 8453), epoch)
	assert.ErrorIs(t, err, types.ErrAlreadySettled)
	assert.False(t, ok)

	got, err := s.Get(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, types.StatusPending, got.Status)
	assert.Nil(t, got.Settlement)

	// the same hash on another chain is a different transfer
	ok, err = s.Transition(ctx, "c", types.StatusPending, types.StatusSettled, settlement("0xabcd", 4689), epoch)
	require.NoError(t, err)
	assert.True(t, ok)

	// b can still be settled by its own transfer
	ok, err = s.Transition(ctx, "b", types.StatusPending, types.StatusSettled, settlement("0xbeef", 8453), epoch)
	require.NoError(t, err)
	assert.True(t, ok)
}

func testConcurrentTransition(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := open(t, newStore)
	require.NoError(t, s.Insert(ctx, Request("a", time.Minute)))

	var (
		wg   sync.WaitGroup
		wins atomic.Int32
	)
	targets := []types.Status{types.StatusCancelled, types.StatusExpired, types.StatusCancelled, types.StatusExpired}
	for _, to := range targets {
		wg.Add(1)
		go func(to types.Status) {
			defer wg.Done()
			ok, err := s.Transition(ctx, "a", types.StatusPending, to, nil, epoch)
			assert.NoError(t, err)
			if ok {
				wins.Add(1)
			}
		}(to)
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}

func testListExpired(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := open(t, newStore)

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Insert(ctx, Request(fmt.Sprintf("old-%d", i), time.Minute)))
	}
	require.NoError(t, s.Insert(ctx, Request("fresh", time.Hour)))
	require.NoError(t, s.Insert(ctx, Request("done", time.Minute)))
	_, err := s.Transition(ctx, "done", types.StatusPending, types.StatusCancelled, nil, epoch)
	require.NoError(t, err)

	now := epoch.Add(10 * time.Minute)
	ids, err := s.ListExpired(ctx, now, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"old-0", "old-1", "old-2", "old-3", "old-4"}, ids)

	ids, err = s.ListExpired(ctx, now, 2)
	require.NoError(t, err)
	assert.Len(t, ids, 2)
}

func testPurgeTerminal(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := open(t, newStore)

	require.NoError(t, s.Insert(ctx, Request("old", time.Minute)))
	require.NoError(t, s.Insert(ctx, Request("recent", time.Minute)))
	require.NoError(t, s.Insert(ctx, Request("pending", time.Minute)))

	_, err := s.Transition(ctx, "old", types.StatusPending, types.StatusExpired, nil, epoch.Add(time.Hour))
	require.NoError(t, err)
	_, err = s.Transition(ctx, "recent", types.StatusPending, types.StatusCancelled, nil, epoch.Add(48*time.Hour))
	require.NoError(t, err)

	purged, err := s.PurgeTerminal(ctx, epoch.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	_, err = s.Get(ctx, "old")
	assert.ErrorIs(t, err, types.ErrNotFound)
	_, err = s.Get(ctx, "recent")
	assert.NoError(t, err)
	_, err = s.Get(ctx, "pending")
	assert.NoError(t, err)
}
