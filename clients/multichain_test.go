package clients

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jasz0n/ioPlasmaVerse-Expo-sub002/types"
)

const wbtcBase = "0x0555E30da8f98308EdB960aa94C0Db47230d2B9c"

func TestStaticCatalog(t *testing.T) {
	catalog, err := NewStaticCatalog(
		[]types.ChainConfig{{ChainID: 8453}, {ChainID: 4689, NativeSymbol: "IOTX"}},
		[]types.TokenConfig{{ChainID: 8453, Address: usdcAddr.Hex(), Symbol: "USDC", Decimals: 6}},
	)
	require.NoError(t, err)
	ctx := context.Background()

	info, err := catalog.Lookup(ctx, 8453, "0x833589FCD6EDB6E08F4C7C32D4F71B54BDA02913")
	require.NoError(t, err)
	assert.Equal(t, "USDC", info.Symbol)
	assert.Equal(t, uint8(6), info.Decimals)

	_, err = catalog.Lookup(ctx, 1, usdcAddr.Hex())
	assert.ErrorIs(t, err, types.ErrInvalidToken)

	native, err := catalog.Lookup(ctx, 4689, types.NativeTokenAlias)
	require.NoError(t, err)
	assert.Equal(t, "IOTX", native.Symbol)
	assert.Equal(t, uint8(18), native.Decimals)

	native, err = catalog.Lookup(ctx, 8453, types.NativeToken)
	require.NoError(t, err)
	assert.Equal(t, "ETH", native.Symbol)

	_, err = catalog.Lookup(ctx, 424242, types.NativeToken)
	assert.ErrorIs(t, err, types.ErrInvalidToken)
	_, err = catalog.Lookup(ctx, 137, types.NativeTokenAlias)
	assert.ErrorIs(t, err, types.ErrInvalidToken)

	assert.Len(t, catalog.Tokens(8453), 1)
	assert.Empty(t, catalog.Tokens(4689))

	_, err = NewStaticCatalog(nil, []types.TokenConfig{{ChainID: 1, Address: "USDC", Symbol: "USDC"}})
	assert.Equal(t, types.ErrCodeConfigError, types.CodeOf(err))
}

func newTestMultiChain(t *testing.T) (*MultiChain, *fakeBackend, *fakeBackend) {
	t.Helper()
	catalog, err := NewStaticCatalog(
		[]types.ChainConfig{{ChainID: 8453}, {ChainID: 4689}},
		[]types.TokenConfig{{ChainID: 8453, Address: usdcAddr.Hex(), Symbol: "USDC", Decimals: 6}},
	)
	require.NoError(t, err)

	base := newFakeBackend()
	base.addToken(usdcAddr.Hex(), "USDC", 6).balances[payerAddr] = big.NewInt(3000000)
	base.addToken(wbtcBase, "WBTC", 8).balances[payerAddr] = big.NewInt(1000000)
	base.native[payerAddr] = big.NewInt(5e17)

	iotex := newFakeBackend()
	iotex.native[payerAddr] = big.NewInt(0)

	mc := NewMultiChain(catalog, map[int64][]string{8453: {wbtcBase, usdcAddr.Hex()}}, nil,
		NewEVMClientWithBackend(8453, "", base),
		NewEVMClientWithBackend(4689, "", iotex),
	)
	return mc, base, iotex
}

func TestMultiChain_Holdings(t *testing.T) {
	mc, _, _ := newTestMultiChain(t)

	holdings, err := mc.Holdings(context.Background(), payerAddr.Hex())
	require.NoError(t, err)
	require.Len(t, holdings, 3, "zero balances are skipped")

	bySymbol := map[string]types.Holding{}
	for _, h := range holdings {
		assert.Equal(t, int64(8453), h.ChainID)
		bySymbol[h.Symbol] = h
	}
	assert.Equal(t, "3000000", bySymbol["USDC"].BalanceBaseUnits.String())
	assert.Equal(t, uint8(6), bySymbol["USDC"].Decimals)
	assert.Equal(t, "1000000", bySymbol["WBTC"].BalanceBaseUnits.String())
	assert.Equal(t, uint8(8), bySymbol["WBTC"].Decimals, "metadata read from the contract")
	assert.Equal(t, types.NativeToken, bySymbol["ETH"].Token)

	_, err = mc.Holdings(context.Background(), "not-an-address")
	assert.Equal(t, types.ErrCodeInvalidPayload, types.CodeOf(err))
}

func TestMultiChain_HoldingsPartialFailure(t *testing.T) {
	mc, _, iotex := newTestMultiChain(t)
	iotex.failRPC = errors.New("rpc down")

	holdings, err := mc.Holdings(context.Background(), payerAddr.Hex())
	require.NoError(t, err)
	assert.Len(t, holdings, 3)
}

func TestMultiChain_HoldingsAllFail(t *testing.T) {
	mc, base, iotex := newTestMultiChain(t)
	base.failRPC = errors.New("rpc down")
	iotex.failRPC = errors.New("rpc down")

	_, err := mc.Holdings(context.Background(), payerAddr.Hex())
	assert.Equal(t, types.ErrCodeNetworkError, types.CodeOf(err))
}

func TestMultiChain_LookupFallsBackToChain(t *testing.T) {
	mc, base, _ := newTestMultiChain(t)
	ctx := context.Background()

	info, err := mc.Lookup(ctx, 8453, wbtcBase)
	require.NoError(t, err)
	assert.Equal(t, "WBTC", info.Symbol)

	// cached: the chain is no longer consulted
	base.failRPC = errors.New("rpc down")
	info, err = mc.Lookup(ctx, 8453, wbtcBase)
	require.NoError(t, err)
	assert.Equal(t, uint8(8), info.Decimals)

	_, err = mc.Lookup(ctx, 8453, otherAddr.Hex())
	assert.ErrorIs(t, err, types.ErrInvalidToken)

	_, err = mc.Lookup(ctx, 1, otherAddr.Hex())
	assert.ErrorIs(t, err, types.ErrInvalidToken)
}

func TestMultiChain_VerifyTransfer(t *testing.T) {
	mc, base, _ := newTestMultiChain(t)
	ctx := context.Background()

	hash := hashOf(1)
	base.addReceipt(hash, ethtypes.ReceiptStatusSuccessful, transferLog(usdcAddr, payerAddr, payeeAddr, 10500000))

	s, err := mc.VerifyTransfer(ctx, 8453, hash.Hex(), payeeAddr.Hex(), usdcAddr.Hex())
	require.NoError(t, err)
	assert.Equal(t, "10500000", s.AmountBaseUnits.String())

	_, err = mc.VerifyTransfer(ctx, 1, hash.Hex(), payeeAddr.Hex(), usdcAddr.Hex())
	assertReason(t, err, types.ErrCodeInvalidToken, ErrUnsupportedChain)

	bal, err := mc.BalanceOf(ctx, 8453, usdcAddr.Hex(), payerAddr.Hex())
	require.NoError(t, err)
	assert.Equal(t, "3000000", bal.String())

	mc.Close()
	assert.True(t, base.closed)
}

func TestStatusClient(t *testing.T) {
	expires := time.Date(2025, 6, 1, 12, 15, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v1/payments/abc123":
			_ = json.NewEncoder(w).Encode(types.StatusResponse{
				PaymentID:              "abc123",
				Status:                 types.StatusSettled,
				ChainID:                8453,
				TokenAddress:           usdcAddr.Hex(),
				AmountBaseUnits:        "10500000",
				ExpiresAt:              expires,
				SettlementTxHash:       "0xdead",
				SettledAmountBaseUnits: "10500000",
				SettledToken:           usdcAddr.Hex(),
				SettledChain:           8453,
			})
		case "/v1/payments/broken":
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("upstream down"))
		default:
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(types.ErrorResponse{Code: types.ErrCodeNotFound, Message: "payment request not found"})
		}
	}))
	defer srv.Close()

	client := NewStatusClient(srv.URL+"/", nil)
	ctx := context.Background()

	req, err := client.Get(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, types.StatusSettled, req.Status)
	assert.Equal(t, "10500000", req.AmountBaseUnits.String())
	assert.True(t, expires.Equal(req.ExpiresAt))
	require.NotNil(t, req.Settlement)
	assert.Equal(t, "0xdead", req.Settlement.TxHash)

	_, err = client.Get(ctx, "missing")
	assert.ErrorIs(t, err, types.ErrNotFound)

	_, err = client.Get(ctx, "broken")
	assert.ErrorIs(t, err, types.ErrNetworkError)

	srv.Close()
	_, err = client.Get(ctx, "abc123")
	assert.ErrorIs(t, err, types.ErrNetworkError)
}
