package plasmapay

import (
	"context"
	"encoding/json"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jasz0n/ioPlasmaVerse-Expo-sub002/logger"
	"github.com/Jasz0n/ioPlasmaVerse-Expo-sub002/payload"
	"github.com/Jasz0n/ioPlasmaVerse-Expo-sub002/registry"
	"github.com/Jasz0n/ioPlasmaVerse-Expo-sub002/settlement"
	"github.com/Jasz0n/ioPlasmaVerse-Expo-sub002/types"
	"github.com/Jasz0n/ioPlasmaVerse-Expo-sub002/watcher"
)

const (
	usdc  = "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"
	payee = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"
)

func testConfig(t *testing.T) *types.Config {
	return &types.Config{
		ListenAddr:    "127.0.0.1:0",
		DatabasePath:  filepath.Join(t.TempDir(), "payments.db"),
		BaseURI:       "https://pay.example.org",
		EnableMetrics: true,
		Chains:        []types.ChainConfig{{ChainID: 8453}},
		Tokens:        []types.TokenConfig{{ChainID: 8453, Address: usdc, Symbol: "USDC", Decimals: 6}},
		Pools: []types.PoolConfig{{
			ChainID: 8453, TokenA: "0x0555E30da8f98308EdB960aa94C0Db47230d2B9c", TokenB: usdc,
			ReserveA: "50000000000", ReserveB: "30000000000000", FeeBps: 30,
		}},
	}
}

func newTestService(t *testing.T, opts ...Option) *PlasmaPay {
	t.Helper()
	p, err := New(testConfig(t), append([]Option{WithLogger(logger.NoopLogger{})}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(p.Close)
	return p
}

func createQR(t *testing.T, p *PlasmaPay) *types.PaymentRequest {
	t.Helper()
	req, err := p.Create(context.Background(), registry.CreateParams{
		PayeeAddress: payee,
		ChainID:      8453,
		Token:        usdc,
		Amount:       "10.50",
		Mode:         types.ModeQR,
	})
	require.NoError(t, err)
	return req
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, types.ErrConfigError)

	_, err = New(&types.Config{BaseURI: "https://pay.example.org"})
	assert.ErrorIs(t, err, types.ErrConfigError)

	cfg := testConfig(t)
	cfg.Pools[0].ReserveA = "0"
	_, err = New(cfg, WithLogger(logger.NoopLogger{}))
	assert.ErrorIs(t, err, types.ErrConfigError)

	cfg = testConfig(t)
	cfg.MaxSlippage = "5"
	_, err = New(cfg, WithLogger(logger.NoopLogger{}))
	assert.ErrorIs(t, err, types.ErrConfigError)
}

func TestPaymentLifecycle(t *testing.T) {
	p := newTestService(t)
	ctx := context.Background()

	req := createQR(t, p)
	assert.Equal(t, "10500000", req.AmountBaseUnits.String())

	uri, err := p.URI(ctx, req.ID)
	require.NoError(t, err)
	fields, err := payload.Decode(uri)
	require.NoError(t, err)
	assert.Equal(t, req.ID, fields.PaymentID)

	settled := make(chan *types.PaymentRequest, 1)
	h := p.Watch(ctx, req.ID, watcher.Params{
		Interval:  10 * time.Millisecond,
		Timeout:   5 * time.Second,
		OnSettled: func(r *types.PaymentRequest) { settled <- r },
	})

	require.NoError(t, p.MarkSettled(ctx, req.ID, types.Settlement{
		TxHash:          "0xdead",
		AmountBaseUnits: big.NewInt(10500000),
		Token:           usdc,
		ChainID:         8453,
	}))

	select {
	case r := <-settled:
		assert.Equal(t, "0xdead", r.Settlement.TxHash)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not observe the settlement")
	}
	<-h.Done()
	assert.Equal(t, watcher.Settled, h.Outcome())

	// the same confirmation again is a no-op
	require.NoError(t, p.MarkSettled(ctx, req.ID, types.Settlement{
		TxHash:          "0xdead",
		AmountBaseUnits: big.NewInt(10500000),
		Token:           usdc,
		ChainID:         8453,
	}))
	assert.ErrorIs(t, p.Cancel(ctx, req.ID), types.ErrInvalidState)
}

func TestResolve(t *testing.T) {
	p := newTestService(t)
	req := createQR(t, p)

	// no chain client is configured, so there is nothing to read
	_, err := p.Resolve(context.Background(), req.ID, payee)
	assert.ErrorIs(t, err, types.ErrNoRoute)

	_, err = p.Resolve(context.Background(), "missing", payee)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestConfirm_UnconfiguredChain(t *testing.T) {
	p := newTestService(t)
	req := createQR(t, p)

	_, err := p.Confirm(context.Background(), req.ID, 8453, "0x"+strings.Repeat("ab", 32))
	assert.Error(t, err)

	got, err := p.Get(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusPending, got.Status)
}

func TestHandler_MetricsAndHealth(t *testing.T) {
	p := newTestService(t)
	createQR(t, p)

	srv := httptest.NewServer(p.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	var health types.HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, Version, health.Version)
	assert.Equal(t, []types.NetworkInfo{{Name: "base", ChainID: 8453}}, health.Networks)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(body), "plasmapay_events_total")
	assert.Contains(t, string(body), `type="request_created"`)
}

func TestRun_DrainsConfirmationSource(t *testing.T) {
	src := settlement.NewChannelSource(1)
	p := newTestService(t, WithConfirmationSource(src))
	req := createQR(t, p)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	require.NoError(t, src.Publish(ctx, settlement.Confirmation{
		PaymentID: req.ID,
		Settlement: types.Settlement{
			TxHash:          "0xbridge",
			AmountBaseUnits: big.NewInt(5),
			Token:           types.NativeToken,
			ChainID:         4689,
		},
	}))

	assert.Eventually(t, func() bool {
		got, err := p.Get(context.Background(), req.ID)
		return err == nil && got.Status == types.StatusSettled
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not stop")
	}
}
