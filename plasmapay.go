// Package plasmapay creates payment requests, encodes them for transport
// and tracks them to settlement on EVM chains.
package plasmapay

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/sync/errgroup"

	"github.com/Jasz0n/ioPlasmaVerse-Expo-sub002/clients"
	"github.com/Jasz0n/ioPlasmaVerse-Expo-sub002/logger"
	"github.com/Jasz0n/ioPlasmaVerse-Expo-sub002/metrics"
	"github.com/Jasz0n/ioPlasmaVerse-Expo-sub002/payload"
	"github.com/Jasz0n/ioPlasmaVerse-Expo-sub002/registry"
	"github.com/Jasz0n/ioPlasmaVerse-Expo-sub002/registry/sqlite"
	"github.com/Jasz0n/ioPlasmaVerse-Expo-sub002/resolver"
	"github.com/Jasz0n/ioPlasmaVerse-Expo-sub002/server"
	"github.com/Jasz0n/ioPlasmaVerse-Expo-sub002/settlement"
	"github.com/Jasz0n/ioPlasmaVerse-Expo-sub002/types"
	"github.com/Jasz0n/ioPlasmaVerse-Expo-sub002/utils"
	"github.com/Jasz0n/ioPlasmaVerse-Expo-sub002/watcher"
)

const shutdownGrace = 10 * time.Second

// PlasmaPay wires the registry, resolver, watcher, confirmer and HTTP
// server over one configuration.
type PlasmaPay struct {
	config *types.Config

	logger   logger.Logger
	metrics  metrics.Recorder
	timeout  time.Duration
	store    registry.Store
	notifier registry.Notifier
	clock    watcher.Clock
	backends map[int64]clients.Backend
	source   settlement.ConfirmationSource

	chains    *clients.MultiChain
	registry  *registry.Registry
	resolver  *resolver.Resolver
	watcher   *watcher.Watcher
	confirmer *settlement.Confirmer
	server    *server.Server
}

// New builds a PlasmaPay from cfg.
func New(cfg *types.Config, opts ...Option) (*PlasmaPay, error) {
	if cfg == nil {
		return nil, types.NewError(types.ErrCodeConfigError, "config is required")
	}
	if err := utils.ValidateStruct(cfg); err != nil {
		return nil, types.NewError(types.ErrCodeConfigError, "validation failed: %v", err)
	}

	p := &PlasmaPay{
		config:  cfg,
		timeout: cfg.Timeout(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logger.New(cfg.LogFormat, cfg.LogLevel)
	}

	var metricsHandler http.Handler
	if p.metrics == nil {
		if cfg.EnableMetrics {
			reg := prometheus.NewRegistry()
			rec, err := metrics.NewPrometheusRecorder(reg)
			if err != nil {
				return nil, fmt.Errorf("failed to register metrics: %w", err)
			}
			p.metrics = rec
			metricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
		} else {
			p.metrics = metrics.NoopRecorder{}
		}
	}

	maxSlippage, err := utils.ParseMaxSlippage(cfg.MaxSlippage)
	if err != nil {
		return nil, err
	}

	if p.store == nil {
		store, err := openStore(cfg)
		if err != nil {
			return nil, err
		}
		p.store = store
	}

	chains, err := p.buildChains(cfg)
	if err != nil {
		p.store.Close()
		return nil, err
	}
	p.chains = chains

	regOpts := []registry.Option{
		registry.WithLogger(p.logger),
		registry.WithMetrics(p.metrics),
		registry.WithTTL(cfg.QRTTL(), cfg.InAppTTL()),
		registry.WithAuditRetention(cfg.AuditRetention()),
	}
	if p.notifier != nil {
		regOpts = append(regOpts, registry.WithNotifier(p.notifier))
	}
	if p.clock != nil {
		regOpts = append(regOpts, registry.WithClock(p.clock.Now))
	}
	p.registry = registry.New(p.store, chains, regOpts...)

	quoter, err := resolver.NewPoolQuoter(cfg.Pools, cfg.Bridges)
	if err != nil {
		p.Close()
		return nil, err
	}
	p.resolver = resolver.New(quoter,
		resolver.WithMaxSlippage(maxSlippage),
		resolver.WithLogger(p.logger),
		resolver.WithMetrics(p.metrics),
	)

	watchOpts := []watcher.Option{
		watcher.WithLogger(p.logger),
		watcher.WithMetrics(p.metrics),
	}
	if p.clock != nil {
		watchOpts = append(watchOpts, watcher.WithClock(p.clock))
	}
	p.watcher = watcher.New(p.registry, watchOpts...)

	p.confirmer = settlement.NewConfirmer(p.registry, chains,
		settlement.WithTimeout(p.timeout),
		settlement.WithLogger(p.logger),
		settlement.WithMetrics(p.metrics),
	)

	p.server = server.New(p.registry,
		server.WithConfirmer(p.confirmer),
		server.WithResolver(p.resolver, chains),
		server.WithBaseURI(cfg.BaseURI),
		server.WithTimeout(p.timeout),
		server.WithLogger(p.logger),
		server.WithMetricsHandler(metricsHandler),
		server.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
		server.WithHealth(Version, chainIDs(cfg.Chains)),
	)

	return p, nil
}

func chainIDs(chains []types.ChainConfig) []int64 {
	ids := make([]int64, 0, len(chains))
	for _, ch := range chains {
		ids = append(ids, ch.ChainID)
	}
	return ids
}

func openStore(cfg *types.Config) (registry.Store, error) {
	if cfg.DatabasePath == "" {
		return registry.NewMemoryStore(), nil
	}
	store, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, types.NewError(types.ErrCodeConfigError, "failed to open %s: %v", cfg.DatabasePath, err)
	}
	return store, nil
}

func (p *PlasmaPay) buildChains(cfg *types.Config) (*clients.MultiChain, error) {
	catalog, err := clients.NewStaticCatalog(cfg.Chains, cfg.Tokens)
	if err != nil {
		return nil, err
	}

	tracked := make(map[int64][]string, len(cfg.Chains))
	var chainClients []clients.Client
	for _, ch := range cfg.Chains {
		tracked[ch.ChainID] = ch.Tokens

		if b, ok := p.backends[ch.ChainID]; ok {
			chainClients = append(chainClients, clients.NewEVMClientWithBackend(ch.ChainID, ch.NativeSymbol, b))
			continue
		}
		if ch.RPCUrl == "" {
			continue
		}
		c, err := clients.NewEVMClient(ch.ChainID, ch.RPCUrl, ch.NativeSymbol)
		if err != nil {
			for _, opened := range chainClients {
				opened.Close()
			}
			return nil, fmt.Errorf("failed to create EVM client for %s: %w", types.NetworkOf(ch.ChainID), err)
		}
		chainClients = append(chainClients, c)
	}

	return clients.NewMultiChain(catalog, tracked, p.logger, chainClients...), nil
}

// Create stores a new payment request.
func (p *PlasmaPay) Create(ctx context.Context, params registry.CreateParams) (*types.PaymentRequest, error) {
	return p.registry.Create(ctx, params)
}

func (p *PlasmaPay) Get(ctx context.Context, id string) (*types.PaymentRequest, error) {
	return p.registry.Get(ctx, id)
}

func (p *PlasmaPay) Cancel(ctx context.Context, id string) error {
	return p.registry.Cancel(ctx, id)
}

// MarkSettled records a settlement observed on chain.
func (p *PlasmaPay) MarkSettled(ctx context.Context, id string, s types.Settlement) error {
	return p.registry.MarkSettled(ctx, id, s)
}

// Confirm verifies a payer-reported transaction and settles id with it.
func (p *PlasmaPay) Confirm(ctx context.Context, id string, chainID int64, txHash string) (*types.PaymentRequest, error) {
	return p.confirmer.Confirm(ctx, id, chainID, txHash)
}

// URI returns the QR payment URI of a request.
func (p *PlasmaPay) URI(ctx context.Context, id string) (string, error) {
	req, err := p.registry.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return payload.EncodeRequest(p.config.BaseURI, req)
}

// Resolve ranks the ways payer can settle id from their holdings.
func (p *PlasmaPay) Resolve(ctx context.Context, id, payer string) ([]resolver.Route, error) {
	req, err := p.registry.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	holdings, err := p.chains.Holdings(ctx, payer)
	if err != nil {
		return nil, err
	}
	return p.resolver.Resolve(ctx, resolver.Target{
		Token:           req.TokenAddress,
		ChainID:         req.ChainID,
		AmountBaseUnits: req.AmountBaseUnits,
	}, holdings)
}

// Watch polls id until it settles, ends or times out.
func (p *PlasmaPay) Watch(ctx context.Context, id string, params watcher.Params) *watcher.Handle {
	return p.watcher.Watch(ctx, id, params)
}

// SweepExpired expires lapsed pending requests once.
func (p *PlasmaPay) SweepExpired(ctx context.Context) (int, error) {
	return p.registry.SweepExpired(ctx)
}

func (p *PlasmaPay) Registry() *registry.Registry { return p.registry }

func (p *PlasmaPay) Handler() http.Handler { return p.server.Router() }

// Run serves HTTP on the configured address, runs the expiry sweeper and
// drains the confirmation source until ctx is done. HTTP/2 is accepted
// without TLS.
func (p *PlasmaPay) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              p.config.ListenAddr,
		Handler:           h2c.NewHandler(p.Handler(), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		p.logger.Info("http server listening", map[string]any{"addr": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		p.registry.RunSweeper(gctx, p.config.SweepInterval())
		return nil
	})

	if p.source != nil {
		g.Go(func() error {
			if err := p.confirmer.Run(gctx, p.source); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	return g.Wait()
}

// Close releases chain clients and the store.
func (p *PlasmaPay) Close() {
	if p.chains != nil {
		p.chains.Close()
	}
	if p.store != nil {
		if err := p.store.Close(); err != nil {
			p.logger.Warn("failed to close store", map[string]any{"error": err.Error()})
		}
	}
	if z, ok := p.logger.(interface{ Sync() error }); ok {
		_ = z.Sync()
	}
}

// Version is reported on /healthz.
const Version = "1.0.0"
