// Package server exposes payment requests over HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Jasz0n/ioPlasmaVerse-Expo-sub002/logger"
	"github.com/Jasz0n/ioPlasmaVerse-Expo-sub002/registry"
	"github.com/Jasz0n/ioPlasmaVerse-Expo-sub002/resolver"
	"github.com/Jasz0n/ioPlasmaVerse-Expo-sub002/types"
)

const maxBodyBytes = 1 << 20

// Registry is the part of *registry.Registry the handlers use.
type Registry interface {
	Create(ctx context.Context, p registry.CreateParams) (*types.PaymentRequest, error)
	Get(ctx context.Context, id string) (*types.PaymentRequest, error)
	Cancel(ctx context.Context, id string) error
}

type Confirmer interface {
	Confirm(ctx context.Context, id string, chainID int64, txHash string) (*types.PaymentRequest, error)
}

type RouteResolver interface {
	Resolve(ctx context.Context, target resolver.Target, holdings []types.Holding) ([]resolver.Route, error)
}

type BalanceReader interface {
	Holdings(ctx context.Context, payer string) ([]types.Holding, error)
}

type Server struct {
	registry  Registry
	confirmer Confirmer
	resolver  RouteResolver
	balances  BalanceReader
	baseURI   string
	timeout   time.Duration
	logger    logger.Logger
	metrics   http.Handler
	limiter   *ipLimiter
	health    types.HealthResponse
}

type Option func(*Server)

func WithConfirmer(c Confirmer) Option {
	return func(s *Server) {
		s.confirmer = c
	}
}

// WithResolver enables the routes endpoint.
func WithResolver(r RouteResolver, balances BalanceReader) Option {
	return func(s *Server) {
		s.resolver = r
		s.balances = balances
	}
}

// WithBaseURI sets the prefix of QR payment URIs.
func WithBaseURI(uri string) Option {
	return func(s *Server) {
		s.baseURI = uri
	}
}

func WithTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.timeout = d
	}
}

func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithMetricsHandler mounts h on /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithHealth reports version and the networks of chainIDs on /healthz.
func WithHealth(version string, chainIDs []int64) Option {
	return func(s *Server) {
		s.health.Version = version
		s.health.Networks = make([]types.NetworkInfo, 0, len(chainIDs))
		for _, id := range chainIDs {
			s.health.Networks = append(s.health.Networks, types.NewNetworkInfo(id))
		}
	}
}

// WithRateLimit limits mutating requests per client IP.
func WithRateLimit(rps float64, burst int) Option {
	return func(s *Server) {
		if rps > 0 {
			s.limiter = newIPLimiter(rps, burst)
		}
	}
}

func New(reg Registry, opts ...Option) *Server {
	s := &Server{
		registry: reg,
		timeout:  types.DefaultRequestTimeout,
		logger:   logger.NoopLogger{},
		health:   types.HealthResponse{Status: "ok"},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors)
	r.Use(middleware.Timeout(s.timeout))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, s.health)
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Route("/v1/payments", func(r chi.Router) {
		r.With(s.rateLimit).Post("/", s.handleCreate)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleStatus)
			r.Get("/uri", s.handleURI)
			r.Get("/routes", s.handleRoutes)
			r.With(s.rateLimit).Post("/cancel", s.handleCancel)
			r.With(s.rateLimit).Post("/confirm", s.handleConfirm)
		})
	})

	return r
}
