// Package resolver ranks the ways a payer can settle a request from the
// tokens they already hold.
package resolver

import (
	"context"
	"errors"
	"math/big"
	"sort"
	"strconv"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/Jasz0n/ioPlasmaVerse-Expo-sub002/logger"
	"github.com/Jasz0n/ioPlasmaVerse-Expo-sub002/metrics"
	"github.com/Jasz0n/ioPlasmaVerse-Expo-sub002/types"
)

const (
	// directHops is a plain transfer of the requested token.
	directHops = 1
	// swapHops is approve plus swap-and-transfer on the requested chain.
	swapHops = 2

	maxConcurrentQuotes = 8
)

// Target is the asset and exact amount the payee must receive.
type Target struct {
	Token           string
	ChainID         int64
	AmountBaseUnits *big.Int
}

func (t Target) Asset() types.Asset {
	return types.Asset{Token: t.Token, ChainID: t.ChainID}
}

// Route is one candidate way to settle a Target from a single holding.
type Route struct {
	SourceToken              string          `json:"sourceToken"`
	SourceChain              int64           `json:"sourceChain"`
	InputBaseUnits           *big.Int        `json:"inputBaseUnits"`
	EstimatedOutputBaseUnits *big.Int        `json:"estimatedOutputBaseUnits"`
	Slippage                 decimal.Decimal `json:"slippage"`
	HopCount                 int             `json:"hopCount"`
	Feasible                 bool            `json:"feasible"`
}

// Quote is the price of receiving an exact output amount from a source asset.
type Quote struct {
	InputBaseUnits *big.Int
	Slippage       decimal.Decimal
	Hops           int
}

// Quoter prices conversions between assets. Implementations return an
// error matching types.ErrNoRoute when no liquidity connects src and dst.
type Quoter interface {
	QuoteExactOutput(ctx context.Context, src, dst types.Asset, out *big.Int) (*Quote, error)
}

type Resolver struct {
	quoter      Quoter
	maxSlippage decimal.Decimal
	logger      logger.Logger
	metrics     metrics.Recorder
}

type Option func(*Resolver)

// WithMaxSlippage bounds the price impact a feasible route may carry.
func WithMaxSlippage(d decimal.Decimal) Option {
	return func(r *Resolver) {
		r.maxSlippage = d
	}
}

func WithLogger(l logger.Logger) Option {
	return func(r *Resolver) {
		r.logger = l
	}
}

func WithMetrics(m metrics.Recorder) Option {
	return func(r *Resolver) {
		r.metrics = m
	}
}

func New(quoter Quoter, opts ...Option) *Resolver {
	r := &Resolver{
		quoter:      quoter,
		maxSlippage: decimal.RequireFromString(types.DefaultMaxSlippage),
		logger:      logger.NoopLogger{},
		metrics:     metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns one route per usable holding, ordered by hop count and
// then slippage. It fails with types.ErrNoRoute when no route is feasible.
func (r *Resolver) Resolve(ctx context.Context, target Target, holdings []types.Holding) ([]Route, error) {
	if target.AmountBaseUnits == nil || target.AmountBaseUnits.Sign() <= 0 {
		return nil, types.NewError(types.ErrCodeInvalidAmount, "requested amount must be positive")
	}

	candidates := make([]*Route, len(holdings))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentQuotes)

	for i, h := range holdings {
		if h.BalanceBaseUnits == nil || h.BalanceBaseUnits.Sign() <= 0 {
			continue
		}
		g.Go(func() error {
			route, err := r.routeFor(gctx, target, h)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				if !errors.Is(err, types.ErrNoRoute) {
					r.logger.Warn("quote failed", map[string]any{
						"source_token": h.Token,
						"source_chain": h.ChainID,
						"error":        err.Error(),
					})
				}
				return nil
			}
			candidates[i] = route
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	routes := make([]Route, 0, len(candidates))
	feasible := 0
	for _, c := range candidates {
		if c == nil {
			continue
		}
		if c.Feasible {
			feasible++
		}
		routes = append(routes, *c)
	}

	sort.SliceStable(routes, func(i, j int) bool {
		if routes[i].HopCount != routes[j].HopCount {
			return routes[i].HopCount < routes[j].HopCount
		}
		return routes[i].Slippage.LessThan(routes[j].Slippage)
	})

	if feasible == 0 {
		r.metrics.IncCounter(metrics.EventRouteNotFound, map[string]string{
			"chain": strconv.FormatInt(target.ChainID, 10),
		})
		return nil, types.NewError(types.ErrCodeNoRoute,
			"no holding covers %s base units of %s on chain %d", target.AmountBaseUnits, target.Token, target.ChainID)
	}
	return routes, nil
}

func (r *Resolver) routeFor(ctx context.Context, target Target, h types.Holding) (*Route, error) {
	route := &Route{
		SourceToken: h.Token,
		SourceChain: h.ChainID,
	}

	if h.Asset().Equal(target.Asset()) {
		route.InputBaseUnits = new(big.Int).Set(target.AmountBaseUnits)
		route.Slippage = decimal.Zero
		route.HopCount = directHops
	} else {
		q, err := r.quoter.QuoteExactOutput(ctx, h.Asset(), target.Asset(), target.AmountBaseUnits)
		if err != nil {
			return nil, err
		}
		route.InputBaseUnits = q.InputBaseUnits
		route.Slippage = q.Slippage
		route.HopCount = q.Hops
		if h.ChainID == target.ChainID {
			route.HopCount = swapHops
		}
	}

	covered := h.BalanceBaseUnits.Cmp(route.InputBaseUnits) >= 0
	route.Feasible = covered && route.Slippage.LessThanOrEqual(r.maxSlippage)
	route.EstimatedOutputBaseUnits = estimateOutput(target.AmountBaseUnits, route.InputBaseUnits, h.BalanceBaseUnits, covered)
	return route, nil
}

// estimateOutput scales the exact output down linearly when the balance
// cannot fund the full input.
func estimateOutput(out, in, balance *big.Int, covered bool) *big.Int {
	if covered || in.Sign() == 0 {
		return new(big.Int).Set(out)
	}
	est := new(big.Int).Mul(out, balance)
	return est.Quo(est, in)
}
