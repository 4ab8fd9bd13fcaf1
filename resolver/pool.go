package resolver

import (
	"context"
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/Jasz0n/ioPlasmaVerse-Expo-sub002/types"
	"github.com/Jasz0n/ioPlasmaVerse-Expo-sub002/utils"
)

const (
	bpsDenominator  = 10000
	slippagePrecise = 18
)

var _ Quoter = (*PoolQuoter)(nil)

type pool struct {
	chainID        int64
	tokenA, tokenB string
	reserveA       *big.Int
	reserveB       *big.Int
	feeBps         uint32
}

type bridge struct {
	from, to types.Asset
	feeBps   uint32
	hops     int
}

// PoolQuoter quotes exact-output swaps against constant-product pools and
// cross-chain transfers over configured bridge legs. A bridge moves base
// units one-to-one less its fee.
type PoolQuoter struct {
	pools   []pool
	bridges []bridge
}

// NewPoolQuoter builds a quoter from configured pools and bridges.
func NewPoolQuoter(pools []types.PoolConfig, bridges []types.BridgeConfig) (*PoolQuoter, error) {
	q := &PoolQuoter{}

	for _, pc := range pools {
		tokenA, err := utils.NormalizeToken(pc.TokenA)
		if err != nil {
			return nil, configError("pool token %q: %v", pc.TokenA, err)
		}
		tokenB, err := utils.NormalizeToken(pc.TokenB)
		if err != nil {
			return nil, configError("pool token %q: %v", pc.TokenB, err)
		}
		reserveA, err := utils.ParseBaseUnits(pc.ReserveA)
		if err != nil {
			return nil, configError("pool reserve %q: %v", pc.ReserveA, err)
		}
		reserveB, err := utils.ParseBaseUnits(pc.ReserveB)
		if err != nil {
			return nil, configError("pool reserve %q: %v", pc.ReserveB, err)
		}
		if pc.FeeBps >= bpsDenominator {
			return nil, configError("pool fee %d bps is not below %d", pc.FeeBps, bpsDenominator)
		}
		q.pools = append(q.pools, pool{
			chainID:  pc.ChainID,
			tokenA:   tokenA,
			tokenB:   tokenB,
			reserveA: reserveA,
			reserveB: reserveB,
			feeBps:   pc.FeeBps,
		})
	}

	for _, bc := range bridges {
		from, err := utils.NormalizeToken(bc.FromToken)
		if err != nil {
			return nil, configError("bridge token %q: %v", bc.FromToken, err)
		}
		to, err := utils.NormalizeToken(bc.ToToken)
		if err != nil {
			return nil, configError("bridge token %q: %v", bc.ToToken, err)
		}
		if bc.FeeBps >= bpsDenominator {
			return nil, configError("bridge fee %d bps is not below %d", bc.FeeBps, bpsDenominator)
		}
		hops := bc.Hops
		if hops < 1 {
			hops = 1
		}
		q.bridges = append(q.bridges, bridge{
			from:   types.Asset{Token: from, ChainID: bc.FromChainID},
			to:     types.Asset{Token: to, ChainID: bc.ToChainID},
			feeBps: bc.FeeBps,
			hops:   hops,
		})
	}

	return q, nil
}

// QuoteExactOutput returns the cheapest way to deliver out of dst from src:
// a pool swap on one chain, or a bridge leg optionally followed by a swap.
func (q *PoolQuoter) QuoteExactOutput(ctx context.Context, src, dst types.Asset, out *big.Int) (*Quote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if out == nil || out.Sign() <= 0 {
		return nil, types.NewError(types.ErrCodeInvalidAmount, "output amount must be positive")
	}

	if src.ChainID == dst.ChainID {
		quote := q.bestSwap(src.ChainID, src.Token, dst.Token, out)
		if quote == nil {
			return nil, noRoute(src, dst)
		}
		return quote, nil
	}

	var best *Quote
	for _, b := range q.bridges {
		if !b.from.Equal(src) || b.to.ChainID != dst.ChainID {
			continue
		}

		var candidate *Quote
		if b.to.Equal(dst) {
			candidate = &Quote{
				InputBaseUnits: grossUp(out, b.feeBps),
				Slippage:       decimal.Zero,
				Hops:           b.hops,
			}
		} else {
			swap := q.bestSwap(dst.ChainID, b.to.Token, dst.Token, out)
			if swap == nil {
				continue
			}
			candidate = &Quote{
				InputBaseUnits: grossUp(swap.InputBaseUnits, b.feeBps),
				Slippage:       swap.Slippage,
				Hops:           b.hops + 1,
			}
		}

		if best == nil || candidate.Hops < best.Hops ||
			(candidate.Hops == best.Hops && candidate.InputBaseUnits.Cmp(best.InputBaseUnits) < 0) {
			best = candidate
		}
	}

	if best == nil {
		return nil, noRoute(src, dst)
	}
	return best, nil
}

// bestSwap picks the pool that needs the smallest input for out.
func (q *PoolQuoter) bestSwap(chainID int64, tokenIn, tokenOut string, out *big.Int) *Quote {
	var best *Quote
	for _, p := range q.pools {
		if p.chainID != chainID {
			continue
		}

		var reserveIn, reserveOut *big.Int
		switch {
		case types.SameToken(p.tokenA, tokenIn) && types.SameToken(p.tokenB, tokenOut):
			reserveIn, reserveOut = p.reserveA, p.reserveB
		case types.SameToken(p.tokenB, tokenIn) && types.SameToken(p.tokenA, tokenOut):
			reserveIn, reserveOut = p.reserveB, p.reserveA
		default:
			continue
		}

		in, slippage, ok := exactOutput(reserveIn, reserveOut, out, p.feeBps)
		if !ok {
			continue
		}
		if best == nil || in.Cmp(best.InputBaseUnits) < 0 {
			best = &Quote{InputBaseUnits: in, Slippage: slippage, Hops: 1}
		}
	}
	return best
}

// exactOutput solves x*y=k for the input that buys out from the pool:
//
//	in = ceil(rIn * out * 10000 / ((rOut - out) * (10000 - fee)))
//
// Slippage is the price impact out / (rOut - out). It reports false when
// the pool cannot supply out.
func exactOutput(reserveIn, reserveOut, out *big.Int, feeBps uint32) (*big.Int, decimal.Decimal, bool) {
	if out.Cmp(reserveOut) >= 0 {
		return nil, decimal.Decimal{}, false
	}

	remaining := new(big.Int).Sub(reserveOut, out)

	num := new(big.Int).Mul(reserveIn, out)
	num.Mul(num, big.NewInt(bpsDenominator))
	den := new(big.Int).Mul(remaining, big.NewInt(int64(bpsDenominator-feeBps)))

	in := ceilDiv(num, den)
	slippage := decimal.NewFromBigInt(out, 0).DivRound(decimal.NewFromBigInt(remaining, 0), slippagePrecise)
	return in, slippage, true
}

// grossUp returns the input that leaves amount after a fee in bps.
func grossUp(amount *big.Int, feeBps uint32) *big.Int {
	num := new(big.Int).Mul(amount, big.NewInt(bpsDenominator))
	return ceilDiv(num, big.NewInt(int64(bpsDenominator-feeBps)))
}

func ceilDiv(num, den *big.Int) *big.Int {
	q, m := new(big.Int).QuoRem(num, den, new(big.Int))
	if m.Sign() > 0 {
		q.Add(q, big.NewInt(1))
	}
	return q
}

func noRoute(src, dst types.Asset) error {
	return types.NewError(types.ErrCodeNoRoute,
		"no liquidity from %s on chain %d to %s on chain %d", src.Token, src.ChainID, dst.Token, dst.ChainID)
}

func configError(format string, args ...any) error {
	return types.NewError(types.ErrCodeConfigError, format, args...)
}
