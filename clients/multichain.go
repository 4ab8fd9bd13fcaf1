package clients

import (
	"context"
	"math/big"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/Jasz0n/ioPlasmaVerse-Expo-sub002/logger"
	"github.com/Jasz0n/ioPlasmaVerse-Expo-sub002/types"
	"github.com/Jasz0n/ioPlasmaVerse-Expo-sub002/utils"
)

const maxConcurrentBalanceReads = 16

// MultiChain routes reads to the client of each configured chain. It serves
// as the token catalog, the payer balance reader and the transfer verifier.
type MultiChain struct {
	clients map[int64]Client
	tracked map[int64][]string
	catalog *StaticCatalog
	logger  logger.Logger
}

// NewMultiChain combines chain clients with a catalog. tracked lists, per
// chain, the ERC-20 tokens whose balances make up payer holdings in
// addition to the native token and the catalog's tokens.
func NewMultiChain(catalog *StaticCatalog, tracked map[int64][]string, l logger.Logger, clients ...Client) *MultiChain {
	if l == nil {
		l = logger.NoopLogger{}
	}
	m := &MultiChain{
		clients: make(map[int64]Client, len(clients)),
		tracked: tracked,
		catalog: catalog,
		logger:  l,
	}
	for _, c := range clients {
		m.clients[c.ChainID()] = c
	}
	return m
}

func (m *MultiChain) Client(chainID int64) (Client, error) {
	c, ok := m.clients[chainID]
	if !ok {
		return nil, verifyError(types.ErrCodeInvalidToken, ErrUnsupportedChain, "chain %d is not configured", chainID)
	}
	return c, nil
}

// Lookup serves the catalog first and falls back to reading the token
// contract, caching what it finds.
func (m *MultiChain) Lookup(ctx context.Context, chainID int64, token string) (*types.TokenInfo, error) {
	info, err := m.catalog.Lookup(ctx, chainID, token)
	if err == nil {
		return info, nil
	}

	c, cerr := m.Client(chainID)
	if cerr != nil {
		return nil, err
	}
	info, cerr = c.TokenMetadata(ctx, token)
	if cerr != nil {
		return nil, types.NewError(types.ErrCodeInvalidToken, "token %s on chain %d: %v", token, chainID, cerr)
	}
	m.catalog.Add(*info)
	return info, nil
}

// Holdings reads the payer's balance of every known token on every chain.
// Failed reads are logged and skipped; it errors only when all reads fail.
func (m *MultiChain) Holdings(ctx context.Context, payer string) ([]types.Holding, error) {
	owner, err := utils.ValidateAddress(payer)
	if err != nil {
		return nil, types.NewError(types.ErrCodeInvalidPayload, "invalid payer address: %v", err)
	}

	var (
		mu       sync.Mutex
		holdings []types.Holding
		failures int
		lastErr  error
		reads    int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentBalanceReads)

	for chainID, c := range m.clients {
		for _, token := range m.tokensOf(chainID) {
			reads++
			g.Go(func() error {
				bal, err := c.BalanceOf(gctx, token, owner)
				if err != nil {
					if gctx.Err() != nil {
						return gctx.Err()
					}
					m.logger.Warn("balance read failed", map[string]any{
						"chain_id": chainID,
						"token":    token,
						"error":    err.Error(),
					})
					mu.Lock()
					failures++
					lastErr = err
					mu.Unlock()
					return nil
				}
				if bal.Sign() == 0 {
					return nil
				}

				h := types.Holding{Token: token, ChainID: chainID, BalanceBaseUnits: bal}
				if info, err := m.Lookup(gctx, chainID, token); err == nil {
					h.Symbol = info.Symbol
					h.Decimals = info.Decimals
				}

				mu.Lock()
				holdings = append(holdings, h)
				mu.Unlock()
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if reads > 0 && failures == reads {
		return nil, types.NewError(types.ErrCodeNetworkError, "all balance reads failed: %v", lastErr)
	}

	sort.Slice(holdings, func(i, j int) bool {
		if holdings[i].ChainID != holdings[j].ChainID {
			return holdings[i].ChainID < holdings[j].ChainID
		}
		return holdings[i].Token < holdings[j].Token
	})
	return holdings, nil
}

// VerifyTransfer verifies txHash on chainID.
func (m *MultiChain) VerifyTransfer(ctx context.Context, chainID int64, txHash, payee, token string) (*types.Settlement, error) {
	c, err := m.Client(chainID)
	if err != nil {
		return nil, err
	}
	return c.VerifyTransfer(ctx, txHash, payee, token)
}

func (m *MultiChain) BalanceOf(ctx context.Context, chainID int64, token, owner string) (*big.Int, error) {
	c, err := m.Client(chainID)
	if err != nil {
		return nil, err
	}
	return c.BalanceOf(ctx, token, owner)
}

func (m *MultiChain) Close() {
	for _, c := range m.clients {
		c.Close()
	}
}

// tokensOf lists the native token, then catalog and tracked tokens, once each.
func (m *MultiChain) tokensOf(chainID int64) []string {
	seen := map[string]bool{}
	tokens := []string{types.NativeToken}
	seen[types.NativeToken] = true

	add := func(t string) {
		norm, err := utils.NormalizeToken(t)
		if err != nil || seen[norm] {
			return
		}
		seen[norm] = true
		tokens = append(tokens, norm)
	}
	for _, info := range m.catalog.Tokens(chainID) {
		add(info.Address)
	}
	for _, t := range m.tracked[chainID] {
		add(t)
	}
	return tokens
}
