package clients

import (
	"context"
	"strings"
	"sync"

	"github.com/Jasz0n/ioPlasmaVerse-Expo-sub002/types"
	"github.com/Jasz0n/ioPlasmaVerse-Expo-sub002/utils"
)

type catalogKey struct {
	chainID int64
	token   string
}

// StaticCatalog serves token metadata from configuration. The native token
// of every configured chain is always known; nothing resolves on other chains.
type StaticCatalog struct {
	mu     sync.RWMutex
	tokens map[catalogKey]types.TokenInfo
	native map[int64]string
}

// NewStaticCatalog indexes tokens and the native symbols of chains.
func NewStaticCatalog(chains []types.ChainConfig, tokens []types.TokenConfig) (*StaticCatalog, error) {
	c := &StaticCatalog{
		tokens: make(map[catalogKey]types.TokenInfo),
		native: make(map[int64]string),
	}
	for _, ch := range chains {
		symbol := ch.NativeSymbol
		if symbol == "" {
			symbol = types.NetworkOf(ch.ChainID).NativeSymbol()
		}
		c.native[ch.ChainID] = symbol
	}
	for _, t := range tokens {
		addr, err := utils.NormalizeToken(t.Address)
		if err != nil {
			return nil, types.NewError(types.ErrCodeConfigError, "catalog token %q: %v", t.Address, err)
		}
		c.Add(types.TokenInfo{
			ChainID:  t.ChainID,
			Address:  addr,
			Symbol:   t.Symbol,
			Decimals: t.Decimals,
		})
	}
	return c, nil
}

// Add records info, replacing any earlier entry for the same token.
func (c *StaticCatalog) Add(info types.TokenInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens[keyOf(info.ChainID, info.Address)] = info
}

func (c *StaticCatalog) Lookup(_ context.Context, chainID int64, token string) (*types.TokenInfo, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if types.IsNative(token) {
		symbol, ok := c.native[chainID]
		if !ok {
			return nil, types.NewError(types.ErrCodeInvalidToken, "chain %d is not configured", chainID)
		}
		return &types.TokenInfo{
			ChainID:  chainID,
			Address:  types.NativeToken,
			Symbol:   symbol,
			Decimals: nativeDecimals,
		}, nil
	}

	info, ok := c.tokens[keyOf(chainID, token)]
	if !ok {
		return nil, types.NewError(types.ErrCodeInvalidToken, "token %s is not listed on chain %d", token, chainID)
	}
	return &info, nil
}

// Tokens returns the listed ERC-20 tokens of chainID.
func (c *StaticCatalog) Tokens(chainID int64) []types.TokenInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []types.TokenInfo
	for k, info := range c.tokens {
		if k.chainID == chainID {
			out = append(out, info)
		}
	}
	return out
}

func keyOf(chainID int64, token string) catalogKey {
	return catalogKey{chainID: chainID, token: strings.ToLower(token)}
}
