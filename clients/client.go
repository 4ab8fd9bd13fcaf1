package clients

import (
	"context"
	"math/big"

	"github.com/Jasz0n/ioPlasmaVerse-Expo-sub002/types"
)

// Client reads one EVM chain.
type Client interface {
	ChainID() int64
	TokenMetadata(ctx context.Context, token string) (*types.TokenInfo, error)
	BalanceOf(ctx context.Context, token, owner string) (*big.Int, error)
	// VerifyTransfer checks that txHash succeeded and moved token to payee,
	// returning what it paid.
	VerifyTransfer(ctx context.Context, txHash, payee, token string) (*types.Settlement, error)
	Close()
}
