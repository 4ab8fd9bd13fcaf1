package clients

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/Jasz0n/ioPlasmaVerse-Expo-sub002/types"
	"github.com/Jasz0n/ioPlasmaVerse-Expo-sub002/utils"
)

const nativeDecimals = 18

var _ Client = (*EVMClient)(nil)

// Backend is the subset of *ethclient.Client the EVM client uses.
type Backend interface {
	ethereum.ContractCaller
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error)
	TransactionByHash(ctx context.Context, hash common.Hash) (*ethtypes.Transaction, bool, error)
	Close()
}

// EVMClient reads balances, token metadata and transfer receipts from one
// EVM chain.
type EVMClient struct {
	chainID      int64
	nativeSymbol string
	backend      Backend
}

// NewEVMClient dials rpcURL for chainID.
func NewEVMClient(chainID int64, rpcURL, nativeSymbol string) (*EVMClient, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to EVM RPC for chain %d: %w", chainID, err)
	}
	return NewEVMClientWithBackend(chainID, nativeSymbol, client), nil
}

// NewEVMClientWithBackend wraps an existing backend, such as a simulated
// chain in tests.
func NewEVMClientWithBackend(chainID int64, nativeSymbol string, backend Backend) *EVMClient {
	if nativeSymbol == "" {
		nativeSymbol = types.NetworkOf(chainID).NativeSymbol()
	}
	return &EVMClient{
		chainID:      chainID,
		nativeSymbol: nativeSymbol,
		backend:      backend,
	}
}

func (e *EVMClient) ChainID() int64 {
	return e.chainID
}

func (e *EVMClient) Close() {
	e.backend.Close()
}

func (e *EVMClient) ERC20(token string) ERC20 {
	return newERC20(token, e.backend)
}

// TokenMetadata reads symbol, name and decimals from the token contract.
func (e *EVMClient) TokenMetadata(ctx context.Context, token string) (*types.TokenInfo, error) {
	if types.IsNative(token) {
		return &types.TokenInfo{
			ChainID:  e.chainID,
			Address:  types.NativeToken,
			Symbol:   e.nativeSymbol,
			Decimals: nativeDecimals,
		}, nil
	}

	erc20 := e.ERC20(token)
	decimals, err := erc20.Decimals(ctx)
	if err != nil {
		return nil, err
	}
	symbol, err := erc20.Symbol(ctx)
	if err != nil {
		return nil, err
	}
	// name() is optional in ERC-20
	name, _ := erc20.Name(ctx)

	return &types.TokenInfo{
		ChainID:  e.chainID,
		Address:  common.HexToAddress(token).Hex(),
		Symbol:   symbol,
		Decimals: decimals,
		Name:     name,
	}, nil
}

func (e *EVMClient) BalanceOf(ctx context.Context, token, owner string) (*big.Int, error) {
	addr := common.HexToAddress(owner)
	if types.IsNative(token) {
		return e.backend.BalanceAt(ctx, addr, nil)
	}
	return e.ERC20(token).BalanceOf(ctx, addr)
}

// VerifyTransfer reads the receipt of txHash and totals what it paid payee
// in token: ERC-20 Transfer logs emitted by the token contract, or the
// transaction value for the native token.
func (e *EVMClient) VerifyTransfer(ctx context.Context, txHash, payee, token string) (*types.Settlement, error) {
	if err := utils.ValidateTransactionHash(txHash); err != nil {
		return nil, types.NewError(types.ErrCodeInvalidPayload, "%v", err)
	}
	hash := common.HexToHash(txHash)
	payeeAddr := common.HexToAddress(payee)

	receipt, err := e.backend.TransactionReceipt(ctx, hash)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return nil, verifyError(types.ErrCodeNotFound, ErrTransactionNotFound,
				"transaction %s not found on chain %d", hash.Hex(), e.chainID)
		}
		return nil, types.NewError(types.ErrCodeNetworkError, "failed to read receipt %s: %v", hash.Hex(), err)
	}
	if receipt.Status != ethtypes.ReceiptStatusSuccessful {
		return nil, verifyError(types.ErrCodeInvalidPayload, ErrTransactionReverted,
			"transaction %s reverted", hash.Hex())
	}

	var amount *big.Int
	if types.IsNative(token) {
		amount, err = e.nativeValue(ctx, hash, payeeAddr)
	} else {
		amount, err = transferredTo(receipt.Logs, common.HexToAddress(token), payeeAddr)
	}
	if err != nil {
		return nil, err
	}

	settledToken := types.NativeToken
	if !types.IsNative(token) {
		settledToken = common.HexToAddress(token).Hex()
	}
	return &types.Settlement{
		TxHash:          hash.Hex(),
		AmountBaseUnits: amount,
		Token:           settledToken,
		ChainID:         e.chainID,
	}, nil
}

func (e *EVMClient) nativeValue(ctx context.Context, hash common.Hash, payee common.Address) (*big.Int, error) {
	tx, pending, err := e.backend.TransactionByHash(ctx, hash)
	if err != nil {
		return nil, types.NewError(types.ErrCodeNetworkError, "failed to read transaction %s: %v", hash.Hex(), err)
	}
	if pending {
		return nil, verifyError(types.ErrCodeInvalidState, ErrTransactionPending, "transaction %s is pending", hash.Hex())
	}
	if tx.To() == nil || *tx.To() != payee {
		return nil, verifyError(types.ErrCodeInvalidPayload, ErrWrongRecipient,
			"transaction %s does not pay %s", hash.Hex(), payee.Hex())
	}
	if tx.Value().Sign() <= 0 {
		return nil, verifyError(types.ErrCodeInvalidPayload, ErrNoTransferToPayee,
			"transaction %s carries no value", hash.Hex())
	}
	return new(big.Int).Set(tx.Value()), nil
}

func transferredTo(logs []*ethtypes.Log, token, payee common.Address) (*big.Int, error) {
	total := new(big.Int)
	payeeTopic := common.BytesToHash(payee.Bytes())

	for _, l := range logs {
		if l == nil || l.Address != token || len(l.Topics) != 3 || l.Topics[0] != transferTopic {
			continue
		}
		if l.Topics[2] != payeeTopic {
			continue
		}
		total.Add(total, new(big.Int).SetBytes(l.Data))
	}

	if total.Sign() == 0 {
		return nil, verifyError(types.ErrCodeInvalidPayload, ErrNoTransferToPayee,
			"no %s transfer to %s", token.Hex(), payee.Hex())
	}
	return total, nil
}

func verifyError(code, reason, format string, args ...interface{}) error {
	err := types.NewError(code, format, args...)
	err.Data = reason
	return err
}
