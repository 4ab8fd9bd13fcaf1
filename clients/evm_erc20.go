package clients

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const erc20ABI = `
[
  {
    "name": "balanceOf",
    "type": "function",
    "stateMutability": "view",
    "inputs": [{ "name": "owner", "type": "address" }],
    "outputs": [{ "name": "", "type": "uint256" }]
  },
  {
    "name": "decimals",
    "type": "function",
    "stateMutability": "view",
    "inputs": [],
    "outputs": [{ "name": "", "type": "uint8" }]
  },
  {
    "name": "symbol",
    "type": "function",
    "stateMutability": "view",
    "inputs": [],
    "outputs": [{ "name": "", "type": "string" }]
  },
  {
    "name": "name",
    "type": "function",
    "stateMutability": "view",
    "inputs": [],
    "outputs": [{ "name": "", "type": "string" }]
  },
  {
    "name": "Transfer",
    "type": "event",
    "anonymous": false,
    "inputs": [
      { "name": "from", "type": "address", "indexed": true },
      { "name": "to", "type": "address", "indexed": true },
      { "name": "value", "type": "uint256", "indexed": false }
    ]
  }
]
`

var (
	parsedERC20ABI = mustParseABI(erc20ABI)

	// transferTopic is keccak256("Transfer(address,address,uint256)").
	transferTopic = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))
)

// ERC20 is a read-only view of a token contract.
type ERC20 interface {
	BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error)
	Decimals(ctx context.Context) (uint8, error)
	Symbol(ctx context.Context) (string, error)
	Name(ctx context.Context) (string, error)
}

type erc20Caller struct {
	address common.Address
	backend ethereum.ContractCaller
}

func newERC20(token string, backend ethereum.ContractCaller) *erc20Caller {
	return &erc20Caller{address: common.HexToAddress(token), backend: backend}
}

func (e *erc20Caller) BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error) {
	var out *big.Int
	if err := e.call(ctx, &out, "balanceOf", owner); err != nil {
		return nil, err
	}
	return out, nil
}

func (e *erc20Caller) Decimals(ctx context.Context) (uint8, error) {
	var out uint8
	err := e.call(ctx, &out, "decimals")
	return out, err
}

func (e *erc20Caller) Symbol(ctx context.Context) (string, error) {
	var out string
	err := e.call(ctx, &out, "symbol")
	return out, err
}

func (e *erc20Caller) Name(ctx context.Context) (string, error) {
	var out string
	err := e.call(ctx, &out, "name")
	return out, err
}

func (e *erc20Caller) call(ctx context.Context, out interface{}, method string, args ...interface{}) error {
	data, err := parsedERC20ABI.Pack(method, args...)
	if err != nil {
		return fmt.Errorf("pack %s: %w", method, err)
	}

	res, err := e.backend.CallContract(ctx, ethereum.CallMsg{To: &e.address, Data: data}, nil)
	if err != nil {
		return fmt.Errorf("call %s on %s: %w", method, e.address.Hex(), err)
	}

	if err := parsedERC20ABI.UnpackIntoInterface(out, method, res); err != nil {
		return fmt.Errorf("unpack %s: %w", method, err)
	}
	return nil
}

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(err)
	}
	return parsed
}
