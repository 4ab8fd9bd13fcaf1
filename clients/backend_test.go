package clients

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
)

type tokenContract struct {
	symbol   string
	name     string
	decimals uint8
	balances map[common.Address]*big.Int
}

// fakeBackend answers ERC-20 view calls from memory and serves canned
// receipts and transactions.
type fakeBackend struct {
	mu       sync.Mutex
	tokens   map[common.Address]*tokenContract
	native   map[common.Address]*big.Int
	receipts map[common.Hash]*ethtypes.Receipt
	txs      map[common.Hash]*ethtypes.Transaction
	pending  map[common.Hash]bool
	failRPC  error
	closed   bool
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		tokens:   make(map[common.Address]*tokenContract),
		native:   make(map[common.Address]*big.Int),
		receipts: make(map[common.Hash]*ethtypes.Receipt),
		txs:      make(map[common.Hash]*ethtypes.Transaction),
		pending:  make(map[common.Hash]bool),
	}
}

func (b *fakeBackend) addToken(addr, symbol string, decimals uint8) *tokenContract {
	c := &tokenContract{symbol: symbol, name: symbol + " Token", decimals: decimals, balances: map[common.Address]*big.Int{}}
	b.tokens[common.HexToAddress(addr)] = c
	return c
}

func (b *fakeBackend) CallContract(_ context.Context, call ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failRPC != nil {
		return nil, b.failRPC
	}

	token, ok := b.tokens[*call.To]
	if !ok {
		return nil, fmt.Errorf("execution reverted")
	}
	method, err := parsedERC20ABI.MethodById(call.Data[:4])
	if err != nil {
		return nil, err
	}

	switch method.Name {
	case "balanceOf":
		args, err := method.Inputs.Unpack(call.Data[4:])
		if err != nil {
			return nil, err
		}
		bal := token.balances[args[0].(common.Address)]
		if bal == nil {
			bal = new(big.Int)
		}
		return method.Outputs.Pack(bal)
	case "decimals":
		return method.Outputs.Pack(token.decimals)
	case "symbol":
		return method.Outputs.Pack(token.symbol)
	case "name":
		return method.Outputs.Pack(token.name)
	}
	return nil, fmt.Errorf("unexpected method %s", method.Name)
}

func (b *fakeBackend) BalanceAt(_ context.Context, account common.Address, _ *big.Int) (*big.Int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failRPC != nil {
		return nil, b.failRPC
	}
	if bal, ok := b.native[account]; ok {
		return new(big.Int).Set(bal), nil
	}
	return new(big.Int), nil
}

func (b *fakeBackend) TransactionReceipt(_ context.Context, hash common.Hash) (*ethtypes.Receipt, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failRPC != nil {
		return nil, b.failRPC
	}
	r, ok := b.receipts[hash]
	if !ok {
		return nil, ethereum.NotFound
	}
	return r, nil
}

func (b *fakeBackend) TransactionByHash(_ context.Context, hash common.Hash) (*ethtypes.Transaction, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	tx, ok := b.txs[hash]
	if !ok {
		return nil, false, ethereum.NotFound
	}
	return tx, b.pending[hash], nil
}

func (b *fakeBackend) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
}

func hashOf(n int) common.Hash {
	return common.HexToHash(fmt.Sprintf("0x%s%02x", strings.Repeat("ab", 31), n))
}

func transferLog(token, from, to common.Address, amount int64) *ethtypes.Log {
	return &ethtypes.Log{
		Address: token,
		Topics: []common.Hash{
			transferTopic,
			common.BytesToHash(from.Bytes()),
			common.BytesToHash(to.Bytes()),
		},
		Data: common.LeftPadBytes(big.NewInt(amount).Bytes(), 32),
	}
}

func (b *fakeBackend) addReceipt(hash common.Hash, status uint64, logs ...*ethtypes.Log) {
	b.receipts[hash] = &ethtypes.Receipt{Status: status, Logs: logs, TxHash: hash}
}

func (b *fakeBackend) addNativeTx(hash common.Hash, to common.Address, value int64) {
	b.txs[hash] = ethtypes.NewTx(&ethtypes.LegacyTx{To: &to, Value: big.NewInt(value), Gas: 21000, GasPrice: big.NewInt(1)})
	b.addReceipt(hash, ethtypes.ReceiptStatusSuccessful)
}
