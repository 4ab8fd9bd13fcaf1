package types

import (
	"math/big"
	"strconv"
	"strings"
	"time"
)

// Mode controls how a payment request reaches the payer.
type Mode string

const (
	// ModeQR requests are encoded into a scannable settlement URI.
	ModeQR Mode = "qr"
	// ModeInApp requests are delivered by id to the payer's client.
	ModeInApp Mode = "in_app"
)

func (m Mode) Valid() bool {
	return m == ModeQR || m == ModeInApp
}

func (m Mode) String() string {
	return string(m)
}

// Status is the lifecycle state of a payment request. It only ever moves
// forward from StatusPending to one of the terminal states.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSettled   Status = "settled"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
)

func (s Status) IsTerminal() bool {
	return s == StatusSettled || s == StatusCancelled || s == StatusExpired
}

func (s Status) Valid() bool {
	return s == StatusPending || s.IsTerminal()
}

func (s Status) String() string {
	return string(s)
}

// NativeToken is the token sentinel for a chain's native currency.
const NativeToken = "native"

// NativeTokenAlias is the placeholder address some wallets use for the
// native currency. It is accepted on input and normalized to NativeToken.
const NativeTokenAlias = "0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE"

// IsNative reports whether token names the native currency.
func IsNative(token string) bool {
	return strings.EqualFold(token, NativeToken) || strings.EqualFold(token, NativeTokenAlias)
}

// SameToken compares two token references ignoring address checksum casing.
func SameToken(a, b string) bool {
	if IsNative(a) || IsNative(b) {
		return IsNative(a) && IsNative(b)
	}
	return strings.EqualFold(a, b)
}

// Asset identifies a token on a specific chain.
type Asset struct {
	Token   string `json:"token"`
	ChainID int64  `json:"chainId"`
}

func (a Asset) Equal(o Asset) bool {
	return a.ChainID == o.ChainID && SameToken(a.Token, o.Token)
}

// TokenInfo contains information about a payment token
type TokenInfo struct {
	ChainID  int64  `json:"chainId"`
	Address  string `json:"address"` // NativeToken for the chain currency
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
	Name     string `json:"name,omitempty"`
}

// Settlement records how a request was paid. Token and ChainID may differ
// from the requested asset when the payer settled through a swap or bridge.
type Settlement struct {
	TxHash          string    `json:"txHash"`
	AmountBaseUnits *big.Int  `json:"amountBaseUnits"`
	Token           string    `json:"token"`
	ChainID         int64     `json:"chainId"`
	SettledAt       time.Time `json:"settledAt"`
}

// Equal compares the settlement parameters. SettledAt is not part of the
// identity of a settlement: the same confirmation observed twice is equal.
func (s *Settlement) Equal(o *Settlement) bool {
	if s == nil || o == nil {
		return s == o
	}
	if !strings.EqualFold(s.TxHash, o.TxHash) || s.ChainID != o.ChainID || !SameToken(s.Token, o.Token) {
		return false
	}
	if s.AmountBaseUnits == nil || o.AmountBaseUnits == nil {
		return s.AmountBaseUnits == o.AmountBaseUnits
	}
	return s.AmountBaseUnits.Cmp(o.AmountBaseUnits) == 0
}

// TxKey identifies the on-chain transfer behind a settlement. One transfer
// settles at most one payment request.
func (s *Settlement) TxKey() string {
	return strconv.FormatInt(s.ChainID, 10) + ":" + strings.ToLower(s.TxHash)
}

func (s *Settlement) Clone() *Settlement {
	if s == nil {
		return nil
	}
	c := *s
	if s.AmountBaseUnits != nil {
		c.AmountBaseUnits = new(big.Int).Set(s.AmountBaseUnits)
	}
	return &c
}

// PaymentRequest is a payee's request for an exact amount of one token on
// one chain. ID is the correlation id carried through to settlement.
type PaymentRequest struct {
	ID              string      `json:"id"`
	PayeeAddress    string      `json:"payeeAddress"`
	ChainID         int64       `json:"chainId"`
	TokenAddress    string      `json:"tokenAddress"`
	Symbol          string      `json:"symbol,omitempty"`
	Decimals        uint8       `json:"decimals"`
	AmountBaseUnits *big.Int    `json:"amountBaseUnits"`
	Message         string      `json:"message,omitempty"`
	Mode            Mode        `json:"mode"`
	Status          Status      `json:"status"`
	Settlement      *Settlement `json:"settlement,omitempty"`
	PayerHint       string      `json:"payerHint,omitempty"`
	CreatedAt       time.Time   `json:"createdAt"`
	ExpiresAt       time.Time   `json:"expiresAt"`
	UpdatedAt       time.Time   `json:"updatedAt"`
}

// Asset returns the requested token and chain.
func (r *PaymentRequest) Asset() Asset {
	return Asset{Token: r.TokenAddress, ChainID: r.ChainID}
}

// IsExpired reports whether the TTL has lapsed at now.
func (r *PaymentRequest) IsExpired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// Clone returns a deep copy so callers never share mutable big.Int values
// with a store.
func (r *PaymentRequest) Clone() *PaymentRequest {
	if r == nil {
		return nil
	}
	c := *r
	if r.AmountBaseUnits != nil {
		c.AmountBaseUnits = new(big.Int).Set(r.AmountBaseUnits)
	}
	c.Settlement = r.Settlement.Clone()
	return &c
}

// Holding is a payer balance reported by a balance reader.
type Holding struct {
	Token            string   `json:"token"`
	ChainID          int64    `json:"chainId"`
	Symbol           string   `json:"symbol,omitempty"`
	Decimals         uint8    `json:"decimals"`
	BalanceBaseUnits *big.Int `json:"balanceBaseUnits"`
}

func (h Holding) Asset() Asset {
	return Asset{Token: h.Token, ChainID: h.ChainID}
}

// NotificationKind classifies push notifications emitted by the registry.
type NotificationKind string

const (
	NotificationRequested NotificationKind = "payment_requested"
	NotificationSettled   NotificationKind = "payment_settled"
)

// Notification is handed to the push-delivery collaborator.
type Notification struct {
	Kind      NotificationKind `json:"kind"`
	PaymentID string           `json:"paymentId"`
	Recipient string           `json:"recipient"`
	Request   *PaymentRequest  `json:"request"`
}
