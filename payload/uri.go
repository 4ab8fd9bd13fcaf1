// Package payload encodes payment requests into settlement URIs for QR codes
// and decodes scanned URIs back into their transportable fields.
//
// The query parameter order is fixed and significant for external scanners:
//
//	<base>/pay?token=<address|native>&chain=<chainId>&address=<payee>&uint256=<amount>&paymentId=<id>
package payload

import (
	"fmt"
	"math/big"
	"net/url"
	"strconv"
	"strings"

	"github.com/holiman/uint256"

	"github.com/Jasz0n/ioPlasmaVerse-Expo-sub002/types"
)

const payPath = "/pay"

// Query parameter names, in canonical order.
const (
	ParamToken     = "token"
	ParamChain     = "chain"
	ParamAddress   = "address"
	ParamAmount    = "uint256"
	ParamPaymentID = "paymentId"
)

var canonicalOrder = []string{ParamToken, ParamChain, ParamAddress, ParamAmount, ParamPaymentID}

// Fields are the parts of a payment request that travel inside a URI.
type Fields struct {
	Token           string
	ChainID         int64
	Address         string
	AmountBaseUnits *big.Int
	PaymentID       string
}

// Equal reports logical equality of two field sets.
func (f *Fields) Equal(o *Fields) bool {
	if f == nil || o == nil {
		return f == o
	}
	if f.AmountBaseUnits == nil || o.AmountBaseUnits == nil {
		return false
	}
	return types.SameToken(f.Token, o.Token) &&
		f.ChainID == o.ChainID &&
		strings.EqualFold(f.Address, o.Address) &&
		f.AmountBaseUnits.Cmp(o.AmountBaseUnits) == 0 &&
		f.PaymentID == o.PaymentID
}

// FieldsOf extracts the transportable fields of a QR-mode request. In-app
// requests are delivered by id and have no URI form.
func FieldsOf(req *types.PaymentRequest) (*Fields, error) {
	if req == nil {
		return nil, types.NewError(types.ErrCodeInvalidPayload, "payment request is nil")
	}
	if req.Mode != types.ModeQR {
		return nil, types.NewError(types.ErrCodeInvalidState,
			"payment request %s uses %s mode and has no URI", req.ID, req.Mode)
	}

	return &Fields{
		Token:           req.TokenAddress,
		ChainID:         req.ChainID,
		Address:         req.PayeeAddress,
		AmountBaseUnits: new(big.Int).Set(req.AmountBaseUnits),
		PaymentID:       req.ID,
	}, nil
}

// Encode builds the canonical settlement URI under base.
func Encode(base string, f *Fields) (string, error) {
	if err := validateFields(f); err != nil {
		return "", err
	}

	values := map[string]string{
		ParamToken:     f.Token,
		ParamChain:     strconv.FormatInt(f.ChainID, 10),
		ParamAddress:   f.Address,
		ParamAmount:    f.AmountBaseUnits.String(),
		ParamPaymentID: f.PaymentID,
	}

	// url.Values.Encode sorts keys, so the query is assembled by hand.
	var b strings.Builder
	b.WriteString(strings.TrimSuffix(strings.TrimSuffix(base, "/"), payPath))
	b.WriteString(payPath)
	for i, key := range canonicalOrder {
		if i == 0 {
			b.WriteByte('?')
		} else {
			b.WriteByte('&')
		}
		b.WriteString(key)
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(values[key]))
	}
	return b.String(), nil
}

// EncodeRequest is FieldsOf followed by Encode.
func EncodeRequest(base string, req *types.PaymentRequest) (string, error) {
	f, err := FieldsOf(req)
	if err != nil {
		return "", err
	}
	return Encode(base, f)
}

// Decode parses a settlement URI. Parameter order is not enforced on input.
func Decode(uri string) (*Fields, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, types.NewError(types.ErrCodeInvalidPayload, "malformed payment URI: %v", err)
	}
	if !strings.HasSuffix(u.Path, payPath) {
		return nil, types.NewError(types.ErrCodeInvalidPayload, "payment URI path must end in %s", payPath)
	}

	query, err := url.ParseQuery(u.RawQuery)
	if err != nil {
		return nil, types.NewError(types.ErrCodeInvalidPayload, "malformed payment URI query: %v", err)
	}

	get := func(key string) (string, error) {
		v := query[key]
		if len(v) != 1 || v[0] == "" {
			return "", types.NewError(types.ErrCodeInvalidPayload, "payment URI needs exactly one %s parameter", key)
		}
		return v[0], nil
	}

	var f Fields
	if f.Token, err = get(ParamToken); err != nil {
		return nil, err
	}
	chain, err := get(ParamChain)
	if err != nil {
		return nil, err
	}
	if f.ChainID, err = strconv.ParseInt(chain, 10, 64); err != nil || f.ChainID <= 0 {
		return nil, types.NewError(types.ErrCodeInvalidPayload, "invalid chain id %q", chain)
	}
	if f.Address, err = get(ParamAddress); err != nil {
		return nil, err
	}
	amount, err := get(ParamAmount)
	if err != nil {
		return nil, err
	}
	if f.AmountBaseUnits, err = parseUint256(amount); err != nil {
		return nil, err
	}
	if f.PaymentID, err = get(ParamPaymentID); err != nil {
		return nil, err
	}

	return &f, nil
}

func parseUint256(s string) (*big.Int, error) {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, types.NewError(types.ErrCodeInvalidAmount, "invalid uint256 amount %q: %v", s, err)
	}
	if v.IsZero() {
		return nil, types.NewError(types.ErrCodeInvalidAmount, "amount must be positive")
	}
	return v.ToBig(), nil
}

func validateFields(f *Fields) error {
	switch {
	case f == nil:
		return types.NewError(types.ErrCodeInvalidPayload, "payment fields are nil")
	case f.Token == "":
		return types.NewError(types.ErrCodeInvalidToken, "token is required")
	case f.ChainID <= 0:
		return types.NewError(types.ErrCodeInvalidPayload, "chain id must be positive")
	case f.Address == "":
		return types.NewError(types.ErrCodeInvalidPayload, "payee address is required")
	case f.PaymentID == "":
		return types.NewError(types.ErrCodeInvalidPayload, "payment id is required")
	case f.AmountBaseUnits == nil || f.AmountBaseUnits.Sign() <= 0:
		return types.NewError(types.ErrCodeInvalidAmount, "amount must be positive")
	}

	if _, overflow := uint256.FromBig(f.AmountBaseUnits); overflow {
		return types.NewError(types.ErrCodeInvalidAmount, "amount %s overflows uint256", f.AmountBaseUnits)
	}
	return nil
}

// String renders fields for logs.
func (f *Fields) String() string {
	return fmt.Sprintf("token=%s chain=%d address=%s amount=%s paymentId=%s",
		f.Token, f.ChainID, f.Address, f.AmountBaseUnits, f.PaymentID)
}
