package types

import (
	"fmt"
	"math/big"
	"time"
)

// CreatePaymentRequest is the body of the create endpoint.
type CreatePaymentRequest struct {
	PayeeAddress string `json:"payeeAddress" validate:"required"`
	ChainID      int64  `json:"chainId" validate:"required,gt=0"`
	TokenAddress string `json:"tokenAddress" validate:"required"`
	Amount       string `json:"amount" validate:"required"`
	Decimals     *uint8 `json:"decimals,omitempty"`
	Message      string `json:"message,omitempty" validate:"max=280"`
	Mode         Mode   `json:"mode" validate:"required,oneof=qr in_app"`
	PayerHint    string `json:"payerHint,omitempty" validate:"required_if=Mode in_app"`
}

type CreatePaymentResponse struct {
	PaymentID       string    `json:"paymentId"`
	AmountBaseUnits string    `json:"amountBaseUnits"`
	URI             string    `json:"uri,omitempty"`
	ExpiresAt       time.Time `json:"expiresAt"`
}

// HealthResponse is the body of the health endpoint.
type HealthResponse struct {
	Status   string        `json:"status"`
	Version  string        `json:"version,omitempty"`
	Networks []NetworkInfo `json:"networks,omitempty"`
}

// NetworkInfo describes one configured chain.
type NetworkInfo struct {
	Name    string `json:"name"`
	ChainID int64  `json:"chainId"`
	Testnet bool   `json:"testnet"`
}

func NewNetworkInfo(chainID int64) NetworkInfo {
	n := NetworkOf(chainID)
	return NetworkInfo{Name: n.String(), ChainID: chainID, Testnet: n.IsTestnet()}
}

// StatusResponse is the body of the status endpoint. Settlement fields are
// present once the request is settled.
type StatusResponse struct {
	PaymentID              string    `json:"paymentId"`
	Status                 Status    `json:"status"`
	ChainID                int64     `json:"chainId"`
	TokenAddress           string    `json:"tokenAddress"`
	AmountBaseUnits        string    `json:"amountBaseUnits"`
	ExpiresAt              time.Time `json:"expiresAt"`
	SettlementTxHash       string    `json:"settlementTxHash,omitempty"`
	SettledAmountBaseUnits string    `json:"settledAmountBaseUnits,omitempty"`
	SettledToken           string    `json:"settledToken,omitempty"`
	SettledChain           int64     `json:"settledChain,omitempty"`
}

func NewStatusResponse(req *PaymentRequest) StatusResponse {
	resp := StatusResponse{
		PaymentID:       req.ID,
		Status:          req.Status,
		ChainID:         req.ChainID,
		TokenAddress:    req.TokenAddress,
		AmountBaseUnits: req.AmountBaseUnits.String(),
		ExpiresAt:       req.ExpiresAt,
	}
	if s := req.Settlement; s != nil {
		resp.SettlementTxHash = s.TxHash
		resp.SettledAmountBaseUnits = s.AmountBaseUnits.String()
		resp.SettledToken = s.Token
		resp.SettledChain = s.ChainID
	}
	return resp
}

// PaymentRequest rebuilds the request fields a status response carries.
func (r StatusResponse) PaymentRequest() (*PaymentRequest, error) {
	amount, ok := new(big.Int).SetString(r.AmountBaseUnits, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amountBaseUnits %q", r.AmountBaseUnits)
	}
	req := &PaymentRequest{
		ID:              r.PaymentID,
		Status:          r.Status,
		ChainID:         r.ChainID,
		TokenAddress:    r.TokenAddress,
		AmountBaseUnits: amount,
		ExpiresAt:       r.ExpiresAt,
	}
	if r.SettlementTxHash != "" {
		settled, ok := new(big.Int).SetString(r.SettledAmountBaseUnits, 10)
		if !ok {
			return nil, fmt.Errorf("invalid settledAmountBaseUnits %q", r.SettledAmountBaseUnits)
		}
		req.Settlement = &Settlement{
			TxHash:          r.SettlementTxHash,
			AmountBaseUnits: settled,
			Token:           r.SettledToken,
			ChainID:         r.SettledChain,
		}
	}
	return req, nil
}

// ConfirmRequest reports a transaction the payer believes settles a request.
type ConfirmRequest struct {
	ChainID int64  `json:"chainId" validate:"required,gt=0"`
	TxHash  string `json:"txHash" validate:"required"`
}

type URIResponse struct {
	PaymentID string `json:"paymentId"`
	URI       string `json:"uri"`
}

// ErrorResponse carries a PaymentError over HTTP.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
