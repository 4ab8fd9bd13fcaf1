package utils

import (
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Jasz0n/ioPlasmaVerse-Expo-sub002/types"
)

var hexPattern = regexp.MustCompile("^[0-9a-fA-F]+$")

// ValidateAddress checks an EVM account address and returns its checksummed form.
func ValidateAddress(address string) (string, error) {
	if address == "" {
		return "", fmt.Errorf("address cannot be empty")
	}
	if !common.IsHexAddress(address) {
		return "", fmt.Errorf("invalid EVM address %q", address)
	}
	return common.HexToAddress(address).Hex(), nil
}

// NormalizeToken maps a token reference to its canonical form: NativeToken
// for the native currency, a checksummed address otherwise.
func NormalizeToken(token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", types.NewError(types.ErrCodeInvalidToken, "token cannot be empty")
	}
	if types.IsNative(token) {
		return types.NativeToken, nil
	}
	if !common.IsHexAddress(token) {
		return "", types.NewError(types.ErrCodeInvalidToken, "invalid token address %q", token)
	}
	return common.HexToAddress(token).Hex(), nil
}

// ValidateTransactionHash checks an EVM transaction hash: 0x plus 64 hex digits.
func ValidateTransactionHash(hash string) error {
	if hash == "" {
		return fmt.Errorf("transaction hash cannot be empty")
	}
	if !strings.HasPrefix(hash, "0x") {
		return fmt.Errorf("EVM transaction hash must start with 0x")
	}
	if len(hash) != 66 {
		return fmt.Errorf("EVM transaction hash must be 66 characters long")
	}
	if !isHexString(hash[2:]) {
		return fmt.Errorf("EVM transaction hash must be valid hex")
	}
	return nil
}

// ParseBaseUnits parses a positive base-unit integer written in decimal.
func ParseBaseUnits(value string) (*big.Int, error) {
	if value == "" {
		return nil, types.NewError(types.ErrCodeInvalidAmount, "value cannot be empty")
	}

	n, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, types.NewError(types.ErrCodeInvalidAmount, "invalid integer amount %q", value)
	}
	if n.Sign() <= 0 {
		return nil, types.NewError(types.ErrCodeInvalidAmount, "amount must be positive, got %s", value)
	}
	return n, nil
}

func isHexString(s string) bool {
	return hexPattern.MatchString(s)
}
