package utils

import (
	"math/big"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Jasz0n/ioPlasmaVerse-Expo-sub002/types"
)

// maxBaseUnitBits bounds amounts to what fits in a uint256 token balance.
const maxBaseUnitBits = 256

// ToBaseUnits converts a human decimal amount into the token's smallest unit.
// Digits beyond decimals are truncated, never rounded up.
func ToBaseUnits(amount string, decimals uint8) (*big.Int, error) {
	s := strings.TrimSpace(amount)
	if s == "" {
		return nil, types.NewError(types.ErrCodeInvalidAmount, "amount cannot be empty")
	}

	dec, err := decimal.NewFromString(s)
	if err != nil {
		return nil, types.NewError(types.ErrCodeInvalidAmount, "invalid amount format %q", amount)
	}
	if dec.Sign() <= 0 {
		return nil, types.NewError(types.ErrCodeInvalidAmount, "amount must be positive, got %s", amount)
	}

	// BigInt drops the fractional part, which truncates toward zero.
	base := dec.Shift(int32(decimals)).BigInt()
	if base.Sign() <= 0 {
		return nil, types.NewError(types.ErrCodeInvalidAmount,
			"amount %s is below the smallest unit for %d decimals", amount, decimals)
	}
	if base.BitLen() > maxBaseUnitBits {
		return nil, types.NewError(types.ErrCodeInvalidAmount, "amount %s overflows uint256", amount)
	}

	return base, nil
}

// ToHumanUnits formats a base-unit amount for display with at most
// displayPrecision fractional digits. Display strings must never feed back
// into comparisons.
func ToHumanUnits(baseUnits *big.Int, decimals, displayPrecision uint8) string {
	if baseUnits == nil {
		return "0"
	}

	dec := decimal.NewFromBigInt(baseUnits, -int32(decimals))
	if displayPrecision < decimals {
		dec = dec.Truncate(int32(displayPrecision))
	}
	return dec.String()
}
