package utils

import (
	"fmt"
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jasz0n/ioPlasmaVerse-Expo-sub002/types"
)

func TestToBaseUnits_USDC(t *testing.T) {
	base, err := ToBaseUnits("10.50", 6)
	require.NoError(t, err)
	assert.Equal(t, "10500000", base.String())
}

func TestToBaseUnits_Truncates(t *testing.T) {
	base, err := ToBaseUnits("1.1234567", 6)
	require.NoError(t, err)
	assert.Equal(t, "1123456", base.String())

	base, err = ToBaseUnits("  0.000001 ", 6)
	require.NoError(t, err)
	assert.Equal(t, "1", base.String())
}

func TestToBaseUnits_Errors(t *testing.T) {
	cases := []struct {
		name     string
		amount   string
		decimals uint8
	}{
		{"empty", "", 6},
		{"garbage", "ten", 6},
		{"negative", "-1", 6},
		{"zero", "0", 18},
		{"below smallest unit", "0.0000001", 6},
		{"overflow", "1" + fmt.Sprintf("%080d", 0), 18},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ToBaseUnits(tc.amount, tc.decimals)
			require.Error(t, err)
			assert.Equal(t, types.ErrCodeInvalidAmount, types.CodeOf(err))
		})
	}
}

func TestAmountRoundTrip(t *testing.T) {
	amounts := []string{
		"1", "10.50", "0.000001", "123456.789012", "0.1", "999999999.99",
		"0.00000001", "21000000", "0.000000000000000001", "1.5",
	}

	for _, decimals := range []uint8{6, 8, 18} {
		for _, s := range amounts {
			in := decimal.RequireFromString(s)
			if in.Exponent() < -int32(decimals) {
				continue
			}

			t.Run(fmt.Sprintf("%s@%d", s, decimals), func(t *testing.T) {
				base, err := ToBaseUnits(s, decimals)
				require.NoError(t, err)

				out := ToHumanUnits(base, decimals, decimals)
				assert.True(t, in.Equal(decimal.RequireFromString(out)), "got %s", out)

				again, err := ToBaseUnits(out, decimals)
				require.NoError(t, err)
				assert.Equal(t, 0, base.Cmp(again))
			})
		}
	}
}

func TestToHumanUnits(t *testing.T) {
	assert.Equal(t, "10.5", ToHumanUnits(big.NewInt(10500000), 6, 6))
	assert.Equal(t, "1.23", ToHumanUnits(big.NewInt(1234567), 6, 2))
	assert.Equal(t, "0", ToHumanUnits(nil, 6, 6))
}
