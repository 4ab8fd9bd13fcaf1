package payload

import (
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jasz0n/ioPlasmaVerse-Expo-sub002/types"
)

func TestEncode_CanonicalOrder(t *testing.T) {
	uri, err := Encode("https://pay.example.org", &Fields{
		Token:           "0xUSDC",
		ChainID:         8453,
		Address:         "0xA",
		AmountBaseUnits: big.NewInt(10500000),
		PaymentID:       "abc123",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example.org/pay?token=0xUSDC&chain=8453&address=0xA&uint256=10500000&paymentId=abc123", uri)

	f, err := Decode(uri)
	require.NoError(t, err)
	assert.Equal(t, "0xUSDC", f.Token)
	assert.Equal(t, int64(8453), f.ChainID)
	assert.Equal(t, "0xA", f.Address)
	assert.Equal(t, "10500000", f.AmountBaseUnits.String())
	assert.Equal(t, "abc123", f.PaymentID)
}

func TestEncode_BaseWithPayPath(t *testing.T) {
	f := &Fields{Token: types.NativeToken, ChainID: 1, Address: "0xA", AmountBaseUnits: big.NewInt(1), PaymentID: "p"}

	for _, base := range []string{"https://x.io", "https://x.io/", "https://x.io/pay"} {
		uri, err := Encode(base, f)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(uri, "https://x.io/pay?token=native&"), uri)
	}
}

func TestRoundTrip(t *testing.T) {
	huge, _ := new(big.Int).SetString("115792089237316195423570985008687907853269984665640564039457584007913129639935", 10)

	requests := []*types.PaymentRequest{
		{
			ID:              "5b2c1f0e-8f1a-4c8e-9a7d-1f2e3d4c5b6a",
			Mode:            types.ModeQR,
			PayeeAddress:    "0x70997970C51812dc3A010C7d01b50e0d17dc79C8",
			ChainID:         8453,
			TokenAddress:    "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913",
			AmountBaseUnits: big.NewInt(10500000),
		},
		{
			ID:              "id with spaces&symbols=1",
			Mode:            types.ModeQR,
			PayeeAddress:    "0x70997970C51812dc3A010C7d01b50e0d17dc79C8",
			ChainID:         4689,
			TokenAddress:    types.NativeToken,
			AmountBaseUnits: huge,
		},
	}

	for _, req := range requests {
		uri, err := EncodeRequest("https://pay.example.org", req)
		require.NoError(t, err)

		decoded, err := Decode(uri)
		require.NoError(t, err)

		want, err := FieldsOf(req)
		require.NoError(t, err)
		assert.True(t, want.Equal(decoded), "want %s got %s", want, decoded)
	}
}

func TestFieldsOf_InAppHasNoURI(t *testing.T) {
	_, err := FieldsOf(&types.PaymentRequest{ID: "x", Mode: types.ModeInApp, AmountBaseUnits: big.NewInt(1)})
	assert.Equal(t, types.ErrCodeInvalidState, types.CodeOf(err))

	_, err = FieldsOf(nil)
	assert.Equal(t, types.ErrCodeInvalidPayload, types.CodeOf(err))
}

func TestEncode_Invalid(t *testing.T) {
	valid := func() *Fields {
		return &Fields{Token: "0xT", ChainID: 1, Address: "0xA", AmountBaseUnits: big.NewInt(5), PaymentID: "p"}
	}
	overflow := new(big.Int).Lsh(big.NewInt(1), 256)

	cases := []struct {
		name   string
		mutate func(f *Fields)
		code   string
	}{
		{"no token", func(f *Fields) { f.Token = "" }, types.ErrCodeInvalidToken},
		{"zero chain", func(f *Fields) { f.ChainID = 0 }, types.ErrCodeInvalidPayload},
		{"no address", func(f *Fields) { f.Address = "" }, types.ErrCodeInvalidPayload},
		{"no id", func(f *Fields) { f.PaymentID = "" }, types.ErrCodeInvalidPayload},
		{"zero amount", func(f *Fields) { f.AmountBaseUnits = big.NewInt(0) }, types.ErrCodeInvalidAmount},
		{"nil amount", func(f *Fields) { f.AmountBaseUnits = nil }, types.ErrCodeInvalidAmount},
		{"overflow", func(f *Fields) { f.AmountBaseUnits = overflow }, types.ErrCodeInvalidAmount},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := valid()
			tc.mutate(f)
			_, err := Encode("https://x.io", f)
			assert.Equal(t, tc.code, types.CodeOf(err))
		})
	}
}

func TestDecode_Invalid(t *testing.T) {
	cases := []struct {
		name string
		uri  string
		code string
	}{
		{"wrong path", "https://x.io/send?token=0xT&chain=1&address=0xA&uint256=5&paymentId=p", types.ErrCodeInvalidPayload},
		{"missing id", "https://x.io/pay?token=0xT&chain=1&address=0xA&uint256=5", types.ErrCodeInvalidPayload},
		{"duplicate token", "https://x.io/pay?token=0xT&token=0xU&chain=1&address=0xA&uint256=5&paymentId=p", types.ErrCodeInvalidPayload},
		{"bad chain", "https://x.io/pay?token=0xT&chain=base&address=0xA&uint256=5&paymentId=p", types.ErrCodeInvalidPayload},
		{"negative chain", "https://x.io/pay?token=0xT&chain=-1&address=0xA&uint256=5&paymentId=p", types.ErrCodeInvalidPayload},
		{"decimal amount", "https://x.io/pay?token=0xT&chain=1&address=0xA&uint256=10.5&paymentId=p", types.ErrCodeInvalidAmount},
		{"zero amount", "https://x.io/pay?token=0xT&chain=1&address=0xA&uint256=0&paymentId=p", types.ErrCodeInvalidAmount},
		{"bad query", "https://x.io/pay?token=%zz", types.ErrCodeInvalidPayload},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode(tc.uri)
			assert.Equal(t, tc.code, types.CodeOf(err))
		})
	}
}

func TestDecode_AnyOrder(t *testing.T) {
	f, err := Decode("ioplasma://app/pay?paymentId=p&uint256=7&address=0xA&chain=137&token=native")
	require.NoError(t, err)
	assert.Equal(t, int64(137), f.ChainID)
	assert.Equal(t, "7", f.AmountBaseUnits.String())
	assert.Equal(t, types.NativeToken, f.Token)
}
