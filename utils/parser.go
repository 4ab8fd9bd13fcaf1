package utils

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/Jasz0n/ioPlasmaVerse-Expo-sub002/types"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// ValidateStruct validates v using its struct tags.
func ValidateStruct(v interface{}) error {
	return validate.Struct(v)
}

// ParseConfig parses and validates the service Config from JSON
func ParseConfig(data []byte) (*types.Config, error) {
	var config types.Config

	if err := json.Unmarshal(data, &config); err != nil {
		return nil, &types.PaymentError{
			Code:    types.ErrCodeConfigError,
			Message: fmt.Sprintf("failed to parse config: %v", err),
		}
	}

	if err := validate.Struct(&config); err != nil {
		return nil, &types.PaymentError{
			Code:    types.ErrCodeConfigError,
			Message: fmt.Sprintf("validation failed: %v", err),
		}
	}

	if _, err := ParseMaxSlippage(config.MaxSlippage); err != nil {
		return nil, err
	}

	return &config, nil
}

// ParseMaxSlippage parses a slippage bound in [0, 1). Empty selects
// types.DefaultMaxSlippage.
func ParseMaxSlippage(s string) (decimal.Decimal, error) {
	if s == "" {
		s = types.DefaultMaxSlippage
	}
	slippage, err := decimal.NewFromString(s)
	if err != nil || slippage.IsNegative() || slippage.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return decimal.Zero, &types.PaymentError{
			Code:    types.ErrCodeConfigError,
			Message: fmt.Sprintf("maxSlippage must be in [0, 1), got %q", s),
		}
	}
	return slippage, nil
}

// LoadConfig reads and parses a JSON config file.
func LoadConfig(path string) (*types.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &types.PaymentError{
			Code:    types.ErrCodeConfigError,
			Message: fmt.Sprintf("failed to read config %s: %v", path, err),
		}
	}
	return ParseConfig(data)
}
