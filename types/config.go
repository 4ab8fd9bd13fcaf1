package types

import "time"

// ChainConfig contains configuration for one EVM chain client
type ChainConfig struct {
	ChainID      int64    `json:"chainId" validate:"required,gt=0"`
	RPCUrl       string   `json:"rpcUrl" validate:"omitempty,url"`
	NativeSymbol string   `json:"nativeSymbol,omitempty"`
	Tokens       []string `json:"tokens,omitempty"` // tracked for payer holdings
}

// TokenConfig seeds the token catalog.
type TokenConfig struct {
	ChainID  int64  `json:"chainId" validate:"required,gt=0"`
	Address  string `json:"address" validate:"required"`
	Symbol   string `json:"symbol" validate:"required"`
	Decimals uint8  `json:"decimals" validate:"lte=77"`
}

// PoolConfig describes a constant-product liquidity pool used for quotes.
// Reserves are base-unit integers written as decimal strings.
type PoolConfig struct {
	ChainID  int64  `json:"chainId" validate:"required,gt=0"`
	TokenA   string `json:"tokenA" validate:"required"`
	TokenB   string `json:"tokenB" validate:"required"`
	ReserveA string `json:"reserveA" validate:"required,numeric"`
	ReserveB string `json:"reserveB" validate:"required,numeric"`
	FeeBps   uint32 `json:"feeBps" validate:"lt=10000"`
}

// BridgeConfig describes a cross-chain transfer leg used for hop estimates.
type BridgeConfig struct {
	FromChainID int64  `json:"fromChainId" validate:"required,gt=0"`
	FromToken   string `json:"fromToken" validate:"required"`
	ToChainID   int64  `json:"toChainId" validate:"required,gt=0,nefield=FromChainID"`
	ToToken     string `json:"toToken" validate:"required"`
	FeeBps      uint32 `json:"feeBps" validate:"lt=10000"`
	Hops        int    `json:"hops" validate:"gte=1"`
}

// Config contains global configuration for the payment service
type Config struct {
	ListenAddr   string `json:"listenAddr" validate:"required"`
	DatabasePath string `json:"databasePath,omitempty"` // empty keeps records in memory
	BaseURI      string `json:"baseUri" validate:"required,url"`

	QRTTLSeconds         int64 `json:"qrTtlSeconds" validate:"gte=0"`
	InAppTTLSeconds      int64 `json:"inAppTtlSeconds" validate:"gte=0"`
	SweepIntervalSeconds int64 `json:"sweepIntervalSeconds" validate:"gte=0"`
	AuditRetentionHours  int64 `json:"auditRetentionHours" validate:"gte=0"`

	MaxSlippage    string        `json:"maxSlippage,omitempty" validate:"omitempty,numeric"`
	DefaultTimeout time.Duration `json:"defaultTimeout,omitempty"`

	RateLimitRPS   float64 `json:"rateLimitRps,omitempty" validate:"gte=0"`
	RateLimitBurst int     `json:"rateLimitBurst,omitempty" validate:"gte=0"`

	LogLevel      string `json:"logLevel,omitempty" validate:"omitempty,oneof=debug info warn error"`
	LogFormat     string `json:"logFormat,omitempty" validate:"omitempty,oneof=json console"`
	EnableMetrics bool   `json:"enableMetrics,omitempty"`

	Chains  []ChainConfig  `json:"chains,omitempty" validate:"dive"`
	Tokens  []TokenConfig  `json:"tokens,omitempty" validate:"dive"`
	Pools   []PoolConfig   `json:"pools,omitempty" validate:"dive"`
	Bridges []BridgeConfig `json:"bridges,omitempty" validate:"dive"`
}

const (
	DefaultQRTTL          = 15 * time.Minute
	DefaultInAppTTL       = 24 * time.Hour
	DefaultSweepInterval  = 30 * time.Second
	DefaultMaxSlippage    = "0.01"
	DefaultRequestTimeout = 30 * time.Second
)

// QRTTL returns the configured QR request lifetime or the default.
func (c *Config) QRTTL() time.Duration {
	if c.QRTTLSeconds > 0 {
		return time.Duration(c.QRTTLSeconds) * time.Second
	}
	return DefaultQRTTL
}

func (c *Config) InAppTTL() time.Duration {
	if c.InAppTTLSeconds > 0 {
		return time.Duration(c.InAppTTLSeconds) * time.Second
	}
	return DefaultInAppTTL
}

func (c *Config) SweepInterval() time.Duration {
	if c.SweepIntervalSeconds > 0 {
		return time.Duration(c.SweepIntervalSeconds) * time.Second
	}
	return DefaultSweepInterval
}

// AuditRetention is zero when terminal records are kept forever.
func (c *Config) AuditRetention() time.Duration {
	return time.Duration(c.AuditRetentionHours) * time.Hour
}

func (c *Config) Timeout() time.Duration {
	if c.DefaultTimeout > 0 {
		return c.DefaultTimeout
	}
	return DefaultRequestTimeout
}
