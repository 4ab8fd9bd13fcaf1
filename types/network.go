package types

import "strconv"

// Network names an EVM chain the service knows about by its chain id.
type Network string

const (
	NetworkEthereum    Network = "ethereum"
	NetworkPolygon     Network = "polygon"
	NetworkPolygonAmoy Network = "polygon-amoy" // testnet
	NetworkBase        Network = "base"
	NetworkBaseSepolia Network = "base-sepolia" // testnet
	NetworkIoTeX       Network = "iotex"
	NetworkIoTeXTest   Network = "iotex-testnet" // testnet
)

var chainNetworks = map[int64]Network{
	1:     NetworkEthereum,
	137:   NetworkPolygon,
	80002: NetworkPolygonAmoy,
	8453:  NetworkBase,
	84532: NetworkBaseSepolia,
	4689:  NetworkIoTeX,
	4690:  NetworkIoTeXTest,
}

// NetworkOf returns the network name for a chain id, falling back to the
// decimal id for chains without a registered name.
func NetworkOf(chainID int64) Network {
	if n, ok := chainNetworks[chainID]; ok {
		return n
	}
	return Network(strconv.FormatInt(chainID, 10))
}

func (n Network) IsTestnet() bool {
	return n == NetworkPolygonAmoy || n == NetworkBaseSepolia || n == NetworkIoTeXTest
}

func (n Network) String() string {
	return string(n)
}

// NativeSymbol is the gas token ticker of the network, "ETH" when unknown.
func (n Network) NativeSymbol() string {
	switch n {
	case NetworkPolygon, NetworkPolygonAmoy:
		return "POL"
	case NetworkIoTeX, NetworkIoTeXTest:
		return "IOTX"
	default:
		return "ETH"
	}
}
