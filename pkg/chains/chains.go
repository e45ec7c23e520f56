// Package chains defines the chain metadata model shared by connectors and the
// helpers for normalizing chain identifiers across the formats wallets report
// them in (hex string, decimal string, or JSON number).
package chains

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// NativeCurrency describes the chain's native token.
type NativeCurrency struct {
	Name     string
	Symbol   string
	Decimals int
}

// RPCURLs holds the RPC endpoints advertised for a chain. Public, when set,
// is an endpoint safe to hand to third-party wallets; Default is the
// operator's preferred endpoint.
type RPCURLs struct {
	Default string
	Public  string
}

// BlockExplorer points at a block explorer for a chain.
type BlockExplorer struct {
	Name string
	URL  string
}

// Chain describes a single EVM network. Chain values are supplied by the
// application that owns the connector and are read-only to it.
type Chain struct {
	// ID is the EIP-155 chain id in decimal form.
	ID int64

	// Name is the human readable chain name, e.g. "Ethereum".
	Name string

	// Network is the short machine name, e.g. "homestead".
	Network string

	NativeCurrency NativeCurrency
	RPCURLs        RPCURLs
	BlockExplorers []BlockExplorer
}

// PreferredRPCURL returns the RPC endpoint to hand to a wallet, preferring
// the public endpoint over the default one.
func (c Chain) PreferredRPCURL() string {
	if c.RPCURLs.Public != "" {
		return c.RPCURLs.Public
	}
	return c.RPCURLs.Default
}

// HexID returns the chain id in the 0x-prefixed hex form used by the
// wallet_switchEthereumChain and wallet_addEthereumChain RPC methods.
func (c Chain) HexID() string {
	return FormatChainID(c.ID)
}

// Find returns the chain with the given id from the configured list.
func Find(configured []Chain, id int64) (Chain, bool) {
	for _, c := range configured {
		if c.ID == id {
			return c, true
		}
	}
	return Chain{}, false
}

// FormatChainID encodes a decimal chain id as 0x-prefixed hex.
func FormatChainID(id int64) string {
	return hexutil.EncodeBig(big.NewInt(id))
}

// ParseChainID normalizes a chain id reported by a wallet into decimal form.
// Wallets variously report ids as 0x-prefixed hex strings ("0x1"), decimal
// strings ("1"), or JSON numbers; all three are accepted.
func ParseChainID(v any) (int64, error) {
	switch id := v.(type) {
	case nil:
		return 0, fmt.Errorf("chain id is nil")
	case int64:
		return id, nil
	case int:
		return int64(id), nil
	case uint64:
		return int64(id), nil
	case float64:
		return int64(id), nil
	case *big.Int:
		if id == nil || !id.IsInt64() {
			return 0, fmt.Errorf("chain id out of range: %v", id)
		}
		return id.Int64(), nil
	case string:
		return parseChainIDString(id)
	default:
		return 0, fmt.Errorf("unsupported chain id type %T", v)
	}
}

func parseChainIDString(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("chain id is empty")
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		// Not hexutil.DecodeBig: wallets pad ids with leading zeros ("0x01")
		// which the strict decoder rejects.
		n, err := strconv.ParseInt(s[2:], 16, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid hex chain id %q: %w", s, err)
		}
		return n, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid decimal chain id %q: %w", s, err)
	}
	return n, nil
}
