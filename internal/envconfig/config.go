// Package envconfig loads the demo binary's configuration from the
// environment, following the WALLETMUX_* variable convention.
package envconfig

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/walletmux/walletmux/pkg/chains"
)

// Config is everything the demo binary needs to stand up a connector.
type Config struct {
	// RPCURL is the node endpoint backing the reference wallet SDK.
	RPCURL string

	// Accounts are the addresses the reference wallet exposes.
	Accounts []string

	// ChainID is the wallet's starting chain; zero lets the SDK adopt the
	// node's chain.
	ChainID int64

	// TargetChainID, when set, is requested at connect time.
	TargetChainID int64

	// RequestsPerSecond throttles outbound node calls.
	RequestsPerSecond float64

	// LogLevel is a logrus level name; empty means info.
	LogLevel string
}

// Load reads configuration from the environment. WALLETMUX_RPC_URL and
// WALLETMUX_ACCOUNTS are required.
func Load() (*Config, error) {
	rpcURL := os.Getenv("WALLETMUX_RPC_URL")
	if rpcURL == "" {
		return nil, fmt.Errorf("WALLETMUX_RPC_URL is required")
	}

	accounts := splitList(os.Getenv("WALLETMUX_ACCOUNTS"))
	if len(accounts) == 0 {
		return nil, fmt.Errorf("WALLETMUX_ACCOUNTS is required")
	}

	chainID, err := parseInt64Env("WALLETMUX_CHAIN_ID", 0)
	if err != nil {
		return nil, err
	}
	targetChainID, err := parseInt64Env("WALLETMUX_TARGET_CHAIN_ID", 0)
	if err != nil {
		return nil, err
	}

	rps, _ := strconv.ParseFloat(getEnvOrDefault("WALLETMUX_REQUESTS_PER_SECOND", "10"), 64)

	return &Config{
		RPCURL:            rpcURL,
		Accounts:          accounts,
		ChainID:           chainID,
		TargetChainID:     targetChainID,
		RequestsPerSecond: rps,
		LogLevel:          os.Getenv("LOG_LEVEL"),
	}, nil
}

// Chains returns the chain allow-list for the demo: the built-in defaults,
// with the default RPC endpoints overridable via WALLETMUX_RPC_URL_<ID>.
func (c *Config) Chains() []chains.Chain {
	configured := chains.DefaultChains()
	for i, chain := range configured {
		if url := os.Getenv(fmt.Sprintf("WALLETMUX_RPC_URL_%d", chain.ID)); url != "" {
			configured[i].RPCURLs.Default = url
			configured[i].RPCURLs.Public = url
		}
	}
	return configured
}

func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseInt64Env(key string, fallback int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
