// Package hostedwallet adapts a hosted wallet SDK to the connector interface
// used by the multi-wallet abstraction layer. Every operation is a forward to
// the injected SDK with response normalization and error classification; no
// protocol logic lives here.
package hostedwallet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/walletmux/walletmux/pkg/chains"
	"github.com/walletmux/walletmux/pkg/connector"
	"github.com/walletmux/walletmux/pkg/walletsdk"
)

// ConnectorID identifies this backend to the abstraction layer.
const ConnectorID = "hostedwallet"

// chainIDMethods are the lookup strategies GetChainID tries in order. Both
// failing is survivable; the caller gets a comma-ok miss instead of an error.
var chainIDMethods = []string{"eth_chainId", "net_version"}

// Connector adapts a hosted wallet SDK. The SDK handle is a lazy singleton:
// constructed on first use under the connector mutex so concurrent first
// callers share one instance, and reused until the connector is discarded.
type Connector struct {
	connector.Base

	factory walletsdk.Factory
	log     logrus.FieldLogger

	mu   sync.Mutex
	sdk  walletsdk.SDK
	subs []walletsdk.Subscription
}

var _ connector.Connector = (*Connector)(nil)

// New creates a hosted-wallet connector over the configured chain list.
//
// Parameters:
//   - configured: chains the application supports; membership drives the
//     Unsupported flag on results and events
//   - cfg: SDK factory and logger
//
// Returns:
//   - *Connector: the connector, with no SDK constructed yet
//   - error: when the config is invalid
func New(configured []chains.Chain, cfg Config) (*Connector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := cfg.Logger.WithField("connector", ConnectorID)
	return &Connector{
		Base:    connector.NewBase(configured, log),
		factory: cfg.Factory,
		log:     log,
	}, nil
}

// ID identifies the backend.
func (c *Connector) ID() string {
	return ConnectorID
}

// GetProvider returns the SDK handle, constructing and initializing it on
// first call. Construction is guarded by the connector mutex, so N callers
// produce exactly one instance.
func (c *Connector) GetProvider(ctx context.Context) (walletsdk.SDK, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sdk != nil {
		return c.sdk, nil
	}

	sdk, err := c.factory(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to construct wallet SDK: %w", err)
	}
	if err := sdk.Init(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize wallet SDK: %w", err)
	}

	c.sdk = sdk
	c.log.Debug("Wallet SDK ready")
	return sdk, nil
}

// Connect establishes a session: initializes the SDK if needed, relays its
// events, prompts the user via Enable, and resolves the active chain.
//
// A user dismissing the wallet UI (or the SDK reporting an empty account
// list) surfaces as *connector.UserRejectedError. When opts.ChainID is set
// and differs from the wallet's current chain, Connect switches to it; if
// that chain is not configured the switch is skipped with a warning and the
// current chain is kept.
func (c *Connector) Connect(ctx context.Context, opts connector.ConnectOptions) (connector.ConnectResult, error) {
	sdk, err := c.GetProvider(ctx)
	if err != nil {
		return connector.ConnectResult{}, err
	}

	c.subscribeOnce(sdk)
	c.Emit(connector.Event{Type: connector.EventConnecting})

	accounts, err := sdk.Enable(ctx)
	if err != nil {
		if connector.IsUserRejection(err) {
			return connector.ConnectResult{}, &connector.UserRejectedError{Err: err}
		}
		return connector.ConnectResult{}, fmt.Errorf("failed to enable wallet: %w", err)
	}
	if len(accounts) == 0 {
		return connector.ConnectResult{}, &connector.UserRejectedError{Err: errors.New("accounts received is empty")}
	}
	account := common.HexToAddress(accounts[0]).Hex()

	id, _ := c.GetChainID(ctx)
	if opts.ChainID != 0 && id != opts.ChainID {
		switched, err := c.SwitchChain(ctx, opts.ChainID)
		switch {
		case err == nil:
			id = switched.ID
		case isChainNotConfigured(err):
			c.log.WithError(err).WithField("chain_id", opts.ChainID).
				Warn("Requested chain not configured, staying on current chain")
		default:
			return connector.ConnectResult{}, err
		}
	}

	c.log.WithFields(logrus.Fields{
		"account":  account,
		"chain_id": id,
	}).Info("Wallet connected")

	return connector.ConnectResult{
		Account:  account,
		Chain:    connector.ChainState{ID: id, Unsupported: c.IsChainUnsupported(id)},
		Provider: sdk,
	}, nil
}

// Disconnect tears the session down: removes the event subscriptions and
// closes the SDK. It is a no-op when the SDK was never constructed.
func (c *Connector) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	sdk := c.sdk
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()

	if sdk == nil {
		return nil
	}
	for _, sub := range subs {
		sub.Unsubscribe()
	}
	if err := sdk.Close(); err != nil {
		return fmt.Errorf("failed to close wallet SDK: %w", err)
	}
	c.log.Info("Wallet disconnected")
	return nil
}

// GetAccount returns the first authorized account in checksum form. The
// second result is false when the wallet reports none.
func (c *Connector) GetAccount(ctx context.Context) (string, bool, error) {
	sdk, err := c.GetProvider(ctx)
	if err != nil {
		return "", false, err
	}
	raw, err := sdk.Request(ctx, "eth_accounts", nil)
	if err != nil {
		return "", false, fmt.Errorf("failed to fetch accounts: %w", err)
	}
	accounts := parseAccounts(raw)
	if len(accounts) == 0 {
		return "", false, nil
	}
	return common.HexToAddress(accounts[0]).Hex(), true, nil
}

// GetChainID reports the wallet's current chain, trying eth_chainId and then
// net_version. Failures are logged as warnings, never returned: when every
// strategy fails the result is (0, false).
func (c *Connector) GetChainID(ctx context.Context) (int64, bool) {
	sdk, err := c.GetProvider(ctx)
	if err != nil {
		c.log.WithError(err).Warn("Chain id lookup failed: no provider")
		return 0, false
	}
	for _, method := range chainIDMethods {
		raw, err := sdk.Request(ctx, method, nil)
		if err != nil {
			c.log.WithError(err).WithField("method", method).Warn("Chain id lookup failed")
			continue
		}
		id, err := chains.ParseChainID(parseScalar(raw))
		if err != nil {
			c.log.WithError(err).WithField("method", method).Warn("Chain id reply unreadable")
			continue
		}
		return id, true
	}
	return 0, false
}

// IsAuthorized reports whether the wallet already exposes accounts to this
// dapp. Any error reads as not authorized.
func (c *Connector) IsAuthorized(ctx context.Context) bool {
	account, ok, err := c.GetAccount(ctx)
	if err != nil {
		c.log.WithError(err).Debug("Authorization check failed")
		return false
	}
	return ok && account != ""
}

// SwitchChain moves the wallet to the given configured chain.
//
// The target must be in the configured chain list; otherwise SwitchChain
// fails with *connector.ChainNotConfiguredError before touching the SDK.
// A wallet that does not know the chain (code 4902) is asked to add it with
// the configured metadata, then the configured Chain is returned. User
// rejection of either prompt surfaces as *connector.UserRejectedError; other
// add failures as *connector.AddChainError; other switch failures as
// *connector.SwitchChainError wrapping the cause.
func (c *Connector) SwitchChain(ctx context.Context, chainID int64) (chains.Chain, error) {
	target, ok := chains.Find(c.Chains, chainID)
	if !ok {
		return chains.Chain{}, &connector.ChainNotConfiguredError{ChainID: chainID}
	}

	sdk, err := c.GetProvider(ctx)
	if err != nil {
		return chains.Chain{}, err
	}

	_, err = sdk.Request(ctx, "wallet_switchEthereumChain", []any{switchChainParams{ChainID: target.HexID()}})
	if err == nil {
		c.log.WithField("chain_id", chainID).Info("Switched chain")
		return target, nil
	}

	if connector.IsUnrecognizedChain(err) {
		return c.addChain(ctx, sdk, target)
	}
	if connector.IsUserRejection(err) {
		return chains.Chain{}, &connector.UserRejectedError{Err: err}
	}
	return chains.Chain{}, &connector.SwitchChainError{ChainID: chainID, Err: err}
}

// addChain asks the wallet to register a chain it reported as unrecognized.
func (c *Connector) addChain(ctx context.Context, sdk walletsdk.SDK, target chains.Chain) (chains.Chain, error) {
	params := addChainParams{
		ChainID:   target.HexID(),
		ChainName: target.Name,
		NativeCurrency: nativeCurrencyParams{
			Name:     target.NativeCurrency.Name,
			Symbol:   target.NativeCurrency.Symbol,
			Decimals: target.NativeCurrency.Decimals,
		},
		RPCURLs:           []string{target.PreferredRPCURL()},
		BlockExplorerURLs: c.BlockExplorerURLs(target),
	}

	if _, err := sdk.Request(ctx, "wallet_addEthereumChain", []any{params}); err != nil {
		if connector.IsUserRejection(err) {
			return chains.Chain{}, &connector.UserRejectedError{Err: err}
		}
		return chains.Chain{}, &connector.AddChainError{ChainID: target.ID, Err: err}
	}

	c.log.WithField("chain_id", target.ID).Info("Added chain to wallet")
	return target, nil
}

// WatchAsset asks the wallet to track an ERC-20 token. Decimals defaults to
// 18 when unset; no other validation is applied.
func (c *Connector) WatchAsset(ctx context.Context, params connector.WatchAssetParams) (bool, error) {
	sdk, err := c.GetProvider(ctx)
	if err != nil {
		return false, err
	}
	if params.Decimals == 0 {
		params.Decimals = 18
	}

	raw, err := sdk.Request(ctx, "wallet_watchAsset", watchAssetParams{
		Type: "ERC20",
		Options: watchAssetOptions{
			Address:  params.Address,
			Symbol:   params.Symbol,
			Decimals: params.Decimals,
			Image:    params.Image,
		},
	})
	if err != nil {
		return false, fmt.Errorf("failed to watch asset: %w", err)
	}
	var added bool
	if err := json.Unmarshal(parseSendReturn(raw), &added); err != nil {
		return false, fmt.Errorf("unexpected wallet_watchAsset reply: %w", err)
	}
	return added, nil
}

func isChainNotConfigured(err error) bool {
	var notConfigured *connector.ChainNotConfiguredError
	return errors.As(err, &notConfigured)
}

// Wire shapes for the wallet_* RPC methods.

type switchChainParams struct {
	ChainID string `json:"chainId"`
}

type nativeCurrencyParams struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
}

type addChainParams struct {
	ChainID           string               `json:"chainId"`
	ChainName         string               `json:"chainName"`
	NativeCurrency    nativeCurrencyParams `json:"nativeCurrency"`
	RPCURLs           []string             `json:"rpcUrls"`
	BlockExplorerURLs []string             `json:"blockExplorerUrls,omitempty"`
}

type watchAssetOptions struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
	Image    string `json:"image,omitempty"`
}

type watchAssetParams struct {
	Type    string            `json:"type"`
	Options watchAssetOptions `json:"options"`
}
