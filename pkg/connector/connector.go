// Package connector defines the uniform interface wallet backends are
// adapted to, the normalized events they emit, and the typed errors they
// surface. Concrete adapters live in subpackages.
package connector

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/walletmux/walletmux/pkg/chains"
	"github.com/walletmux/walletmux/pkg/walletsdk"
)

// ChainState is the chain portion of connector results and change events.
type ChainState struct {
	ID          int64
	Unsupported bool
}

// ConnectResult is produced once per successful Connect.
type ConnectResult struct {
	// Account is the first enabled account in EIP-55 checksum form.
	Account string

	Chain ChainState

	// Provider is the live SDK handle, for callers that need to issue
	// requests directly.
	Provider walletsdk.SDK
}

// ConnectOptions controls Connect. A zero ChainID means no preference.
type ConnectOptions struct {
	ChainID int64
}

// WatchAssetParams describes an ERC-20 token to register with the wallet.
type WatchAssetParams struct {
	Address string
	Symbol  string
	// Decimals defaults to 18 when zero.
	Decimals int
	Image    string
}

// Connector is the uniform surface the multi-wallet layer drives. Every
// method that can touch the wallet takes a context; none of them retry.
type Connector interface {
	// ID identifies the backend, e.g. "hostedwallet".
	ID() string

	Connect(ctx context.Context, opts ConnectOptions) (ConnectResult, error)
	Disconnect(ctx context.Context) error

	// GetAccount returns the first authorized account, checksummed. The
	// second result is false when the wallet reports no accounts.
	GetAccount(ctx context.Context) (string, bool, error)

	// GetChainID reports the wallet's current chain. It never fails: when
	// every strategy errors the second result is false.
	GetChainID(ctx context.Context) (int64, bool)

	// IsAuthorized reports whether the wallet already exposes accounts to
	// this dapp. Errors are swallowed and read as "not authorized".
	IsAuthorized(ctx context.Context) bool

	SwitchChain(ctx context.Context, chainID int64) (chains.Chain, error)
	WatchAsset(ctx context.Context, params WatchAssetParams) (bool, error)

	// Subscribe registers a handler for normalized events. The returned
	// function removes it.
	Subscribe(fn EventHandler) (unsubscribe func())
}

// Base carries the capabilities the abstraction layer supplies to every
// connector: the configured chain list, the event fan-out, and the derived
// helpers over chain metadata. Embed it in concrete connectors.
type Base struct {
	Chains []chains.Chain
	Log    logrus.FieldLogger

	// events lives behind a pointer so Base stays copyable.
	events *emitter
}

// NewBase wires a Base with the configured chains and logger.
func NewBase(configured []chains.Chain, log logrus.FieldLogger) Base {
	return Base{
		Chains: configured,
		Log:    log,
		events: newEmitter(),
	}
}

// IsChainUnsupported reports whether id is outside the configured allow-list.
func (b *Base) IsChainUnsupported(id int64) bool {
	_, ok := chains.Find(b.Chains, id)
	return !ok
}

// BlockExplorerURLs returns the explorer URLs advertised for a chain, in
// the order they are configured.
func (b *Base) BlockExplorerURLs(c chains.Chain) []string {
	urls := make([]string, 0, len(c.BlockExplorers))
	for _, e := range c.BlockExplorers {
		urls = append(urls, e.URL)
	}
	return urls
}

// Subscribe registers an event handler and returns its removal function.
func (b *Base) Subscribe(fn EventHandler) func() {
	if b.events == nil {
		b.events = newEmitter()
	}
	return b.events.subscribe(fn)
}

// Emit fans an event out to all subscribed handlers synchronously.
func (b *Base) Emit(ev Event) {
	if b.events == nil {
		return
	}
	b.events.emit(ev)
}
