package walletsdk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	gethrpc "github.com/ethereum/go-ethereum/rpc"

	"github.com/walletmux/walletmux/pkg/chains"
)

// rpcCaller is the subset of *rpc.Client the remote SDK needs. It exists so
// tests can substitute the transport.
type rpcCaller interface {
	CallContext(ctx context.Context, result any, method string, args ...any) error
	Close()
}

// RemoteConfig configures a Remote SDK instance.
type RemoteConfig struct {
	// RPCURL is the node endpoint backing read calls (http, https, ws, wss).
	RPCURL string

	// Accounts are the addresses the wallet exposes when the dapp is enabled.
	Accounts []string

	// ChainID is the chain the wallet starts on. When zero, Init queries the
	// node for it.
	ChainID int64

	// Chains are the networks the wallet already knows about. Switching to a
	// chain outside this set fails with code 4902 until it is added.
	Chains []chains.Chain

	// RequestsPerSecond throttles outbound node calls. Zero means the
	// default of 10.
	RequestsPerSecond float64

	// Logger is required.
	Logger *logrus.Logger
}

// Validate checks the config for the fields Remote cannot default.
func (c *RemoteConfig) Validate() error {
	if c.RPCURL == "" {
		return errors.New("walletsdk: RPCURL is required")
	}
	if c.Logger == nil {
		return errors.New("walletsdk: Logger is required")
	}
	return nil
}

// Remote is a reference SDK implementation backed by a JSON-RPC node. It
// emulates the wallet-side methods (wallet_switchEthereumChain,
// wallet_addEthereumChain, wallet_watchAsset) against local state and
// forwards everything else to the node.
type Remote struct {
	cfg     RemoteConfig
	log     logrus.FieldLogger
	limiter *rate.Limiter

	mu       sync.Mutex
	rpc      rpcCaller
	enabled  bool
	chainID  int64
	known    map[int64]struct{}
	watched  []WatchedAsset
	subs     map[string]map[uint64]Listener
	nextSub  uint64
	dialFunc func(ctx context.Context, url string) (rpcCaller, error)
}

// WatchedAsset records a token registered through wallet_watchAsset.
type WatchedAsset struct {
	Address  string
	Symbol   string
	Decimals int
	Image    string
}

// NewRemote creates a Remote SDK from config. The node connection is not
// dialed until Init.
func NewRemote(cfg RemoteConfig) (*Remote, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 10
	}
	known := make(map[int64]struct{}, len(cfg.Chains))
	for _, c := range cfg.Chains {
		known[c.ID] = struct{}{}
	}
	if cfg.ChainID != 0 {
		known[cfg.ChainID] = struct{}{}
	}
	return &Remote{
		cfg:     cfg,
		log:     cfg.Logger.WithField("component", "walletsdk.remote"),
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		chainID: cfg.ChainID,
		known:   known,
		subs:    make(map[string]map[uint64]Listener),
		dialFunc: func(ctx context.Context, url string) (rpcCaller, error) {
			return gethrpc.DialContext(ctx, url)
		},
	}, nil
}

// Init dials the node and, when no starting chain was configured, adopts the
// node's chain id.
func (r *Remote) Init(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rpc != nil {
		return nil
	}

	client, err := r.dialFunc(ctx, r.cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("failed to dial %s: %w", r.cfg.RPCURL, err)
	}

	if r.chainID == 0 {
		var hexID string
		if err := client.CallContext(ctx, &hexID, "eth_chainId"); err != nil {
			client.Close()
			return fmt.Errorf("failed to query chain id: %w", err)
		}
		id, err := chains.ParseChainID(hexID)
		if err != nil {
			client.Close()
			return err
		}
		r.chainID = id
		r.known[id] = struct{}{}
	}

	r.rpc = client
	r.log.WithFields(logrus.Fields{
		"rpc_url":  r.cfg.RPCURL,
		"chain_id": r.chainID,
	}).Debug("Wallet SDK initialized")
	return nil
}

// Enable authorizes the dapp and returns the wallet's accounts.
func (r *Remote) Enable(ctx context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rpc == nil {
		return nil, errors.New("walletsdk: not initialized")
	}
	if len(r.cfg.Accounts) == 0 {
		return nil, errors.New("accounts received is empty")
	}
	r.enabled = true
	return append([]string(nil), r.cfg.Accounts...), nil
}

// Request issues a JSON-RPC style call. Wallet-side methods are answered
// locally; everything else goes to the node under the configured rate limit.
func (r *Remote) Request(ctx context.Context, method string, params any) (json.RawMessage, error) {
	r.mu.Lock()
	caller := r.rpc
	r.mu.Unlock()
	if caller == nil {
		return nil, errors.New("walletsdk: not initialized")
	}

	log := r.log.WithFields(logrus.Fields{
		"request_id": uuid.NewString(),
		"method":     method,
	})

	switch method {
	case "eth_accounts":
		return r.handleAccounts()
	case "eth_chainId":
		return json.Marshal(chains.FormatChainID(r.currentChainID()))
	case "net_version":
		return json.Marshal(strconv.FormatInt(r.currentChainID(), 10))
	case "wallet_switchEthereumChain":
		return r.handleSwitchChain(log, params)
	case "wallet_addEthereumChain":
		return r.handleAddChain(log, params)
	case "wallet_watchAsset":
		return r.handleWatchAsset(log, params)
	}

	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var result json.RawMessage
	args, err := requestArgs(params)
	if err != nil {
		return nil, err
	}
	if err := caller.CallContext(ctx, &result, method, args...); err != nil {
		log.WithError(err).Debug("Node request failed")
		return nil, err
	}
	log.Debug("Node request completed")
	return result, nil
}

// On registers a listener for a wallet event.
func (r *Remote) On(event string, fn Listener) Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.subs[event] == nil {
		r.subs[event] = make(map[uint64]Listener)
	}
	id := r.nextSub
	r.nextSub++
	r.subs[event][id] = fn
	return &subscription{remove: func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.subs[event], id)
	}}
}

// Close fires disconnect to remaining listeners and releases the node
// connection.
func (r *Remote) Close() error {
	r.emit(EventDisconnect, nil)

	r.mu.Lock()
	caller := r.rpc
	r.rpc = nil
	r.enabled = false
	r.subs = make(map[string]map[uint64]Listener)
	r.mu.Unlock()

	if caller != nil {
		caller.Close()
	}
	return nil
}

// WatchedAssets returns the tokens registered through wallet_watchAsset.
func (r *Remote) WatchedAssets() []WatchedAsset {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]WatchedAsset(nil), r.watched...)
}

func (r *Remote) handleAccounts() (json.RawMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.enabled {
		return json.Marshal([]string{})
	}
	return json.Marshal(r.cfg.Accounts)
}

func (r *Remote) handleSwitchChain(log logrus.FieldLogger, params any) (json.RawMessage, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	hexID := gjson.GetBytes(raw, "0.chainId").String()
	id, err := chains.ParseChainID(hexID)
	if err != nil {
		return nil, &RPCError{Code: -32602, Message: fmt.Sprintf("invalid chainId parameter: %v", err)}
	}

	r.mu.Lock()
	_, ok := r.known[id]
	if ok {
		r.chainID = id
	}
	r.mu.Unlock()

	if !ok {
		return nil, &RPCError{
			Code:    CodeUnrecognizedChain,
			Message: fmt.Sprintf("Unrecognized chain ID %q. Try adding the chain using wallet_addEthereumChain first.", hexID),
		}
	}

	log.WithField("chain_id", id).Info("Switched chain")
	r.emit(EventChainChanged, mustJSON(hexID))
	return json.RawMessage("null"), nil
}

func (r *Remote) handleAddChain(log logrus.FieldLogger, params any) (json.RawMessage, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	chain := gjson.GetBytes(raw, "0")
	id, err := chains.ParseChainID(chain.Get("chainId").String())
	if err != nil {
		return nil, &RPCError{Code: -32602, Message: fmt.Sprintf("invalid chainId parameter: %v", err)}
	}
	if chain.Get("rpcUrls.0").String() == "" {
		return nil, &RPCError{Code: -32602, Message: "rpcUrls is required"}
	}

	r.mu.Lock()
	r.known[id] = struct{}{}
	r.mu.Unlock()

	log.WithFields(logrus.Fields{
		"chain_id":   id,
		"chain_name": chain.Get("chainName").String(),
	}).Info("Added chain")
	return json.RawMessage("null"), nil
}

func (r *Remote) handleWatchAsset(log logrus.FieldLogger, params any) (json.RawMessage, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	opts := gjson.GetBytes(raw, "options")
	if !opts.Exists() {
		// Some callers wrap watchAsset params in a positional array.
		opts = gjson.GetBytes(raw, "0.options")
	}
	asset := WatchedAsset{
		Address:  opts.Get("address").String(),
		Symbol:   opts.Get("symbol").String(),
		Decimals: int(opts.Get("decimals").Int()),
		Image:    opts.Get("image").String(),
	}
	if asset.Address == "" {
		return nil, &RPCError{Code: -32602, Message: "options.address is required"}
	}

	r.mu.Lock()
	r.watched = append(r.watched, asset)
	r.mu.Unlock()

	log.WithField("symbol", asset.Symbol).Info("Watching asset")
	return json.RawMessage("true"), nil
}

// emit snapshots the listeners under lock and invokes them outside it.
// Delivery order across listeners is not guaranteed.
func (r *Remote) emit(event string, payload json.RawMessage) {
	r.mu.Lock()
	listeners := make([]Listener, 0, len(r.subs[event]))
	for _, fn := range r.subs[event] {
		listeners = append(listeners, fn)
	}
	r.mu.Unlock()

	for _, fn := range listeners {
		fn(payload)
	}
}

func (r *Remote) currentChainID() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.chainID
}

// requestArgs flattens params into positional JSON-RPC arguments.
func requestArgs(params any) ([]any, error) {
	switch p := params.(type) {
	case nil:
		return nil, nil
	case []any:
		return p, nil
	default:
		return []any{p}, nil
	}
}

func mustJSON(v any) json.RawMessage {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return raw
}

// RemoteFactory returns a Factory that constructs a fresh Remote on each
// call. Connectors call the factory at most once per instance.
func RemoteFactory(cfg RemoteConfig) Factory {
	return func(ctx context.Context) (SDK, error) {
		return NewRemote(cfg)
	}
}

type subscription struct {
	once   sync.Once
	remove func()
}

func (s *subscription) Unsubscribe() {
	s.once.Do(s.remove)
}
