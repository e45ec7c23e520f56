// Package walletsdk defines the surface a hosted wallet SDK must expose for
// connectors to drive it, along with a reference implementation backed by a
// JSON-RPC node endpoint.
package walletsdk

import (
	"context"
	"encoding/json"
	"fmt"
)

// Event names fired by wallet SDKs.
const (
	EventAccountsChanged = "accountsChanged"
	EventChainChanged    = "chainChanged"
	EventDisconnect      = "disconnect"
)

// Well-known EIP-1193 / EIP-1474 provider error codes.
const (
	CodeUserRejected      = 4001
	CodeUnauthorized      = 4100
	CodeUnsupportedMethod = 4200
	CodeDisconnected      = 4900
	CodeUnrecognizedChain = 4902
)

// Listener receives the raw JSON payload of a wallet event.
type Listener func(payload json.RawMessage)

// Subscription represents an active event registration. Unsubscribe is
// idempotent.
type Subscription interface {
	Unsubscribe()
}

// SDK is the wallet surface consumed by connectors.
//
// Init performs the SDK's own asynchronous setup and must be called before
// any other method; implementations may make it idempotent but callers are
// expected to call it exactly once. Enable prompts the user to authorize the
// dapp and returns the enabled account addresses. Request issues a JSON-RPC
// style call; the reply may be the bare result or a {"result": ...} envelope
// depending on the SDK. Close tears the session down.
type SDK interface {
	Init(ctx context.Context) error
	Enable(ctx context.Context) ([]string, error)
	Request(ctx context.Context, method string, params any) (json.RawMessage, error)
	On(event string, fn Listener) Subscription
	Close() error
}

// Factory constructs an SDK instance. Connectors hold a Factory rather than
// an instance so construction can be deferred until first use.
type Factory func(ctx context.Context) (SDK, error)

// RPCError is a provider error carrying the numeric code defined by
// EIP-1193/EIP-1474. SDK implementations should surface wallet-side failures
// as *RPCError so connectors can classify them without string matching.
type RPCError struct {
	Code    int
	Message string
	Data    any
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("provider error %d: %s", e.Code, e.Message)
}

// ErrorCode implements the go-ethereum rpc.Error interface so classification
// code can treat node errors and wallet errors uniformly.
func (e *RPCError) ErrorCode() int {
	return e.Code
}
