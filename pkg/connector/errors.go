package connector

import (
	"fmt"

	"github.com/walletmux/walletmux/pkg/chains"
)

// UserRejectedError indicates the user dismissed a wallet prompt: closed the
// connection modal, rejected a chain switch, or declined adding a chain.
type UserRejectedError struct {
	Err error
}

func (e *UserRejectedError) Error() string {
	return fmt.Sprintf("user rejected request: %v", e.Err)
}

func (e *UserRejectedError) Unwrap() error {
	return e.Err
}

// ChainNotConfiguredError indicates a chain id outside the configured
// allow-list was requested where configured metadata is required.
type ChainNotConfiguredError struct {
	ChainID int64
}

func (e *ChainNotConfiguredError) Error() string {
	return fmt.Sprintf("chain %s (%d) not configured", chains.FormatChainID(e.ChainID), e.ChainID)
}

// AddChainError indicates wallet_addEthereumChain failed for a reason other
// than user rejection.
type AddChainError struct {
	ChainID int64
	Err     error
}

func (e *AddChainError) Error() string {
	return fmt.Sprintf("failed to add chain %d: %v", e.ChainID, e.Err)
}

func (e *AddChainError) Unwrap() error {
	return e.Err
}

// SwitchChainError wraps an unclassified wallet_switchEthereumChain failure.
type SwitchChainError struct {
	ChainID int64
	Err     error
}

func (e *SwitchChainError) Error() string {
	return fmt.Sprintf("failed to switch to chain %d: %v", e.ChainID, e.Err)
}

func (e *SwitchChainError) Unwrap() error {
	return e.Err
}
