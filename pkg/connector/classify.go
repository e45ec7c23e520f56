package connector

import (
	"errors"
	"strings"

	"github.com/walletmux/walletmux/pkg/walletsdk"
)

// coded matches any error carrying an EIP-1193 numeric code, including
// *walletsdk.RPCError and go-ethereum's rpc errors.
type coded interface {
	ErrorCode() int
}

// ErrorCode extracts the provider error code from err or any error it wraps.
// The second result is false when no code is present.
func ErrorCode(err error) (int, bool) {
	var c coded
	if errors.As(err, &c) {
		return c.ErrorCode(), true
	}
	return 0, false
}

// IsUnrecognizedChain reports whether err is the provider's "chain not
// added" failure (code 4902) from wallet_switchEthereumChain.
func IsUnrecognizedChain(err error) bool {
	code, ok := ErrorCode(err)
	return ok && code == walletsdk.CodeUnrecognizedChain
}

// userRejectionPhrases is the last-resort heuristic for SDKs that report
// rejection as bare message strings instead of coded errors. Matching is
// case-insensitive substring search. Fragile by nature, so it only runs when
// no numeric code is present.
var userRejectionPhrases = []string{
	"user rejected",
	"user denied",
	"user closed modal",
	"accounts received is empty",
}

// IsUserRejection reports whether err represents the user declining a wallet
// prompt. The numeric code 4001 is authoritative; the message heuristic is
// consulted only for uncoded errors.
func IsUserRejection(err error) bool {
	if err == nil {
		return false
	}
	var rejected *UserRejectedError
	if errors.As(err, &rejected) {
		return true
	}
	if code, ok := ErrorCode(err); ok {
		return code == walletsdk.CodeUserRejected
	}
	msg := strings.ToLower(err.Error())
	for _, phrase := range userRejectionPhrases {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	return false
}
