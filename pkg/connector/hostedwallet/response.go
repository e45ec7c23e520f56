package hostedwallet

import (
	"encoding/json"

	"github.com/tidwall/gjson"
)

// parseSendReturn unwraps the {"result": ...} envelope some wallet SDKs wrap
// replies in. Bare replies pass through untouched.
func parseSendReturn(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return raw
	}
	if res := gjson.GetBytes(raw, "result"); res.Exists() {
		return json.RawMessage(res.Raw)
	}
	return raw
}

// parseAccounts normalizes an eth_accounts-shaped reply into a string slice,
// tolerating both bare arrays and enveloped ones.
func parseAccounts(raw json.RawMessage) []string {
	res := gjson.ParseBytes(parseSendReturn(raw))
	if !res.IsArray() {
		return nil
	}
	var accounts []string
	res.ForEach(func(_, v gjson.Result) bool {
		if s := v.String(); s != "" {
			accounts = append(accounts, s)
		}
		return true
	})
	return accounts
}

// parseScalar returns the reply's value as the loose Go type ParseChainID
// accepts (string or float64).
func parseScalar(raw json.RawMessage) any {
	return gjson.ParseBytes(parseSendReturn(raw)).Value()
}
