package hostedwallet

import (
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"
	"github.com/tidwall/gjson"

	"github.com/walletmux/walletmux/pkg/chains"
	"github.com/walletmux/walletmux/pkg/connector"
	"github.com/walletmux/walletmux/pkg/walletsdk"
)

// subscribeOnce attaches the three relay handlers to the SDK. Repeat connects
// reuse the existing subscriptions; Disconnect removes them.
func (c *Connector) subscribeOnce(sdk walletsdk.SDK) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.subs) > 0 {
		return
	}
	c.subs = []walletsdk.Subscription{
		sdk.On(walletsdk.EventAccountsChanged, c.onAccountsChanged),
		sdk.On(walletsdk.EventChainChanged, c.onChainChanged),
		sdk.On(walletsdk.EventDisconnect, c.onDisconnect),
	}
}

// onAccountsChanged relays account moves. An emptied account list means the
// session is gone and is surfaced as a disconnect.
func (c *Connector) onAccountsChanged(payload json.RawMessage) {
	accounts := parseAccounts(payload)
	if len(accounts) == 0 {
		c.Emit(connector.Event{Type: connector.EventDisconnect})
		return
	}
	c.Emit(connector.Event{
		Type:    connector.EventChange,
		Account: common.HexToAddress(accounts[0]).Hex(),
	})
}

// onChainChanged relays chain moves, normalizing whatever id form the SDK
// reports and recomputing the unsupported flag.
func (c *Connector) onChainChanged(payload json.RawMessage) {
	id, err := chains.ParseChainID(gjson.ParseBytes(payload).Value())
	if err != nil {
		c.log.WithError(err).Warn("Ignoring chainChanged event with unreadable id")
		return
	}
	c.Emit(connector.Event{
		Type:  connector.EventChange,
		Chain: &connector.ChainState{ID: id, Unsupported: c.IsChainUnsupported(id)},
	})
}

func (c *Connector) onDisconnect(json.RawMessage) {
	c.Emit(connector.Event{Type: connector.EventDisconnect})
}
