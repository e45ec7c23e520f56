package hostedwallet_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"sync/atomic"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/walletmux/walletmux/pkg/chains"
	"github.com/walletmux/walletmux/pkg/connector"
	"github.com/walletmux/walletmux/pkg/connector/hostedwallet"
	"github.com/walletmux/walletmux/pkg/walletsdk"
)

// Well-known test vector: lowercase input, EIP-55 checksummed output.
const (
	lowerAccount    = "0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266"
	checksumAccount = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

var _ = Describe("Connector", func() {
	var (
		ctx          context.Context
		sdk          *fakeSDK
		conn         *hostedwallet.Connector
		factoryCalls int32
		configured   []chains.Chain
	)

	BeforeEach(func() {
		ctx = context.Background()
		sdk = newFakeSDK()
		factoryCalls = 0
		configured = chains.DefaultChains()

		var err error
		conn, err = hostedwallet.New(configured, hostedwallet.Config{
			Factory: func(context.Context) (walletsdk.SDK, error) {
				atomic.AddInt32(&factoryCalls, 1)
				return sdk, nil
			},
			Logger: quietLogger(),
		})
		Expect(err).NotTo(HaveOccurred())
	})

	// collectEvents subscribes before the action under test and returns an
	// accessor for the events observed so far.
	collectEvents := func() func() []connector.Event {
		var mu sync.Mutex
		var events []connector.Event
		conn.Subscribe(func(ev connector.Event) {
			mu.Lock()
			defer mu.Unlock()
			events = append(events, ev)
		})
		return func() []connector.Event {
			mu.Lock()
			defer mu.Unlock()
			return append([]connector.Event(nil), events...)
		}
	}

	Describe("GetProvider", func() {
		It("constructs exactly one SDK instance across repeated calls", func() {
			for i := 0; i < 5; i++ {
				provider, err := conn.GetProvider(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(provider).To(BeIdenticalTo(walletsdk.SDK(sdk)))
			}
			Expect(atomic.LoadInt32(&factoryCalls)).To(Equal(int32(1)))
			Expect(sdk.initCalls).To(Equal(1))
		})

		It("constructs exactly one SDK instance under concurrent first calls", func() {
			var wg sync.WaitGroup
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					defer GinkgoRecover()
					_, err := conn.GetProvider(ctx)
					Expect(err).NotTo(HaveOccurred())
				}()
			}
			wg.Wait()
			Expect(atomic.LoadInt32(&factoryCalls)).To(Equal(int32(1)))
			Expect(sdk.initCalls).To(Equal(1))
		})

		It("propagates SDK init failures", func() {
			sdk.initErr = errors.New("setup timeout")
			_, err := conn.GetProvider(ctx)
			Expect(err).To(MatchError(ContainSubstring("setup timeout")))
		})
	})

	Describe("Connect", func() {
		BeforeEach(func() {
			sdk.enableAccounts = []string{lowerAccount}
			sdk.stubResult("eth_chainId", `"0x1"`)
		})

		It("returns the checksummed first account and the current chain", func() {
			result, err := conn.Connect(ctx, connector.ConnectOptions{})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Account).To(Equal(checksumAccount))
			Expect(result.Chain.ID).To(Equal(int64(1)))
			Expect(result.Chain.Unsupported).To(BeFalse())
			Expect(result.Provider).To(BeIdenticalTo(walletsdk.SDK(sdk)))
		})

		It("emits a connecting event before prompting the wallet", func() {
			events := collectEvents()
			_, err := conn.Connect(ctx, connector.ConnectOptions{})
			Expect(err).NotTo(HaveOccurred())
			Expect(events()).NotTo(BeEmpty())
			Expect(events()[0].Type).To(Equal(connector.EventConnecting))
		})

		It("classifies a closed connection UI as user rejection", func() {
			sdk.enableErr = errors.New("User closed modal")
			_, err := conn.Connect(ctx, connector.ConnectOptions{})
			var rejected *connector.UserRejectedError
			Expect(errors.As(err, &rejected)).To(BeTrue())
		})

		It("classifies an empty account list as user rejection", func() {
			sdk.enableAccounts = nil
			_, err := conn.Connect(ctx, connector.ConnectOptions{})
			var rejected *connector.UserRejectedError
			Expect(errors.As(err, &rejected)).To(BeTrue())
		})

		It("passes other enable failures through", func() {
			sdk.enableErr = errors.New("iframe crashed")
			_, err := conn.Connect(ctx, connector.ConnectOptions{})
			Expect(err).To(MatchError(ContainSubstring("iframe crashed")))
			var rejected *connector.UserRejectedError
			Expect(errors.As(err, &rejected)).To(BeFalse())
		})

		It("switches to the requested chain when it differs", func() {
			sdk.stubResult("wallet_switchEthereumChain", `null`)
			result, err := conn.Connect(ctx, connector.ConnectOptions{ChainID: 8453})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Chain.ID).To(Equal(int64(8453)))
			Expect(result.Chain.Unsupported).To(BeFalse())
			Expect(sdk.requestedMethods()).To(ContainElement("wallet_switchEthereumChain"))
		})

		It("keeps the current chain when the requested one is not configured", func() {
			result, err := conn.Connect(ctx, connector.ConnectOptions{ChainID: 424242})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Chain.ID).To(Equal(int64(1)))
			Expect(sdk.requestedMethods()).NotTo(ContainElement("wallet_switchEthereumChain"))
		})

		It("flags an unconfigured current chain as unsupported", func() {
			sdk.stubResult("eth_chainId", `"0x539"`) // 1337, not configured
			result, err := conn.Connect(ctx, connector.ConnectOptions{})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Chain.ID).To(Equal(int64(1337)))
			Expect(result.Chain.Unsupported).To(BeTrue())
		})
	})

	Describe("Disconnect", func() {
		It("is a no-op when the SDK was never constructed", func() {
			Expect(conn.Disconnect(ctx)).To(Succeed())
			Expect(atomic.LoadInt32(&factoryCalls)).To(BeZero())
		})

		It("closes the SDK after a connect", func() {
			sdk.enableAccounts = []string{lowerAccount}
			sdk.stubResult("eth_chainId", `"0x1"`)
			_, err := conn.Connect(ctx, connector.ConnectOptions{})
			Expect(err).NotTo(HaveOccurred())

			Expect(conn.Disconnect(ctx)).To(Succeed())
			Expect(sdk.closed).To(BeTrue())
		})
	})

	Describe("GetAccount", func() {
		It("returns the checksummed first account", func() {
			sdk.stubResult("eth_accounts", `["`+lowerAccount+`"]`)
			account, ok, err := conn.GetAccount(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
			Expect(account).To(Equal(checksumAccount))
		})

		It("unwraps enveloped replies", func() {
			sdk.stubResult("eth_accounts", `{"result":["`+lowerAccount+`"]}`)
			account, ok, err := conn.GetAccount(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
			Expect(account).To(Equal(checksumAccount))
		})

		It("misses when the wallet reports no accounts", func() {
			sdk.stubResult("eth_accounts", `[]`)
			_, ok, err := conn.GetAccount(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())
		})
	})

	Describe("GetChainID", func() {
		It("reads eth_chainId", func() {
			sdk.stubResult("eth_chainId", `"0x38"`)
			id, ok := conn.GetChainID(ctx)
			Expect(ok).To(BeTrue())
			Expect(id).To(Equal(int64(56)))
		})

		It("falls back to net_version when eth_chainId fails", func() {
			sdk.stubError("eth_chainId", errors.New("method not found"))
			sdk.stubResult("net_version", `"56"`)
			id, ok := conn.GetChainID(ctx)
			Expect(ok).To(BeTrue())
			Expect(id).To(Equal(int64(56)))
		})

		It("misses without an error when every strategy fails", func() {
			sdk.stubError("eth_chainId", errors.New("method not found"))
			sdk.stubError("net_version", errors.New("method not found"))
			id, ok := conn.GetChainID(ctx)
			Expect(ok).To(BeFalse())
			Expect(id).To(BeZero())
		})
	})

	Describe("IsAuthorized", func() {
		It("is true when accounts are exposed", func() {
			sdk.stubResult("eth_accounts", `["`+lowerAccount+`"]`)
			Expect(conn.IsAuthorized(ctx)).To(BeTrue())
		})

		It("is false when the account list is empty", func() {
			sdk.stubResult("eth_accounts", `[]`)
			Expect(conn.IsAuthorized(ctx)).To(BeFalse())
		})

		It("swallows request errors", func() {
			sdk.stubError("eth_accounts", errors.New("provider gone"))
			Expect(conn.IsAuthorized(ctx)).To(BeFalse())
		})
	})

	Describe("SwitchChain", func() {
		It("fails fast for an unconfigured chain without touching the SDK", func() {
			_, err := conn.SwitchChain(ctx, 424242)
			var notConfigured *connector.ChainNotConfiguredError
			Expect(errors.As(err, &notConfigured)).To(BeTrue())
			Expect(notConfigured.ChainID).To(Equal(int64(424242)))
			Expect(atomic.LoadInt32(&factoryCalls)).To(BeZero())
			Expect(sdk.requestedMethods()).To(BeEmpty())
		})

		It("returns the configured chain on success", func() {
			sdk.stubResult("wallet_switchEthereumChain", `null`)
			c, err := conn.SwitchChain(ctx, 56)
			Expect(err).NotTo(HaveOccurred())
			Expect(c.ID).To(Equal(int64(56)))
			Expect(c.Name).To(Equal("BNB Smart Chain"))
		})

		It("adds an unrecognized chain and returns the configured chain", func() {
			sdk.stubError("wallet_switchEthereumChain", &walletsdk.RPCError{
				Code:    4902,
				Message: "Unrecognized chain ID",
			})
			sdk.stubResult("wallet_addEthereumChain", `null`)

			c, err := conn.SwitchChain(ctx, 8453)
			Expect(err).NotTo(HaveOccurred())
			Expect(c).To(Equal(configured[2]))
			Expect(sdk.requestedMethods()).To(Equal([]string{
				"wallet_switchEthereumChain",
				"wallet_addEthereumChain",
			}))
		})

		It("classifies a rejected add prompt as user rejection", func() {
			sdk.stubError("wallet_switchEthereumChain", &walletsdk.RPCError{Code: 4902})
			sdk.stubError("wallet_addEthereumChain", errors.New("User rejected the request."))
			_, err := conn.SwitchChain(ctx, 8453)
			var rejected *connector.UserRejectedError
			Expect(errors.As(err, &rejected)).To(BeTrue())
		})

		It("wraps other add failures as AddChainError", func() {
			sdk.stubError("wallet_switchEthereumChain", &walletsdk.RPCError{Code: 4902})
			sdk.stubError("wallet_addEthereumChain", errors.New("rpc url unreachable"))
			_, err := conn.SwitchChain(ctx, 8453)
			var addErr *connector.AddChainError
			Expect(errors.As(err, &addErr)).To(BeTrue())
			Expect(addErr.ChainID).To(Equal(int64(8453)))
		})

		It("classifies a rejected switch prompt as user rejection", func() {
			sdk.stubError("wallet_switchEthereumChain", &walletsdk.RPCError{Code: 4001})
			_, err := conn.SwitchChain(ctx, 56)
			var rejected *connector.UserRejectedError
			Expect(errors.As(err, &rejected)).To(BeTrue())
		})

		It("wraps other switch failures with their cause", func() {
			cause := errors.New("wallet timeout")
			sdk.stubError("wallet_switchEthereumChain", cause)
			_, err := conn.SwitchChain(ctx, 56)
			var switchErr *connector.SwitchChainError
			Expect(errors.As(err, &switchErr)).To(BeTrue())
			Expect(errors.Is(err, cause)).To(BeTrue())
		})
	})

	Describe("WatchAsset", func() {
		It("defaults decimals to 18", func() {
			var seen int64
			sdk.stub("wallet_watchAsset", func(params any) (json.RawMessage, error) {
				seen = watchAssetDecimals(params)
				return json.RawMessage(`true`), nil
			})
			added, err := conn.WatchAsset(ctx, connector.WatchAssetParams{
				Address: lowerAccount,
				Symbol:  "TEST",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(added).To(BeTrue())
			Expect(seen).To(Equal(int64(18)))
		})

		It("keeps explicit decimals", func() {
			var seen int64
			sdk.stub("wallet_watchAsset", func(params any) (json.RawMessage, error) {
				seen = watchAssetDecimals(params)
				return json.RawMessage(`{"result":true}`), nil
			})
			added, err := conn.WatchAsset(ctx, connector.WatchAssetParams{
				Address:  lowerAccount,
				Symbol:   "USDC",
				Decimals: 6,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(added).To(BeTrue())
			Expect(seen).To(Equal(int64(6)))
		})

		It("returns the wallet's refusal", func() {
			sdk.stubResult("wallet_watchAsset", `false`)
			added, err := conn.WatchAsset(ctx, connector.WatchAssetParams{Address: lowerAccount})
			Expect(err).NotTo(HaveOccurred())
			Expect(added).To(BeFalse())
		})
	})

	Describe("event relay", func() {
		var events func() []connector.Event

		BeforeEach(func() {
			sdk.enableAccounts = []string{lowerAccount}
			sdk.stubResult("eth_chainId", `"0x1"`)
			_, err := conn.Connect(ctx, connector.ConnectOptions{})
			Expect(err).NotTo(HaveOccurred())
			events = collectEvents()
		})

		It("relays an emptied account list as disconnect", func() {
			sdk.fire(walletsdk.EventAccountsChanged, `[]`)
			Expect(events()).To(HaveLen(1))
			Expect(events()[0].Type).To(Equal(connector.EventDisconnect))
		})

		It("relays a new account as a change with checksum form", func() {
			sdk.fire(walletsdk.EventAccountsChanged, `["`+lowerAccount+`"]`)
			Expect(events()).To(HaveLen(1))
			Expect(events()[0].Type).To(Equal(connector.EventChange))
			Expect(events()[0].Account).To(Equal(checksumAccount))
		})

		It("relays chain moves with a normalized id and unsupported flag", func() {
			sdk.fire(walletsdk.EventChainChanged, `"0x539"`)
			Expect(events()).To(HaveLen(1))
			ev := events()[0]
			Expect(ev.Type).To(Equal(connector.EventChange))
			Expect(ev.Chain).NotTo(BeNil())
			Expect(ev.Chain.ID).To(Equal(int64(1337)))
			Expect(ev.Chain.Unsupported).To(BeTrue())
		})

		It("relays decimal-number chain ids", func() {
			sdk.fire(walletsdk.EventChainChanged, `56`)
			Expect(events()).To(HaveLen(1))
			Expect(events()[0].Chain.ID).To(Equal(int64(56)))
			Expect(events()[0].Chain.Unsupported).To(BeFalse())
		})

		It("relays SDK disconnects", func() {
			sdk.fire(walletsdk.EventDisconnect, `null`)
			Expect(events()).To(HaveLen(1))
			Expect(events()[0].Type).To(Equal(connector.EventDisconnect))
		})

		It("drops chainChanged events with unreadable ids", func() {
			sdk.fire(walletsdk.EventChainChanged, `"not-a-chain"`)
			Expect(events()).To(BeEmpty())
		})
	})
})

// watchAssetDecimals digs the decimals field out of wallet_watchAsset params.
func watchAssetDecimals(params any) int64 {
	raw, err := json.Marshal(params)
	Expect(err).NotTo(HaveOccurred())
	return gjson.GetBytes(raw, "options.decimals").Int()
}
