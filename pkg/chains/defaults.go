package chains

// Ether is the native currency shared by Ethereum and its L2s.
var Ether = NativeCurrency{Name: "Ether", Symbol: "ETH", Decimals: 18}

// DefaultChains returns pre-configured metadata for the networks supported
// out of the box: Ethereum mainnet, Sepolia, Base, and Binance Smart Chain.
//
// Applications with their own RPC infrastructure should override RPCURLs
// before handing the list to a connector.
func DefaultChains() []Chain {
	return []Chain{
		{
			ID:             1,
			Name:           "Ethereum",
			Network:        "homestead",
			NativeCurrency: Ether,
			RPCURLs: RPCURLs{
				Default: "https://cloudflare-eth.com",
				Public:  "https://cloudflare-eth.com",
			},
			BlockExplorers: []BlockExplorer{
				{Name: "Etherscan", URL: "https://etherscan.io"},
			},
		},
		{
			ID:             11155111,
			Name:           "Sepolia",
			Network:        "sepolia",
			NativeCurrency: NativeCurrency{Name: "Sepolia Ether", Symbol: "SEP", Decimals: 18},
			RPCURLs: RPCURLs{
				Default: "https://rpc.sepolia.org",
				Public:  "https://rpc.sepolia.org",
			},
			BlockExplorers: []BlockExplorer{
				{Name: "Etherscan", URL: "https://sepolia.etherscan.io"},
			},
		},
		{
			ID:             8453,
			Name:           "Base",
			Network:        "base",
			NativeCurrency: Ether,
			RPCURLs: RPCURLs{
				Default: "https://mainnet.base.org",
				Public:  "https://mainnet.base.org",
			},
			BlockExplorers: []BlockExplorer{
				{Name: "Basescan", URL: "https://basescan.org"},
			},
		},
		{
			ID:             56,
			Name:           "BNB Smart Chain",
			Network:        "bsc",
			NativeCurrency: NativeCurrency{Name: "BNB", Symbol: "BNB", Decimals: 18},
			RPCURLs: RPCURLs{
				Default: "https://bsc-dataseed.binance.org",
				Public:  "https://bsc-dataseed.binance.org",
			},
			BlockExplorers: []BlockExplorer{
				{Name: "BscScan", URL: "https://bscscan.com"},
			},
		},
	}
}
