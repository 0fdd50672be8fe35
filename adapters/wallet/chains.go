package wallet

import "fmt"

// NativeCurrency describes a chain's gas token
type NativeCurrency struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
}

// ChainParams is the wallet_addEthereumChain parameter object
type ChainParams struct {
	ChainID           string         `json:"chainId"`
	ChainName         string         `json:"chainName"`
	NativeCurrency    NativeCurrency `json:"nativeCurrency"`
	RPCURLs           []string       `json:"rpcUrls"`
	BlockExplorerURLs []string       `json:"blockExplorerUrls"`
}

const (
	ChainBase        uint64 = 8453
	ChainBaseSepolia uint64 = 84532
)

var ether = NativeCurrency{Name: "Ether", Symbol: "ETH", Decimals: 18}

// ChainPreset returns the add-chain parameters for a supported chain
func ChainPreset(chainID uint64) (ChainParams, bool) {
	switch chainID {
	case ChainBase:
		return ChainParams{
			ChainID:           HexChainID(chainID),
			ChainName:         "Base",
			NativeCurrency:    ether,
			RPCURLs:           []string{"https://mainnet.base.org"},
			BlockExplorerURLs: []string{"https://basescan.org"},
		}, true
	case ChainBaseSepolia:
		return ChainParams{
			ChainID:           HexChainID(chainID),
			ChainName:         "Base Sepolia",
			NativeCurrency:    ether,
			RPCURLs:           []string{"https://sepolia.base.org"},
			BlockExplorerURLs: []string{"https://sepolia.basescan.org"},
		}, true
	}
	return ChainParams{}, false
}

// HexChainID renders a chain id the way wallets expect it
func HexChainID(chainID uint64) string {
	return fmt.Sprintf("0x%x", chainID)
}
