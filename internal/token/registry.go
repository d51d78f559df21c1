package token

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Info describes a token deployment on one chain.
type Info struct {
	Symbol   string
	Address  common.Address
	Decimals uint8
}

// Registry resolves symbolic token identifiers to per-chain deployments.
type Registry struct {
	byChain map[uint64]map[string]Info
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{byChain: make(map[uint64]map[string]Info)}
}

// DefaultRegistry returns a registry preloaded with the canonical deployments
// of the tokens routing knows about. Extend chain-by-chain as needed.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	// Ethereum mainnet
	r.Register(1, Info{Symbol: "WETH", Address: common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"), Decimals: 18})
	r.Register(1, Info{Symbol: "USDC", Address: common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"), Decimals: 6})
	r.Register(1, Info{Symbol: "USDT", Address: common.HexToAddress("0xdAC17F958D2ee523a2206206994597C13D831ec7"), Decimals: 6})
	r.Register(1, Info{Symbol: "DAI", Address: common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F"), Decimals: 18})
	r.Register(1, Info{Symbol: "WBTC", Address: common.HexToAddress("0x2260FAC5E5542a773Aa44fBCfeDf7C193bc2C599"), Decimals: 8})

	// Arbitrum One
	r.Register(42161, Info{Symbol: "WETH", Address: common.HexToAddress("0x82aF49447D8a07e3bd95BD0d56f35241523fBab1"), Decimals: 18})
	r.Register(42161, Info{Symbol: "USDC", Address: common.HexToAddress("0xaf88d065e77c8cC2239327C5EDb3A432268e5831"), Decimals: 6})
	r.Register(42161, Info{Symbol: "DAI", Address: common.HexToAddress("0xDA10009cBd5D07dd0CeCc66161FC93D7c9000da1"), Decimals: 18})

	// Base
	r.Register(8453, Info{Symbol: "WETH", Address: common.HexToAddress("0x4200000000000000000000000000000000000006"), Decimals: 18})
	r.Register(8453, Info{Symbol: "USDC", Address: common.HexToAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"), Decimals: 6})

	// Optimism
	r.Register(10, Info{Symbol: "WETH", Address: common.HexToAddress("0x4200000000000000000000000000000000000006"), Decimals: 18})
	r.Register(10, Info{Symbol: "USDC", Address: common.HexToAddress("0x0b2C639c533813f4Aa9D7837CAf62653d097Ff85"), Decimals: 6})

	// BNB Smart Chain
	r.Register(56, Info{Symbol: "WBNB", Address: common.HexToAddress("0xbb4CdB9CBd36B01bD1cBaEBF2De08d9173bc095c"), Decimals: 18})
	r.Register(56, Info{Symbol: "USDC", Address: common.HexToAddress("0x8AC76a51cc950d9822D68b83fE1Ad97B32Cd580d"), Decimals: 18})
	r.Register(56, Info{Symbol: "USDT", Address: common.HexToAddress("0x55d398326f99059fF775485246999027B3197955"), Decimals: 18})

	// Polygon
	r.Register(137, Info{Symbol: "WMATIC", Address: common.HexToAddress("0x0d500B1d8E8eF31E21C99d1Db9A6444d3ADf1270"), Decimals: 18})
	r.Register(137, Info{Symbol: "USDC", Address: common.HexToAddress("0x3c499c542cEF5E3811e1192ce70d8cC03d5c3359"), Decimals: 6})

	return r
}

// Register adds or replaces a token deployment. Symbols are case-insensitive.
func (r *Registry) Register(chainID uint64, info Info) {
	tokens, ok := r.byChain[chainID]
	if !ok {
		tokens = make(map[string]Info)
		r.byChain[chainID] = tokens
	}
	info.Symbol = strings.ToUpper(info.Symbol)
	tokens[info.Symbol] = info
}

// Resolve looks up a token symbol on a chain.
func (r *Registry) Resolve(chainID uint64, symbol string) (Info, error) {
	tokens, ok := r.byChain[chainID]
	if !ok {
		return Info{}, fmt.Errorf("no tokens registered for chain %d", chainID)
	}
	info, ok := tokens[strings.ToUpper(symbol)]
	if !ok {
		return Info{}, fmt.Errorf("token %q not registered on chain %d", symbol, chainID)
	}
	return info, nil
}
