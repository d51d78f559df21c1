package broker

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// TwoHopRoute holds the two legs of a swap routed through the hub token.
type TwoHopRoute struct {
	First  ExchangeInfo
	Second ExchangeInfo
}

// FindDirectExchange enumerates registered providers and their markets and
// returns the first market whose asset set contains both tokens.
//
// First-match semantics are deliberate: when several providers list the same
// pair there is no specified tie-break, so the registry's enumeration order
// wins. Returns ErrNoMarket when nothing matches.
func FindDirectExchange(ctx context.Context, caller ContractCaller, registry common.Address, tokenA, tokenB common.Address) (*ExchangeInfo, error) {
	parsed, err := RegistryABI()
	if err != nil {
		return nil, fmt.Errorf("parse registry abi: %w", err)
	}

	values, err := callMethod(ctx, caller, registry, parsed, "getProviders")
	if err != nil {
		return nil, err
	}
	providers, err := asAddressSlice(values[0])
	if err != nil {
		return nil, fmt.Errorf("providers: %w", err)
	}

	for _, provider := range providers {
		values, err = callMethod(ctx, caller, registry, parsed, "getMarketsFor", provider)
		if err != nil {
			return nil, err
		}
		markets, err := asBytes32Slice(values[0])
		if err != nil {
			return nil, fmt.Errorf("markets for %s: %w", provider.Hex(), err)
		}

		for _, marketID := range markets {
			values, err = callMethod(ctx, caller, registry, parsed, "getMarketTokens", provider, marketID)
			if err != nil {
				return nil, err
			}
			tokens, err := asAddressSlice(values[0])
			if err != nil {
				return nil, fmt.Errorf("market tokens: %w", err)
			}

			if containsBoth(tokens, tokenA, tokenB) {
				return &ExchangeInfo{Provider: provider, MarketID: marketID}, nil
			}
		}
	}

	return nil, fmt.Errorf("%w: %s/%s", ErrNoMarket, tokenA.Hex(), tokenB.Hex())
}

// FindTwoHopExchange looks for a route through the hub token when no direct
// market exists. Returns (nil, nil) when either leg is missing, and never
// routes through the hub when the hub is itself one of the endpoints.
func FindTwoHopExchange(ctx context.Context, caller ContractCaller, registry common.Address, tokenIn, tokenOut, hub common.Address) (*TwoHopRoute, error) {
	if tokenIn == hub || tokenOut == hub {
		return nil, nil
	}

	first, err := FindDirectExchange(ctx, caller, registry, tokenIn, hub)
	if err != nil {
		if errors.Is(err, ErrNoMarket) {
			return nil, nil
		}
		return nil, err
	}

	second, err := FindDirectExchange(ctx, caller, registry, hub, tokenOut)
	if err != nil {
		if errors.Is(err, ErrNoMarket) {
			return nil, nil
		}
		return nil, err
	}

	return &TwoHopRoute{First: *first, Second: *second}, nil
}

// Quote asks the registry how much tokenOut the market returns for amountIn.
func Quote(ctx context.Context, caller ContractCaller, registry common.Address, exchange ExchangeInfo, tokenIn, tokenOut common.Address, amountIn *big.Int) (*big.Int, error) {
	parsed, err := RegistryABI()
	if err != nil {
		return nil, fmt.Errorf("parse registry abi: %w", err)
	}

	values, err := callMethod(ctx, caller, registry, parsed, "getQuote", exchange.Provider, exchange.MarketID, tokenIn, tokenOut, amountIn)
	if err != nil {
		return nil, err
	}

	amountOut, err := asBigInt(values[0])
	if err != nil {
		return nil, fmt.Errorf("quote: %w", err)
	}
	return amountOut, nil
}

func containsBoth(tokens []common.Address, a, b common.Address) bool {
	foundA, foundB := false, false
	for _, t := range tokens {
		if t == a {
			foundA = true
		}
		if t == b {
			foundB = true
		}
	}
	return foundA && foundB
}
