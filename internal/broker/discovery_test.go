package broker

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
)

type marketKey struct {
	provider common.Address
	marketID [32]byte
}

// fakeRegistry answers registry eth_calls from in-memory tables.
type fakeRegistry struct {
	providers []common.Address
	markets   map[common.Address][][32]byte
	tokens    map[marketKey][]common.Address
	quotes    map[marketKey]*big.Int
	calls     int
}

func (f *fakeRegistry) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	f.calls++

	parsed, err := RegistryABI()
	if err != nil {
		return nil, err
	}
	method, err := parsed.MethodById(msg.Data[:4])
	if err != nil {
		return nil, err
	}
	args, err := method.Inputs.Unpack(msg.Data[4:])
	if err != nil {
		return nil, err
	}

	switch method.Name {
	case "getProviders":
		return method.Outputs.Pack(f.providers)
	case "getMarketsFor":
		provider := args[0].(common.Address)
		return method.Outputs.Pack(f.markets[provider])
	case "getMarketTokens":
		key := marketKey{provider: args[0].(common.Address), marketID: args[1].([32]byte)}
		return method.Outputs.Pack(f.tokens[key])
	case "getQuote":
		key := marketKey{provider: args[0].(common.Address), marketID: args[1].([32]byte)}
		quote, ok := f.quotes[key]
		if !ok {
			return nil, fmt.Errorf("no quote configured")
		}
		return method.Outputs.Pack(quote)
	default:
		return nil, fmt.Errorf("unexpected method %s", method.Name)
	}
}

func marketID(name string) [32]byte {
	var id [32]byte
	copy(id[:], name)
	return id
}

func addr(suffix string) common.Address {
	raw, err := hex.DecodeString(fmt.Sprintf("%040s", suffix))
	if err != nil {
		panic(err)
	}
	return common.BytesToAddress(raw)
}

var (
	registryAddr = addr("aa")
	tokenA       = addr("01")
	tokenB       = addr("02")
	hubToken     = addr("03")
	providerOne  = addr("11")
	providerTwo  = addr("12")
)

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{
		markets: make(map[common.Address][][32]byte),
		tokens:  make(map[marketKey][]common.Address),
		quotes:  make(map[marketKey]*big.Int),
	}
}

func (f *fakeRegistry) addMarket(provider common.Address, id [32]byte, tokens ...common.Address) {
	f.markets[provider] = append(f.markets[provider], id)
	f.tokens[marketKey{provider: provider, marketID: id}] = tokens
	for _, p := range f.providers {
		if p == provider {
			return
		}
	}
	f.providers = append(f.providers, provider)
}

func TestFindDirectExchange(t *testing.T) {
	reg := newFakeRegistry()
	reg.addMarket(providerOne, marketID("a-hub"), tokenA, hubToken)
	reg.addMarket(providerTwo, marketID("a-b"), tokenA, tokenB)

	got, err := FindDirectExchange(context.Background(), reg, registryAddr, tokenA, tokenB)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Provider != providerTwo || got.MarketID != marketID("a-b") {
		t.Fatalf("wrong market: %+v", got)
	}
}

func TestFindDirectExchangeFirstMatchWins(t *testing.T) {
	// Two providers list the same pair; enumeration order decides.
	reg := newFakeRegistry()
	reg.addMarket(providerOne, marketID("first"), tokenA, tokenB)
	reg.addMarket(providerTwo, marketID("second"), tokenA, tokenB)

	got, err := FindDirectExchange(context.Background(), reg, registryAddr, tokenA, tokenB)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Provider != providerOne || got.MarketID != marketID("first") {
		t.Fatalf("expected first registered market, got %+v", got)
	}
}

func TestFindDirectExchangeNoMarket(t *testing.T) {
	reg := newFakeRegistry()
	reg.addMarket(providerOne, marketID("a-hub"), tokenA, hubToken)

	_, err := FindDirectExchange(context.Background(), reg, registryAddr, tokenA, tokenB)
	if !errors.Is(err, ErrNoMarket) {
		t.Fatalf("expected ErrNoMarket, got %v", err)
	}
}

func TestFindTwoHopExchange(t *testing.T) {
	reg := newFakeRegistry()
	reg.addMarket(providerOne, marketID("a-hub"), tokenA, hubToken)
	reg.addMarket(providerTwo, marketID("hub-b"), hubToken, tokenB)

	route, err := FindTwoHopExchange(context.Background(), reg, registryAddr, tokenA, tokenB, hubToken)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if route == nil {
		t.Fatalf("expected a two-hop route")
	}
	if route.First.MarketID != marketID("a-hub") || route.Second.MarketID != marketID("hub-b") {
		t.Fatalf("wrong legs: %+v", route)
	}
}

func TestFindTwoHopExchangeMissingLeg(t *testing.T) {
	reg := newFakeRegistry()
	reg.addMarket(providerOne, marketID("a-hub"), tokenA, hubToken)
	// No hub->B market.

	route, err := FindTwoHopExchange(context.Background(), reg, registryAddr, tokenA, tokenB, hubToken)
	if err != nil {
		t.Fatalf("missing leg should not be an error: %v", err)
	}
	if route != nil {
		t.Fatalf("expected nil route, got %+v", route)
	}
}

func TestFindTwoHopExchangeHubIsEndpoint(t *testing.T) {
	reg := newFakeRegistry()
	reg.addMarket(providerOne, marketID("a-hub"), tokenA, hubToken)

	route, err := FindTwoHopExchange(context.Background(), reg, registryAddr, tokenA, hubToken, hubToken)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if route != nil {
		t.Fatalf("hub endpoint must not produce a two-hop route")
	}
	if reg.calls != 0 {
		t.Fatalf("hub endpoint check should short-circuit before any call, made %d", reg.calls)
	}
}

func TestQuote(t *testing.T) {
	reg := newFakeRegistry()
	reg.addMarket(providerOne, marketID("a-b"), tokenA, tokenB)
	reg.quotes[marketKey{provider: providerOne, marketID: marketID("a-b")}] = big.NewInt(98)

	exchange := ExchangeInfo{Provider: providerOne, MarketID: marketID("a-b")}
	out, err := Quote(context.Background(), reg, registryAddr, exchange, tokenA, tokenB, big.NewInt(100))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Cmp(big.NewInt(98)) != 0 {
		t.Fatalf("quote = %s, want 98", out)
	}
}
