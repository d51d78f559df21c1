package swap

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"swaprouter/internal/aggregator"
	"swaprouter/internal/broker"
	"swaprouter/internal/chain"
)

func newRouteExecutor(t *testing.T, backends map[uint64]broker.Backend) routeExecutor {
	t.Helper()
	signer, err := chain.NewLocalSigner(testPrivateKey)
	if err != nil {
		t.Fatalf("signer: %v", err)
	}
	return routeExecutor{
		backends:      backends,
		signer:        signer,
		confirmations: 1,
		wait:          broker.WaitOptions{PollInterval: time.Millisecond, MaxWait: 100 * time.Millisecond},
		logger:        zap.NewNop(),
	}
}

func approveStep(chainID uint64, to common.Address) aggregator.Step {
	return aggregator.Step{
		Type:    aggregator.StepApprove,
		ChainID: chainID,
		Tx:      aggregator.TxRequest{To: to.Hex(), Data: "0x095ea7b3"},
	}
}

func swapStep(chainID uint64, to common.Address) aggregator.Step {
	return aggregator.Step{
		Type:    aggregator.StepSwap,
		ChainID: chainID,
		Tx:      aggregator.TxRequest{To: to.Hex(), Data: "0xdeadbeef"},
	}
}

func TestRouteExecutorRunsStepsInOrder(t *testing.T) {
	backend := newFakeChain()
	exec := newRouteExecutor(t, map[uint64]broker.Backend{1: backend})

	var order []string
	cb := Callbacks{
		OnApprovalSubmitted: func(string) { order = append(order, "approval-submitted") },
		OnApprovalConfirmed: func() { order = append(order, "approval-confirmed") },
		OnSwapSubmitted:     func(string) { order = append(order, "swap-submitted") },
	}

	route := &aggregator.Route{
		ID:    "r1",
		Steps: []aggregator.Step{approveStep(1, tokenTKA), swapStep(1, testRegistry)},
	}

	outcome, err := exec.run(context.Background(), route, cb)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(backend.sent) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(backend.sent))
	}
	if to := backend.sent[0].To(); to == nil || *to != tokenTKA {
		t.Fatalf("first transaction must be the approval, went to %v", to)
	}
	if to := backend.sent[1].To(); to == nil || *to != testRegistry {
		t.Fatalf("second transaction must be the swap, went to %v", to)
	}

	if outcome.approvalHash != backend.sent[0].Hash().Hex() {
		t.Fatalf("approval hash mismatch")
	}
	if outcome.primaryHash != backend.sent[1].Hash().Hex() {
		t.Fatalf("primary hash must be the swap step's")
	}
	if len(outcome.steps) != 2 {
		t.Fatalf("expected 2 recorded steps, got %+v", outcome.steps)
	}

	want := []string{"approval-submitted", "approval-confirmed", "swap-submitted"}
	if len(order) != len(want) {
		t.Fatalf("callback order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("callback order = %v, want %v", order, want)
		}
	}
}

func TestRouteExecutorPrimaryHashIsLastNonApproveStep(t *testing.T) {
	backend := newFakeChain()
	exec := newRouteExecutor(t, map[uint64]broker.Backend{1: backend})

	bridge := aggregator.Step{
		Type:    aggregator.StepBridge,
		ChainID: 1,
		Tx:      aggregator.TxRequest{To: tokenTKB.Hex(), Data: "0x01"},
	}
	route := &aggregator.Route{
		ID:    "r2",
		Steps: []aggregator.Step{approveStep(1, tokenTKA), swapStep(1, testRegistry), bridge},
	}

	outcome, err := exec.run(context.Background(), route, Callbacks{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(backend.sent) != 3 {
		t.Fatalf("expected 3 transactions, got %d", len(backend.sent))
	}
	if outcome.primaryHash != backend.sent[2].Hash().Hex() {
		t.Fatalf("primary hash must be the final non-approve step's")
	}
}

func TestRouteExecutorRejectsRouteWithoutSwapStep(t *testing.T) {
	backend := newFakeChain()
	exec := newRouteExecutor(t, map[uint64]broker.Backend{1: backend})

	route := &aggregator.Route{ID: "r3", Steps: []aggregator.Step{approveStep(1, tokenTKA)}}
	_, err := exec.run(context.Background(), route, Callbacks{})
	if err == nil || !strings.Contains(err.Error(), "no executable swap step") {
		t.Fatalf("expected no-swap-step error, got %v", err)
	}
}

func TestRouteExecutorEmptyRoute(t *testing.T) {
	exec := newRouteExecutor(t, map[uint64]broker.Backend{1: newFakeChain()})

	_, err := exec.run(context.Background(), &aggregator.Route{ID: "r4"}, Callbacks{})
	if !errors.Is(err, ErrNoRoute) {
		t.Fatalf("expected ErrNoRoute, got %v", err)
	}
}

func TestRouteExecutorUnknownChain(t *testing.T) {
	exec := newRouteExecutor(t, map[uint64]broker.Backend{1: newFakeChain()})

	route := &aggregator.Route{ID: "r5", Steps: []aggregator.Step{swapStep(137, testRegistry)}}
	_, err := exec.run(context.Background(), route, Callbacks{})
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported for a chain with no client, got %v", err)
	}
}

// refusingBackend rejects submissions to one address.
type refusingBackend struct {
	*fakeChain
	refuse common.Address
}

func (b *refusingBackend) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	if tx.To() != nil && *tx.To() == b.refuse {
		return errors.New("execution reverted: transfer amount exceeds balance")
	}
	return b.fakeChain.SendTransaction(ctx, tx)
}

func TestRouteExecutorApprovalFailureClassified(t *testing.T) {
	backend := &refusingBackend{fakeChain: newFakeChain(), refuse: tokenTKA}
	exec := newRouteExecutor(t, map[uint64]broker.Backend{1: backend})

	route := &aggregator.Route{
		ID:    "r6",
		Steps: []aggregator.Step{approveStep(1, tokenTKA), swapStep(1, testRegistry)},
	}
	_, err := exec.run(context.Background(), route, Callbacks{})
	if !errors.Is(err, ErrApprovalFailed) {
		t.Fatalf("failed approve step must classify as ErrApprovalFailed, got %v", err)
	}
	if len(backend.sent) != 0 {
		t.Fatalf("the swap step must not run after a failed approval")
	}
}

func TestAggregatorStrategySupports(t *testing.T) {
	s := NewAggregatorStrategy(AggregatorStrategyConfig{Chains: []uint64{1, 56}}, nil, nil, nil, testTokens(), nil)

	cases := []struct {
		name string
		from uint64
		to   uint64
		want bool
	}{
		{"same chain serviced", 1, 1, true},
		{"cross chain", 1, 56, false},
		{"same chain not serviced", 137, 137, false},
		{"unsupported chain", 999999, 999999, false},
	}
	for _, tc := range cases {
		params := brokerParams("TKA", "TKB")
		params.FromChainID = tc.from
		params.ToChainID = tc.to
		if got := s.Supports(params); got != tc.want {
			t.Fatalf("%s: Supports = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestBridgeStrategySupports(t *testing.T) {
	s := NewBridgeStrategy(AggregatorStrategyConfig{Chains: []uint64{1, 56, 10}}, nil, nil, nil, testTokens(), nil)

	cases := []struct {
		name string
		from uint64
		to   uint64
		want bool
	}{
		{"cross chain serviced", 1, 56, true},
		{"same chain", 1, 1, false},
		{"same family is not cross chain", 1, 10, false},
		{"destination not serviced", 1, 137, false},
		{"unsupported source", 999999, 56, false},
	}
	for _, tc := range cases {
		params := brokerParams("TKA", "TKB")
		params.FromChainID = tc.from
		params.ToChainID = tc.to
		if got := s.Supports(params); got != tc.want {
			t.Fatalf("%s: Supports = %v, want %v", tc.name, got, tc.want)
		}
	}
}
