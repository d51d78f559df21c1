package broker

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

func TestCalculateMinAmountOut(t *testing.T) {
	cases := []struct {
		expected string
		bps      uint32
		want     string
	}{
		{"98000000000000000000", 50, "97510000000000000000"}, // 98 * 9950/10000 = 97.51
		{"100", 0, "100"},                                   // zero tolerance keeps the full amount
		{"100", 100, "99"},
		{"1000000", 9999, "100"},
		{"7", 50, "6"}, // rounds down
		{"100", 10000, "0"},
		{"100", 20000, "0"},
	}
	for _, tc := range cases {
		expected, ok := new(big.Int).SetString(tc.expected, 10)
		if !ok {
			t.Fatalf("bad test input %q", tc.expected)
		}
		got := CalculateMinAmountOut(expected, tc.bps)
		if got.String() != tc.want {
			t.Fatalf("CalculateMinAmountOut(%s, %d) = %s, want %s", tc.expected, tc.bps, got, tc.want)
		}
		if got.Cmp(expected) > 0 {
			t.Fatalf("floor %s exceeds expected %s", got, expected)
		}
	}
}

func TestCalculateMinAmountOutNeverExceedsExpected(t *testing.T) {
	expected := big.NewInt(123456789)
	for bps := uint32(0); bps <= 10000; bps += 97 {
		floor := CalculateMinAmountOut(expected, bps)
		if floor.Cmp(expected) > 0 {
			t.Fatalf("bps=%d: floor %s > expected %s", bps, floor, expected)
		}
	}
}

// fakeBackend serves receipt polls from a script: nil entries mean "still
// pending".
type fakeBackend struct {
	receipts []*types.Receipt
	latest   uint64
	polls    int
}

func (f *fakeBackend) CallContract(context.Context, ethereum.CallMsg, *big.Int) ([]byte, error) {
	return nil, errors.New("not used")
}

func (f *fakeBackend) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	return 0, nil
}

func (f *fakeBackend) SuggestGasPrice(context.Context) (*big.Int, error) {
	return big.NewInt(1), nil
}

func (f *fakeBackend) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	return 21000, nil
}

func (f *fakeBackend) SendTransaction(context.Context, *types.Transaction) error {
	return nil
}

func (f *fakeBackend) TransactionReceipt(context.Context, common.Hash) (*types.Receipt, error) {
	idx := f.polls
	if idx >= len(f.receipts) {
		idx = len(f.receipts) - 1
	}
	f.polls++
	if idx < 0 || f.receipts[idx] == nil {
		return nil, ethereum.NotFound
	}
	return f.receipts[idx], nil
}

func (f *fakeBackend) LatestBlockNumber(context.Context) (uint64, error) {
	return f.latest, nil
}

func fastWait() WaitOptions {
	return WaitOptions{PollInterval: time.Millisecond, MaxWait: 100 * time.Millisecond}
}

func TestWaitMinedSuccess(t *testing.T) {
	mined := &types.Receipt{Status: types.ReceiptStatusSuccessful, BlockNumber: big.NewInt(10)}
	backend := &fakeBackend{receipts: []*types.Receipt{nil, nil, mined}, latest: 11}

	receipt, err := WaitMined(context.Background(), backend, common.HexToHash("0x1"), 2, fastWait())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if receipt.BlockNumber.Uint64() != 10 {
		t.Fatalf("wrong receipt: %+v", receipt)
	}
	if backend.polls < 3 {
		t.Fatalf("expected at least 3 polls, got %d", backend.polls)
	}
}

func TestWaitMinedWaitsForConfirmations(t *testing.T) {
	mined := &types.Receipt{Status: types.ReceiptStatusSuccessful, BlockNumber: big.NewInt(10)}
	// Only 1 confirmation available but 5 requested.
	backend := &fakeBackend{receipts: []*types.Receipt{mined}, latest: 10}

	_, err := WaitMined(context.Background(), backend, common.HexToHash("0x1"), 5, fastWait())
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout while confirmations pending, got %v", err)
	}
}

func TestWaitMinedReverted(t *testing.T) {
	reverted := &types.Receipt{Status: types.ReceiptStatusFailed, BlockNumber: big.NewInt(10)}
	backend := &fakeBackend{receipts: []*types.Receipt{reverted}, latest: 12}

	_, err := WaitMined(context.Background(), backend, common.HexToHash("0x1"), 1, fastWait())
	if !errors.Is(err, ErrReverted) {
		t.Fatalf("expected ErrReverted, got %v", err)
	}
	if errors.Is(err, ErrTimeout) {
		t.Fatalf("revert must not be reported as timeout")
	}
}

func TestWaitMinedTimeout(t *testing.T) {
	backend := &fakeBackend{receipts: []*types.Receipt{nil}, latest: 12}

	_, err := WaitMined(context.Background(), backend, common.HexToHash("0x1"), 1, WaitOptions{PollInterval: time.Millisecond, MaxWait: 10 * time.Millisecond})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestWaitMinedContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	backend := &fakeBackend{receipts: []*types.Receipt{nil}, latest: 12}
	_, err := WaitMined(ctx, backend, common.HexToHash("0x1"), 1, fastWait())
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("cancellation should surface as ErrTimeout, got %v", err)
	}
}
