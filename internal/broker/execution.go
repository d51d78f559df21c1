package broker

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"swaprouter/internal/chain"
)

const swapFallbackGas = 400000

// WaitOptions bounds a confirmation wait. Zero values fall back to defaults
// suitable for L1 block times.
type WaitOptions struct {
	PollInterval time.Duration
	MaxWait      time.Duration
}

func (o WaitOptions) withDefaults() WaitOptions {
	if o.PollInterval <= 0 {
		o.PollInterval = 3 * time.Second
	}
	if o.MaxWait <= 0 {
		o.MaxWait = 3 * time.Minute
	}
	return o
}

// ExecuteSwap submits the registry swap call with the caller-specified output
// floor. The contract enforces minAmountOut atomically; there are no partial
// fills.
func ExecuteSwap(ctx context.Context, backend Backend, signer chain.Signer, chainID *big.Int, registry common.Address, exchange ExchangeInfo, tokenIn, tokenOut common.Address, amountIn, minAmountOut *big.Int) (*types.Transaction, error) {
	parsed, err := RegistryABI()
	if err != nil {
		return nil, fmt.Errorf("parse registry abi: %w", err)
	}

	data, err := parsed.Pack("swap", exchange.Provider, exchange.MarketID, tokenIn, tokenOut, amountIn, minAmountOut)
	if err != nil {
		return nil, fmt.Errorf("pack swap: %w", err)
	}

	return submitCall(ctx, backend, signer, chainID, registry, data, swapFallbackGas)
}

// WaitForSwap blocks until the swap transaction has the requested confirmation
// count. Returns ErrReverted on revert and ErrTimeout when the bound elapses.
func WaitForSwap(ctx context.Context, backend Backend, txHash common.Hash, confirmations uint64, opts WaitOptions) (*types.Receipt, error) {
	receipt, err := WaitMined(ctx, backend, txHash, confirmations, opts)
	if err != nil {
		return nil, fmt.Errorf("swap: %w", err)
	}
	return receipt, nil
}

// WaitMined polls the read transport until the transaction is confirmed,
// reverted, or the wait bound elapses. The poll deliberately avoids the
// signer's transport so it also works for signers that cannot await their own
// broadcast.
func WaitMined(ctx context.Context, backend Backend, txHash common.Hash, confirmations uint64, opts WaitOptions) (*types.Receipt, error) {
	opts = opts.withDefaults()
	if confirmations == 0 {
		confirmations = 1
	}

	deadline := time.Now().Add(opts.MaxWait)
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrTimeout, ctx.Err())
		case <-timer.C:
		}

		receipt, err := backend.TransactionReceipt(ctx, txHash)
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			return nil, fmt.Errorf("get receipt for %s: %w", txHash.Hex(), err)
		}

		if receipt != nil {
			if receipt.Status == types.ReceiptStatusFailed {
				return nil, fmt.Errorf("%w: tx %s", ErrReverted, txHash.Hex())
			}

			latest, err := backend.LatestBlockNumber(ctx)
			if err != nil {
				return nil, fmt.Errorf("get latest block: %w", err)
			}
			if latest+1 >= receipt.BlockNumber.Uint64()+confirmations {
				return receipt, nil
			}
		}

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: tx %s not confirmed after %s", ErrTimeout, txHash.Hex(), opts.MaxWait)
		}

		timer.Reset(opts.PollInterval)
	}
}

// CalculateMinAmountOut applies the slippage tolerance to an expected output:
// floor = expected * (10000 - bps) / 10000, rounding down. The floor never
// exceeds the expected amount for any non-negative tolerance.
func CalculateMinAmountOut(expected *big.Int, slippageBps uint32) *big.Int {
	if expected == nil {
		return big.NewInt(0)
	}
	if slippageBps >= 10000 {
		return big.NewInt(0)
	}

	numerator := new(big.Int).Mul(expected, big.NewInt(int64(10000-slippageBps)))
	return numerator.Div(numerator, big.NewInt(10000))
}
