// Package broker talks to the on-chain broker registry: market discovery,
// quoting, ERC-20 approvals, and swap execution.
package broker

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Sentinel errors callers can branch on with errors.Is.
var (
	// ErrNoMarket is returned when discovery finds no market for a pair.
	ErrNoMarket = errors.New("no market found for pair")
	// ErrReverted is returned when a confirmed transaction reverted on chain.
	ErrReverted = errors.New("transaction reverted")
	// ErrTimeout is returned when a confirmation wait exceeds its bound. The
	// transaction may still confirm later; callers decide whether to keep polling.
	ErrTimeout = errors.New("confirmation wait timed out")
)

// ContractCaller is the read-only contract access discovery and approval
// checks need. *chain.Client satisfies it.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Backend extends reads with everything transaction submission needs.
// *chain.Client satisfies it.
type Backend interface {
	ContractCaller
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
	LatestBlockNumber(ctx context.Context) (uint64, error)
}

// ExchangeInfo is an opaque route handle: the provider and market that can
// service a pair. Produced by discovery, consumed by execution, never persisted.
type ExchangeInfo struct {
	Provider common.Address
	MarketID [32]byte
}

func callMethod(ctx context.Context, caller ContractCaller, to common.Address, parsed abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}

	msg := ethereum.CallMsg{To: &to, Data: data}
	out, err := caller.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}

	values, err := parsed.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return values, nil
}

func asAddressSlice(value interface{}) ([]common.Address, error) {
	addrs, ok := value.([]common.Address)
	if !ok {
		return nil, fmt.Errorf("expected address slice, got %T", value)
	}
	return addrs, nil
}

func asBytes32Slice(value interface{}) ([][32]byte, error) {
	ids, ok := value.([][32]byte)
	if !ok {
		return nil, fmt.Errorf("expected bytes32 slice, got %T", value)
	}
	return ids, nil
}

func asBigInt(value interface{}) (*big.Int, error) {
	n, ok := value.(*big.Int)
	if !ok {
		return nil, fmt.Errorf("expected big integer, got %T", value)
	}
	return n, nil
}
