package broker

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"swaprouter/internal/chain"
)

// ApprovalStatus reports the live allowance state for one (owner, spender)
// pair. Always derived from a fresh contract read, never cached.
type ApprovalStatus struct {
	IsApproved bool
	Allowance  *big.Int
}

const approveFallbackGas = 60000

// CheckApproval reads the current allowance and compares it to amountNeeded.
func CheckApproval(ctx context.Context, caller ContractCaller, tokenAddr, owner, spender common.Address, amountNeeded *big.Int) (*ApprovalStatus, error) {
	parsed, err := ERC20ABI()
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}

	values, err := callMethod(ctx, caller, tokenAddr, parsed, "allowance", owner, spender)
	if err != nil {
		return nil, err
	}

	allowance, err := asBigInt(values[0])
	if err != nil {
		return nil, fmt.Errorf("allowance: %w", err)
	}

	return &ApprovalStatus{
		IsApproved: allowance.Cmp(amountNeeded) >= 0,
		Allowance:  allowance,
	}, nil
}

// Approve submits an ERC-20 approve transaction. Callers must check
// CheckApproval first; an already sufficient allowance never needs a new
// transaction.
func Approve(ctx context.Context, backend Backend, signer chain.Signer, chainID *big.Int, tokenAddr, spender common.Address, amount *big.Int) (*types.Transaction, error) {
	parsed, err := ERC20ABI()
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}

	data, err := parsed.Pack("approve", spender, amount)
	if err != nil {
		return nil, fmt.Errorf("pack approve: %w", err)
	}

	return submitCall(ctx, backend, signer, chainID, tokenAddr, data, approveFallbackGas)
}

// WaitForApproval blocks until the approval transaction has the requested
// confirmation count. Returns ErrReverted when the approval reverted.
func WaitForApproval(ctx context.Context, backend Backend, txHash common.Hash, confirmations uint64, opts WaitOptions) error {
	_, err := WaitMined(ctx, backend, txHash, confirmations, opts)
	if err != nil {
		return fmt.Errorf("approval: %w", err)
	}
	return nil
}
