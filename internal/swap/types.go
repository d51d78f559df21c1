// Package swap contains the routing engine: the strategy contract, the
// concrete execution strategies, and the orchestrator that ranks them and
// fails over between them.
package swap

import (
	"fmt"
	"strings"

	"swaprouter/internal/chain"
)

// DefaultSlippageBps is applied when a request carries no tolerance.
const DefaultSlippageBps uint32 = 50

// Params describes one swap request. Tokens are symbolic identifiers resolved
// against the token registry; Amount is a human-readable decimal string.
// SlippageBps is the tolerance in basis points: nil means use the default,
// an explicit zero demands the full quoted amount.
type Params struct {
	FromToken   string
	ToToken     string
	FromChainID uint64
	ToChainID   uint64
	Amount      string
	UserAddress string
	SlippageBps *uint32
}

// Slippage returns the request tolerance, defaulted when unset.
func (p Params) Slippage() uint32 {
	if p.SlippageBps == nil {
		return DefaultSlippageBps
	}
	return *p.SlippageBps
}

// Validate checks the structural invariants of a request.
func (p Params) Validate() error {
	if strings.TrimSpace(p.Amount) == "" {
		return fmt.Errorf("%w: amount is required", ErrUnsupported)
	}
	if p.FromToken == "" || p.ToToken == "" {
		return fmt.Errorf("%w: both tokens are required", ErrUnsupported)
	}
	if p.FromChainID == p.ToChainID && strings.EqualFold(p.FromToken, p.ToToken) {
		return fmt.Errorf("%w: cannot swap %s for itself on %s", ErrUnsupported, p.FromToken, chain.NetworkName(p.FromChainID))
	}
	if p.UserAddress == "" {
		return fmt.Errorf("%w: user address is required", ErrUnsupported)
	}
	return nil
}

// Estimate is a quote for a request. Output amounts are human-readable
// decimal strings in the destination token; MinimumOutput never exceeds
// ExpectedOutput.
type Estimate struct {
	ExpectedOutput     string
	MinimumOutput      string
	PriceImpactPercent float64
	GasCostEstimate    string
}

// Step records one confirmed transaction of a multi-step execution.
type Step struct {
	Description string
	TxHash      string
}

// Result reports the outcome of an execution attempt. On success TxHash is
// the primary hash (the final hop for multi-hop swaps, the source-chain hash
// for bridges); on failure Error carries the user-facing message.
type Result struct {
	Success        bool
	TxHash         string
	ApprovalTxHash string
	Steps          []Step
	Strategy       string
	Error          string
}

// Callbacks are optional progress hooks fired synchronously as transactions
// are dispatched. They exist for progress reporting only, never for control
// flow; nil hooks are skipped.
type Callbacks struct {
	OnApprovalSubmitted func(txHash string)
	OnApprovalConfirmed func()
	OnSwapSubmitted     func(txHash string)
}

func (c Callbacks) approvalSubmitted(txHash string) {
	if c.OnApprovalSubmitted != nil {
		c.OnApprovalSubmitted(txHash)
	}
}

func (c Callbacks) approvalConfirmed() {
	if c.OnApprovalConfirmed != nil {
		c.OnApprovalConfirmed()
	}
}

func (c Callbacks) swapSubmitted(txHash string) {
	if c.OnSwapSubmitted != nil {
		c.OnSwapSubmitted(txHash)
	}
}
