package swap

import (
	"errors"
	"strings"

	"swaprouter/internal/aggregator"
	"swaprouter/internal/broker"
)

// Error taxonomy. Unsupported and UserRejected are fatal: the orchestrator
// does not try further strategies. Everything else is retried via the next
// ranked strategy; a confirmed-reverted transaction itself is never resubmitted.
var (
	ErrUnsupported    = errors.New("unsupported swap")
	ErrNoRoute        = errors.New("no route found")
	ErrApprovalFailed = errors.New("approval failed")
	ErrReverted       = errors.New("swap reverted")
	ErrTimeout        = errors.New("swap timed out")
	ErrUserRejected   = errors.New("user rejected request")
)

// isFatal reports whether an error must stop the fail-over loop.
func isFatal(err error) bool {
	return errors.Is(err, ErrUnsupported) || errors.Is(err, ErrUserRejected)
}

// classify maps lower-layer errors into the taxonomy. Errors already in the
// taxonomy pass through.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrUnsupported), errors.Is(err, ErrNoRoute),
		errors.Is(err, ErrApprovalFailed), errors.Is(err, ErrReverted),
		errors.Is(err, ErrTimeout), errors.Is(err, ErrUserRejected):
		return err
	case errors.Is(err, broker.ErrNoMarket), errors.Is(err, aggregator.ErrNoRoutes):
		return errors.Join(ErrNoRoute, err)
	case errors.Is(err, broker.ErrReverted):
		return errors.Join(ErrReverted, err)
	case errors.Is(err, broker.ErrTimeout):
		return errors.Join(ErrTimeout, err)
	}

	lower := strings.ToLower(err.Error())
	switch {
	case strings.Contains(lower, "user rejected"), strings.Contains(lower, "user denied"):
		return errors.Join(ErrUserRejected, err)
	case strings.Contains(lower, "revert"):
		return errors.Join(ErrReverted, err)
	}
	return err
}

// friendlyMessage maps a technical error to actionable user-facing text via
// substring match against a fixed table. Revert-style errors get a distinct
// message; anything unrecognized falls back to a generic retry suggestion.
func friendlyMessage(err error) string {
	if err == nil {
		return ""
	}

	lower := strings.ToLower(err.Error())

	table := []struct {
		needle  string
		message string
	}{
		{"user rejected", "Transaction was rejected in your wallet."},
		{"user denied", "Transaction was rejected in your wallet."},
		{"insufficient funds", "Insufficient balance to cover the swap and gas fees."},
		{"insufficient allowance", "Token approval is required before this swap can run."},
		{"no route", "No swap route is available for this pair right now."},
		{"no market", "No swap route is available for this pair right now."},
		{"slippage", "Price moved beyond your slippage tolerance. Try a higher tolerance or a smaller amount."},
		{"insufficient_output_amount", "Price moved beyond your slippage tolerance. Try a higher tolerance or a smaller amount."},
		{"timed out", "The network is congested and the confirmation is taking too long. Your transaction may still complete."},
		{"timeout", "The network is congested and the confirmation is taking too long. Your transaction may still complete."},
		{"unsupported", "This token pair or network is not supported."},
		{"nonce too low", "A previous transaction is still pending. Wait for it to confirm and try again."},
	}
	for _, entry := range table {
		if strings.Contains(lower, entry.needle) {
			return entry.message
		}
	}

	if strings.Contains(lower, "revert") {
		return "The swap was rejected by the exchange contract. No funds were spent beyond gas."
	}

	return "The swap could not be completed. Please try again."
}
