// Package storage persists swap history records. Persistence is an audit
// trail only; routing decisions never read it.
package storage

import (
	"context"
	"time"
)

// Record is one completed or failed swap attempt.
type Record struct {
	Timestamp      time.Time `json:"timestamp"`
	FromChainID    uint64    `json:"from_chain_id"`
	ToChainID      uint64    `json:"to_chain_id"`
	FromToken      string    `json:"from_token"`
	ToToken        string    `json:"to_token"`
	Amount         string    `json:"amount"`
	Strategy       string    `json:"strategy,omitempty"`
	TxHash         string    `json:"tx_hash,omitempty"`
	Success        bool      `json:"success"`
	Error          string    `json:"error,omitempty"`
	ElapsedSeconds float64   `json:"elapsed_seconds"`
}

// Store defines a sink for swap history records.
type Store interface {
	PutSwaps(ctx context.Context, records []Record) error
	// RecentSwaps returns up to limit records, newest first.
	RecentSwaps(ctx context.Context, limit int) ([]Record, error)
}
