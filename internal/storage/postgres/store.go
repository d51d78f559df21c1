// Package postgres persists swap history in Postgres.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"swaprouter/internal/storage"
)

// Store provides Postgres persistence for swap history.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// PutSwaps inserts a batch of swap records.
func (s *Store) PutSwaps(ctx context.Context, records []storage.Record) error {
	if len(records) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, r := range records {
		batch.Queue(`
			INSERT INTO swap_history (
				ts, from_chain_id, to_chain_id, from_token, to_token,
				amount, strategy, tx_hash, success, error, elapsed_seconds
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		`,
			r.Timestamp,
			int64(r.FromChainID),
			int64(r.ToChainID),
			r.FromToken,
			r.ToToken,
			r.Amount,
			r.Strategy,
			r.TxHash,
			r.Success,
			r.Error,
			r.ElapsedSeconds,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range records {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// RecentSwaps returns up to limit records, newest first.
func (s *Store) RecentSwaps(ctx context.Context, limit int) ([]storage.Record, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx, `
		SELECT ts, from_chain_id, to_chain_id, from_token, to_token,
		       amount, strategy, tx_hash, success, error, elapsed_seconds
		FROM swap_history
		ORDER BY ts DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []storage.Record
	for rows.Next() {
		var r storage.Record
		var fromChain, toChain int64
		if err := rows.Scan(&r.Timestamp, &fromChain, &toChain, &r.FromToken, &r.ToToken,
			&r.Amount, &r.Strategy, &r.TxHash, &r.Success, &r.Error, &r.ElapsedSeconds); err != nil {
			return nil, err
		}
		r.FromChainID = uint64(fromChain)
		r.ToChainID = uint64(toChain)
		records = append(records, r)
	}
	return records, rows.Err()
}
