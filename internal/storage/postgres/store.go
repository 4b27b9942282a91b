package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"arbScope/internal/model"
)

// Store provides Postgres persistence for arbitrage records.
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

// PutArbBatch appends discovered arbitrage records. One opportunity per pair
// per block is kept; a rescan of the same block updates it.
func (s *Store) PutArbBatch(ctx context.Context, arbs []model.ArbRecord) error {
	if len(arbs) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, arb := range arbs {
		batch.Queue(`
			INSERT INTO arbs (
				chain_id, block_number, pair, flash_pool, first_swap_pool, second_swap_pool,
				flash_token, flash_amount, first_swap_out_min, second_swap_out_min,
				profit, profit_readable, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, now(), now())
			ON CONFLICT (chain_id, pair, block_number)
			DO UPDATE SET
				flash_pool = EXCLUDED.flash_pool,
				first_swap_pool = EXCLUDED.first_swap_pool,
				second_swap_pool = EXCLUDED.second_swap_pool,
				flash_token = EXCLUDED.flash_token,
				flash_amount = EXCLUDED.flash_amount,
				first_swap_out_min = EXCLUDED.first_swap_out_min,
				second_swap_out_min = EXCLUDED.second_swap_out_min,
				profit = EXCLUDED.profit,
				profit_readable = EXCLUDED.profit_readable,
				updated_at = now()
		`,
			int64(arb.ChainID),
			int64(arb.BlockNumber),
			arb.Pair,
			arb.FlashPool,
			arb.FirstSwapPool,
			arb.SecondSwapPool,
			arb.FlashToken,
			arb.FlashAmount,
			arb.FirstSwapOutMin,
			arb.SecondSwapOutMin,
			arb.Profit,
			arb.ProfitReadable,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range arbs {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}
