package storage

import (
	"context"

	"arbScope/internal/model"
)

// Storage defines a sink for arbitrage records.
type Storage interface {
	PutArbBatch(ctx context.Context, arbs []model.ArbRecord) error
}
