package arb

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// Pools discovers every live pool for the pair: one concentrated-liquidity
// pool per fee tier that answers its liveness probe, plus the
// constant-product pair if the factory knows one. A failed probe means the
// pool does not exist for this pair and is omitted without error.
func (t *TokenArbitrage) Pools(ctx context.Context) ([]Pool, error) {
	if t.cfg.PoolAddress == nil {
		return nil, fmt.Errorf("pool address derivation is not configured")
	}

	var pools []Pool
	for _, tier := range t.cfg.FeeTiers {
		address := t.cfg.PoolAddress(t.cfg.Factory, t.token0.Address, t.token1.Address, tier)
		if _, err := t.reader.FeeTier(ctx, address); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			t.logger.Debug("no concentrated-liquidity pool",
				zap.Uint32("fee_tier", tier),
				zap.String("token0", t.token0.Symbol),
				zap.String("token1", t.token1.Symbol),
			)
			continue
		}
		pools = append(pools, Pool{Kind: ConcentratedLiquidity, Address: address, FeeTier: tier})
	}

	pair, err := t.pairs.PairFor(ctx, t.token0.Address, t.token1.Address)
	if err != nil {
		return nil, fmt.Errorf("pair lookup: %w", err)
	}
	if pair == (common.Address{}) {
		t.logger.Debug("no constant-product pool",
			zap.String("token0", t.token0.Symbol),
			zap.String("token1", t.token1.Symbol),
		)
		return pools, nil
	}

	if _, err := t.reader.PairToken0(ctx, pair); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		t.logger.Debug("constant-product pool failed liveness probe",
			zap.String("pool", pair.Hex()),
			zap.Error(err),
		)
		return pools, nil
	}

	pools = append(pools, Pool{Kind: ConstantProduct, Address: pair, FeeTier: ConstantProductFeeTier})
	return pools, nil
}
