package arb

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ErrPriceLimit signals that a quote could not be filled before reaching its
// sqrt price limit. It marks a single setup as unusable, not a fatal failure.
var ErrPriceLimit = errors.New("quote reached price limit before requested size")

// ErrNotEnoughPools is returned when fewer than 3 pools exist for a pair.
var ErrNotEnoughPools = errors.New("fewer than 3 pools discovered for pair")

// PoolReader reads live pool contract state. Every call hits the chain; no
// state is cached between calls.
type PoolReader interface {
	// FeeTier returns the pool fee in parts per million.
	FeeTier(ctx context.Context, pool common.Address) (uint32, error)
	// Reserves returns the two reserve balances of a constant-product pool
	// in the pool's own token order.
	Reserves(ctx context.Context, pool common.Address) (*big.Int, *big.Int, error)
	// PairToken0 returns the first registered token of a constant-product pool.
	PairToken0(ctx context.Context, pool common.Address) (common.Address, error)
}

// Quoter simulates single-hop swaps against current chain state.
type Quoter interface {
	ExactInputSingle(ctx context.Context, tokenIn, tokenOut common.Address, feeTier uint32, amountIn, sqrtPriceLimitX96 *big.Int) (*big.Int, error)
	ExactOutputSingle(ctx context.Context, tokenIn, tokenOut common.Address, feeTier uint32, amountOut, sqrtPriceLimitX96 *big.Int) (*big.Int, error)
}

// PairLookup resolves the constant-product pair address for two tokens. A
// zero address means no pair exists.
type PairLookup interface {
	PairFor(ctx context.Context, tokenA, tokenB common.Address) (common.Address, error)
}

// PoolAddressFunc derives a concentrated-liquidity pool address from the
// factory, token pair, and fee tier without a network call.
type PoolAddressFunc func(factory, tokenA, tokenB common.Address, feeTier uint32) common.Address
