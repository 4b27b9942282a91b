package arb

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"arbScope/internal/model"
)

// firstLegOutputCeiling is the nominal readable output bound handed to the
// exact-output quote on the first leg. The quote targets the sqrt price
// limit, not this amount, so it only has to be larger than any real fill.
var firstLegOutputCeiling = big.NewFloat(1e20)

// Config holds evaluator tunables.
type Config struct {
	// Slippage is the fractional buffer applied to the second-leg target
	// price, in the direction that protects the trader.
	Slippage float64
	// QuoteTimeout bounds each external quote; expiry marks the setup
	// unusable instead of failing the whole search.
	QuoteTimeout time.Duration
	// AllowConstantProductFlash permits borrowing from a constant-product
	// pool. Off by default: flash swaps come from concentrated-liquidity
	// pools only.
	AllowConstantProductFlash bool
	// Parallel bounds concurrent setup evaluations during a search.
	Parallel int
	// Factory is the concentrated-liquidity factory used for address
	// derivation during discovery.
	Factory common.Address
	// PoolAddress derives a concentrated-liquidity pool address. Required.
	PoolAddress PoolAddressFunc
	// FeeTiers overrides the probed fee tiers; defaults to FeeTiers.
	FeeTiers []uint32
}

// TokenArbitrage scans a single token pair for triangular flash-swap
// arbitrage. The pair is held in canonical order, token0 having the lower
// address, and every price it computes is token1 per token0. Evaluations are
// stateless; all pool state is read live through the injected capabilities.
type TokenArbitrage struct {
	token0 model.Token
	token1 model.Token

	reader PoolReader
	quoter Quoter
	pairs  PairLookup
	cfg    Config
	logger *zap.Logger
}

// New builds a TokenArbitrage for the pair, ordering the tokens canonically
// regardless of argument order.
func New(tokenA, tokenB model.Token, reader PoolReader, quoter Quoter, pairs PairLookup, cfg Config, logger *zap.Logger) *TokenArbitrage {
	if bytes.Compare(tokenB.Address.Bytes(), tokenA.Address.Bytes()) < 0 {
		tokenA, tokenB = tokenB, tokenA
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(cfg.FeeTiers) == 0 {
		cfg.FeeTiers = FeeTiers
	}
	if cfg.Parallel < 1 {
		cfg.Parallel = 1
	}
	return &TokenArbitrage{
		token0: tokenA,
		token1: tokenB,
		reader: reader,
		quoter: quoter,
		pairs:  pairs,
		cfg:    cfg,
		logger: logger,
	}
}

// Token0 returns the canonically lower token of the pair.
func (t *TokenArbitrage) Token0() model.Token { return t.token0 }

// Token1 returns the canonically higher token of the pair.
func (t *TokenArbitrage) Token1() model.Token { return t.token1 }

// Price returns the pool's current token1-per-token0 price. Both pool kinds
// yield the price in the same units so the evaluator can compare them
// directly.
func (t *TokenArbitrage) Price(ctx context.Context, pool Pool) (*big.Float, error) {
	switch pool.Kind {
	case ConstantProduct:
		return t.constantProductPrice(ctx, pool)
	case ConcentratedLiquidity:
		return t.concentratedPrice(ctx, pool)
	default:
		return nil, fmt.Errorf("unknown pool kind %d", pool.Kind)
	}
}

func (t *TokenArbitrage) constantProductPrice(ctx context.Context, pool Pool) (*big.Float, error) {
	r0, r1, err := t.orientedReserves(ctx, pool)
	if err != nil {
		return nil, err
	}
	if r0.Sign() == 0 || r1.Sign() == 0 {
		return nil, fmt.Errorf("pool %s has empty reserves", pool.Address.Hex())
	}

	amount0 := new(big.Float).SetPrec(floatPrec).Quo(
		new(big.Float).SetPrec(floatPrec).SetInt(r0),
		pow10Float(int(t.token0.Decimals)),
	)
	amount1 := new(big.Float).SetPrec(floatPrec).Quo(
		new(big.Float).SetPrec(floatPrec).SetInt(r1),
		pow10Float(int(t.token1.Decimals)),
	)
	return amount1.Quo(amount1, amount0), nil
}

func (t *TokenArbitrage) concentratedPrice(ctx context.Context, pool Pool) (*big.Float, error) {
	oneToken0 := pow10(int(t.token0.Decimals))
	out, err := t.quoteExactInput(ctx, t.token0.Address, t.token1.Address, pool.FeeTier, oneToken0, big.NewInt(0))
	if err != nil {
		return nil, fmt.Errorf("quote unit price for pool %s: %w", pool.Address.Hex(), err)
	}

	price := new(big.Float).SetPrec(floatPrec).SetInt(out)
	return price.Quo(price, pow10Float(int(t.token1.Decimals))), nil
}

// orientedReserves reads a constant-product pool's reserves and swaps them if
// the pool registers the pair in the opposite order to the canonical one.
func (t *TokenArbitrage) orientedReserves(ctx context.Context, pool Pool) (*big.Int, *big.Int, error) {
	r0, r1, err := t.reader.Reserves(ctx, pool.Address)
	if err != nil {
		return nil, nil, fmt.Errorf("read reserves of %s: %w", pool.Address.Hex(), err)
	}
	poolToken0, err := t.reader.PairToken0(ctx, pool.Address)
	if err != nil {
		return nil, nil, fmt.Errorf("read token0 of %s: %w", pool.Address.Hex(), err)
	}
	if poolToken0 != t.token0.Address {
		r0, r1 = r1, r0
	}
	return r0, r1, nil
}

// Evaluate prices a candidate setup and computes the full trade: optimal
// flash input, both leg outputs, and the profit net of the flash fee. A
// setup the quoter cannot fill comes back with a nil Profit and a nil error;
// any other external failure propagates.
func (t *TokenArbitrage) Evaluate(ctx context.Context, setup ArbSetup) (Arb, error) {
	priceFirst, err := t.Price(ctx, setup.FirstSwapPool)
	if err != nil {
		return Arb{Setup: setup}, err
	}
	priceSecond, err := t.Price(ctx, setup.SecondSwapPool)
	if err != nil {
		return Arb{Setup: setup}, err
	}

	// The flash token is the one that is cheap on the first pool relative
	// to the second: buy the other token there, sell it back on the second.
	tokenA, tokenB := t.token0, t.token1
	if priceSecond.Cmp(priceFirst) > 0 {
		tokenA, tokenB = t.token1, t.token0
	}

	result := Arb{Setup: setup, FlashToken: tokenA}

	amountAIn, amountBOut, err := t.firstLeg(ctx, setup.FirstSwapPool, tokenA, tokenB, priceSecond)
	if err != nil {
		if t.setupUnusable(ctx, err) {
			t.logger.Debug("setup unusable on first leg",
				zap.String("first_swap_pool", setup.FirstSwapPool.Address.Hex()),
				zap.Error(err),
			)
			return result, nil
		}
		return result, err
	}
	result.FlashAmount = amountAIn
	result.FirstSwapOutMin = amountBOut
	if amountAIn.Sign() <= 0 || amountBOut.Sign() <= 0 {
		return result, nil
	}

	amountAFinal, err := t.secondLeg(ctx, setup.SecondSwapPool, tokenA, tokenB, priceSecond, amountBOut)
	if err != nil {
		if t.setupUnusable(ctx, err) {
			t.logger.Debug("setup unusable on second leg",
				zap.String("second_swap_pool", setup.SecondSwapPool.Address.Hex()),
				zap.Error(err),
			)
			return result, nil
		}
		return result, err
	}
	result.SecondSwapOutMin = amountAFinal

	profit := new(big.Int).Sub(amountAFinal, amountAIn)
	result.Profit = profit
	if profit.Sign() < 0 {
		// Unprofitable before fees; skip the flash fee read.
		return result, nil
	}

	flashFeeTier, err := t.poolFeeTier(ctx, setup.FlashPool)
	if err != nil {
		return result, err
	}
	flashFee := new(big.Int).Mul(amountAIn, big.NewInt(int64(flashFeeTier)))
	flashFee.Div(flashFee, big.NewInt(feeDenominator))
	profit.Sub(profit, flashFee)

	// Gas costs are the caller's concern; the profit here is pre-gas.

	t.logger.Debug("setup evaluated",
		zap.String("flash_pool", setup.FlashPool.Address.Hex()),
		zap.String("first_swap_pool", setup.FirstSwapPool.Address.Hex()),
		zap.String("second_swap_pool", setup.SecondSwapPool.Address.Hex()),
		zap.String("flash_token", tokenA.Symbol),
		zap.String("profit", ToReadableAmount(profit, tokenA.Decimals)),
	)

	return result, nil
}

// firstLeg computes the optimal flash input of tokenA and the resulting
// tokenB output from the first swap pool, targeting the second pool's price.
func (t *TokenArbitrage) firstLeg(ctx context.Context, pool Pool, tokenA, tokenB model.Token, targetPrice *big.Float) (*big.Int, *big.Int, error) {
	if pool.Kind == ConstantProduct {
		r0, r1, err := t.orientedReserves(ctx, pool)
		if err != nil {
			return nil, nil, err
		}

		// Target price in raw reserve units: raw token1 per raw token0.
		rawTarget := new(big.Float).SetPrec(floatPrec).Set(targetPrice)
		exp := int(t.token1.Decimals) - int(t.token0.Decimals)
		if exp >= 0 {
			rawTarget.Mul(rawTarget, pow10Float(exp))
		} else {
			rawTarget.Quo(rawTarget, pow10Float(-exp))
		}

		var amountAIn, amountBOut *big.Int
		if tokenA.Address == t.token0.Address {
			amountAIn = optimalConstantProductInput(r0, r1, rawTarget, pool.FeeTier)
			amountBOut = SwapOut(amountAIn, r0, r1, pool.FeeTier)
		} else {
			inverse := new(big.Float).SetPrec(floatPrec).Quo(big.NewFloat(1), rawTarget)
			amountAIn = optimalConstantProductInput(r1, r0, inverse, pool.FeeTier)
			amountBOut = SwapOut(amountAIn, r1, r0, pool.FeeTier)
		}
		return amountAIn, amountBOut, nil
	}

	sqrtPriceLimit := PriceToSqrtPriceX96(targetPrice, t.token0, t.token1)
	outputCeiling := ToRawAmount(firstLegOutputCeiling, tokenB.Decimals)

	// How much tokenA moves this pool's price to the target.
	amountAIn, err := t.quoteExactOutput(ctx, tokenA.Address, tokenB.Address, pool.FeeTier, outputCeiling, sqrtPriceLimit)
	if err != nil {
		return nil, nil, err
	}
	amountBOut, err := t.quoteExactInput(ctx, tokenA.Address, tokenB.Address, pool.FeeTier, amountAIn, sqrtPriceLimit)
	if err != nil {
		return nil, nil, err
	}
	return amountAIn, amountBOut, nil
}

// secondLeg swaps the first leg's tokenB output back into tokenA on the
// second pool.
func (t *TokenArbitrage) secondLeg(ctx context.Context, pool Pool, tokenA, tokenB model.Token, targetPrice *big.Float, amountBIn *big.Int) (*big.Int, error) {
	if pool.Kind == ConstantProduct {
		r0, r1, err := t.orientedReserves(ctx, pool)
		if err != nil {
			return nil, err
		}
		if tokenB.Address == t.token0.Address {
			return SwapOut(amountBIn, r0, r1, pool.FeeTier), nil
		}
		return SwapOut(amountBIn, r1, r0, pool.FeeTier), nil
	}

	// Buffer the target price against movement between quoting and
	// execution, in the direction that protects the trade.
	zeroForOne := bytes.Compare(tokenB.Address.Bytes(), tokenA.Address.Bytes()) < 0
	buffered := new(big.Float).SetPrec(floatPrec).Set(targetPrice)
	if zeroForOne {
		buffered.Mul(buffered, big.NewFloat(1-t.cfg.Slippage))
	} else {
		buffered.Mul(buffered, big.NewFloat(1+t.cfg.Slippage))
	}

	return t.quoteExactInput(ctx, tokenB.Address, tokenA.Address, pool.FeeTier, amountBIn, PriceToSqrtPriceX96(buffered, t.token0, t.token1))
}

// poolFeeTier returns the current fee of the flash pool. Concentrated
// pools are asked live; the constant-product fee is protocol-fixed.
func (t *TokenArbitrage) poolFeeTier(ctx context.Context, pool Pool) (uint32, error) {
	if pool.Kind == ConstantProduct {
		return pool.FeeTier, nil
	}
	fee, err := t.reader.FeeTier(ctx, pool.Address)
	if err != nil {
		return 0, fmt.Errorf("read fee of %s: %w", pool.Address.Hex(), err)
	}
	return fee, nil
}

func (t *TokenArbitrage) quoteExactInput(ctx context.Context, tokenIn, tokenOut common.Address, feeTier uint32, amountIn, sqrtPriceLimit *big.Int) (*big.Int, error) {
	ctx, cancel := t.quoteContext(ctx)
	defer cancel()
	return t.quoter.ExactInputSingle(ctx, tokenIn, tokenOut, feeTier, amountIn, sqrtPriceLimit)
}

func (t *TokenArbitrage) quoteExactOutput(ctx context.Context, tokenIn, tokenOut common.Address, feeTier uint32, amountOut, sqrtPriceLimit *big.Int) (*big.Int, error) {
	ctx, cancel := t.quoteContext(ctx)
	defer cancel()
	return t.quoter.ExactOutputSingle(ctx, tokenIn, tokenOut, feeTier, amountOut, sqrtPriceLimit)
}

func (t *TokenArbitrage) quoteContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if t.cfg.QuoteTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, t.cfg.QuoteTimeout)
}

// setupUnusable reports whether an evaluation error condemns only this setup:
// the quoter hit its price limit before the requested size, or a single
// quote timed out while the surrounding search is still live.
func (t *TokenArbitrage) setupUnusable(parent context.Context, err error) bool {
	if errors.Is(err, ErrPriceLimit) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) && parent.Err() == nil {
		return true
	}
	return false
}
