package arb

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"arbScope/internal/model"
)

var (
	testToken0 = model.Token{
		ChainID:  1,
		Address:  common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"),
		Decimals: 6,
		Symbol:   "TKA",
	}
	testToken1 = model.Token{
		ChainID:  1,
		Address:  common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"),
		Decimals: 6,
		Symbol:   "TKB",
	}
)

type fakeReader struct {
	fees     map[common.Address]uint32
	reserves map[common.Address][2]*big.Int
	token0s  map[common.Address]common.Address
}

func (f *fakeReader) FeeTier(_ context.Context, pool common.Address) (uint32, error) {
	fee, ok := f.fees[pool]
	if !ok {
		return 0, errors.New("no contract code at address")
	}
	return fee, nil
}

func (f *fakeReader) Reserves(_ context.Context, pool common.Address) (*big.Int, *big.Int, error) {
	r, ok := f.reserves[pool]
	if !ok {
		return nil, nil, errors.New("no contract code at address")
	}
	return new(big.Int).Set(r[0]), new(big.Int).Set(r[1]), nil
}

func (f *fakeReader) PairToken0(_ context.Context, pool common.Address) (common.Address, error) {
	token0, ok := f.token0s[pool]
	if !ok {
		return common.Address{}, errors.New("no contract code at address")
	}
	return token0, nil
}

type fakeQuoter struct {
	exactInput  func(tokenIn, tokenOut common.Address, feeTier uint32, amount, limit *big.Int) (*big.Int, error)
	exactOutput func(tokenIn, tokenOut common.Address, feeTier uint32, amount, limit *big.Int) (*big.Int, error)
}

func (f *fakeQuoter) ExactInputSingle(_ context.Context, tokenIn, tokenOut common.Address, feeTier uint32, amountIn, limit *big.Int) (*big.Int, error) {
	if f.exactInput == nil {
		return nil, errors.New("unexpected exact-input quote")
	}
	return f.exactInput(tokenIn, tokenOut, feeTier, amountIn, limit)
}

func (f *fakeQuoter) ExactOutputSingle(_ context.Context, tokenIn, tokenOut common.Address, feeTier uint32, amountOut, limit *big.Int) (*big.Int, error) {
	if f.exactOutput == nil {
		return nil, errors.New("unexpected exact-output quote")
	}
	return f.exactOutput(tokenIn, tokenOut, feeTier, amountOut, limit)
}

type fakePairs struct {
	pair common.Address
	err  error
}

func (f *fakePairs) PairFor(_ context.Context, _, _ common.Address) (common.Address, error) {
	return f.pair, f.err
}

var (
	flashPoolAddr = common.HexToAddress("0x1000000000000000000000000000000000000001")
	secondCLAddr  = common.HexToAddress("0x1000000000000000000000000000000000000002")
	shallowCPAddr = common.HexToAddress("0x2000000000000000000000000000000000000001")
	deepCPAddr    = common.HexToAddress("0x2000000000000000000000000000000000000002")
)

// Shallow constant-product pool quoting token1-per-token0 at 1.02, and a
// deep one at 1.00 whose own price impact is negligible.
func scenarioReader() *fakeReader {
	return &fakeReader{
		fees: map[common.Address]uint32{
			flashPoolAddr: 500,
			secondCLAddr:  3000,
		},
		reserves: map[common.Address][2]*big.Int{
			shallowCPAddr: {big.NewInt(1_000_000_000_000), big.NewInt(1_020_000_000_000)},
			deepCPAddr:    {big.NewInt(1_000_000_000_000_000), big.NewInt(1_000_000_000_000_000)},
		},
		token0s: map[common.Address]common.Address{
			shallowCPAddr: testToken0.Address,
			deepCPAddr:    testToken0.Address,
		},
	}
}

func newTestArbitrage(reader PoolReader, quoter Quoter, cfg Config) *TokenArbitrage {
	return New(testToken0, testToken1, reader, quoter, &fakePairs{}, cfg, zap.NewNop())
}

func TestCanonicalOrdering(t *testing.T) {
	forward := newTestArbitrage(&fakeReader{}, &fakeQuoter{}, Config{})
	reversed := New(testToken1, testToken0, &fakeReader{}, &fakeQuoter{}, &fakePairs{}, Config{}, zap.NewNop())

	if forward.Token0().Address != reversed.Token0().Address {
		t.Fatalf("token0 differs by construction order: %s != %s",
			forward.Token0().Address.Hex(), reversed.Token0().Address.Hex())
	}
	if forward.Token0().Address != testToken0.Address {
		t.Fatalf("token0 = %s, want the lower address %s",
			forward.Token0().Address.Hex(), testToken0.Address.Hex())
	}
	if forward.Token1().Address != testToken1.Address {
		t.Fatalf("token1 = %s, want %s", forward.Token1().Address.Hex(), testToken1.Address.Hex())
	}
}

func TestEvaluateConstantProductScenario(t *testing.T) {
	ta := newTestArbitrage(scenarioReader(), &fakeQuoter{}, Config{Slippage: 0.005})

	setup := ArbSetup{
		FlashPool:      Pool{Kind: ConcentratedLiquidity, Address: flashPoolAddr, FeeTier: 500},
		FirstSwapPool:  Pool{Kind: ConstantProduct, Address: shallowCPAddr, FeeTier: 0},
		SecondSwapPool: Pool{Kind: ConstantProduct, Address: deepCPAddr, FeeTier: 0},
	}

	result, err := ta.Evaluate(context.Background(), setup)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The first pool prices token0 above the second, so token0 is borrowed.
	if result.FlashToken.Address != testToken0.Address {
		t.Fatalf("flash token = %s, want token0", result.FlashToken.Symbol)
	}
	if !result.Profitable() {
		t.Fatalf("expected positive profit, got %v", result.Profit)
	}
	if result.FlashAmount == nil || result.FlashAmount.Sign() <= 0 {
		t.Fatalf("expected positive flash amount, got %v", result.FlashAmount)
	}

	// Net profit must stay under the naive 2% spread on the trade size.
	naive := new(big.Int).Mul(result.FlashAmount, big.NewInt(2))
	naive.Div(naive, big.NewInt(100))
	if result.Profit.Cmp(naive) >= 0 {
		t.Fatalf("profit %s not below naive spread %s", result.Profit, naive)
	}

	// Profit is the second leg's return minus the input and the flash fee.
	flashFee := new(big.Int).Mul(result.FlashAmount, big.NewInt(500))
	flashFee.Div(flashFee, big.NewInt(1_000_000))
	want := new(big.Int).Sub(result.SecondSwapOutMin, result.FlashAmount)
	want.Sub(want, flashFee)
	if result.Profit.Cmp(want) != 0 {
		t.Fatalf("profit = %s, want %s after flash fee netting", result.Profit, want)
	}
}

func TestEvaluateEqualPricesNotProfitable(t *testing.T) {
	reader := &fakeReader{
		fees: map[common.Address]uint32{flashPoolAddr: 500},
		reserves: map[common.Address][2]*big.Int{
			shallowCPAddr: {big.NewInt(1_000_000_000_000), big.NewInt(1_000_000_000_000)},
			deepCPAddr:    {big.NewInt(1_000_000_000_000), big.NewInt(1_000_000_000_000)},
		},
		token0s: map[common.Address]common.Address{
			shallowCPAddr: testToken0.Address,
			deepCPAddr:    testToken0.Address,
		},
	}
	ta := newTestArbitrage(reader, &fakeQuoter{}, Config{})

	pools := []Pool{
		{Kind: ConcentratedLiquidity, Address: flashPoolAddr, FeeTier: 500},
		{Kind: ConstantProduct, Address: shallowCPAddr, FeeTier: 3000},
		{Kind: ConstantProduct, Address: deepCPAddr, FeeTier: 3000},
	}

	best, found, err := ta.FindMaxProfitableArb(context.Background(), pools)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found {
		t.Fatalf("expected no arbitrage at equal prices, got profit %s", best.Profit)
	}
}

func TestEvaluateConcentratedFirstLeg(t *testing.T) {
	q96 := new(big.Int).Lsh(big.NewInt(1), 96)
	oneToken0 := big.NewInt(1_000_000)
	cannedIn := big.NewInt(5_000_000_000)
	cannedOut := big.NewInt(5_100_000_000)

	exactOutputCalls := 0
	quoter := &fakeQuoter{
		exactInput: func(tokenIn, tokenOut common.Address, feeTier uint32, amount, limit *big.Int) (*big.Int, error) {
			if amount.Cmp(oneToken0) == 0 {
				// Unit price probe: 1.02 token1 per token0, no price limit.
				if limit.Sign() != 0 {
					t.Errorf("unit probe got price limit %s", limit)
				}
				return big.NewInt(1_020_000), nil
			}
			if amount.Cmp(cannedIn) != 0 {
				t.Errorf("first leg input = %s, want %s", amount, cannedIn)
			}
			return new(big.Int).Set(cannedOut), nil
		},
		exactOutput: func(tokenIn, tokenOut common.Address, feeTier uint32, amount, limit *big.Int) (*big.Int, error) {
			exactOutputCalls++
			if tokenIn != testToken0.Address || tokenOut != testToken1.Address {
				t.Errorf("exact-output direction %s -> %s, want token0 -> token1", tokenIn.Hex(), tokenOut.Hex())
			}
			// The target price is the deep pool's 1.00, so the limit is 2^96.
			if limit.Cmp(q96) != 0 {
				t.Errorf("sqrt price limit = %s, want %s", limit, q96)
			}
			return new(big.Int).Set(cannedIn), nil
		},
	}

	ta := newTestArbitrage(scenarioReader(), quoter, Config{Slippage: 0.005})

	setup := ArbSetup{
		FlashPool:      Pool{Kind: ConcentratedLiquidity, Address: flashPoolAddr, FeeTier: 500},
		FirstSwapPool:  Pool{Kind: ConcentratedLiquidity, Address: secondCLAddr, FeeTier: 3000},
		SecondSwapPool: Pool{Kind: ConstantProduct, Address: deepCPAddr, FeeTier: 0},
	}

	result, err := ta.Evaluate(context.Background(), setup)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exactOutputCalls != 1 {
		t.Fatalf("exact-output quote called %d times, want 1", exactOutputCalls)
	}
	if result.FlashToken.Address != testToken0.Address {
		t.Fatalf("flash token = %s, want token0", result.FlashToken.Symbol)
	}
	if result.FlashAmount.Cmp(cannedIn) != 0 {
		t.Fatalf("flash amount = %s, want %s", result.FlashAmount, cannedIn)
	}
	if result.FirstSwapOutMin.Cmp(cannedOut) != 0 {
		t.Fatalf("first swap out = %s, want %s", result.FirstSwapOutMin, cannedOut)
	}
	if !result.Profitable() {
		t.Fatalf("expected positive profit, got %v", result.Profit)
	}

	flashFee := new(big.Int).Mul(cannedIn, big.NewInt(500))
	flashFee.Div(flashFee, big.NewInt(1_000_000))
	want := new(big.Int).Sub(result.SecondSwapOutMin, cannedIn)
	want.Sub(want, flashFee)
	if result.Profit.Cmp(want) != 0 {
		t.Fatalf("profit = %s, want %s", result.Profit, want)
	}
}

func TestEvaluateSlippageBuffersSecondLegLimit(t *testing.T) {
	q96 := new(big.Int).Lsh(big.NewInt(1), 96)
	oneToken0 := big.NewInt(1_000_000)

	var secondLegLimit *big.Int
	quoter := &fakeQuoter{
		exactInput: func(tokenIn, tokenOut common.Address, feeTier uint32, amount, limit *big.Int) (*big.Int, error) {
			if amount.Cmp(oneToken0) == 0 {
				// Second pool unit probe: 1.00 token1 per token0.
				return big.NewInt(1_000_000), nil
			}
			// Second leg: token1 back into token0.
			if tokenIn != testToken1.Address || tokenOut != testToken0.Address {
				t.Errorf("second leg direction %s -> %s, want token1 -> token0", tokenIn.Hex(), tokenOut.Hex())
			}
			secondLegLimit = new(big.Int).Set(limit)
			return big.NewInt(10_100_000_000), nil
		},
	}

	ta := newTestArbitrage(scenarioReader(), quoter, Config{Slippage: 0.005})

	// First pool is the shallow 1.02 constant-product pool, second is
	// concentrated; the borrowed token is token0, so the second leg sells
	// token1 (zeroForOne is false) and the buffered target moves up.
	setup := ArbSetup{
		FlashPool:      Pool{Kind: ConcentratedLiquidity, Address: flashPoolAddr, FeeTier: 500},
		FirstSwapPool:  Pool{Kind: ConstantProduct, Address: shallowCPAddr, FeeTier: 0},
		SecondSwapPool: Pool{Kind: ConcentratedLiquidity, Address: secondCLAddr, FeeTier: 3000},
	}

	result, err := ta.Evaluate(context.Background(), setup)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.FlashToken.Address != testToken0.Address {
		t.Fatalf("flash token = %s, want token0", result.FlashToken.Symbol)
	}
	if secondLegLimit == nil {
		t.Fatalf("second leg quote was not issued")
	}
	if secondLegLimit.Cmp(q96) <= 0 {
		t.Fatalf("second leg limit %s not buffered above target %s", secondLegLimit, q96)
	}
}

func TestEvaluatePriceLimitMarksSetupUnusable(t *testing.T) {
	oneToken0 := big.NewInt(1_000_000)
	quoter := &fakeQuoter{
		exactInput: func(_, _ common.Address, _ uint32, amount, _ *big.Int) (*big.Int, error) {
			if amount.Cmp(oneToken0) == 0 {
				return big.NewInt(1_020_000), nil
			}
			return nil, fmt.Errorf("quoteExactInputSingle: %w", ErrPriceLimit)
		},
		exactOutput: func(_, _ common.Address, _ uint32, _, _ *big.Int) (*big.Int, error) {
			return nil, fmt.Errorf("quoteExactOutputSingle: %w", ErrPriceLimit)
		},
	}

	ta := newTestArbitrage(scenarioReader(), quoter, Config{})

	setup := ArbSetup{
		FlashPool:      Pool{Kind: ConcentratedLiquidity, Address: flashPoolAddr, FeeTier: 500},
		FirstSwapPool:  Pool{Kind: ConcentratedLiquidity, Address: secondCLAddr, FeeTier: 3000},
		SecondSwapPool: Pool{Kind: ConstantProduct, Address: deepCPAddr, FeeTier: 0},
	}

	result, err := ta.Evaluate(context.Background(), setup)
	if err != nil {
		t.Fatalf("price limit should not be fatal, got %v", err)
	}
	if result.Profit != nil {
		t.Fatalf("expected undefined profit for unusable setup, got %s", result.Profit)
	}
}

// timeoutQuoter answers unit price probes and times out on every leg quote.
func timeoutQuoter() *fakeQuoter {
	oneToken0 := big.NewInt(1_000_000)
	return &fakeQuoter{
		exactInput: func(_, _ common.Address, _ uint32, amount, _ *big.Int) (*big.Int, error) {
			if amount.Cmp(oneToken0) == 0 {
				return big.NewInt(1_020_000), nil
			}
			return nil, fmt.Errorf("call quoteExactInputSingle: %w", context.DeadlineExceeded)
		},
		exactOutput: func(_, _ common.Address, _ uint32, _, _ *big.Int) (*big.Int, error) {
			return nil, fmt.Errorf("call quoteExactOutputSingle: %w", context.DeadlineExceeded)
		},
	}
}

func TestEvaluateQuoteTimeoutMarksSetupUnusable(t *testing.T) {
	ta := newTestArbitrage(scenarioReader(), timeoutQuoter(), Config{QuoteTimeout: 50 * time.Millisecond})

	setup := ArbSetup{
		FlashPool:      Pool{Kind: ConcentratedLiquidity, Address: flashPoolAddr, FeeTier: 500},
		FirstSwapPool:  Pool{Kind: ConcentratedLiquidity, Address: secondCLAddr, FeeTier: 3000},
		SecondSwapPool: Pool{Kind: ConstantProduct, Address: deepCPAddr, FeeTier: 0},
	}

	// The search context is still live, so a single quote deadline condemns
	// only this setup.
	result, err := ta.Evaluate(context.Background(), setup)
	if err != nil {
		t.Fatalf("quote timeout should not be fatal, got %v", err)
	}
	if result.Profit != nil {
		t.Fatalf("expected undefined profit for timed-out setup, got %s", result.Profit)
	}
}

func TestEvaluateExpiredSearchContextIsFatal(t *testing.T) {
	ta := newTestArbitrage(scenarioReader(), timeoutQuoter(), Config{QuoteTimeout: 50 * time.Millisecond})

	setup := ArbSetup{
		FlashPool:      Pool{Kind: ConcentratedLiquidity, Address: flashPoolAddr, FeeTier: 500},
		FirstSwapPool:  Pool{Kind: ConcentratedLiquidity, Address: secondCLAddr, FeeTier: 3000},
		SecondSwapPool: Pool{Kind: ConstantProduct, Address: deepCPAddr, FeeTier: 0},
	}

	// The deadline belongs to the whole search here, not to one quote, so
	// the failure must propagate.
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	if _, err := ta.Evaluate(ctx, setup); err == nil {
		t.Fatalf("expected fatal error when the search context itself expired")
	}
}

func TestEvaluateOtherQuoteErrorIsFatal(t *testing.T) {
	oneToken0 := big.NewInt(1_000_000)
	quoter := &fakeQuoter{
		exactInput: func(_, _ common.Address, _ uint32, amount, _ *big.Int) (*big.Int, error) {
			if amount.Cmp(oneToken0) == 0 {
				return big.NewInt(1_020_000), nil
			}
			return nil, errors.New("unexpected revert")
		},
		exactOutput: func(_, _ common.Address, _ uint32, _, _ *big.Int) (*big.Int, error) {
			return nil, errors.New("unexpected revert")
		},
	}

	ta := newTestArbitrage(scenarioReader(), quoter, Config{})

	setup := ArbSetup{
		FlashPool:      Pool{Kind: ConcentratedLiquidity, Address: flashPoolAddr, FeeTier: 500},
		FirstSwapPool:  Pool{Kind: ConcentratedLiquidity, Address: secondCLAddr, FeeTier: 3000},
		SecondSwapPool: Pool{Kind: ConstantProduct, Address: deepCPAddr, FeeTier: 0},
	}

	if _, err := ta.Evaluate(context.Background(), setup); err == nil {
		t.Fatalf("expected fatal error from unexpected quote failure")
	}
}

func TestFindMaxProfitableArbSkipsUnusableSetups(t *testing.T) {
	oneToken0 := big.NewInt(1_000_000)
	quoter := &fakeQuoter{
		exactInput: func(_, _ common.Address, _ uint32, amount, _ *big.Int) (*big.Int, error) {
			if amount.Cmp(oneToken0) == 0 {
				return big.NewInt(1_000_000), nil
			}
			return nil, fmt.Errorf("quoteExactInputSingle: %w", ErrPriceLimit)
		},
		exactOutput: func(_, _ common.Address, _ uint32, _, _ *big.Int) (*big.Int, error) {
			return nil, fmt.Errorf("quoteExactOutputSingle: %w", ErrPriceLimit)
		},
	}

	ta := newTestArbitrage(scenarioReader(), quoter, Config{Slippage: 0.005, Parallel: 4})

	pools := []Pool{
		{Kind: ConcentratedLiquidity, Address: flashPoolAddr, FeeTier: 500},
		{Kind: ConcentratedLiquidity, Address: secondCLAddr, FeeTier: 3000},
		{Kind: ConstantProduct, Address: shallowCPAddr, FeeTier: 0},
		{Kind: ConstantProduct, Address: deepCPAddr, FeeTier: 0},
	}

	best, found, err := ta.FindMaxProfitableArb(context.Background(), pools)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !found {
		t.Fatalf("expected a profitable setup despite unusable ones")
	}
	if !best.Profitable() {
		t.Fatalf("selected arb is not profitable: %v", best.Profit)
	}

	// The cheapest flash fee wins between the two viable role assignments.
	if best.Setup.FlashPool.Address != flashPoolAddr {
		t.Fatalf("flash pool = %s, want the 0.05%% tier pool", best.Setup.FlashPool.Address.Hex())
	}
	if best.Setup.FirstSwapPool.Address != shallowCPAddr || best.Setup.SecondSwapPool.Address != deepCPAddr {
		t.Fatalf("unexpected swap pools: %s, %s",
			best.Setup.FirstSwapPool.Address.Hex(), best.Setup.SecondSwapPool.Address.Hex())
	}
}

func TestFindMaxProfitableArbRequiresThreePools(t *testing.T) {
	ta := newTestArbitrage(&fakeReader{}, &fakeQuoter{}, Config{})

	pools := []Pool{
		{Kind: ConcentratedLiquidity, Address: flashPoolAddr, FeeTier: 500},
		{Kind: ConstantProduct, Address: deepCPAddr, FeeTier: 3000},
	}

	if _, _, err := ta.FindMaxProfitableArb(context.Background(), pools); !errors.Is(err, ErrNotEnoughPools) {
		t.Fatalf("error = %v, want ErrNotEnoughPools", err)
	}
}

func TestFindMaxProfitableArbExcludesConstantProductFlash(t *testing.T) {
	// Every setup with a constant-product flash pool is skipped under the
	// default policy; with only one concentrated pool, the flash role is
	// pinned to it.
	reader := scenarioReader()
	ta := newTestArbitrage(reader, &fakeQuoter{}, Config{Slippage: 0.005})

	pools := []Pool{
		{Kind: ConstantProduct, Address: shallowCPAddr, FeeTier: 0},
		{Kind: ConstantProduct, Address: deepCPAddr, FeeTier: 0},
		{Kind: ConcentratedLiquidity, Address: flashPoolAddr, FeeTier: 500},
	}

	best, found, err := ta.FindMaxProfitableArb(context.Background(), pools)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !found {
		t.Fatalf("expected a profitable setup")
	}
	if best.Setup.FlashPool.Kind != ConcentratedLiquidity {
		t.Fatalf("flash pool kind = %s, want concentrated-liquidity", best.Setup.FlashPool.Kind)
	}
}
