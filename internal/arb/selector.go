package arb

import (
	"context"
	"sync"
)

// FindMaxProfitableArb evaluates every setup over the given pools and
// returns the single most profitable one, if any nets a strictly positive
// profit. Evaluations run on a bounded worker pool; each one re-reads pool
// state independently and only the running maximum is shared, under a mutex.
// Equal profits resolve to the earliest setup in enumeration order.
func (t *TokenArbitrage) FindMaxProfitableArb(ctx context.Context, pools []Pool) (Arb, bool, error) {
	if len(pools) < 3 {
		return Arb{}, false, ErrNotEnoughPools
	}

	setups := PermuteAllArbs(pools)

	evalCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu       sync.Mutex
		best     Arb
		bestIdx  = -1
		firstErr error
	)

	sem := make(chan struct{}, t.cfg.Parallel)
	var wg sync.WaitGroup

	for i, setup := range setups {
		if !t.cfg.AllowConstantProductFlash && setup.FlashPool.Kind == ConstantProduct {
			continue
		}
		if evalCtx.Err() != nil {
			break
		}

		sem <- struct{}{}
		wg.Add(1)
		go func(idx int, setup ArbSetup) {
			defer wg.Done()
			defer func() { <-sem }()

			result, err := t.Evaluate(evalCtx, setup)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil && evalCtx.Err() == nil {
					firstErr = err
					cancel()
				}
				return
			}
			if !result.Profitable() {
				return
			}
			if bestIdx < 0 ||
				result.Profit.Cmp(best.Profit) > 0 ||
				(result.Profit.Cmp(best.Profit) == 0 && idx < bestIdx) {
				best = result
				bestIdx = idx
			}
		}(i, setup)
	}

	wg.Wait()

	if firstErr != nil {
		return Arb{}, false, firstErr
	}
	if err := ctx.Err(); err != nil {
		return Arb{}, false, err
	}
	if bestIdx < 0 {
		return Arb{}, false, nil
	}
	return best, true, nil
}

// FindBestArb is the per-pair entry point: discover the pair's pools, then
// search them for the best arbitrage.
func (t *TokenArbitrage) FindBestArb(ctx context.Context) (Arb, bool, error) {
	pools, err := t.Pools(ctx)
	if err != nil {
		return Arb{}, false, err
	}
	return t.FindMaxProfitableArb(ctx, pools)
}
