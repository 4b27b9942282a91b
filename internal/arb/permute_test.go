package arb

import (
	"fmt"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func testPools(n int) []Pool {
	pools := make([]Pool, n)
	for i := range pools {
		pools[i] = Pool{
			Kind:    ConcentratedLiquidity,
			Address: common.HexToAddress(fmt.Sprintf("0x%040x", i+1)),
			FeeTier: 3000,
		}
	}
	return pools
}

func TestPermuteAllArbsCardinality(t *testing.T) {
	cases := []struct {
		pools int
		want  int
	}{
		{0, 0},
		{2, 0},
		{3, 6},
		{4, 24},
		{5, 60},
	}

	for _, tc := range cases {
		got := PermuteAllArbs(testPools(tc.pools))
		if len(got) != tc.want {
			t.Fatalf("%d pools yielded %d setups, want %d", tc.pools, len(got), tc.want)
		}
	}
}

func TestPermuteAllArbsDistinctRoles(t *testing.T) {
	setups := PermuteAllArbs(testPools(5))

	seen := make(map[string]struct{}, len(setups))
	for _, setup := range setups {
		if setup.FlashPool.Address == setup.FirstSwapPool.Address ||
			setup.FlashPool.Address == setup.SecondSwapPool.Address ||
			setup.FirstSwapPool.Address == setup.SecondSwapPool.Address {
			t.Fatalf("setup reuses a pool: %+v", setup)
		}

		key := setup.FlashPool.Address.Hex() + setup.FirstSwapPool.Address.Hex() + setup.SecondSwapPool.Address.Hex()
		if _, dup := seen[key]; dup {
			t.Fatalf("duplicate setup emitted: %+v", setup)
		}
		seen[key] = struct{}{}
	}
}

func TestPermuteAllArbsDeterministic(t *testing.T) {
	pools := testPools(4)

	first := PermuteAllArbs(pools)
	second := PermuteAllArbs(pools)
	if len(first) != len(second) {
		t.Fatalf("length mismatch: %d != %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("setup %d differs between runs: %+v != %+v", i, first[i], second[i])
		}
	}

	// First setup keeps the identity ordering of the first combination.
	want := ArbSetup{FlashPool: pools[0], FirstSwapPool: pools[1], SecondSwapPool: pools[2]}
	if first[0] != want {
		t.Fatalf("first setup = %+v, want %+v", first[0], want)
	}
}
