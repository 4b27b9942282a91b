package arb

// rolePermutations lists all 3! orderings of a pool triple. Index 0 maps to
// the flash pool, 1 to the first swap pool, 2 to the second swap pool.
var rolePermutations = [6][3]int{
	{0, 1, 2},
	{0, 2, 1},
	{1, 0, 2},
	{1, 2, 0},
	{2, 0, 1},
	{2, 1, 0},
}

// PermuteAllArbs expands a pool list into every role assignment over every
// 3-pool subset: 6*C(n,3) setups for n pools, none for n < 3. Emission order
// is deterministic (lexicographic by combination, then permutation index).
func PermuteAllArbs(pools []Pool) []ArbSetup {
	if len(pools) < 3 {
		return nil
	}

	setups := make([]ArbSetup, 0, 6*len(pools)*(len(pools)-1)*(len(pools)-2)/6)
	for i := 0; i < len(pools); i++ {
		for j := i + 1; j < len(pools); j++ {
			for l := j + 1; l < len(pools); l++ {
				triple := [3]Pool{pools[i], pools[j], pools[l]}
				for _, perm := range rolePermutations {
					setups = append(setups, ArbSetup{
						FlashPool:      triple[perm[0]],
						FirstSwapPool:  triple[perm[1]],
						SecondSwapPool: triple[perm[2]],
					})
				}
			}
		}
	}
	return setups
}
