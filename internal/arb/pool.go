package arb

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"arbScope/internal/model"
)

// PoolKind discriminates the two AMM models a pool can follow.
type PoolKind int

const (
	// ConstantProduct is an x*y=k pool priced by its reserve ratio.
	ConstantProduct PoolKind = iota
	// ConcentratedLiquidity is a fee-tiered pool priced via quoting calls.
	ConcentratedLiquidity
)

func (k PoolKind) String() string {
	switch k {
	case ConstantProduct:
		return "constant-product"
	case ConcentratedLiquidity:
		return "concentrated-liquidity"
	default:
		return "unknown"
	}
}

// Fee tiers probed for concentrated-liquidity pools, in parts per million.
var FeeTiers = []uint32{100, 500, 3000, 10000}

// ConstantProductFeeTier is the fixed constant-product swap fee (0.3%) in
// parts per million.
const ConstantProductFeeTier uint32 = 3000

// Pool identifies one AMM pool for a token pair. Pool state is always read
// live through the capabilities at use time; the struct carries identity only.
type Pool struct {
	Kind    PoolKind
	Address common.Address
	FeeTier uint32
}

// ArbSetup assigns the three roles of a flash-swap arbitrage to three
// distinct pools.
type ArbSetup struct {
	FlashPool      Pool
	FirstSwapPool  Pool
	SecondSwapPool Pool
}

// Arb is the outcome of evaluating one setup. Profit is denominated in the
// flash token's base units. A nil Profit means the setup could not be
// evaluated (insufficient liquidity for the required size); a negative Profit
// means it evaluated unprofitable.
type Arb struct {
	Profit           *big.Int
	Setup            ArbSetup
	FlashToken       model.Token
	FlashAmount      *big.Int
	FirstSwapOutMin  *big.Int
	SecondSwapOutMin *big.Int
}

// Profitable reports whether the setup nets a strictly positive profit.
func (a Arb) Profitable() bool {
	return a.Profit != nil && a.Profit.Sign() > 0
}
