package arb

import "math/big"

// feeDenominator is the parts-per-million scale shared by every fee tier.
const feeDenominator = 1_000_000

// SwapOut computes the output amount of a constant-product swap:
// amountInAfterFee = floor(amountIn * (1 - fee)), then
// reserveOut * amountInAfterFee / (reserveIn + amountInAfterFee) with floor
// division, matching the on-chain contract's rounding exactly. Returns zero
// for a non-positive input or empty reserves.
func SwapOut(amountIn, reserveIn, reserveOut *big.Int, feeTier uint32) *big.Int {
	if amountIn == nil || amountIn.Sign() <= 0 {
		return big.NewInt(0)
	}
	if reserveIn == nil || reserveIn.Sign() <= 0 || reserveOut == nil || reserveOut.Sign() <= 0 {
		return big.NewInt(0)
	}

	afterFee := new(big.Int).Mul(amountIn, big.NewInt(int64(feeDenominator-feeTier)))
	afterFee.Div(afterFee, big.NewInt(feeDenominator))

	numerator := new(big.Int).Mul(reserveOut, afterFee)
	denominator := new(big.Int).Add(reserveIn, afterFee)
	return numerator.Div(numerator, denominator)
}

// optimalConstantProductInput solves for the input amount that moves a
// constant-product pool's marginal price to target, where target is the raw
// output units received per raw input unit after the trade:
//
//	amountIn = sqrt(reserveIn*reserveOut / (target*k)) - reserveIn/k, k = 1-fee
//
// Derived by equating the post-trade marginal price with target under the
// x*y=k invariant. Floating point is used for sizing only; realized amounts
// flow through the integer SwapOut.
func optimalConstantProductInput(reserveIn, reserveOut *big.Int, target *big.Float, feeTier uint32) *big.Int {
	if reserveIn == nil || reserveIn.Sign() <= 0 || reserveOut == nil || reserveOut.Sign() <= 0 {
		return big.NewInt(0)
	}
	if target == nil || target.Sign() <= 0 {
		return big.NewInt(0)
	}

	k := new(big.Float).SetPrec(floatPrec).Quo(
		new(big.Float).SetUint64(uint64(feeDenominator-feeTier)),
		new(big.Float).SetUint64(feeDenominator),
	)

	rIn := new(big.Float).SetPrec(floatPrec).SetInt(reserveIn)
	rOut := new(big.Float).SetPrec(floatPrec).SetInt(reserveOut)

	inner := new(big.Float).SetPrec(floatPrec).Mul(rIn, rOut)
	inner.Quo(inner, new(big.Float).SetPrec(floatPrec).Mul(target, k))
	inner.Sqrt(inner)

	offset := new(big.Float).SetPrec(floatPrec).Quo(rIn, k)
	inner.Sub(inner, offset)

	amount, _ := inner.Int(nil)
	if amount == nil || amount.Sign() < 0 {
		return big.NewInt(0)
	}
	return amount
}
