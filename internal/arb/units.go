package arb

import (
	"math/big"

	"arbScope/internal/model"
)

// floatPrec is the mantissa precision for price arithmetic. 256 bits keeps
// every raw amount a mainnet token can hold exact through the sizing math.
const floatPrec = 256

var q96 = new(big.Float).SetPrec(floatPrec).SetInt(new(big.Int).Lsh(big.NewInt(1), 96))

func pow10(n int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

func pow10Float(n int) *big.Float {
	return new(big.Float).SetPrec(floatPrec).SetInt(pow10(n))
}

// ToRawAmount scales a human-readable amount to integer base units for a
// token with the given decimal precision, flooring any fraction below the
// base unit.
func ToRawAmount(amount *big.Float, decimals uint8) *big.Int {
	scaled := new(big.Float).SetPrec(floatPrec).Set(amount)
	scaled.Mul(scaled, pow10Float(int(decimals)))
	raw, _ := scaled.Int(nil)
	return raw
}

// ToReadableAmount renders a raw integer amount as a decimal string with 3
// fractional digits. Display only; arithmetic always runs on raw amounts.
func ToReadableAmount(raw *big.Int, decimals uint8) string {
	if raw == nil {
		return "0.000"
	}
	rat := new(big.Rat).SetFrac(raw, pow10(int(decimals)))
	return rat.FloatString(3)
}

// PriceToSqrtPriceX96 converts a token1-per-token0 price into the Q96
// square-root fixed-point form used by concentrated-liquidity pools:
// sqrt(price * 10^(d1-d0)) * 2^96, floored to an integer. The decimal
// adjustment moves the price from human units to raw reserve units.
func PriceToSqrtPriceX96(price *big.Float, token0, token1 model.Token) *big.Int {
	adjusted := new(big.Float).SetPrec(floatPrec).Set(price)
	exp := int(token1.Decimals) - int(token0.Decimals)
	if exp >= 0 {
		adjusted.Mul(adjusted, pow10Float(exp))
	} else {
		adjusted.Quo(adjusted, pow10Float(-exp))
	}

	adjusted.Sqrt(adjusted)
	adjusted.Mul(adjusted, q96)

	out, _ := adjusted.Int(nil)
	return out
}
