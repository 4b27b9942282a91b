package dex

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"arbScope/internal/arb"
	"arbScope/internal/chain"
)

// QuoterClient issues simulated single-hop quotes against the on-chain
// quoter lens. Quotes never mutate state; the lens runs the swap and reverts
// with the result, which eth_call surfaces as a plain return value.
type QuoterClient struct {
	chain   *chain.Client
	address common.Address
}

// NewQuoterClient builds a quoter bound to the lens contract address.
func NewQuoterClient(chainClient *chain.Client, address common.Address) *QuoterClient {
	return &QuoterClient{chain: chainClient, address: address}
}

// ExactInputSingle quotes the output of swapping amountIn of tokenIn.
func (q *QuoterClient) ExactInputSingle(ctx context.Context, tokenIn, tokenOut common.Address, feeTier uint32, amountIn, sqrtPriceLimitX96 *big.Int) (*big.Int, error) {
	return q.quote(ctx, "quoteExactInputSingle", tokenIn, tokenOut, feeTier, amountIn, sqrtPriceLimitX96)
}

// ExactOutputSingle quotes the input needed to receive amountOut of
// tokenOut, bounded by the sqrt price limit.
func (q *QuoterClient) ExactOutputSingle(ctx context.Context, tokenIn, tokenOut common.Address, feeTier uint32, amountOut, sqrtPriceLimitX96 *big.Int) (*big.Int, error) {
	return q.quote(ctx, "quoteExactOutputSingle", tokenIn, tokenOut, feeTier, amountOut, sqrtPriceLimitX96)
}

func (q *QuoterClient) quote(ctx context.Context, method string, tokenIn, tokenOut common.Address, feeTier uint32, amount, sqrtPriceLimitX96 *big.Int) (*big.Int, error) {
	parsed, err := QuoterABI()
	if err != nil {
		return nil, fmt.Errorf("parse quoter abi: %w", err)
	}
	if sqrtPriceLimitX96 == nil {
		sqrtPriceLimitX96 = big.NewInt(0)
	}

	data, err := parsed.Pack(method, tokenIn, tokenOut, big.NewInt(int64(feeTier)), amount, sqrtPriceLimitX96)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}

	msg := ethereum.CallMsg{To: &q.address, Data: data}
	resp, err := q.chain.CallContract(ctx, msg, nil)
	if err != nil {
		if isPriceLimitRevert(err) {
			return nil, fmt.Errorf("%s: %w", method, arb.ErrPriceLimit)
		}
		return nil, fmt.Errorf("call %s: %w", method, err)
	}

	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	out, err := asBigInt(values[0])
	if err != nil {
		return nil, fmt.Errorf("%s result: %w", method, err)
	}
	return out, nil
}

// isPriceLimitRevert recognizes the pool's SPL require, raised when a quote
// cannot reach the requested size before its sqrt price limit.
func isPriceLimitRevert(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "execution reverted") && strings.Contains(msg, "SPL")
}
