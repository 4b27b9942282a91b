package dex

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"arbScope/internal/chain"
)

// ContractReader reads pool contract state through eth_call. It implements
// the arbitrage core's PoolReader and PairLookup capabilities.
type ContractReader struct {
	chain       *chain.Client
	pairFactory common.Address
}

// NewContractReader builds a reader backed by the chain client. pairFactory
// is the constant-product factory consulted for pair lookups.
func NewContractReader(chainClient *chain.Client, pairFactory common.Address) *ContractReader {
	return &ContractReader{chain: chainClient, pairFactory: pairFactory}
}

// FeeTier reads a concentrated-liquidity pool's fee in parts per million.
// Fails when no pool contract lives at the address, which discovery uses as
// its liveness probe.
func (r *ContractReader) FeeTier(ctx context.Context, pool common.Address) (uint32, error) {
	poolABI, err := V3PoolABI()
	if err != nil {
		return 0, fmt.Errorf("parse pool abi: %w", err)
	}
	values, err := r.call(ctx, pool, poolABI, "fee")
	if err != nil {
		return 0, err
	}
	fee, err := asBigInt(values[0])
	if err != nil {
		return 0, fmt.Errorf("fee: %w", err)
	}
	return uint32(fee.Uint64()), nil
}

// Reserves reads a constant-product pool's reserve balances in the pool's
// own token order.
func (r *ContractReader) Reserves(ctx context.Context, pool common.Address) (*big.Int, *big.Int, error) {
	pairABI, err := V2PairABI()
	if err != nil {
		return nil, nil, fmt.Errorf("parse pair abi: %w", err)
	}
	values, err := r.call(ctx, pool, pairABI, "getReserves")
	if err != nil {
		return nil, nil, err
	}
	if len(values) < 2 {
		return nil, nil, fmt.Errorf("getReserves: unexpected result arity %d", len(values))
	}
	reserve0, err := asBigInt(values[0])
	if err != nil {
		return nil, nil, fmt.Errorf("reserve0: %w", err)
	}
	reserve1, err := asBigInt(values[1])
	if err != nil {
		return nil, nil, fmt.Errorf("reserve1: %w", err)
	}
	return reserve0, reserve1, nil
}

// PairToken0 reads the first registered token of a constant-product pool.
func (r *ContractReader) PairToken0(ctx context.Context, pool common.Address) (common.Address, error) {
	pairABI, err := V2PairABI()
	if err != nil {
		return common.Address{}, fmt.Errorf("parse pair abi: %w", err)
	}
	values, err := r.call(ctx, pool, pairABI, "token0")
	if err != nil {
		return common.Address{}, err
	}
	token0, err := asAddress(values[0])
	if err != nil {
		return common.Address{}, fmt.Errorf("token0: %w", err)
	}
	return token0, nil
}

// PairFor asks the constant-product factory for the pair address of two
// tokens. The zero address means no pair has been created.
func (r *ContractReader) PairFor(ctx context.Context, tokenA, tokenB common.Address) (common.Address, error) {
	factoryABI, err := V2FactoryABI()
	if err != nil {
		return common.Address{}, fmt.Errorf("parse factory abi: %w", err)
	}
	data, err := factoryABI.Pack("getPair", tokenA, tokenB)
	if err != nil {
		return common.Address{}, fmt.Errorf("pack getPair: %w", err)
	}
	msg := ethereum.CallMsg{To: &r.pairFactory, Data: data}
	resp, err := r.chain.CallContract(ctx, msg, nil)
	if err != nil {
		return common.Address{}, fmt.Errorf("call getPair: %w", err)
	}
	values, err := factoryABI.Unpack("getPair", resp)
	if err != nil {
		return common.Address{}, fmt.Errorf("unpack getPair: %w", err)
	}
	pair, err := asAddress(values[0])
	if err != nil {
		return common.Address{}, fmt.Errorf("pair: %w", err)
	}
	return pair, nil
}

func (r *ContractReader) call(ctx context.Context, target common.Address, parsed abi.ABI, method string) ([]interface{}, error) {
	data, err := parsed.Pack(method)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	msg := ethereum.CallMsg{To: &target, Data: data}
	resp, err := r.chain.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return values, nil
}
