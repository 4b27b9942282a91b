package dex

import (
	"bytes"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Ethereum mainnet defaults. All of them are overridable through config.
var (
	UniswapV3Factory = common.HexToAddress("0x1F98431c8aD98523631AE4a59f267346ea31F984")
	SushiV2Factory   = common.HexToAddress("0xC0AEe478e3658e2610c5F7A4A2E1777cE9e4f2Ac")
	QuoterAddress    = common.HexToAddress("0xb27308f9F90D607463bb33eA1BeBb41C27CE5AB6")
)

// v3PoolInitCodeHash is the keccak hash of the concentrated-liquidity pool
// creation bytecode, fixed per factory deployment.
var v3PoolInitCodeHash = common.HexToHash("0xe34f199b19b2b4f47f68442619d555527d244f78a3297ea89325f843f87b8b54")

// ComputePoolAddress derives the deterministic CREATE2 address of a
// concentrated-liquidity pool from the factory, the token pair, and the fee
// tier. The tokens are sorted by address first, matching the factory's salt
// construction. No network call is made.
func ComputePoolAddress(factory, tokenA, tokenB common.Address, feeTier uint32) common.Address {
	token0, token1 := tokenA, tokenB
	if bytes.Compare(token1.Bytes(), token0.Bytes()) < 0 {
		token0, token1 = token1, token0
	}

	// salt = keccak256(abi.encode(token0, token1, fee))
	encoded := make([]byte, 0, 96)
	encoded = append(encoded, common.LeftPadBytes(token0.Bytes(), 32)...)
	encoded = append(encoded, common.LeftPadBytes(token1.Bytes(), 32)...)
	encoded = append(encoded, common.LeftPadBytes(new(big.Int).SetUint64(uint64(feeTier)).Bytes(), 32)...)
	salt := crypto.Keccak256(encoded)

	payload := make([]byte, 0, 85)
	payload = append(payload, 0xff)
	payload = append(payload, factory.Bytes()...)
	payload = append(payload, salt...)
	payload = append(payload, v3PoolInitCodeHash.Bytes()...)

	return common.BytesToAddress(crypto.Keccak256(payload)[12:])
}
