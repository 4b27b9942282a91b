package model

import "github.com/ethereum/go-ethereum/common"

// Token is the immutable identity of an ERC20 asset.
type Token struct {
	ChainID  uint64
	Address  common.Address
	Decimals uint8
	Symbol   string
}
