package model

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Direction distinguishes native-to-token from token-to-native swaps.
type Direction string

const (
	Buy  Direction = "buy"
	Sell Direction = "sell"
)

// TokenPair identifies the two sides of a pool and its tick spacing.
type TokenPair struct {
	TokenIn     common.Address
	TokenOut    common.Address
	TickSpacing int32
}

// PriceRange is a derived native-price band, never persisted.
type PriceRange struct {
	Lower float64
	Upper float64
}

// TickRange holds tick bounds rounded to a multiple of 100.
type TickRange struct {
	TickLower int32
	TickUpper int32
}

// SwapRequest describes one exact-in swap. AmountIn is in wei.
type SwapRequest struct {
	OwnerID   string
	AmountIn  *big.Int
	TokenIn   common.Address
	TokenOut  common.Address
	Direction Direction
}

// LiquidityRequest describes one mint-position request. Amounts are in wei.
type LiquidityRequest struct {
	OwnerID        string
	Amount0Desired *big.Int
	Amount1Desired *big.Int
	Token0         common.Address
	Token1         common.Address
	SlippageBps    uint
}

// WithdrawRequest describes one native-currency withdrawal. Amount is in wei.
type WithdrawRequest struct {
	OwnerID   string
	Amount    *big.Int
	Recipient common.Address
}

// Credential is a signing capability borrowed for a single submission.
// It must never be logged or retained past the submission that uses it.
type Credential struct {
	Address    common.Address
	PrivateKey string
}

// Result is the only shape surfaced to callers of public operations.
type Result struct {
	Success bool   `json:"success"`
	TxHash  string `json:"txHash,omitempty"`
	Error   string `json:"error,omitempty"`
}

// OkResult builds a success result from a transaction hash.
func OkResult(txHash common.Hash) Result {
	return Result{Success: true, TxHash: txHash.Hex()}
}

// FailResult converts any error into a failure result.
func FailResult(err error) Result {
	return Result{Success: false, Error: AsTradeError(err).Error()}
}

// MaxUint256 returns a fresh copy of 2^256 - 1.
func MaxUint256() *big.Int {
	max := new(big.Int).Lsh(big.NewInt(1), 256)
	return max.Sub(max, big.NewInt(1))
}
