package engine

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// GasEstimate is an advisory fee estimate for a withdrawal. Available is
// false when the node could not be queried; callers proceed regardless.
type GasEstimate struct {
	Available    bool
	GasLimit     uint64
	GasPriceGwei decimal.Decimal
	FeeNative    decimal.Decimal
}

// EstimateWithdrawal fetches the current gas price and a gas limit for a
// same-address transfer probe of amount, and derives the fee in native
// units. RPC failures yield the unavailable sentinel, never an error.
func (e *Engine) EstimateWithdrawal(ctx context.Context, from common.Address, amount *big.Int) GasEstimate {
	gasPrice, err := e.node.SuggestGasPrice(ctx)
	if err != nil {
		e.logger.Warn("gas price unavailable", zap.Error(err))
		return GasEstimate{}
	}

	gasLimit, err := e.node.EstimateGas(ctx, ethereum.CallMsg{
		From:  from,
		To:    &from,
		Value: amount,
	})
	if err != nil {
		e.logger.Warn("gas limit estimate unavailable", zap.Error(err))
		return GasEstimate{}
	}

	fee := new(big.Int).Mul(gasPrice, new(big.Int).SetUint64(gasLimit))

	return GasEstimate{
		Available:    true,
		GasLimit:     gasLimit,
		GasPriceGwei: decimal.NewFromBigInt(gasPrice, -9),
		FeeNative:    decimal.NewFromBigInt(fee, -18),
	}
}
