package engine

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/params"
	"go.uber.org/zap"

	"shadowTrader/internal/model"
)

// Withdraw transfers native currency out of the owner's wallet. The balance
// is queried immediately before signing, never from a cache, so a stale
// balance cannot slip an overdraft past the check.
func (e *Engine) Withdraw(ctx context.Context, req model.WithdrawRequest) model.Result {
	if req.Amount == nil || req.Amount.Sign() <= 0 {
		return model.FailResult(model.Errf(model.KindInvalidAmount, "withdrawal amount must be positive"))
	}

	cred, err := e.findCredential(ctx, req.OwnerID)
	if err != nil {
		return model.FailResult(err)
	}

	unlock := e.locks.lock(lockKey(req.OwnerID, common.Address{}))
	defer unlock()

	estimate := e.EstimateWithdrawal(ctx, cred.Address, req.Amount)
	if estimate.Available {
		e.logger.Info("withdrawal fee estimate",
			zap.String("owner", req.OwnerID),
			zap.String("gas_price_gwei", estimate.GasPriceGwei.String()),
			zap.String("fee_native", estimate.FeeNative.String()),
		)
	}

	balance, err := e.node.BalanceAt(ctx, cred.Address)
	if err != nil {
		return model.FailResult(model.Errf(model.KindProviderError, "query balance: %v", err))
	}
	if balance.Cmp(req.Amount) < 0 {
		return model.FailResult(model.Errf(model.KindInsufficientFunds,
			"requested %s exceeds balance %s", model.FormatWei(req.Amount), model.FormatWei(balance)))
	}

	gasLimit := params.TxGas
	if estimate.Available {
		gasLimit = estimate.GasLimit
	}

	txHash, err := e.submit(ctx, cred, req.Recipient, req.Amount, nil, gasLimit)
	if err != nil {
		return model.FailResult(err)
	}

	e.logger.Info("withdrawal submitted",
		zap.String("owner", req.OwnerID),
		zap.String("recipient", req.Recipient.Hex()),
		zap.String("amount", model.FormatWei(req.Amount)),
		zap.String("tx_hash", txHash.Hex()),
	)

	e.recordSubmission(ctx, req.OwnerID, "withdraw", txHash)
	return model.OkResult(txHash)
}
