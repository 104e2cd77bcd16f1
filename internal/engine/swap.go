package engine

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"shadowTrader/internal/model"
	"shadowTrader/internal/router"
)

// Swap executes one exact-in swap. Buys spend native currency and need no
// allowance; sells approve the router on the input token and wait for that
// approval to confirm before the exchange call is constructed.
func (e *Engine) Swap(ctx context.Context, req model.SwapRequest) model.Result {
	if req.AmountIn == nil || req.AmountIn.Sign() <= 0 {
		return model.FailResult(model.Errf(model.KindInvalidAmount, "swap amount must be positive"))
	}

	var tokenAddr common.Address
	switch req.Direction {
	case model.Buy:
		tokenAddr = req.TokenOut
	case model.Sell:
		tokenAddr = req.TokenIn
	default:
		return model.FailResult(model.Errf(model.KindUnknownOperation, "unknown swap direction %q", req.Direction))
	}

	token, ok := e.tokens.ByAddress(tokenAddr)
	if !ok {
		return model.FailResult(model.Errf(model.KindUnknownToken, "token %s is not registered", tokenAddr.Hex()))
	}

	cred, err := e.findCredential(ctx, req.OwnerID)
	if err != nil {
		return model.FailResult(err)
	}

	unlock := e.locks.lock(lockKey(req.OwnerID, token.Address))
	defer unlock()

	if req.Direction == model.Sell {
		if err := e.ensureAllowance(ctx, cred, req.TokenIn); err != nil {
			return model.FailResult(err)
		}
	}

	plan, err := router.BuildSwapPlan(req.Direction, router.SwapParams{
		Router:       e.cfg.Chain.Router,
		Recipient:    cred.Address,
		TokenIn:      req.TokenIn,
		TokenOut:     req.TokenOut,
		TickSpacing:  token.TickSpacing,
		AmountIn:     req.AmountIn,
		AmountOutMin: big.NewInt(0),
	})
	if err != nil {
		return model.FailResult(err)
	}

	data, err := router.EncodeExecute(plan, e.now())
	if err != nil {
		return model.FailResult(err)
	}

	var value *big.Int
	if req.Direction == model.Buy {
		value = req.AmountIn
	}

	txHash, err := e.submit(ctx, cred, e.cfg.Chain.Router, value, data, e.cfg.SwapGasLimit)
	if err != nil {
		return model.FailResult(err)
	}

	e.logger.Info("swap submitted",
		zap.String("owner", req.OwnerID),
		zap.String("direction", string(req.Direction)),
		zap.String("token", token.Symbol),
		zap.String("amount_in", model.FormatWei(req.AmountIn)),
		zap.String("tx_hash", txHash.Hex()),
	)

	e.recordSubmission(ctx, req.OwnerID, "swap", txHash)
	return model.OkResult(txHash)
}
