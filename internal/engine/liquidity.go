package engine

import (
	"context"

	"go.uber.org/zap"

	"shadowTrader/internal/model"
	"shadowTrader/internal/router"
	"shadowTrader/internal/ticks"
)

// AddLiquidity mints a concentrated-liquidity position around the current
// oracle price. The multicall holds exactly two steps in fixed order: mint,
// then sweep of residual native value back to the owner.
func (e *Engine) AddLiquidity(ctx context.Context, req model.LiquidityRequest) model.Result {
	if req.Amount0Desired == nil || req.Amount0Desired.Sign() <= 0 ||
		req.Amount1Desired == nil || req.Amount1Desired.Sign() <= 0 {
		return model.FailResult(model.Errf(model.KindInvalidAmount, "liquidity amounts must be positive"))
	}

	token, ok := e.tokens.ByAddress(req.Token1)
	if !ok {
		return model.FailResult(model.Errf(model.KindUnknownToken, "token %s is not registered", req.Token1.Hex()))
	}

	cred, err := e.findCredential(ctx, req.OwnerID)
	if err != nil {
		return model.FailResult(err)
	}

	unlock := e.locks.lock(lockKey(req.OwnerID, token.Address))
	defer unlock()

	price, err := e.prices.PairPrice(ctx, e.cfg.Chain.OracleChain, token.PairAddress.Hex())
	if err != nil {
		return model.FailResult(err)
	}

	tickRange, err := ticks.ComputeTicks(price)
	if err != nil {
		return model.FailResult(err)
	}

	if err := e.ensureAllowance(ctx, cred, req.Token1); err != nil {
		return model.FailResult(err)
	}

	data, err := router.EncodeMintMulticall(router.MintParams{
		Token0:         req.Token0,
		Token1:         req.Token1,
		TickSpacing:    token.TickSpacing,
		Ticks:          tickRange,
		Amount0Desired: req.Amount0Desired,
		Amount1Desired: req.Amount1Desired,
		Amount0Min:     model.ApplySlippage(req.Amount0Desired, req.SlippageBps),
		Amount1Min:     model.ApplySlippage(req.Amount1Desired, req.SlippageBps),
		Recipient:      cred.Address,
	}, e.now())
	if err != nil {
		return model.FailResult(err)
	}

	txHash, err := e.submit(ctx, cred, e.cfg.Chain.Router, req.Amount0Desired, data, e.cfg.LiquidityGasLimit)
	if err != nil {
		return model.FailResult(err)
	}

	e.logger.Info("liquidity submitted",
		zap.String("owner", req.OwnerID),
		zap.String("token", token.Symbol),
		zap.Int32("tick_lower", tickRange.TickLower),
		zap.Int32("tick_upper", tickRange.TickUpper),
		zap.String("tx_hash", txHash.Hex()),
	)

	e.recordSubmission(ctx, req.OwnerID, "add_liquidity", txHash)
	return model.OkResult(txHash)
}
