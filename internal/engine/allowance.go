package engine

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"shadowTrader/internal/model"
	"shadowTrader/internal/router"
)

// ensureAllowance grants the router a maximum approval on token and blocks
// until that approval is mined. The spend transaction that follows may only
// be constructed after this returns nil; submitting it earlier reverts
// on-chain.
func (e *Engine) ensureAllowance(ctx context.Context, cred model.Credential, token common.Address) error {
	data, err := router.EncodeApprove(e.cfg.Chain.Router, model.MaxUint256())
	if err != nil {
		return model.Errf(model.KindApprovalFailed, "encode approval: %v", err)
	}

	txHash, err := e.submit(ctx, cred, token, nil, data, e.cfg.ApproveGasLimit)
	if err != nil {
		return model.Errf(model.KindApprovalFailed, "broadcast approval: %v", err)
	}

	e.logger.Info("approval submitted",
		zap.String("token", token.Hex()),
		zap.String("tx_hash", txHash.Hex()),
	)

	if err := e.waitConfirmed(ctx, txHash); err != nil {
		return err
	}

	e.logger.Info("approval confirmed", zap.String("tx_hash", txHash.Hex()))
	return nil
}

// waitConfirmed polls for the receipt of txHash until it is mined or the
// approval timeout elapses.
func (e *Engine) waitConfirmed(ctx context.Context, txHash common.Hash) error {
	deadline := time.NewTimer(e.cfg.ApprovalTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(e.cfg.ReceiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := e.node.TransactionReceipt(ctx, txHash)
		if err == nil {
			if receipt.Status != types.ReceiptStatusSuccessful {
				return model.Errf(model.KindApprovalFailed, "approval %s reverted on-chain", txHash.Hex())
			}
			return nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return model.Errf(model.KindApprovalFailed, "approval receipt: %v", err)
		}

		select {
		case <-ctx.Done():
			return model.Errf(model.KindApprovalTimeout, "approval %s: %v", txHash.Hex(), ctx.Err())
		case <-deadline.C:
			return model.Errf(model.KindApprovalTimeout,
				"approval %s unconfirmed after %s", txHash.Hex(), e.cfg.ApprovalTimeout)
		case <-ticker.C:
		}
	}
}
