package engine

import (
	"context"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"shadowTrader/internal/model"
)

// submit signs and broadcasts one transaction, returning its hash as soon as
// the node accepts it. It does not wait for confirmation. The credential is
// used for this one signing operation and not retained.
func (e *Engine) submit(ctx context.Context, cred model.Credential, to common.Address,
	value *big.Int, data []byte, gasLimit uint64) (common.Hash, error) {

	key, err := crypto.HexToECDSA(strings.TrimPrefix(cred.PrivateKey, "0x"))
	if err != nil {
		return common.Hash{}, model.Errf(model.KindUserNotFound, "stored credential is unusable")
	}
	from := crypto.PubkeyToAddress(key.PublicKey)

	if value != nil && value.Sign() > 0 {
		balance, err := e.node.BalanceAt(ctx, from)
		if err != nil {
			return common.Hash{}, model.Errf(model.KindProviderError, "query balance: %v", err)
		}
		if balance.Cmp(value) < 0 {
			return common.Hash{}, model.Errf(model.KindInsufficientFunds,
				"requested %s exceeds balance %s", model.FormatWei(value), model.FormatWei(balance))
		}
	}

	nonce, err := e.node.PendingNonceAt(ctx, from)
	if err != nil {
		return common.Hash{}, model.Errf(model.KindProviderError, "query nonce: %v", err)
	}

	gasPrice, err := e.node.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, model.Errf(model.KindProviderError, "query gas price: %v", err)
	}

	if value == nil {
		value = big.NewInt(0)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    value,
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})

	signer := types.LatestSignerForChainID(e.cfg.Chain.ChainID)
	signed, err := types.SignTx(tx, signer, key)
	if err != nil {
		return common.Hash{}, model.Errf(model.KindProviderError, "sign transaction: %v", err)
	}

	if err := e.node.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, model.Errf(model.KindProviderError, "broadcast: %v", err)
	}

	return signed.Hash(), nil
}
