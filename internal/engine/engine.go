package engine

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"shadowTrader/internal/model"
	"shadowTrader/internal/registry"
	"shadowTrader/internal/storage"
)

// ChainContext identifies the deployment a request executes against. It is
// passed in explicitly; the engine holds no global provider state.
type ChainContext struct {
	ChainID       *big.Int
	Router        common.Address
	WrappedNative common.Address
	OracleChain   string
}

// Config holds engine settings.
type Config struct {
	Chain               ChainContext
	ApprovalTimeout     time.Duration
	ReceiptPollInterval time.Duration
	SwapGasLimit        uint64
	LiquidityGasLimit   uint64
	ApproveGasLimit     uint64
}

// Gas limits carried over from the deployed contract interactions.
const (
	defaultSwapGasLimit      = 1_500_000
	defaultLiquidityGasLimit = 3_000_000
	defaultApproveGasLimit   = 100_000
)

// Engine composes tick calculation, calldata encoding, allowance management,
// and transaction submission into the public trade operations.
type Engine struct {
	cfg     Config
	node    Node
	prices  PriceSource
	tokens  *registry.Registry
	creds   storage.CredentialStore
	journal storage.TradeJournal
	logger  *zap.Logger
	locks   *keyedLocks
	now     func() time.Time
}

// New builds an Engine with its dependencies. The journal may be nil.
func New(cfg Config, node Node, prices PriceSource, tokens *registry.Registry,
	creds storage.CredentialStore, journal storage.TradeJournal, logger *zap.Logger) *Engine {

	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ApprovalTimeout <= 0 {
		cfg.ApprovalTimeout = 90 * time.Second
	}
	if cfg.ReceiptPollInterval <= 0 {
		cfg.ReceiptPollInterval = 2 * time.Second
	}
	if cfg.SwapGasLimit == 0 {
		cfg.SwapGasLimit = defaultSwapGasLimit
	}
	if cfg.LiquidityGasLimit == 0 {
		cfg.LiquidityGasLimit = defaultLiquidityGasLimit
	}
	if cfg.ApproveGasLimit == 0 {
		cfg.ApproveGasLimit = defaultApproveGasLimit
	}

	return &Engine{
		cfg:     cfg,
		node:    node,
		prices:  prices,
		tokens:  tokens,
		creds:   creds,
		journal: journal,
		logger:  logger,
		locks:   newKeyedLocks(),
		now:     time.Now,
	}
}

func (e *Engine) findCredential(ctx context.Context, ownerID string) (model.Credential, error) {
	if e.creds == nil {
		return model.Credential{}, model.Errf(model.KindProviderError, "credential store not configured")
	}
	cred, ok, err := e.creds.FindCredential(ctx, ownerID)
	if err != nil {
		return model.Credential{}, model.Errf(model.KindProviderError, "credential lookup: %v", err)
	}
	if !ok {
		return model.Credential{}, model.Errf(model.KindUserNotFound, "no credential for owner %s", ownerID)
	}
	return cred, nil
}

func (e *Engine) recordSubmission(ctx context.Context, ownerID, operation string, txHash common.Hash) {
	if e.journal == nil {
		return
	}
	sub := storage.Submission{
		OwnerID:     ownerID,
		Operation:   operation,
		TxHash:      txHash.Hex(),
		SubmittedAt: e.now().UTC(),
	}
	if err := e.journal.RecordSubmission(ctx, sub); err != nil {
		e.logger.Warn("journal write failed",
			zap.String("owner", ownerID),
			zap.String("operation", operation),
			zap.String("tx_hash", txHash.Hex()),
			zap.Error(err),
		)
	}
}
