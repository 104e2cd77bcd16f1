package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"shadowTrader/internal/chain"
	"shadowTrader/internal/config"
	"shadowTrader/internal/engine"
	"shadowTrader/internal/model"
	"shadowTrader/internal/oracle"
	"shadowTrader/internal/registry"
	"shadowTrader/internal/storage"
	"shadowTrader/internal/storage/postgres"
)

func main() {
	root := &cobra.Command{
		Use:          "trader",
		Short:        "Shadow DEX trade execution engine",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")
	root.PersistentFlags().String("rpc", "", "chain RPC URL")
	root.PersistentFlags().Int64("chain-id", 146, "chain id")
	root.PersistentFlags().String("router", "", "router contract address")
	root.PersistentFlags().String("wrapped-native", "", "wrapped native token address")
	root.PersistentFlags().String("oracle-base-url", "", "price oracle base URL")
	root.PersistentFlags().String("oracle-chain", "sonic", "price oracle chain slug")
	root.PersistentFlags().String("pg-dsn", "", "Postgres DSN for credentials and journal")
	root.PersistentFlags().String("journal-path", "./data/submissions.jsonl", "JSONL journal path used without Postgres")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")

	swapCmd := &cobra.Command{
		Use:   "swap",
		Short: "Swap native currency against a registered token",
		RunE:  runSwap,
	}
	swapCmd.Flags().String("owner", "", "owner id")
	swapCmd.Flags().String("amount", "", "input amount (human units)")
	swapCmd.Flags().String("token", "", "token symbol")
	swapCmd.Flags().String("direction", "", "buy or sell")
	root.AddCommand(swapCmd)

	liquidityCmd := &cobra.Command{
		Use:   "add-liquidity",
		Short: "Mint a liquidity position around the current price",
		RunE:  runAddLiquidity,
	}
	liquidityCmd.Flags().String("owner", "", "owner id")
	liquidityCmd.Flags().String("amount0", "", "native amount (human units)")
	liquidityCmd.Flags().String("amount1", "", "token amount (human units)")
	liquidityCmd.Flags().String("token", "", "token symbol")
	liquidityCmd.Flags().Uint("slippage-bps", 2200, "slippage tolerance in basis points")
	root.AddCommand(liquidityCmd)

	withdrawCmd := &cobra.Command{
		Use:   "withdraw",
		Short: "Withdraw native currency to an external address",
		RunE:  runWithdraw,
	}
	withdrawCmd.Flags().String("owner", "", "owner id")
	withdrawCmd.Flags().String("amount", "", "amount (human units)")
	withdrawCmd.Flags().String("recipient", "", "recipient address")
	root.AddCommand(withdrawCmd)

	gasCmd := &cobra.Command{
		Use:   "gas",
		Short: "Estimate the fee for a withdrawal",
		RunE:  runGas,
	}
	gasCmd.Flags().String("from", "", "wallet address")
	gasCmd.Flags().String("amount", "", "amount (human units)")
	root.AddCommand(gasCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// app bundles the wired collaborators behind one Close.
type app struct {
	cfg         config.Config
	logger      *zap.Logger
	chainClient *chain.Client
	store       *postgres.Store
	tokens      *registry.Registry
	engine      *engine.Engine
}

func newApp(ctx context.Context, cmd *cobra.Command) (*app, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("rpc url is required")
	}
	if !common.IsHexAddress(cfg.Router) {
		return nil, fmt.Errorf("valid router address is required")
	}
	if !common.IsHexAddress(cfg.WrappedNative) {
		return nil, fmt.Errorf("valid wrapped native address is required")
	}

	tokens, err := registry.Load(cfg.Tokens)
	if err != nil {
		return nil, fmt.Errorf("load token registry: %w", err)
	}

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("connect rpc: %w", err)
	}

	a := &app{
		cfg:         cfg,
		logger:      logger,
		chainClient: chainClient,
		tokens:      tokens,
	}

	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			chainClient.Close()
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		a.store = store
	}

	engineCfg := engine.Config{
		Chain: engine.ChainContext{
			ChainID:       big.NewInt(cfg.ChainID),
			Router:        common.HexToAddress(cfg.Router),
			WrappedNative: common.HexToAddress(cfg.WrappedNative),
			OracleChain:   cfg.OracleChain,
		},
		ApprovalTimeout:     cfg.ApprovalTimeout,
		ReceiptPollInterval: cfg.ReceiptPollInterval,
	}

	prices := oracle.NewClient(cfg.OracleBaseURL)

	var creds storage.CredentialStore
	var journal storage.TradeJournal
	if a.store != nil {
		creds = a.store
		journal = a.store
	} else if cfg.JournalPath != "" {
		journal = storage.NewJsonlJournal(cfg.JournalPath)
	}

	a.engine = engine.New(engineCfg, chainClient, prices, tokens, creds, journal, logger)

	return a, nil
}

func (a *app) Close() {
	if a.store != nil {
		a.store.Close()
	}
	if a.chainClient != nil {
		a.chainClient.Close()
	}
	if a.logger != nil {
		a.logger.Sync()
	}
}

func runSwap(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	owner, _ := cmd.Flags().GetString("owner")
	amountStr, _ := cmd.Flags().GetString("amount")
	symbol, _ := cmd.Flags().GetString("token")
	directionStr, _ := cmd.Flags().GetString("direction")

	direction := model.Direction(directionStr)
	if direction != model.Buy && direction != model.Sell {
		return fmt.Errorf("direction must be buy or sell")
	}

	token, ok := a.tokens.Lookup(symbol)
	if !ok {
		return fmt.Errorf("unknown token symbol: %s", symbol)
	}

	amount, err := model.ParseAmount(amountStr)
	if err != nil {
		return printResult(model.FailResult(err))
	}

	wrapped := common.HexToAddress(a.cfg.WrappedNative)
	req := model.SwapRequest{
		OwnerID:   owner,
		AmountIn:  amount,
		Direction: direction,
	}
	if direction == model.Buy {
		req.TokenIn, req.TokenOut = wrapped, token.Address
	} else {
		req.TokenIn, req.TokenOut = token.Address, wrapped
	}

	return printResult(a.engine.Swap(ctx, req))
}

func runAddLiquidity(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	owner, _ := cmd.Flags().GetString("owner")
	amount0Str, _ := cmd.Flags().GetString("amount0")
	amount1Str, _ := cmd.Flags().GetString("amount1")
	symbol, _ := cmd.Flags().GetString("token")
	slippageBps, _ := cmd.Flags().GetUint("slippage-bps")

	token, ok := a.tokens.Lookup(symbol)
	if !ok {
		return fmt.Errorf("unknown token symbol: %s", symbol)
	}

	amount0, err := model.ParseAmount(amount0Str)
	if err != nil {
		return printResult(model.FailResult(err))
	}
	amount1, err := model.ParseAmount(amount1Str)
	if err != nil {
		return printResult(model.FailResult(err))
	}

	req := model.LiquidityRequest{
		OwnerID:        owner,
		Amount0Desired: amount0,
		Amount1Desired: amount1,
		Token0:         common.HexToAddress(a.cfg.WrappedNative),
		Token1:         token.Address,
		SlippageBps:    slippageBps,
	}

	return printResult(a.engine.AddLiquidity(ctx, req))
}

func runWithdraw(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	owner, _ := cmd.Flags().GetString("owner")
	amountStr, _ := cmd.Flags().GetString("amount")
	recipientStr, _ := cmd.Flags().GetString("recipient")

	if !common.IsHexAddress(recipientStr) {
		return fmt.Errorf("valid recipient address is required")
	}

	amount, err := model.ParseAmount(amountStr)
	if err != nil {
		return printResult(model.FailResult(err))
	}

	req := model.WithdrawRequest{
		OwnerID:   owner,
		Amount:    amount,
		Recipient: common.HexToAddress(recipientStr),
	}

	return printResult(a.engine.Withdraw(ctx, req))
}

func runGas(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	fromStr, _ := cmd.Flags().GetString("from")
	amountStr, _ := cmd.Flags().GetString("amount")

	if !common.IsHexAddress(fromStr) {
		return fmt.Errorf("valid from address is required")
	}
	amount, err := model.ParseAmount(amountStr)
	if err != nil {
		return err
	}

	estimate := a.engine.EstimateWithdrawal(ctx, common.HexToAddress(fromStr), amount)

	out := map[string]interface{}{"available": estimate.Available}
	if estimate.Available {
		out["gasPriceGwei"] = estimate.GasPriceGwei.String()
		out["estimatedFeeNative"] = estimate.FeeNative.String()
	}
	return printJSON(out)
}

func printResult(res model.Result) error {
	return printJSON(res)
}

func printJSON(v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
