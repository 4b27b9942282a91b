package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"arbScope/internal/arb"
	"arbScope/internal/chain"
	"arbScope/internal/config"
	"arbScope/internal/dex"
	"arbScope/internal/model"
	"arbScope/internal/storage"
	"arbScope/internal/storage/postgres"
)

func main() {
	root := &cobra.Command{
		Use:          "arbscope",
		Short:        "Triangular flash-swap arbitrage scanner",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan a token pair for the best flash-swap arbitrage",
		RunE:  runScan,
	}
	addPairFlags(scanCmd)
	scanCmd.Flags().Float64("slippage", 0.005, "fractional slippage buffer on the second-leg target price")
	scanCmd.Flags().Bool("allow-cp-flash", false, "allow borrowing from a constant-product pool")
	scanCmd.Flags().Int("parallel", 4, "concurrent setup evaluations")
	scanCmd.Flags().Duration("quote-timeout", 10*time.Second, "timeout per external quote")
	scanCmd.Flags().String("out", "", "JSONL output path for found opportunities")
	scanCmd.Flags().String("pg-dsn", "", "Postgres DSN for found opportunities")
	root.AddCommand(scanCmd)

	poolsCmd := &cobra.Command{
		Use:   "pools",
		Short: "List discovered pools for a token pair",
		RunE:  runPools,
	}
	addPairFlags(poolsCmd)
	root.AddCommand(poolsCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addPairFlags(cmd *cobra.Command) {
	cmd.Flags().String("rpc", "", "Ethereum RPC URL")
	cmd.Flags().String("token-a", "", "first token address")
	cmd.Flags().String("token-b", "", "second token address")
	cmd.Flags().String("v3-factory", "", "concentrated-liquidity factory address (defaults to mainnet)")
	cmd.Flags().String("pair-factory", "", "constant-product factory address (defaults to mainnet)")
	cmd.Flags().String("quoter", "", "quoter lens address (defaults to mainnet)")
	cmd.Flags().Int("max-retries", 2, "maximum RPC retry attempts")
	cmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial RPC retry backoff")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
}

func runScan(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tokenArb, chainClient, err := buildTokenArbitrage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer chainClient.Close()

	pools, err := tokenArb.Pools(ctx)
	if err != nil {
		return fmt.Errorf("discover pools: %w", err)
	}
	logger.Info("pools discovered",
		zap.String("token0", tokenArb.Token0().Symbol),
		zap.String("token1", tokenArb.Token1().Symbol),
		zap.Int("pools", len(pools)),
	)

	best, found, err := tokenArb.FindMaxProfitableArb(ctx, pools)
	if err != nil {
		return fmt.Errorf("find best arb: %w", err)
	}
	if !found {
		logger.Info("no profitable arbitrage found")
		return nil
	}

	logger.Info("best arbitrage found",
		zap.String("flash_token", best.FlashToken.Symbol),
		zap.String("profit", arb.ToReadableAmount(best.Profit, best.FlashToken.Decimals)),
		zap.String("flash_amount", arb.ToReadableAmount(best.FlashAmount, best.FlashToken.Decimals)),
		zap.String("flash_pool", best.Setup.FlashPool.Address.Hex()),
		zap.String("first_swap_pool", best.Setup.FirstSwapPool.Address.Hex()),
		zap.String("second_swap_pool", best.Setup.SecondSwapPool.Address.Hex()),
	)

	return persistArb(ctx, cfg, chainClient, tokenArb, best, logger)
}

func runPools(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tokenArb, chainClient, err := buildTokenArbitrage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer chainClient.Close()

	pools, err := tokenArb.Pools(ctx)
	if err != nil {
		return fmt.Errorf("discover pools: %w", err)
	}

	for _, pool := range pools {
		logger.Info("pool",
			zap.String("kind", pool.Kind.String()),
			zap.String("address", pool.Address.Hex()),
			zap.Uint32("fee_tier", pool.FeeTier),
		)
	}
	logger.Info("discovery complete",
		zap.Int("pools", len(pools)),
		zap.Int("setups", len(arb.PermuteAllArbs(pools))),
	)
	return nil
}

func buildTokenArbitrage(ctx context.Context, cfg config.Config, logger *zap.Logger) (*arb.TokenArbitrage, *chain.Client, error) {
	if cfg.RPCURL == "" {
		return nil, nil, fmt.Errorf("rpc url is required")
	}
	if !common.IsHexAddress(cfg.TokenA) || !common.IsHexAddress(cfg.TokenB) {
		return nil, nil, fmt.Errorf("token-a and token-b must be hex addresses")
	}

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL, chain.WithRetry(cfg.MaxRetries, cfg.RetryBackoff))
	if err != nil {
		return nil, nil, fmt.Errorf("connect rpc: %w", err)
	}

	chainID, err := chainClient.GetChainID(ctx)
	if err != nil {
		chainClient.Close()
		return nil, nil, fmt.Errorf("get chain id: %w", err)
	}

	tokenA, err := dex.FetchToken(ctx, chainClient, chainID.Uint64(), common.HexToAddress(cfg.TokenA), logger)
	if err != nil {
		chainClient.Close()
		return nil, nil, fmt.Errorf("fetch token-a metadata: %w", err)
	}
	tokenB, err := dex.FetchToken(ctx, chainClient, chainID.Uint64(), common.HexToAddress(cfg.TokenB), logger)
	if err != nil {
		chainClient.Close()
		return nil, nil, fmt.Errorf("fetch token-b metadata: %w", err)
	}

	v3Factory := addressOrDefault(cfg.V3Factory, dex.UniswapV3Factory)
	pairFactory := addressOrDefault(cfg.PairFactory, dex.SushiV2Factory)
	quoterAddr := addressOrDefault(cfg.Quoter, dex.QuoterAddress)

	reader := dex.NewContractReader(chainClient, pairFactory)
	quoter := dex.NewQuoterClient(chainClient, quoterAddr)

	tokenArb := arb.New(tokenA, tokenB, reader, quoter, reader, arb.Config{
		Slippage:                  cfg.Slippage,
		QuoteTimeout:              cfg.QuoteTimeout,
		AllowConstantProductFlash: cfg.AllowConstantProductFlash,
		Parallel:                  cfg.Parallel,
		Factory:                   v3Factory,
		PoolAddress:               dex.ComputePoolAddress,
	}, logger)

	return tokenArb, chainClient, nil
}

func persistArb(ctx context.Context, cfg config.Config, chainClient *chain.Client, tokenArb *arb.TokenArbitrage, best arb.Arb, logger *zap.Logger) error {
	if cfg.Out == "" && cfg.PGDSN == "" {
		return nil
	}

	block, err := chainClient.LatestBlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("get latest block: %w", err)
	}

	record := model.ArbRecord{
		ChainID:          tokenArb.Token0().ChainID,
		BlockNumber:      block,
		Pair:             tokenArb.Token0().Symbol + "/" + tokenArb.Token1().Symbol,
		FlashPool:        best.Setup.FlashPool.Address.Hex(),
		FirstSwapPool:    best.Setup.FirstSwapPool.Address.Hex(),
		SecondSwapPool:   best.Setup.SecondSwapPool.Address.Hex(),
		FlashToken:       best.FlashToken.Address.Hex(),
		FlashAmount:      best.FlashAmount.String(),
		FirstSwapOutMin:  best.FirstSwapOutMin.String(),
		SecondSwapOutMin: best.SecondSwapOutMin.String(),
		Profit:           best.Profit.String(),
		ProfitReadable:   arb.ToReadableAmount(best.Profit, best.FlashToken.Decimals),
	}

	sinks := make([]storage.Storage, 0, 2)
	if cfg.Out != "" {
		sinks = append(sinks, storage.NewJsonlStorage(cfg.Out))
	}
	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		sinks = append(sinks, store)
	}

	for _, sink := range sinks {
		if err := sink.PutArbBatch(ctx, []model.ArbRecord{record}); err != nil {
			return fmt.Errorf("persist arb record: %w", err)
		}
	}
	logger.Info("arb recorded", zap.Uint64("block", block), zap.String("pair", record.Pair))

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

func addressOrDefault(value string, fallback common.Address) common.Address {
	if common.IsHexAddress(value) {
		return common.HexToAddress(value)
	}
	return fallback
}
