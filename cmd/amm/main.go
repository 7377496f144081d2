package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "amm",
		Short:        "Constant-product liquidity pool engine",
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "config file path")
	pf.String("data-dir", "./data/ledger", "ledger directory")
	pf.String("journal", "./data/operations.jsonl", "operation journal JSONL path (empty disables)")
	pf.String("pg-dsn", "", "optional Postgres DSN for the operation journal")
	pf.String("keypair", "", "signer keypair file (solana-keygen JSON)")
	pf.String("pool", "", "pool id (base58)")
	pf.Int("cache-size", 128, "pool record cache entries")
	pf.Int("max-retries", 5, "maximum journal write retries")
	pf.Duration("retry-backoff", 500*time.Millisecond, "initial journal retry backoff")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")

	keygenCmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a signer keypair file",
		RunE:  runKeygen,
	}
	keygenCmd.Flags().String("out", "./data/id.json", "keypair output path")
	root.AddCommand(keygenCmd)

	fundCmd := &cobra.Command{
		Use:   "fund",
		Short: "Credit a balance in the local ledger",
		RunE:  runFund,
	}
	fundCmd.Flags().String("holder", "", "holder (defaults to the keypair's public key)")
	fundCmd.Flags().String("mint", "native", "mint id, or native for asset A")
	fundCmd.Flags().Uint64("amount", 0, "amount to credit")
	root.AddCommand(fundCmd)

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a pool",
		RunE:  runInit,
	}
	initCmd.Flags().Uint64("amount-a", 0, "seed amount of asset A")
	initCmd.Flags().Uint64("amount-b", 0, "seed amount of asset B")
	initCmd.Flags().Uint64("fee-bps", 30, "swap fee in basis points")
	initCmd.Flags().String("asset-mint", "", "mint id of asset B")
	initCmd.Flags().String("share-mint", "", "share mint id (generated when empty)")
	root.AddCommand(initCmd)

	swapCmd := &cobra.Command{
		Use:   "swap",
		Short: "Swap one pool asset for the other",
		RunE:  runSwap,
	}
	swapCmd.Flags().Uint64("amount-in", 0, "input amount")
	swapCmd.Flags().Uint64("min-out", 0, "minimum acceptable output")
	swapCmd.Flags().String("direction", "a-to-b", "a-to-b or b-to-a")
	root.AddCommand(swapCmd)

	addCmd := &cobra.Command{
		Use:   "add-liquidity",
		Short: "Deposit both assets and receive shares",
		RunE:  runAddLiquidity,
	}
	addCmd.Flags().Uint64("amount-a", 0, "amount of asset A")
	addCmd.Flags().Uint64("amount-b", 0, "amount of asset B")
	addCmd.Flags().Uint64("min-shares", 0, "minimum acceptable shares")
	root.AddCommand(addCmd)

	removeCmd := &cobra.Command{
		Use:   "remove-liquidity",
		Short: "Burn shares for a proportional slice of the reserves",
		RunE:  runRemoveLiquidity,
	}
	removeCmd.Flags().Uint64("shares", 0, "shares to burn")
	removeCmd.Flags().Uint64("min-a", 0, "minimum acceptable asset A")
	removeCmd.Flags().Uint64("min-b", 0, "minimum acceptable asset B")
	root.AddCommand(removeCmd)

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the pool snapshot",
		RunE:  runShow,
	}
	root.AddCommand(showCmd)

	aggregateCmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Aggregate the operation journal into window metrics",
		RunE:  runAggregate,
	}
	aggregateCmd.Flags().String("in", "", "input operations JSONL (defaults to --journal)")
	aggregateCmd.Flags().Duration("window", 5*time.Minute, "aggregation window (e.g. 1m, 5m, 1h)")
	aggregateCmd.Flags().Int("batch-size", 1000, "batch size for metric writes")
	aggregateCmd.Flags().String("state-file", "", "optional local state file for progress tracking")
	aggregateCmd.Flags().String("recompute-from", "", "recompute from timestamp (unix seconds or RFC3339)")
	root.AddCommand(aggregateCmd)

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		RunE:  runServe,
	}
	serveCmd.Flags().String("listen", ":8080", "listen address")
	root.AddCommand(serveCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
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
