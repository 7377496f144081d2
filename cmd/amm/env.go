package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ammEngine/internal/amm"
	"ammEngine/internal/config"
	"ammEngine/internal/ledger"
	"ammEngine/internal/processor"
	"ammEngine/internal/state"
	"ammEngine/internal/storage"
	"ammEngine/internal/storage/postgres"
)

// runtime is the wired host shared by every command that touches the ledger.
type runtime struct {
	cfg    config.Config
	logger *zap.Logger
	ledger *ledger.Ledger
	proc   *processor.Processor
	pg     *postgres.Store
}

func openRuntime(ctx context.Context, cmd *cobra.Command) (*runtime, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	l, err := ledger.Open(ledger.Options{Dir: cfg.DataDir, CacheSize: cfg.CacheSize})
	if err != nil {
		return nil, err
	}
	rt := &runtime{cfg: cfg, logger: logger, ledger: l}

	var journals []storage.Journal
	if cfg.Journal != "" {
		journals = append(journals, storage.NewJsonlStorage(cfg.Journal))
	}
	if cfg.PGDSN != "" {
		rt.pg, err = postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := rt.pg.EnsureSchema(ctx); err != nil {
			rt.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		journals = append(journals, rt.pg)
	}
	for i, j := range journals {
		journals[i] = storage.Retrying{Journal: j, MaxRetries: cfg.MaxRetries, Backoff: cfg.RetryBackoff}
	}

	rt.proc = processor.New(l, processor.Options{Journals: journals, Logger: logger})
	return rt, nil
}

func (rt *runtime) Close() {
	if rt.pg != nil {
		rt.pg.Close()
	}
	if err := rt.ledger.Close(); err != nil {
		rt.logger.Error("close ledger", zap.Error(err))
	}
	_ = rt.logger.Sync()
}

func (rt *runtime) signer() (solana.PrivateKey, error) {
	if rt.cfg.Keypair == "" {
		return nil, fmt.Errorf("keypair is required")
	}
	key, err := solana.PrivateKeyFromSolanaKeygenFile(rt.cfg.Keypair)
	if err != nil {
		return nil, fmt.Errorf("read keypair: %w", err)
	}
	return key, nil
}

func (rt *runtime) poolID() (solana.PublicKey, error) {
	if rt.cfg.Pool == "" {
		return solana.PublicKey{}, fmt.Errorf("pool is required")
	}
	id, err := solana.PublicKeyFromBase58(rt.cfg.Pool)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid pool id: %w", err)
	}
	return id, nil
}

// loadPool returns the stored pool, or amm.ErrPoolNotInitialized for an
// empty slot.
func (rt *runtime) loadPool(ctx context.Context, id solana.PublicKey) (amm.Pool, error) {
	raw, err := rt.ledger.LoadPool(ctx, id)
	if err != nil {
		return amm.Pool{}, err
	}
	if raw == nil {
		return amm.Pool{}, amm.ErrPoolNotInitialized
	}
	return state.Load(raw)
}

func parseMint(s string) (solana.PublicKey, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "native", "sol":
		return solana.SolMint, nil
	}
	return solana.PublicKeyFromBase58(s)
}
