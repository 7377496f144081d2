package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	"ammEngine/internal/amm"
	"ammEngine/internal/instruction"
	"ammEngine/internal/processor"
)

func runKeygen(cmd *cobra.Command, _ []string) error {
	out, _ := cmd.Flags().GetString("out")
	if _, err := os.Stat(out); err == nil {
		return fmt.Errorf("%s already exists", out)
	}

	key, err := solana.NewRandomPrivateKey()
	if err != nil {
		return err
	}
	ints := make([]int, len(key))
	for i, b := range key {
		ints[i] = int(b)
	}
	raw, err := json.Marshal(ints)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(out); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create keypair dir: %w", err)
		}
	}
	if err := os.WriteFile(out, raw, 0o600); err != nil {
		return fmt.Errorf("write keypair: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), key.PublicKey().String())
	return nil
}

func runFund(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	rt, err := openRuntime(ctx, cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	mintFlag, _ := cmd.Flags().GetString("mint")
	mint, err := parseMint(mintFlag)
	if err != nil {
		return fmt.Errorf("invalid mint: %w", err)
	}
	amount, _ := cmd.Flags().GetUint64("amount")
	if amount == 0 {
		return fmt.Errorf("amount must be positive")
	}

	holderFlag, _ := cmd.Flags().GetString("holder")
	var holder solana.PublicKey
	if holderFlag != "" {
		if holder, err = solana.PublicKeyFromBase58(holderFlag); err != nil {
			return fmt.Errorf("invalid holder: %w", err)
		}
	} else {
		key, err := rt.signer()
		if err != nil {
			return err
		}
		holder = key.PublicKey()
	}

	if err := rt.ledger.Credit(ctx, mint, holder, amount); err != nil {
		return err
	}
	balance, err := rt.ledger.Balance(ctx, mint, holder)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), map[string]any{
		"holder":  holder.String(),
		"mint":    mint.String(),
		"balance": balance,
	})
}

func runInit(cmd *cobra.Command, _ []string) error {
	amountA, _ := cmd.Flags().GetUint64("amount-a")
	amountB, _ := cmd.Flags().GetUint64("amount-b")
	feeBps, _ := cmd.Flags().GetUint64("fee-bps")
	assetFlag, _ := cmd.Flags().GetString("asset-mint")
	shareFlag, _ := cmd.Flags().GetString("share-mint")

	ix := instruction.InitializePool{AmountA: amountA, AmountB: amountB, FeeRateBps: feeBps}
	return submit(cmd, ix, func(_ context.Context, rt *runtime, signer solana.PublicKey) (processor.Accounts, error) {
		if assetFlag == "" {
			return processor.Accounts{}, fmt.Errorf("asset-mint is required")
		}
		assetMint, err := solana.PublicKeyFromBase58(assetFlag)
		if err != nil {
			return processor.Accounts{}, fmt.Errorf("invalid asset mint: %w", err)
		}
		shareMint := solana.NewWallet().PublicKey()
		if shareFlag != "" {
			if shareMint, err = solana.PublicKeyFromBase58(shareFlag); err != nil {
				return processor.Accounts{}, fmt.Errorf("invalid share mint: %w", err)
			}
		}
		poolID := solana.NewWallet().PublicKey()
		if rt.cfg.Pool != "" {
			if poolID, err = rt.poolID(); err != nil {
				return processor.Accounts{}, err
			}
		}
		return processor.Accounts{Pool: poolID, Authority: signer, ShareMint: shareMint, AssetMint: assetMint}, nil
	})
}

func runSwap(cmd *cobra.Command, _ []string) error {
	amountIn, _ := cmd.Flags().GetUint64("amount-in")
	minOut, _ := cmd.Flags().GetUint64("min-out")
	dirFlag, _ := cmd.Flags().GetString("direction")
	d, err := amm.ParseDirection(dirFlag)
	if err != nil {
		return fmt.Errorf("invalid direction %q", dirFlag)
	}
	return submit(cmd, instruction.Swap{AmountIn: amountIn, MinimumAmountOut: minOut, Direction: d}, existingPool)
}

func runAddLiquidity(cmd *cobra.Command, _ []string) error {
	amountA, _ := cmd.Flags().GetUint64("amount-a")
	amountB, _ := cmd.Flags().GetUint64("amount-b")
	minShares, _ := cmd.Flags().GetUint64("min-shares")
	return submit(cmd, instruction.AddLiquidity{AmountA: amountA, AmountB: amountB, MinimumShares: minShares}, existingPool)
}

func runRemoveLiquidity(cmd *cobra.Command, _ []string) error {
	shares, _ := cmd.Flags().GetUint64("shares")
	minA, _ := cmd.Flags().GetUint64("min-a")
	minB, _ := cmd.Flags().GetUint64("min-b")
	return submit(cmd, instruction.RemoveLiquidity{SharesBurned: shares, MinimumA: minA, MinimumB: minB}, existingPool)
}

func runShow(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	rt, err := openRuntime(ctx, cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	id, err := rt.poolID()
	if err != nil {
		return err
	}
	pool, err := rt.loadPool(ctx, id)
	if err != nil {
		return err
	}
	supply, err := rt.ledger.ShareSupply(ctx, pool.ShareMint)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), processor.Snapshot(id, pool, supply))
}

type accountsFunc func(ctx context.Context, rt *runtime, signer solana.PublicKey) (processor.Accounts, error)

// existingPool names the configured pool and the mints it was created with.
func existingPool(ctx context.Context, rt *runtime, _ solana.PublicKey) (processor.Accounts, error) {
	id, err := rt.poolID()
	if err != nil {
		return processor.Accounts{}, err
	}
	pool, err := rt.loadPool(ctx, id)
	if err != nil {
		return processor.Accounts{}, err
	}
	return processor.Accounts{Pool: id, ShareMint: pool.ShareMint, AssetMint: pool.AssetMint}, nil
}

// submit signs ix with the configured keypair, processes it and prints the
// resulting operation.
func submit(cmd *cobra.Command, ix instruction.Instruction, accounts accountsFunc) error {
	ctx := cmd.Context()
	rt, err := openRuntime(ctx, cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	key, err := rt.signer()
	if err != nil {
		return err
	}
	accts, err := accounts(ctx, rt, key.PublicKey())
	if err != nil {
		return err
	}

	req := processor.Request{Accounts: accts, Data: instruction.Encode(ix)}
	if err := req.Sign(key); err != nil {
		return fmt.Errorf("sign request: %w", err)
	}
	receipt, err := rt.proc.Process(ctx, req)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), processor.Operation(receipt))
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
