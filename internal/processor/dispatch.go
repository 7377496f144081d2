package processor

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"ammEngine/internal/amm"
	"ammEngine/internal/instruction"
)

// Env is what the dispatcher needs to know about the caller and the host.
type Env struct {
	Signer      solana.PublicKey
	Accounts    Accounts
	ShareSupply uint64
}

// Outcome is the engine result of one instruction, normalized across the
// four variants.
type Outcome struct {
	Op        instruction.Tag
	Pool      amm.Pool
	Transfers []amm.Transfer
	Direction amm.Direction
	AmountIn  uint64
	// AmountInNet is the swap input left after the fee.
	AmountInNet uint64
	AmountOut   uint64
	AmountA     uint64
	AmountB     uint64
	// Shares is minted for initialize and deposits, burned for withdrawals.
	Shares uint64
}

// Execute routes a decoded instruction to its engine. It performs no I/O.
func Execute(pool amm.Pool, ix instruction.Instruction, env Env) (Outcome, error) {
	if _, ok := ix.(instruction.InitializePool); !ok && pool.Initialized {
		if err := pool.CheckMints(env.Accounts.ShareMint, env.Accounts.AssetMint); err != nil {
			return Outcome{}, err
		}
	}

	switch ix := ix.(type) {
	case instruction.InitializePool:
		if !env.Accounts.Authority.Equals(env.Signer) {
			return Outcome{}, amm.ErrInvalidPoolAuthority
		}
		res, err := amm.Initialize(pool, amm.InitParams{
			Authority:  env.Accounts.Authority,
			ShareMint:  env.Accounts.ShareMint,
			AssetMint:  env.Accounts.AssetMint,
			AmountA:    ix.AmountA,
			AmountB:    ix.AmountB,
			FeeRateBps: ix.FeeRateBps,
		})
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{
			Op:        ix.Tag(),
			Pool:      res.Pool,
			Transfers: res.Transfers,
			AmountA:   ix.AmountA,
			AmountB:   ix.AmountB,
			Shares:    res.SharesMinted,
		}, nil

	case instruction.Swap:
		res, err := amm.Swap(pool, ix.AmountIn, ix.MinimumAmountOut, ix.Direction)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{
			Op:          ix.Tag(),
			Pool:        res.Pool,
			Transfers:   res.Transfers,
			Direction:   res.Direction,
			AmountIn:    res.AmountIn,
			AmountInNet: res.AmountInNet,
			AmountOut:   res.AmountOut,
		}, nil

	case instruction.AddLiquidity:
		res, err := amm.AddLiquidity(pool, ix.AmountA, ix.AmountB, ix.MinimumShares, env.ShareSupply)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{
			Op:        ix.Tag(),
			Pool:      res.Pool,
			Transfers: res.Transfers,
			AmountA:   res.AmountA,
			AmountB:   res.AmountB,
			Shares:    res.SharesMinted,
		}, nil

	case instruction.RemoveLiquidity:
		res, err := amm.RemoveLiquidity(pool, ix.SharesBurned, ix.MinimumA, ix.MinimumB, env.ShareSupply)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{
			Op:        ix.Tag(),
			Pool:      res.Pool,
			Transfers: res.Transfers,
			AmountA:   res.AmountA,
			AmountB:   res.AmountB,
			Shares:    res.SharesBurned,
		}, nil

	default:
		return Outcome{}, fmt.Errorf("%w: unsupported instruction %T", amm.ErrInvalidInstruction, ix)
	}
}
