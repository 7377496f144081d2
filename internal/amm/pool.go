// Package amm implements the constant-product pool engine: swaps, proportional
// deposits and proportional withdrawals over a two-asset reserve pool.
//
// Every operation takes a Pool snapshot by value and returns either a new
// snapshot together with the transfers it implies, or an Error. The input
// snapshot is never modified, so a failed operation leaves nothing to undo.
// Applying the new snapshot and its transfers atomically is the caller's job.
package amm

import (
	"github.com/gagliardetto/solana-go"
	"github.com/holiman/uint256"
)

// MaxFeeRateBps is the exclusive upper bound of a pool fee (100%).
const MaxFeeRateBps uint64 = 10_000

// Pool is the reserve and configuration record of one trading pair.
// ReserveA holds the native asset, ReserveB the asset identified by AssetMint.
type Pool struct {
	Authority   solana.PublicKey
	ReserveA    uint64
	ReserveB    uint64
	ShareMint   solana.PublicKey
	FeeRateBps  uint64
	AssetMint   solana.PublicKey
	Initialized bool
}

// Direction selects which reserve a swap pays into.
type Direction uint8

const (
	// BToA pays asset B in and takes asset A out.
	BToA Direction = 0
	// AToB pays asset A in and takes asset B out.
	AToB Direction = 1
)

func (d Direction) String() string {
	switch d {
	case AToB:
		return "a-to-b"
	case BToA:
		return "b-to-a"
	default:
		return "unknown"
	}
}

// ParseDirection accepts the String form of a direction.
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "a-to-b":
		return AToB, nil
	case "b-to-a":
		return BToA, nil
	default:
		return 0, ErrInvalidInstruction
	}
}

// Valid reports whether d is one of the two defined directions.
func (d Direction) Valid() bool {
	return d == AToB || d == BToA
}

// reserves returns pointers to the input and output reserve of p for d.
// Both directions share one code path; only the roles of the reserves differ.
func (p *Pool) reserves(d Direction) (in, out *uint64) {
	if d == AToB {
		return &p.ReserveA, &p.ReserveB
	}
	return &p.ReserveB, &p.ReserveA
}

// Asset names one of the three fungible balances a pool touches.
type Asset uint8

const (
	AssetA Asset = iota
	AssetB
	AssetShare
)

func (a Asset) String() string {
	switch a {
	case AssetA:
		return "a"
	case AssetB:
		return "b"
	case AssetShare:
		return "share"
	default:
		return "unknown"
	}
}

// TransferKind describes how a transfer moves value relative to the pool.
type TransferKind uint8

const (
	// Deposit moves funds from the user into the pool vault.
	Deposit TransferKind = iota
	// Withdraw moves funds from the pool vault to the user.
	Withdraw
	// Mint issues new share tokens to the user.
	Mint
	// Burn destroys share tokens held by the user.
	Burn
)

func (k TransferKind) String() string {
	switch k {
	case Deposit:
		return "deposit"
	case Withdraw:
		return "withdraw"
	case Mint:
		return "mint"
	case Burn:
		return "burn"
	default:
		return "unknown"
	}
}

// Transfer is one balance movement the host must execute together with the
// pool update.
type Transfer struct {
	Asset  Asset
	Kind   TransferKind
	Amount uint64
}

// appendTransfer skips zero-amount movements.
func appendTransfer(list []Transfer, asset Asset, kind TransferKind, amount uint64) []Transfer {
	if amount == 0 {
		return list
	}
	return append(list, Transfer{Asset: asset, Kind: kind, Amount: amount})
}

// requireInitialized is the common precondition of every mutating operation
// except initialization.
func requireInitialized(p Pool) error {
	if !p.Initialized {
		return ErrPoolNotInitialized
	}
	return nil
}

// Invariant returns the constant-product value ReserveA*ReserveB. The product
// can exceed 64 bits.
func (p Pool) Invariant() *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(p.ReserveA), uint256.NewInt(p.ReserveB))
}
