package aggregate

import (
	"fmt"

	"github.com/holiman/uint256"

	"ammEngine/internal/model"
)

// Accumulator holds aggregate values for a pool window.
type Accumulator struct {
	PoolID        string
	WindowStart   uint64
	WindowEnd     uint64
	SwapCount     uint64
	DepositCount  uint64
	WithdrawCount uint64
	VolumeA       *uint256.Int
	VolumeB       *uint256.Int
	FeeA          *uint256.Int
	FeeB          *uint256.Int
	// ReserveA and ReserveB are taken from the latest operation seen.
	ReserveA uint64
	ReserveB uint64
	LastTS   uint64
}

func NewAccumulator(poolID string, windowStart, windowEnd uint64) *Accumulator {
	return &Accumulator{
		PoolID:      poolID,
		WindowStart: windowStart,
		WindowEnd:   windowEnd,
		VolumeA:     new(uint256.Int),
		VolumeB:     new(uint256.Int),
		FeeA:        new(uint256.Int),
		FeeB:        new(uint256.Int),
	}
}

func (a *Accumulator) AddOperation(op model.Operation, ts uint64) error {
	switch op.Op {
	case "swap":
		if err := a.applySwap(op); err != nil {
			return err
		}
	case "initialize_pool", "add_liquidity":
		a.DepositCount++
	case "remove_liquidity":
		a.WithdrawCount++
	default:
		return fmt.Errorf("unknown operation %q", op.Op)
	}

	if ts >= a.LastTS {
		a.LastTS = ts
		a.ReserveA = op.Pool.ReserveA
		a.ReserveB = op.Pool.ReserveB
	}
	return nil
}

// applySwap books volume and fee on the input side of the swap.
func (a *Accumulator) applySwap(op model.Operation) error {
	var volume, fee *uint256.Int
	switch op.Direction {
	case "a-to-b":
		volume, fee = a.VolumeA, a.FeeA
	case "b-to-a":
		volume, fee = a.VolumeB, a.FeeB
	default:
		return fmt.Errorf("unknown swap direction %q", op.Direction)
	}
	volume.Add(volume, uint256.NewInt(op.AmountIn))
	fee.Add(fee, uint256.NewInt(op.Fee))
	a.SwapCount++
	return nil
}
