// Package instruction decodes and encodes pool requests.
//
// A request is a one-byte tag followed by a fixed little-endian field region:
//
//	0 InitializePool   amount_a u64 | amount_b u64 | fee_rate_bps u64
//	1 Swap             amount_in u64 | minimum_amount_out u64 | direction u8
//	2 AddLiquidity     amount_a u64 | amount_b u64 | minimum_shares u64
//	3 RemoveLiquidity  shares_burned u64 | minimum_a u64 | minimum_b u64
//
// Bytes after the field region are ignored.
package instruction

import (
	"encoding/binary"

	"ammEngine/internal/amm"
)

// Tag identifies an instruction variant.
type Tag uint8

const (
	TagInitializePool Tag = iota
	TagSwap
	TagAddLiquidity
	TagRemoveLiquidity
)

func (t Tag) String() string {
	switch t {
	case TagInitializePool:
		return "initialize_pool"
	case TagSwap:
		return "swap"
	case TagAddLiquidity:
		return "add_liquidity"
	case TagRemoveLiquidity:
		return "remove_liquidity"
	default:
		return "unknown"
	}
}

// Instruction is implemented by the four request variants.
type Instruction interface {
	Tag() Tag
	isInstruction()
}

type InitializePool struct {
	AmountA    uint64
	AmountB    uint64
	FeeRateBps uint64
}

type Swap struct {
	AmountIn         uint64
	MinimumAmountOut uint64
	Direction        amm.Direction
}

type AddLiquidity struct {
	AmountA       uint64
	AmountB       uint64
	MinimumShares uint64
}

type RemoveLiquidity struct {
	SharesBurned uint64
	MinimumA     uint64
	MinimumB     uint64
}

func (InitializePool) Tag() Tag { return TagInitializePool }
func (Swap) Tag() Tag { return TagSwap }
func (AddLiquidity) Tag() Tag { return TagAddLiquidity }
func (RemoveLiquidity) Tag() Tag { return TagRemoveLiquidity }

func (InitializePool) isInstruction() {}
func (Swap) isInstruction() {}
func (AddLiquidity) isInstruction() {}
func (RemoveLiquidity) isInstruction() {}

// Decode parses a tag-prefixed request. Unknown tags, truncated field regions
// and swap directions other than 0 or 1 fail with amm.ErrInvalidInstruction.
func Decode(data []byte) (Instruction, error) {
	if len(data) == 0 {
		return nil, amm.ErrInvalidInstruction
	}
	tag, rest := Tag(data[0]), data[1:]

	switch tag {
	case TagInitializePool:
		f, err := readU64s(rest, 3)
		if err != nil {
			return nil, err
		}
		return InitializePool{AmountA: f[0], AmountB: f[1], FeeRateBps: f[2]}, nil
	case TagSwap:
		f, err := readU64s(rest, 2)
		if err != nil {
			return nil, err
		}
		if len(rest) < 17 {
			return nil, amm.ErrInvalidInstruction
		}
		dir := amm.Direction(rest[16])
		if !dir.Valid() {
			return nil, amm.ErrInvalidInstruction
		}
		return Swap{AmountIn: f[0], MinimumAmountOut: f[1], Direction: dir}, nil
	case TagAddLiquidity:
		f, err := readU64s(rest, 3)
		if err != nil {
			return nil, err
		}
		return AddLiquidity{AmountA: f[0], AmountB: f[1], MinimumShares: f[2]}, nil
	case TagRemoveLiquidity:
		f, err := readU64s(rest, 3)
		if err != nil {
			return nil, err
		}
		return RemoveLiquidity{SharesBurned: f[0], MinimumA: f[1], MinimumB: f[2]}, nil
	default:
		return nil, amm.ErrInvalidInstruction
	}
}

// Encode serializes ix into its wire form.
func Encode(ix Instruction) []byte {
	switch v := ix.(type) {
	case InitializePool:
		return putU64s(TagInitializePool, v.AmountA, v.AmountB, v.FeeRateBps)
	case Swap:
		out := putU64s(TagSwap, v.AmountIn, v.MinimumAmountOut)
		return append(out, byte(v.Direction))
	case AddLiquidity:
		return putU64s(TagAddLiquidity, v.AmountA, v.AmountB, v.MinimumShares)
	case RemoveLiquidity:
		return putU64s(TagRemoveLiquidity, v.SharesBurned, v.MinimumA, v.MinimumB)
	default:
		return nil
	}
}

func readU64s(data []byte, n int) ([]uint64, error) {
	if len(data) < n*8 {
		return nil, amm.ErrInvalidInstruction
	}
	out := make([]uint64, n)
	for i := range out {
		out[i] = binary.LittleEndian.Uint64(data[i*8:])
	}
	return out, nil
}

func putU64s(tag Tag, values ...uint64) []byte {
	out := make([]byte, 1, 1+len(values)*8+1)
	out[0] = byte(tag)
	for _, v := range values {
		out = binary.LittleEndian.AppendUint64(out, v)
	}
	return out
}
