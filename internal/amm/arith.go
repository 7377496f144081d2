package amm

import (
	gmath "github.com/ethereum/go-ethereum/common/math"
	"github.com/holiman/uint256"
)

// ShareRatioScale is the fixed-point scale of deposit ratios (parts per million).
const ShareRatioScale uint64 = 1_000_000

// CheckedAdd returns x+y or ErrMathOverflow.
func CheckedAdd(x, y uint64) (uint64, error) {
	sum, overflow := gmath.SafeAdd(x, y)
	if overflow {
		return 0, ErrMathOverflow
	}
	return sum, nil
}

// CheckedSub returns x-y or ErrMathOverflow when y > x.
func CheckedSub(x, y uint64) (uint64, error) {
	diff, underflow := gmath.SafeSub(x, y)
	if underflow {
		return 0, ErrMathOverflow
	}
	return diff, nil
}

// CheckedMul returns x*y or ErrMathOverflow.
func CheckedMul(x, y uint64) (uint64, error) {
	prod, overflow := gmath.SafeMul(x, y)
	if overflow {
		return 0, ErrMathOverflow
	}
	return prod, nil
}

// MulDiv returns floor(x*y/d). The product is formed in a 256-bit
// intermediate, so only a zero divisor or a quotient wider than 64 bits fails.
func MulDiv(x, y, d uint64) (uint64, error) {
	q, err := mulDivWide(uint256.NewInt(x), y, d)
	if err != nil {
		return 0, err
	}
	return narrow(q)
}

// SqrtProduct returns floor(sqrt(x*y)). The square root of a 128-bit value
// always fits in 64 bits.
func SqrtProduct(x, y uint64) uint64 {
	prod := new(uint256.Int).Mul(uint256.NewInt(x), uint256.NewInt(y))
	return prod.Sqrt(prod).Uint64()
}

func mulDivWide(x *uint256.Int, y, d uint64) (*uint256.Int, error) {
	if d == 0 {
		return nil, ErrMathOverflow
	}
	prod, overflow := new(uint256.Int).MulOverflow(x, uint256.NewInt(y))
	if overflow {
		return nil, ErrMathOverflow
	}
	return prod.Div(prod, uint256.NewInt(d)), nil
}

func narrow(v *uint256.Int) (uint64, error) {
	if !v.IsUint64() {
		return 0, ErrMathOverflow
	}
	return v.Uint64(), nil
}
