package aggregate

import (
	"time"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

const ratioScale = 18

var yearSeconds = decimal.NewFromInt(int64(365 * 24 * time.Hour / time.Second))

func toDecimal(v *uint256.Int) decimal.Decimal {
	return decimal.NewFromBigInt(v.ToBig(), 0)
}

// computeFeeRate returns fee/reserve, or nil when either side is zero.
func computeFeeRate(fee *uint256.Int, reserve uint64) *decimal.Decimal {
	if fee == nil || fee.IsZero() || reserve == 0 {
		return nil
	}
	rate := toDecimal(fee).DivRound(toDecimal(uint256.NewInt(reserve)), ratioScale)
	return &rate
}

// computeAPR annualizes the pool yield of one window. Both reserves of a
// constant-product pool carry equal value, so the pool yield is the mean of
// the two per-side fee rates.
func computeAPR(feeRateA, feeRateB *decimal.Decimal, windowSeconds uint64) *string {
	if windowSeconds == 0 || (feeRateA == nil && feeRateB == nil) {
		return nil
	}
	sum := decimal.Zero
	if feeRateA != nil {
		sum = sum.Add(*feeRateA)
	}
	if feeRateB != nil {
		sum = sum.Add(*feeRateB)
	}
	apr := sum.Div(decimal.NewFromInt(2)).
		Mul(yearSeconds).
		DivRound(decimal.NewFromInt(int64(windowSeconds)), ratioScale)
	val := apr.String()
	return &val
}

func optionalString(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	val := d.String()
	return &val
}
