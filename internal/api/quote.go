package api

import (
	"math/big"

	"github.com/shopspring/decimal"

	"ammEngine/internal/amm"
)

// pricePrecision is the number of decimal places kept in displayed prices.
const pricePrecision = 12

// Price is a display-only ratio. It never feeds back into pool math.
type Price = decimal.Decimal

type SwapQuote struct {
	Direction       string `json:"direction"`
	AmountIn        uint64 `json:"amount_in"`
	AmountInNet     uint64 `json:"amount_in_net"`
	AmountOut       uint64 `json:"amount_out"`
	ReserveA        uint64 `json:"reserve_a"`
	ReserveB        uint64 `json:"reserve_b"`
	SpotPriceBefore *Price `json:"spot_price_before,omitempty"`
	SpotPriceAfter  *Price `json:"spot_price_after,omitempty"`
	PriceImpact     *Price `json:"price_impact,omitempty"`
}

type DepositQuote struct {
	AmountA uint64 `json:"amount_a"`
	AmountB uint64 `json:"amount_b"`
	Shares  uint64 `json:"shares"`
}

type WithdrawQuote struct {
	Shares  uint64 `json:"shares"`
	AmountA uint64 `json:"amount_a"`
	AmountB uint64 `json:"amount_b"`
}

// QuoteSwap runs a swap against a copy of pool with no slippage floor.
func QuoteSwap(pool amm.Pool, amountIn uint64, d amm.Direction) (SwapQuote, error) {
	res, err := amm.Swap(pool, amountIn, 0, d)
	if err != nil {
		return SwapQuote{}, err
	}
	before, after := SpotPrice(pool), SpotPrice(res.Pool)
	q := SwapQuote{
		Direction:       d.String(),
		AmountIn:        res.AmountIn,
		AmountInNet:     res.AmountInNet,
		AmountOut:       res.AmountOut,
		ReserveA:        res.Pool.ReserveA,
		ReserveB:        res.Pool.ReserveB,
		SpotPriceBefore: before,
		SpotPriceAfter:  after,
	}
	if before != nil && after != nil && !before.IsZero() {
		impact := after.Sub(*before).Abs().DivRound(*before, pricePrecision)
		q.PriceImpact = &impact
	}
	return q, nil
}

func QuoteDeposit(pool amm.Pool, amountA, amountB, supply uint64) (DepositQuote, error) {
	res, err := amm.AddLiquidity(pool, amountA, amountB, 0, supply)
	if err != nil {
		return DepositQuote{}, err
	}
	return DepositQuote{AmountA: res.AmountA, AmountB: res.AmountB, Shares: res.SharesMinted}, nil
}

func QuoteWithdraw(pool amm.Pool, shares, supply uint64) (WithdrawQuote, error) {
	res, err := amm.RemoveLiquidity(pool, shares, 0, 0, supply)
	if err != nil {
		return WithdrawQuote{}, err
	}
	return WithdrawQuote{Shares: res.SharesBurned, AmountA: res.AmountA, AmountB: res.AmountB}, nil
}

// SpotPrice is the marginal price of asset A in units of asset B, or nil for
// a pool with an empty side.
func SpotPrice(pool amm.Pool) *Price {
	if pool.ReserveA == 0 || pool.ReserveB == 0 {
		return nil
	}
	p := toDecimal(pool.ReserveB).DivRound(toDecimal(pool.ReserveA), pricePrecision)
	return &p
}

func toDecimal(v uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), 0)
}
