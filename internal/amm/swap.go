package amm

// SwapResult is the outcome of Swap.
type SwapResult struct {
	Direction   Direction
	AmountIn    uint64
	AmountInNet uint64
	AmountOut   uint64
	Pool        Pool
	Transfers   []Transfer
}

// NetOfFee removes the pool fee from amountIn, truncating toward zero.
func NetOfFee(amountIn, feeRateBps uint64) (uint64, error) {
	if feeRateBps >= MaxFeeRateBps {
		return 0, ErrInvalidFeeRate
	}
	return MulDiv(amountIn, MaxFeeRateBps-feeRateBps, MaxFeeRateBps)
}

// AmountOut prices a fee-adjusted input against the constant-product curve:
// reserveOut * amountInNet / (reserveIn + amountInNet).
func AmountOut(reserveIn, reserveOut, amountInNet uint64) (uint64, error) {
	denominator, err := CheckedAdd(reserveIn, amountInNet)
	if err != nil {
		return 0, err
	}
	return MulDiv(reserveOut, amountInNet, denominator)
}

// Swap trades amountIn of the input asset selected by d for the output asset.
// The full amountIn is added to the input reserve, so the fee stays in the pool.
func Swap(p Pool, amountIn, minimumAmountOut uint64, d Direction) (SwapResult, error) {
	if err := requireInitialized(p); err != nil {
		return SwapResult{}, err
	}
	if !d.Valid() {
		return SwapResult{}, ErrInvalidInstruction
	}

	next := p
	reserveIn, reserveOut := next.reserves(d)
	if *reserveIn == 0 || *reserveOut == 0 {
		return SwapResult{}, ErrInsufficientLiquidity
	}

	amountInNet, err := NetOfFee(amountIn, p.FeeRateBps)
	if err != nil {
		return SwapResult{}, err
	}
	amountOut, err := AmountOut(*reserveIn, *reserveOut, amountInNet)
	if err != nil {
		return SwapResult{}, err
	}
	if amountOut < minimumAmountOut {
		return SwapResult{}, ErrSlippageExceeded
	}

	newIn, err := CheckedAdd(*reserveIn, amountIn)
	if err != nil {
		return SwapResult{}, err
	}
	newOut, err := CheckedSub(*reserveOut, amountOut)
	if err != nil {
		return SwapResult{}, err
	}
	*reserveIn, *reserveOut = newIn, newOut

	assetIn, assetOut := AssetB, AssetA
	if d == AToB {
		assetIn, assetOut = AssetA, AssetB
	}
	var transfers []Transfer
	transfers = appendTransfer(transfers, assetIn, Deposit, amountIn)
	transfers = appendTransfer(transfers, assetOut, Withdraw, amountOut)

	return SwapResult{
		Direction:   d,
		AmountIn:    amountIn,
		AmountInNet: amountInNet,
		AmountOut:   amountOut,
		Pool:        next,
		Transfers:   transfers,
	}, nil
}
