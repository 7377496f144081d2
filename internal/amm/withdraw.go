package amm

// WithdrawResult is the outcome of RemoveLiquidity.
type WithdrawResult struct {
	SharesBurned uint64
	AmountA      uint64
	AmountB      uint64
	Pool         Pool
	Transfers    []Transfer
}

// RemoveLiquidity burns sharesBurned and releases the proportional slice of
// both reserves, rounded down.
func RemoveLiquidity(p Pool, sharesBurned, minimumA, minimumB, totalShareSupply uint64) (WithdrawResult, error) {
	if err := requireInitialized(p); err != nil {
		return WithdrawResult{}, err
	}
	if sharesBurned == 0 {
		return WithdrawResult{}, ErrInvalidUserPosition
	}

	amountA, err := MulDiv(p.ReserveA, sharesBurned, totalShareSupply)
	if err != nil {
		return WithdrawResult{}, err
	}
	amountB, err := MulDiv(p.ReserveB, sharesBurned, totalShareSupply)
	if err != nil {
		return WithdrawResult{}, err
	}
	if amountA < minimumA || amountB < minimumB {
		return WithdrawResult{}, ErrSlippageExceeded
	}

	// Underflow here means totalShareSupply was smaller than sharesBurned.
	next := p
	if next.ReserveA, err = CheckedSub(p.ReserveA, amountA); err != nil {
		return WithdrawResult{}, err
	}
	if next.ReserveB, err = CheckedSub(p.ReserveB, amountB); err != nil {
		return WithdrawResult{}, err
	}

	var transfers []Transfer
	transfers = appendTransfer(transfers, AssetShare, Burn, sharesBurned)
	transfers = appendTransfer(transfers, AssetA, Withdraw, amountA)
	transfers = appendTransfer(transfers, AssetB, Withdraw, amountB)

	return WithdrawResult{
		SharesBurned: sharesBurned,
		AmountA:      amountA,
		AmountB:      amountB,
		Pool:         next,
		Transfers:    transfers,
	}, nil
}
