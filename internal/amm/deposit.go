package amm

import "github.com/holiman/uint256"

// DepositResult is the outcome of AddLiquidity.
type DepositResult struct {
	AmountA      uint64
	AmountB      uint64
	SharesMinted uint64
	Pool         Pool
	Transfers    []Transfer
}

// SharesForDeposit computes the share issuance for depositing amountA and
// amountB into a pool holding reserveA and reserveB with totalSupply shares
// outstanding.
//
// An empty pool (reserveA == 0) issues floor(sqrt(amountA*amountB)). Otherwise
// each amount is expressed as a parts-per-million ratio of its reserve and the
// smaller ratio decides issuance, so the scarcer asset binds.
func SharesForDeposit(reserveA, reserveB, amountA, amountB, totalSupply uint64) (uint64, error) {
	if reserveA == 0 {
		return SqrtProduct(amountA, amountB), nil
	}

	ratioA, err := mulDivWide(uint256.NewInt(amountA), ShareRatioScale, reserveA)
	if err != nil {
		return 0, err
	}
	ratioB, err := mulDivWide(uint256.NewInt(amountB), ShareRatioScale, reserveB)
	if err != nil {
		return 0, err
	}
	minRatio := ratioA
	if ratioB.Lt(ratioA) {
		minRatio = ratioB
	}

	shares, err := mulDivWide(minRatio, totalSupply, ShareRatioScale)
	if err != nil {
		return 0, err
	}
	return narrow(shares)
}

// AddLiquidity deposits the full amountA and amountB and mints shares in
// proportion to the binding asset. Value lost to an unbalanced deposit stays
// in the pool.
func AddLiquidity(p Pool, amountA, amountB, minimumShares, totalShareSupply uint64) (DepositResult, error) {
	if err := requireInitialized(p); err != nil {
		return DepositResult{}, err
	}
	if amountA == 0 && amountB == 0 {
		return DepositResult{}, ErrInvalidUserPosition
	}

	shares, err := SharesForDeposit(p.ReserveA, p.ReserveB, amountA, amountB, totalShareSupply)
	if err != nil {
		return DepositResult{}, err
	}
	if shares < minimumShares {
		return DepositResult{}, ErrSlippageExceeded
	}
	if shares == 0 {
		return DepositResult{}, ErrInsufficientLiquidity
	}

	next := p
	if next.ReserveA, err = CheckedAdd(p.ReserveA, amountA); err != nil {
		return DepositResult{}, err
	}
	if next.ReserveB, err = CheckedAdd(p.ReserveB, amountB); err != nil {
		return DepositResult{}, err
	}

	var transfers []Transfer
	transfers = appendTransfer(transfers, AssetA, Deposit, amountA)
	transfers = appendTransfer(transfers, AssetB, Deposit, amountB)
	transfers = appendTransfer(transfers, AssetShare, Mint, shares)

	return DepositResult{
		AmountA:      amountA,
		AmountB:      amountB,
		SharesMinted: shares,
		Pool:         next,
		Transfers:    transfers,
	}, nil
}
