package amm

import "github.com/gagliardetto/solana-go"

// InitParams configures a new pool.
type InitParams struct {
	Authority  solana.PublicKey
	ShareMint  solana.PublicKey
	AssetMint  solana.PublicKey
	AmountA    uint64
	AmountB    uint64
	FeeRateBps uint64
}

// InitializeResult is the outcome of Initialize.
type InitializeResult struct {
	SharesMinted uint64
	Pool         Pool
	Transfers    []Transfer
}

// Initialize moves an uninitialized slot into the initialized state. Seed
// amounts are either both zero or both non-zero; a seeded pool mints
// floor(sqrt(amountA*amountB)) shares to the initializer.
//
// The share mint must be distinct from both pooled assets. Whether it is
// already in use elsewhere is for the host to enforce.
func Initialize(p Pool, params InitParams) (InitializeResult, error) {
	if p.Initialized {
		return InitializeResult{}, ErrPoolAlreadyInitialized
	}
	if params.FeeRateBps >= MaxFeeRateBps {
		return InitializeResult{}, ErrInvalidFeeRate
	}
	if err := checkInitMints(params.ShareMint, params.AssetMint); err != nil {
		return InitializeResult{}, err
	}
	if (params.AmountA == 0) != (params.AmountB == 0) {
		return InitializeResult{}, ErrInsufficientLiquidity
	}

	shares := SqrtProduct(params.AmountA, params.AmountB)
	next := Pool{
		Authority:   params.Authority,
		ReserveA:    params.AmountA,
		ReserveB:    params.AmountB,
		ShareMint:   params.ShareMint,
		FeeRateBps:  params.FeeRateBps,
		AssetMint:   params.AssetMint,
		Initialized: true,
	}

	var transfers []Transfer
	transfers = appendTransfer(transfers, AssetA, Deposit, params.AmountA)
	transfers = appendTransfer(transfers, AssetB, Deposit, params.AmountB)
	transfers = appendTransfer(transfers, AssetShare, Mint, shares)

	return InitializeResult{
		SharesMinted: shares,
		Pool:         next,
		Transfers:    transfers,
	}, nil
}

func checkInitMints(share, asset solana.PublicKey) error {
	switch {
	case share.IsZero(), asset.IsZero():
		return ErrInvalidTokenMint
	case share.Equals(solana.SolMint), asset.Equals(solana.SolMint):
		return ErrInvalidTokenMint
	case share.Equals(asset):
		return ErrInvalidTokenMint
	}
	return nil
}

// CheckMints fails with ErrInvalidTokenMint unless the caller's view of the
// share and asset mints matches the pool.
func (p Pool) CheckMints(shareMint, assetMint solana.PublicKey) error {
	if !p.ShareMint.Equals(shareMint) || !p.AssetMint.Equals(assetMint) {
		return ErrInvalidTokenMint
	}
	return nil
}

