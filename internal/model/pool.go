package model

// PoolSnapshot is the display form of a pool record for storage and APIs.
type PoolSnapshot struct {
	ID          string `json:"id"`
	Authority   string `json:"authority"`
	ReserveA    uint64 `json:"reserve_a"`
	ReserveB    uint64 `json:"reserve_b"`
	ShareMint   string `json:"share_mint"`
	AssetMint   string `json:"asset_mint"`
	FeeRateBps  uint64 `json:"fee_rate_bps"`
	ShareSupply uint64 `json:"share_supply"`
	Initialized bool   `json:"initialized"`
}
