package model

import "time"

// PoolWindowMetrics stores aggregated metrics for a pool window.
type PoolWindowMetrics struct {
	PoolID         string    `json:"pool_id"`
	WindowSizeSecs int64     `json:"window_size_seconds"`
	WindowStart    time.Time `json:"window_start"`
	WindowEnd      time.Time `json:"window_end"`
	SwapCount      uint64    `json:"swap_count"`
	DepositCount   uint64    `json:"deposit_count"`
	WithdrawCount  uint64    `json:"withdraw_count"`
	VolumeA        string    `json:"volume_a"`
	VolumeB        string    `json:"volume_b"`
	FeeA           string    `json:"fee_a"`
	FeeB           string    `json:"fee_b"`
	ReserveA       uint64    `json:"reserve_a"`
	ReserveB       uint64    `json:"reserve_b"`
	FeeRateA       *string   `json:"fee_rate_a,omitempty"`
	FeeRateB       *string   `json:"fee_rate_b,omitempty"`
	APR            *string   `json:"apr,omitempty"`
}
