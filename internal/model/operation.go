package model

// Operation is one committed pool operation as written to journals.
type Operation struct {
	PoolID    string     `json:"pool_id"`
	Op        string     `json:"op"`
	Signer    string     `json:"signer"`
	Direction string     `json:"direction,omitempty"`
	AmountIn  uint64     `json:"amount_in,omitempty"`
	AmountOut uint64     `json:"amount_out,omitempty"`
	Fee       uint64     `json:"fee,omitempty"`
	AmountA   uint64     `json:"amount_a,omitempty"`
	AmountB   uint64     `json:"amount_b,omitempty"`
	Shares    uint64     `json:"shares,omitempty"`
	Transfers []Transfer `json:"transfers"`

	// Pool is the post-operation state.
	Pool        PoolSnapshot `json:"pool"`
	CommittedAt string       `json:"committed_at"`
}

// Transfer is a single asset movement implied by an operation.
type Transfer struct {
	Asset  string `json:"asset"`
	Mint   string `json:"mint"`
	Kind   string `json:"kind"`
	Amount uint64 `json:"amount"`
}
