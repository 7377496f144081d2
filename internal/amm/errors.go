package amm

import "fmt"

// Error is a typed engine failure. Codes are stable so a host can surface
// them verbatim as custom program error numbers.
type Error uint32

const (
	ErrInvalidInstruction Error = iota
	ErrPoolAlreadyInitialized
	ErrPoolNotInitialized
	ErrInvalidPoolAuthority
	ErrInvalidTokenMint
	ErrInsufficientLiquidity
	ErrSlippageExceeded
	ErrInvalidFeeRate
	ErrMathOverflow
	ErrInvalidUserPosition
)

var errorText = map[Error]string{
	ErrInvalidInstruction:     "invalid instruction",
	ErrPoolAlreadyInitialized: "pool already initialized",
	ErrPoolNotInitialized:     "pool not initialized",
	ErrInvalidPoolAuthority:   "invalid pool authority",
	ErrInvalidTokenMint:       "invalid token mint",
	ErrInsufficientLiquidity:  "insufficient liquidity",
	ErrSlippageExceeded:       "slippage tolerance exceeded",
	ErrInvalidFeeRate:         "invalid fee rate",
	ErrMathOverflow:           "math overflow",
	ErrInvalidUserPosition:    "invalid user position",
}

func (e Error) Error() string {
	if text, ok := errorText[e]; ok {
		return text
	}
	return fmt.Sprintf("amm error %d", uint32(e))
}

// Code returns the numeric error code.
func (e Error) Code() uint32 {
	return uint32(e)
}
