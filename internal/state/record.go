// Package state encodes and decodes the fixed-size pool record.
package state

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"ammEngine/internal/amm"
)

// PoolRecordSize is the persisted size of a pool record:
// authority(32) reserveA(8) reserveB(8) shareMint(32) fee(8) assetMint(32) initialized(1).
const PoolRecordSize = 121

var (
	// ErrDeserialization reports a raw record that does not match the layout.
	ErrDeserialization = errors.New("pool record deserialization failed")
	// ErrTargetTooSmall reports a save target shorter than PoolRecordSize.
	ErrTargetTooSmall = errors.New("pool record target too small")
)

type poolLayout struct {
	Authority   solana.PublicKey
	ReserveA    uint64
	ReserveB    uint64
	ShareMint   solana.PublicKey
	FeeRateBps  uint64
	AssetMint   solana.PublicKey
	Initialized bool
}

// Load decodes a raw pool record. It does not check Initialized.
func Load(raw []byte) (amm.Pool, error) {
	if len(raw) != PoolRecordSize {
		return amm.Pool{}, fmt.Errorf("%w: expected %d bytes, got %d", ErrDeserialization, PoolRecordSize, len(raw))
	}
	if flag := raw[PoolRecordSize-1]; flag > 1 {
		return amm.Pool{}, fmt.Errorf("%w: invalid initialized flag %d", ErrDeserialization, flag)
	}

	var layout poolLayout
	if err := binary.Read(bytes.NewReader(raw), binary.LittleEndian, &layout); err != nil {
		return amm.Pool{}, fmt.Errorf("%w: %v", ErrDeserialization, err)
	}

	return amm.Pool{
		Authority:   layout.Authority,
		ReserveA:    layout.ReserveA,
		ReserveB:    layout.ReserveB,
		ShareMint:   layout.ShareMint,
		FeeRateBps:  layout.FeeRateBps,
		AssetMint:   layout.AssetMint,
		Initialized: layout.Initialized,
	}, nil
}

// Save overwrites the first PoolRecordSize bytes of target with pool.
func Save(pool amm.Pool, target []byte) error {
	if len(target) < PoolRecordSize {
		return fmt.Errorf("%w: %d bytes", ErrTargetTooSmall, len(target))
	}
	layout := poolLayout{
		Authority:   pool.Authority,
		ReserveA:    pool.ReserveA,
		ReserveB:    pool.ReserveB,
		ShareMint:   pool.ShareMint,
		FeeRateBps:  pool.FeeRateBps,
		AssetMint:   pool.AssetMint,
		Initialized: pool.Initialized,
	}
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, &layout); err != nil {
		return fmt.Errorf("encode pool record: %w", err)
	}
	copy(target[:PoolRecordSize], buf.Bytes())
	return nil
}

// Marshal returns a freshly allocated record for pool.
func Marshal(pool amm.Pool) ([]byte, error) {
	raw := make([]byte, PoolRecordSize)
	if err := Save(pool, raw); err != nil {
		return nil, err
	}
	return raw, nil
}
