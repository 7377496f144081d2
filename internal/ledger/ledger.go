// Package ledger is a pebble-backed host for pool records, holder balances
// and share mint bindings. Each Apply lands in a single pebble batch, so a
// pool update and the transfers it implies become visible together or not
// at all.
package ledger

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/gagliardetto/solana-go"
	lru "github.com/hashicorp/golang-lru/v2"

	"ammEngine/internal/amm"
)

var (
	ErrClosed            = errors.New("ledger is closed")
	ErrInsufficientFunds = errors.New("insufficient funds")
)

var (
	prefixPool    = []byte("pool/")
	prefixBalance = []byte("bal/")
	prefixSupply  = []byte("supply/")
	prefixMint    = []byte("mint/")
)

// Options configures a Ledger.
type Options struct {
	// Dir is the pebble directory. Ignored when InMemory is set.
	Dir       string
	InMemory  bool
	CacheSize int
}

// Movement debits From and credits To. A zero From mints new supply of Mint;
// a zero To burns it.
type Movement struct {
	Mint   solana.PublicKey
	From   solana.PublicKey
	To     solana.PublicKey
	Amount uint64
}

// Commit is one all-or-nothing ledger update.
type Commit struct {
	PoolID    solana.PublicKey
	Record    []byte
	Movements []Movement
	// ClaimMint, when set, binds the mint to PoolID as its share mint. The
	// claim fails with amm.ErrInvalidTokenMint if the mint is already bound
	// or has outstanding supply.
	ClaimMint solana.PublicKey
}

// Ledger stores pool slots, balances and token supplies.
type Ledger struct {
	mu    sync.Mutex
	db    *pebble.DB
	cache *lru.Cache[solana.PublicKey, []byte]
}

// Open opens or creates a ledger.
func Open(opts Options) (*Ledger, error) {
	pebbleOpts := &pebble.Options{}
	dir := opts.Dir
	if opts.InMemory {
		pebbleOpts.FS = vfs.NewMem()
		dir = ""
	} else if dir == "" {
		return nil, fmt.Errorf("ledger dir is required")
	}

	size := opts.CacheSize
	if size <= 0 {
		size = 128
	}
	cache, err := lru.New[solana.PublicKey, []byte](size)
	if err != nil {
		return nil, fmt.Errorf("create pool cache: %w", err)
	}

	db, err := pebble.Open(dir, pebbleOpts)
	if err != nil {
		return nil, fmt.Errorf("open pebble: %w", err)
	}
	return &Ledger{db: db, cache: cache}, nil
}

func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.db == nil {
		return nil
	}
	err := l.db.Close()
	l.db = nil
	l.cache.Purge()
	return err
}

// LoadPool returns the raw record stored in slot id, or nil when the slot
// has never been written.
func (l *Ledger) LoadPool(_ context.Context, id solana.PublicKey) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.db == nil {
		return nil, ErrClosed
	}
	if raw, ok := l.cache.Get(id); ok {
		return clone(raw), nil
	}

	raw, err := get(l.db, poolKey(id))
	if err != nil || raw == nil {
		return nil, err
	}
	l.cache.Add(id, raw)
	return clone(raw), nil
}

// ShareSupply returns the outstanding supply of mint.
func (l *Ledger) ShareSupply(_ context.Context, mint solana.PublicKey) (uint64, error) {
	return l.readU64(supplyKey(mint))
}

// Balance returns the balance of holder in mint.
func (l *Ledger) Balance(_ context.Context, mint, holder solana.PublicKey) (uint64, error) {
	return l.readU64(balanceKey(mint, holder))
}

// MintOwner returns the pool a share mint is bound to.
func (l *Ledger) MintOwner(_ context.Context, mint solana.PublicKey) (solana.PublicKey, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.db == nil {
		return solana.PublicKey{}, false, ErrClosed
	}
	raw, err := get(l.db, mintKey(mint))
	if err != nil || raw == nil {
		return solana.PublicKey{}, false, err
	}
	return solana.PublicKeyFromBytes(raw), true, nil
}

// Credit mints amount of mint to holder. Share mints bound to a pool can
// only be minted by that pool's operations.
func (l *Ledger) Credit(_ context.Context, mint, holder solana.PublicKey, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.db == nil {
		return ErrClosed
	}

	batch := l.db.NewIndexedBatch()
	defer batch.Close()
	owner, err := get(batch, mintKey(mint))
	if err != nil {
		return err
	}
	if owner != nil {
		return amm.ErrInvalidTokenMint
	}
	if err := move(batch, Movement{Mint: mint, To: holder, Amount: amount}); err != nil {
		return err
	}
	return batch.Commit(pebble.Sync)
}

// Apply writes the pool record and executes every movement in one batch.
// Any failing movement discards the whole batch.
func (l *Ledger) Apply(_ context.Context, c Commit) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.db == nil {
		return ErrClosed
	}

	batch := l.db.NewIndexedBatch()
	defer batch.Close()

	if !c.ClaimMint.IsZero() {
		if err := claim(batch, c.ClaimMint, c.PoolID); err != nil {
			return fmt.Errorf("claim mint %s: %w", c.ClaimMint, err)
		}
	}
	for i, m := range c.Movements {
		if err := move(batch, m); err != nil {
			return fmt.Errorf("movement %d (%s): %w", i, m.Mint, err)
		}
	}
	if err := batch.Set(poolKey(c.PoolID), c.Record, nil); err != nil {
		return fmt.Errorf("write pool record: %w", err)
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}

	l.cache.Add(c.PoolID, clone(c.Record))
	return nil
}

func (l *Ledger) readU64(key []byte) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.db == nil {
		return 0, ErrClosed
	}
	raw, err := get(l.db, key)
	if err != nil || raw == nil {
		return 0, err
	}
	return decodeU64(raw)
}

func claim(batch *pebble.Batch, mint, pool solana.PublicKey) error {
	owner, err := get(batch, mintKey(mint))
	if err != nil {
		return err
	}
	if owner != nil {
		return amm.ErrInvalidTokenMint
	}
	raw, err := get(batch, supplyKey(mint))
	if err != nil {
		return err
	}
	if raw != nil {
		supply, err := decodeU64(raw)
		if err != nil {
			return err
		}
		if supply > 0 {
			return amm.ErrInvalidTokenMint
		}
	}
	return batch.Set(mintKey(mint), pool[:], nil)
}

func move(batch *pebble.Batch, m Movement) error {
	if m.Amount == 0 {
		return nil
	}
	minting := m.From.IsZero()
	burning := m.To.IsZero()

	if !minting {
		if err := adjust(batch, balanceKey(m.Mint, m.From), m.Amount, false); err != nil {
			if burning && errors.Is(err, ErrInsufficientFunds) {
				return amm.ErrInvalidUserPosition
			}
			return err
		}
	}
	if !burning {
		if err := adjust(batch, balanceKey(m.Mint, m.To), m.Amount, true); err != nil {
			return err
		}
	}
	if minting {
		return adjust(batch, supplyKey(m.Mint), m.Amount, true)
	}
	if burning {
		return adjust(batch, supplyKey(m.Mint), m.Amount, false)
	}
	return nil
}

func adjust(batch *pebble.Batch, key []byte, amount uint64, credit bool) error {
	raw, err := get(batch, key)
	if err != nil {
		return err
	}
	var current uint64
	if raw != nil {
		if current, err = decodeU64(raw); err != nil {
			return err
		}
	}

	var next uint64
	if credit {
		if next, err = amm.CheckedAdd(current, amount); err != nil {
			return err
		}
	} else {
		if amount > current {
			return ErrInsufficientFunds
		}
		next = current - amount
	}
	return batch.Set(key, binary.LittleEndian.AppendUint64(nil, next), nil)
}

type reader interface {
	Get(key []byte) ([]byte, io.Closer, error)
}

func get(r reader, key []byte) ([]byte, error) {
	val, closer, err := r.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	defer closer.Close()
	return clone(val), nil
}

func decodeU64(raw []byte) (uint64, error) {
	if len(raw) != 8 {
		return 0, fmt.Errorf("corrupt balance value of %d bytes", len(raw))
	}
	return binary.LittleEndian.Uint64(raw), nil
}

func poolKey(id solana.PublicKey) []byte {
	return append(append([]byte{}, prefixPool...), id[:]...)
}

func supplyKey(mint solana.PublicKey) []byte {
	return append(append([]byte{}, prefixSupply...), mint[:]...)
}

func mintKey(mint solana.PublicKey) []byte {
	return append(append([]byte{}, prefixMint...), mint[:]...)
}

func balanceKey(mint, holder solana.PublicKey) []byte {
	key := append(append([]byte{}, prefixBalance...), mint[:]...)
	return append(key, holder[:]...)
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
