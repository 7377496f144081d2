// Package processor hosts the pool engine: it authenticates a request,
// decodes it, runs the matching engine against the stored pool and commits
// the new record together with its transfers as one ledger update.
package processor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"ammEngine/internal/amm"
	"ammEngine/internal/instruction"
	"ammEngine/internal/ledger"
	"ammEngine/internal/model"
	"ammEngine/internal/state"
	"ammEngine/internal/storage"
)

// Ledger is the host state the processor reads and commits to.
type Ledger interface {
	// LoadPool returns nil, nil for a slot that was never written.
	LoadPool(ctx context.Context, id solana.PublicKey) ([]byte, error)
	ShareSupply(ctx context.Context, mint solana.PublicKey) (uint64, error)
	Apply(ctx context.Context, c ledger.Commit) error
}

// Options configures a Processor.
type Options struct {
	Verifier SignerVerifier
	Journals []storage.Journal
	Logger   *zap.Logger
	Now      func() time.Time
}

// Receipt describes a committed operation.
type Receipt struct {
	Outcome
	PoolID      solana.PublicKey
	Signer      solana.PublicKey
	ShareSupply uint64
	CommittedAt time.Time
}

// Processor serializes operations per pool and applies them to a Ledger.
type Processor struct {
	ledger   Ledger
	verifier SignerVerifier
	journals []storage.Journal
	logger   *zap.Logger
	now      func() time.Time

	mu    sync.Mutex
	locks map[solana.PublicKey]*sync.Mutex
}

func New(l Ledger, opts Options) *Processor {
	if opts.Verifier == nil {
		opts.Verifier = Ed25519Verifier{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Processor{
		ledger:   l,
		verifier: opts.Verifier,
		journals: opts.Journals,
		logger:   opts.Logger,
		now:      opts.Now,
		locks:    make(map[solana.PublicKey]*sync.Mutex),
	}
}

// Process executes req. On error nothing has been committed. The journal is
// written before the pool lock is released, so rows for one pool appear in
// commit order.
func (p *Processor) Process(ctx context.Context, req Request) (Receipt, error) {
	unlock := p.lockPool(req.Accounts.Pool)
	defer unlock()

	receipt, err := p.process(ctx, req)
	if err != nil {
		p.logger.Warn("operation rejected",
			zap.String("pool", req.Accounts.Pool.String()),
			zap.String("signer", req.Signer.String()),
			zap.Error(err),
		)
		return Receipt{}, err
	}

	p.logger.Info("operation committed",
		zap.String("pool", receipt.PoolID.String()),
		zap.String("op", receipt.Op.String()),
		zap.String("signer", receipt.Signer.String()),
		zap.Uint64("reserve_a", receipt.Pool.ReserveA),
		zap.Uint64("reserve_b", receipt.Pool.ReserveB),
		zap.Uint64("shares", receipt.Shares),
	)
	p.journal(ctx, receipt)
	return receipt, nil
}

func (p *Processor) process(ctx context.Context, req Request) (Receipt, error) {
	if !p.verifier.Verify(req.Signer, req.Message(), req.Signature) {
		return Receipt{}, ErrMissingSignature
	}

	ix, err := instruction.Decode(req.Data)
	if err != nil {
		return Receipt{}, err
	}

	pool, err := p.loadPool(ctx, req.Accounts.Pool)
	if err != nil {
		return Receipt{}, err
	}

	var supply uint64
	if pool.Initialized {
		supply, err = p.ledger.ShareSupply(ctx, pool.ShareMint)
		if err != nil {
			return Receipt{}, fmt.Errorf("read share supply: %w", err)
		}
	}

	out, err := Execute(pool, ix, Env{Signer: req.Signer, Accounts: req.Accounts, ShareSupply: supply})
	if err != nil {
		return Receipt{}, err
	}

	record, err := state.Marshal(out.Pool)
	if err != nil {
		return Receipt{}, err
	}
	commit := ledger.Commit{
		PoolID:    req.Accounts.Pool,
		Record:    record,
		Movements: Movements(out.Pool, req.Accounts.Pool, req.Signer, out.Transfers),
	}
	if out.Op == instruction.TagInitializePool {
		commit.ClaimMint = out.Pool.ShareMint
	}
	if err := p.ledger.Apply(ctx, commit); err != nil {
		return Receipt{}, fmt.Errorf("apply %s: %w", out.Op, err)
	}
	committedAt := p.now()

	if out.Op == instruction.TagRemoveLiquidity {
		supply -= out.Shares
	} else {
		supply += out.Shares
	}
	return Receipt{
		Outcome:     out,
		PoolID:      req.Accounts.Pool,
		Signer:      req.Signer,
		ShareSupply: supply,
		CommittedAt: committedAt,
	}, nil
}

// loadPool returns the zero Pool for an empty slot.
func (p *Processor) loadPool(ctx context.Context, id solana.PublicKey) (amm.Pool, error) {
	raw, err := p.ledger.LoadPool(ctx, id)
	if err != nil {
		return amm.Pool{}, fmt.Errorf("load pool %s: %w", id, err)
	}
	if raw == nil {
		return amm.Pool{}, nil
	}
	return state.Load(raw)
}

func (p *Processor) lockPool(id solana.PublicKey) func() {
	p.mu.Lock()
	m, ok := p.locks[id]
	if !ok {
		m = &sync.Mutex{}
		p.locks[id] = m
	}
	p.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// journal records a committed receipt. The ledger commit already happened,
// so failures are logged only.
func (p *Processor) journal(ctx context.Context, r Receipt) {
	if len(p.journals) == 0 {
		return
	}
	ops := []model.Operation{Operation(r)}
	for _, j := range p.journals {
		if err := j.PutOperations(ctx, ops); err != nil {
			p.logger.Error("journal write failed",
				zap.String("pool", r.PoolID.String()),
				zap.String("op", r.Op.String()),
				zap.Error(err),
			)
		}
	}
}

// Movements maps engine transfers onto ledger movements between user and the
// pool vault, which is held under the pool id.
func Movements(pool amm.Pool, poolID, user solana.PublicKey, transfers []amm.Transfer) []ledger.Movement {
	out := make([]ledger.Movement, 0, len(transfers))
	for _, t := range transfers {
		m := ledger.Movement{Mint: MintOf(pool, t.Asset), Amount: t.Amount}
		switch t.Kind {
		case amm.Deposit:
			m.From, m.To = user, poolID
		case amm.Withdraw:
			m.From, m.To = poolID, user
		case amm.Mint:
			m.To = user
		case amm.Burn:
			m.From = user
		}
		out = append(out, m)
	}
	return out
}

// MintOf resolves the mint id of asset in pool. Asset A is the native asset.
func MintOf(pool amm.Pool, asset amm.Asset) solana.PublicKey {
	switch asset {
	case amm.AssetA:
		return solana.SolMint
	case amm.AssetB:
		return pool.AssetMint
	default:
		return pool.ShareMint
	}
}

// Snapshot renders pool for storage and display.
func Snapshot(id solana.PublicKey, pool amm.Pool, supply uint64) model.PoolSnapshot {
	return model.PoolSnapshot{
		ID:          id.String(),
		Authority:   pool.Authority.String(),
		ReserveA:    pool.ReserveA,
		ReserveB:    pool.ReserveB,
		ShareMint:   pool.ShareMint.String(),
		AssetMint:   pool.AssetMint.String(),
		FeeRateBps:  pool.FeeRateBps,
		ShareSupply: supply,
		Initialized: pool.Initialized,
	}
}

// Operation converts a receipt into a journal row.
func Operation(r Receipt) model.Operation {
	op := model.Operation{
		PoolID:      r.PoolID.String(),
		Op:          r.Op.String(),
		Signer:      r.Signer.String(),
		AmountIn:    r.AmountIn,
		AmountOut:   r.AmountOut,
		AmountA:     r.AmountA,
		AmountB:     r.AmountB,
		Shares:      r.Shares,
		Transfers:   make([]model.Transfer, 0, len(r.Transfers)),
		Pool:        Snapshot(r.PoolID, r.Pool, r.ShareSupply),
		CommittedAt: r.CommittedAt.UTC().Format(time.RFC3339),
	}
	if r.Op == instruction.TagSwap {
		op.Direction = r.Direction.String()
		op.Fee = r.AmountIn - r.AmountInNet
	}
	for _, t := range r.Transfers {
		op.Transfers = append(op.Transfers, model.Transfer{
			Asset:  t.Asset.String(),
			Mint:   MintOf(r.Pool, t.Asset).String(),
			Kind:   t.Kind.String(),
			Amount: t.Amount,
		})
	}
	return op
}
