package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ammEngine/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS pools (
	pool_id      TEXT PRIMARY KEY,
	authority    TEXT NOT NULL,
	share_mint   TEXT NOT NULL,
	asset_mint   TEXT NOT NULL,
	reserve_a    NUMERIC(20,0) NOT NULL,
	reserve_b    NUMERIC(20,0) NOT NULL,
	fee_rate_bps INTEGER NOT NULL,
	share_supply NUMERIC(20,0) NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS pool_operations (
	id           BIGSERIAL PRIMARY KEY,
	pool_id      TEXT NOT NULL,
	op           TEXT NOT NULL,
	signer       TEXT NOT NULL,
	direction    TEXT NOT NULL,
	amount_in    NUMERIC(20,0) NOT NULL,
	amount_out   NUMERIC(20,0) NOT NULL,
	amount_a     NUMERIC(20,0) NOT NULL,
	amount_b     NUMERIC(20,0) NOT NULL,
	shares       NUMERIC(20,0) NOT NULL,
	transfers    JSONB NOT NULL,
	committed_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS pool_operations_pool_idx ON pool_operations (pool_id, id);
CREATE TABLE IF NOT EXISTS pool_window_metrics (
	pool_id             TEXT NOT NULL,
	window_size_seconds BIGINT NOT NULL,
	window_start_ts     TIMESTAMPTZ NOT NULL,
	window_end_ts       TIMESTAMPTZ NOT NULL,
	swap_count          BIGINT NOT NULL,
	deposit_count       BIGINT NOT NULL,
	withdraw_count      BIGINT NOT NULL,
	volume_a            NUMERIC NOT NULL,
	volume_b            NUMERIC NOT NULL,
	fee_a               NUMERIC NOT NULL,
	fee_b               NUMERIC NOT NULL,
	reserve_a           NUMERIC(20,0) NOT NULL,
	reserve_b           NUMERIC(20,0) NOT NULL,
	fee_rate_a          NUMERIC,
	fee_rate_b          NUMERIC,
	apr                 NUMERIC,
	created_at          TIMESTAMPTZ NOT NULL,
	updated_at          TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (pool_id, window_size_seconds, window_start_ts)
);
CREATE TABLE IF NOT EXISTS aggregator_state (
	name              TEXT PRIMARY KEY,
	last_processed_ts BIGINT NOT NULL,
	updated_at        TIMESTAMPTZ NOT NULL
);
`

const upsertPoolSQL = `
	INSERT INTO pools (
		pool_id, authority, share_mint, asset_mint, reserve_a, reserve_b, fee_rate_bps, share_supply, created_at, updated_at
	) VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric, $7, $8::numeric, now(), now())
	ON CONFLICT (pool_id)
	DO UPDATE SET
		reserve_a = EXCLUDED.reserve_a,
		reserve_b = EXCLUDED.reserve_b,
		share_supply = EXCLUDED.share_supply,
		updated_at = now()
`

// Store provides Postgres persistence for the operation journal.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the journal tables if they are missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schema)
	return err
}

// UpsertPools inserts or updates pool snapshots.
func (s *Store) UpsertPools(ctx context.Context, pools []model.PoolSnapshot) error {
	if len(pools) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, p := range pools {
		queuePool(batch, p)
	}
	return s.send(ctx, batch)
}

// PutOperations appends operations and refreshes the snapshot of each
// touched pool in one round trip.
func (s *Store) PutOperations(ctx context.Context, ops []model.Operation) error {
	if len(ops) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, op := range ops {
		transfers, err := json.Marshal(op.Transfers)
		if err != nil {
			return fmt.Errorf("marshal transfers: %w", err)
		}
		batch.Queue(`
			INSERT INTO pool_operations (
				pool_id, op, signer, direction, amount_in, amount_out, amount_a, amount_b, shares, transfers, committed_at
			) VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric, $7::numeric, $8::numeric, $9::numeric, $10::jsonb, $11::timestamptz)
		`,
			op.PoolID,
			op.Op,
			op.Signer,
			op.Direction,
			numeric(op.AmountIn),
			numeric(op.AmountOut),
			numeric(op.AmountA),
			numeric(op.AmountB),
			numeric(op.Shares),
			string(transfers),
			op.CommittedAt,
		)
		queuePool(batch, op.Pool)
	}
	return s.send(ctx, batch)
}

// UpsertWindowMetrics inserts or updates window metrics.
func (s *Store) UpsertWindowMetrics(ctx context.Context, metrics []model.PoolWindowMetrics) error {
	if len(metrics) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, m := range metrics {
		batch.Queue(`
			INSERT INTO pool_window_metrics (
				pool_id, window_size_seconds, window_start_ts, window_end_ts,
				swap_count, deposit_count, withdraw_count, volume_a, volume_b, fee_a, fee_b,
				reserve_a, reserve_b, fee_rate_a, fee_rate_b, apr, created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8::numeric,$9::numeric,$10::numeric,$11::numeric,
				$12::numeric,$13::numeric,$14::numeric,$15::numeric,$16::numeric,now(),now())
			ON CONFLICT (pool_id, window_size_seconds, window_start_ts)
			DO UPDATE SET
				window_end_ts = EXCLUDED.window_end_ts,
				swap_count = EXCLUDED.swap_count,
				deposit_count = EXCLUDED.deposit_count,
				withdraw_count = EXCLUDED.withdraw_count,
				volume_a = EXCLUDED.volume_a,
				volume_b = EXCLUDED.volume_b,
				fee_a = EXCLUDED.fee_a,
				fee_b = EXCLUDED.fee_b,
				reserve_a = EXCLUDED.reserve_a,
				reserve_b = EXCLUDED.reserve_b,
				fee_rate_a = EXCLUDED.fee_rate_a,
				fee_rate_b = EXCLUDED.fee_rate_b,
				apr = EXCLUDED.apr,
				updated_at = now()
		`,
			m.PoolID,
			m.WindowSizeSecs,
			m.WindowStart,
			m.WindowEnd,
			int64(m.SwapCount),
			int64(m.DepositCount),
			int64(m.WithdrawCount),
			m.VolumeA,
			m.VolumeB,
			m.FeeA,
			m.FeeB,
			numeric(m.ReserveA),
			numeric(m.ReserveB),
			m.FeeRateA,
			m.FeeRateB,
			m.APR,
		)
	}
	return s.send(ctx, batch)
}

// LoadState returns last_processed_ts for a name.
func (s *Store) LoadState(ctx context.Context, name string) (uint64, bool, error) {
	if name == "" {
		return 0, false, fmt.Errorf("state name required")
	}
	var ts int64
	row := s.pool.QueryRow(ctx, `SELECT last_processed_ts FROM aggregator_state WHERE name=$1`, name)
	if err := row.Scan(&ts); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return uint64(ts), true, nil
}

// SaveState upserts last_processed_ts for a name.
func (s *Store) SaveState(ctx context.Context, name string, ts uint64) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO aggregator_state (name, last_processed_ts, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET last_processed_ts = EXCLUDED.last_processed_ts, updated_at = now()
	`, name, int64(ts))
	return err
}

func queuePool(batch *pgx.Batch, p model.PoolSnapshot) {
	batch.Queue(upsertPoolSQL,
		p.ID,
		p.Authority,
		p.ShareMint,
		p.AssetMint,
		numeric(p.ReserveA),
		numeric(p.ReserveB),
		int32(p.FeeRateBps),
		numeric(p.ShareSupply),
	)
}

func (s *Store) send(ctx context.Context, batch *pgx.Batch) error {
	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// numeric renders v as text so values above the int64 range survive the cast.
func numeric(v uint64) string {
	return strconv.FormatUint(v, 10)
}
