package aggregate

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"ammEngine/internal/model"
)

type captureSink struct {
	metrics []model.PoolWindowMetrics
}

func (c *captureSink) UpsertWindowMetrics(_ context.Context, metrics []model.PoolWindowMetrics) error {
	c.metrics = append(c.metrics, metrics...)
	return nil
}

func op(kind string, ts int64, mutate func(*model.Operation)) model.Operation {
	o := model.Operation{
		PoolID:      "pool-1",
		Op:          kind,
		CommittedAt: time.Unix(ts, 0).UTC().Format(time.RFC3339),
	}
	if mutate != nil {
		mutate(&o)
	}
	return o
}

func writeJournal(t *testing.T, lines ...any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "operations.jsonl")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	for _, line := range lines {
		if raw, ok := line.(string); ok {
			_, err = f.WriteString(raw + "\n")
			require.NoError(t, err)
			continue
		}
		require.NoError(t, json.NewEncoder(f).Encode(line))
	}
	return path
}

func TestAggregatorWindows(t *testing.T) {
	path := writeJournal(t,
		op("initialize_pool", 1000, func(o *model.Operation) {
			o.Pool.ReserveA, o.Pool.ReserveB = 1000, 1000
		}),
		op("swap", 1005, func(o *model.Operation) {
			o.Direction, o.AmountIn, o.Fee = "a-to-b", 100, 1
			o.Pool.ReserveA, o.Pool.ReserveB = 1100, 910
		}),
		"not json",
		op("swap", 1010, func(o *model.Operation) {
			o.Direction, o.AmountIn, o.Fee = "b-to-a", 50, 1
			o.Pool.ReserveA, o.Pool.ReserveB = 1060, 960
		}),
		op("add_liquidity", 1100, func(o *model.Operation) {
			o.Pool.ReserveA, o.Pool.ReserveB = 2120, 1920
		}),
	)

	sink := &captureSink{}
	agg := NewAggregator(Config{WindowSeconds: 60}, sink, nil)
	require.NoError(t, agg.Run(context.Background(), path))
	require.Len(t, sink.metrics, 2)

	first := sink.metrics[0]
	require.Equal(t, "pool-1", first.PoolID)
	require.Equal(t, time.Unix(960, 0).UTC(), first.WindowStart)
	require.Equal(t, time.Unix(1020, 0).UTC(), first.WindowEnd)
	require.Equal(t, uint64(2), first.SwapCount)
	require.Equal(t, uint64(1), first.DepositCount)
	require.Equal(t, "100", first.VolumeA)
	require.Equal(t, "50", first.VolumeB)
	require.Equal(t, "1", first.FeeA)
	require.Equal(t, uint64(1060), first.ReserveA)
	require.Equal(t, uint64(960), first.ReserveB)
	require.NotNil(t, first.FeeRateA)
	want := decimal.NewFromInt(1).DivRound(decimal.NewFromInt(1060), ratioScale)
	require.Equal(t, want.String(), *first.FeeRateA)
	require.NotNil(t, first.APR)

	second := sink.metrics[1]
	require.Equal(t, uint64(1), second.DepositCount)
	require.Zero(t, second.SwapCount)
	require.Nil(t, second.FeeRateA)
	require.Nil(t, second.APR)
}

func TestAggregatorResumesFromState(t *testing.T) {
	path := writeJournal(t,
		op("swap", 1005, func(o *model.Operation) {
			o.Direction, o.AmountIn, o.Fee = "a-to-b", 100, 1
			o.Pool.ReserveA, o.Pool.ReserveB = 1100, 910
		}),
	)
	state := &FileStateStore{Path: filepath.Join(t.TempDir(), "state.json"), Name: "aggregator:60"}

	sink := &captureSink{}
	require.NoError(t, NewAggregator(Config{WindowSeconds: 60, StateStore: state}, sink, nil).Run(context.Background(), path))
	require.Len(t, sink.metrics, 1)

	last, ok, err := state.Load(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(1005), last)

	rerun := &captureSink{}
	require.NoError(t, NewAggregator(Config{WindowSeconds: 60, StateStore: state}, rerun, nil).Run(context.Background(), path))
	require.Empty(t, rerun.metrics)

	recompute := &captureSink{}
	require.NoError(t, NewAggregator(Config{WindowSeconds: 60, StateStore: state, RecomputeFrom: 1000}, recompute, nil).Run(context.Background(), path))
	require.Len(t, recompute.metrics, 1)
}

func TestFileStateStoreKeepsNamesApart(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.json")
	minute := &FileStateStore{Path: path, Name: "aggregator:60"}
	hour := &FileStateStore{Path: path, Name: "aggregator:3600"}

	require.NoError(t, minute.Save(ctx, 10))
	require.NoError(t, hour.Save(ctx, 20))

	got, ok, err := minute.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(10), got)

	got, ok, err = hour.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(20), got)
}

func TestAccumulatorRejectsUnknownDirection(t *testing.T) {
	acc := NewAccumulator("pool-1", 0, 60)
	err := acc.AddOperation(model.Operation{Op: "swap", Direction: "sideways"}, 1)
	require.Error(t, err)
	require.Zero(t, acc.SwapCount)
	require.Error(t, acc.AddOperation(model.Operation{Op: "close"}, 1))
}

func TestComputeAPR(t *testing.T) {
	a := decimal.RequireFromString("0.01")
	b := decimal.RequireFromString("0.03")
	apr := computeAPR(&a, &b, 3600)
	require.NotNil(t, apr)
	require.Equal(t, "175.2", *apr)

	require.Nil(t, computeAPR(nil, nil, 3600))
	require.Nil(t, computeAPR(&a, nil, 0))
	require.Nil(t, computeFeeRate(uint256.NewInt(5), 0))
	require.Nil(t, computeFeeRate(new(uint256.Int), 10))
}
