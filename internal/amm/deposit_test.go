package amm

import (
	"errors"
	"math"
	"reflect"
	"testing"
)

func TestAddLiquidityFirstDeposit(t *testing.T) {
	pool := newTestPool(0, 0, 30)

	res, err := AddLiquidity(pool, 100, 400, 200, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.SharesMinted != 200 {
		t.Fatalf("shares = %d, want 200", res.SharesMinted)
	}
	if res.Pool.ReserveA != 100 || res.Pool.ReserveB != 400 {
		t.Fatalf("unexpected reserves: %d/%d", res.Pool.ReserveA, res.Pool.ReserveB)
	}

	want := []Transfer{
		{Asset: AssetA, Kind: Deposit, Amount: 100},
		{Asset: AssetB, Kind: Deposit, Amount: 400},
		{Asset: AssetShare, Kind: Mint, Amount: 200},
	}
	if !reflect.DeepEqual(res.Transfers, want) {
		t.Fatalf("transfers mismatch: %+v != %+v", res.Transfers, want)
	}
}

func TestAddLiquidityProportional(t *testing.T) {
	pool := newTestPool(1000, 4000, 30)

	res, err := AddLiquidity(pool, 100, 400, 0, 2000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.SharesMinted != 200 {
		t.Fatalf("shares = %d, want 200", res.SharesMinted)
	}
}

func TestAddLiquidityBindingAsset(t *testing.T) {
	pool := newTestPool(1000, 4000, 30)

	// B is over-supplied; A binds issuance and the surplus B is still accepted.
	res, err := AddLiquidity(pool, 100, 800, 0, 2000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.SharesMinted != 200 {
		t.Fatalf("shares = %d, want 200", res.SharesMinted)
	}
	if res.Pool.ReserveA != 1100 || res.Pool.ReserveB != 4800 {
		t.Fatalf("unexpected reserves: %d/%d", res.Pool.ReserveA, res.Pool.ReserveB)
	}
}

func TestAddLiquidityFailures(t *testing.T) {
	uninitialized := newTestPool(0, 0, 30)
	uninitialized.Initialized = false

	cases := []struct {
		name             string
		pool             Pool
		amountA, amountB uint64
		minShares        uint64
		supply           uint64
		want             error
	}{
		{"uninitialized", uninitialized, 100, 400, 0, 0, ErrPoolNotInitialized},
		{"nothing deposited", newTestPool(1000, 4000, 30), 0, 0, 0, 2000, ErrInvalidUserPosition},
		{"slippage", newTestPool(1000, 4000, 30), 100, 400, 201, 2000, ErrSlippageExceeded},
		{"dust", newTestPool(1_000_000_000, 4000, 30), 1, 400, 0, 2000, ErrInsufficientLiquidity},
		{"empty b reserve", newTestPool(1000, 0, 30), 100, 400, 0, 2000, ErrMathOverflow},
		{"issuance wider than 64 bits", newTestPool(1, 1, 30), 1 << 20, 1 << 20, 0, 1 << 63, ErrMathOverflow},
		{"reserve overflow", newTestPool(0, math.MaxUint64, 30), 10, 10, 0, 0, ErrMathOverflow},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			before := tc.pool
			_, err := AddLiquidity(tc.pool, tc.amountA, tc.amountB, tc.minShares, tc.supply)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if tc.pool != before {
				t.Fatalf("input pool mutated")
			}
		})
	}
}

func TestAddThenRemoveFavorsPool(t *testing.T) {
	deposits := [][2]uint64{{137, 555}, {1, 1}, {999, 3}, {50_000, 200_001}, {7, 7_000_000}}
	for _, d := range deposits {
		pool := newTestPool(1000, 4000, 30)
		supply := uint64(2000)

		dep, err := AddLiquidity(pool, d[0], d[1], 0, supply)
		if errors.Is(err, ErrInsufficientLiquidity) {
			continue
		}
		if err != nil {
			t.Fatalf("deposit %v: unexpected error: %v", d, err)
		}

		wd, err := RemoveLiquidity(dep.Pool, dep.SharesMinted, 0, 0, supply+dep.SharesMinted)
		if err != nil {
			t.Fatalf("deposit %v: unexpected withdraw error: %v", d, err)
		}
		if wd.AmountA > d[0] || wd.AmountB > d[1] {
			t.Fatalf("deposit %v returned %d/%d", d, wd.AmountA, wd.AmountB)
		}
	}
}
