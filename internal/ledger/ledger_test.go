package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"

	"ammEngine/internal/amm"
)

func openTest(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(Options{InMemory: true, CacheSize: 4})
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func key(b byte) solana.PublicKey {
	var k solana.PublicKey
	for i := range k {
		k[i] = b
	}
	return k
}

func TestLoadPoolEmptySlot(t *testing.T) {
	l := openTest(t)
	raw, err := l.LoadPool(context.Background(), key(9))
	require.NoError(t, err)
	require.Nil(t, raw)
}

func TestApplyWritesRecordAndMovements(t *testing.T) {
	ctx := context.Background()
	l := openTest(t)
	user, pool, asset, share := key(1), key(2), key(3), key(4)

	require.NoError(t, l.Credit(ctx, asset, user, 500))

	err := l.Apply(ctx, Commit{
		PoolID: pool,
		Record: []byte{1, 2, 3},
		Movements: []Movement{
			{Mint: asset, From: user, To: pool, Amount: 200},
			{Mint: share, To: user, Amount: 70},
		},
	})
	require.NoError(t, err)

	raw, err := l.LoadPool(ctx, pool)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, raw)

	bal, err := l.Balance(ctx, asset, user)
	require.NoError(t, err)
	require.Equal(t, uint64(300), bal)

	bal, err = l.Balance(ctx, asset, pool)
	require.NoError(t, err)
	require.Equal(t, uint64(200), bal)

	supply, err := l.ShareSupply(ctx, share)
	require.NoError(t, err)
	require.Equal(t, uint64(70), supply)
}

func TestApplyIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	l := openTest(t)
	user, pool, asset := key(1), key(2), key(3)

	require.NoError(t, l.Credit(ctx, asset, user, 100))
	require.NoError(t, l.Apply(ctx, Commit{PoolID: pool, Record: []byte{7}}))

	err := l.Apply(ctx, Commit{
		PoolID: pool,
		Record: []byte{8},
		Movements: []Movement{
			{Mint: asset, From: user, To: pool, Amount: 60},
			{Mint: asset, From: user, To: pool, Amount: 60},
		},
	})
	require.ErrorIs(t, err, ErrInsufficientFunds)

	raw, err := l.LoadPool(ctx, pool)
	require.NoError(t, err)
	require.Equal(t, []byte{7}, raw)

	bal, err := l.Balance(ctx, asset, user)
	require.NoError(t, err)
	require.Equal(t, uint64(100), bal)
}

func TestBurnBeyondBalance(t *testing.T) {
	ctx := context.Background()
	l := openTest(t)
	user, pool, share := key(1), key(2), key(4)

	require.NoError(t, l.Apply(ctx, Commit{
		PoolID:    pool,
		Record:    []byte{1},
		Movements: []Movement{{Mint: share, To: user, Amount: 10}},
	}))

	err := l.Apply(ctx, Commit{
		PoolID:    pool,
		Record:    []byte{2},
		Movements: []Movement{{Mint: share, From: user, Amount: 11}},
	})
	var code amm.Error
	require.True(t, errors.As(err, &code))
	require.Equal(t, amm.ErrInvalidUserPosition, code)

	require.NoError(t, l.Apply(ctx, Commit{
		PoolID:    pool,
		Record:    []byte{3},
		Movements: []Movement{{Mint: share, From: user, Amount: 10}},
	}))
	supply, err := l.ShareSupply(ctx, share)
	require.NoError(t, err)
	require.Zero(t, supply)
}

func TestLoadPoolReturnsCopy(t *testing.T) {
	ctx := context.Background()
	l := openTest(t)
	require.NoError(t, l.Apply(ctx, Commit{PoolID: key(2), Record: []byte{5, 5}}))

	raw, err := l.LoadPool(ctx, key(2))
	require.NoError(t, err)
	raw[0] = 0

	again, err := l.LoadPool(ctx, key(2))
	require.NoError(t, err)
	require.Equal(t, []byte{5, 5}, again)
}

func TestClosedLedger(t *testing.T) {
	l, err := Open(Options{InMemory: true})
	require.NoError(t, err)
	require.NoError(t, l.Close())

	_, err = l.LoadPool(context.Background(), key(1))
	require.ErrorIs(t, err, ErrClosed)
	require.ErrorIs(t, l.Apply(context.Background(), Commit{}), ErrClosed)
	require.NoError(t, l.Close())
}

func TestClaimMintBindsOnePool(t *testing.T) {
	ctx := context.Background()
	l := openTest(t)
	user, first, second, share := key(1), key(2), key(5), key(4)

	require.NoError(t, l.Apply(ctx, Commit{
		PoolID:    first,
		Record:    []byte{1},
		Movements: []Movement{{Mint: share, To: user, Amount: 10}},
		ClaimMint: share,
	}))
	owner, ok, err := l.MintOwner(ctx, share)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, first, owner)

	err = l.Apply(ctx, Commit{
		PoolID:    second,
		Record:    []byte{2},
		Movements: []Movement{{Mint: share, To: user, Amount: 1_000_000}},
		ClaimMint: share,
	})
	require.ErrorIs(t, err, amm.ErrInvalidTokenMint)

	raw, err := l.LoadPool(ctx, second)
	require.NoError(t, err)
	require.Nil(t, raw)
	supply, err := l.ShareSupply(ctx, share)
	require.NoError(t, err)
	require.Equal(t, uint64(10), supply)

	require.ErrorIs(t, l.Credit(ctx, share, user, 5), amm.ErrInvalidTokenMint)
}

func TestClaimMintWithSupply(t *testing.T) {
	ctx := context.Background()
	l := openTest(t)
	user, pool, mint := key(1), key(2), key(3)

	require.NoError(t, l.Credit(ctx, mint, user, 1))
	supply, err := l.ShareSupply(ctx, mint)
	require.NoError(t, err)
	require.Equal(t, uint64(1), supply)

	err = l.Apply(ctx, Commit{PoolID: pool, Record: []byte{1}, ClaimMint: mint})
	require.ErrorIs(t, err, amm.ErrInvalidTokenMint)

	_, ok, err := l.MintOwner(ctx, mint)
	require.NoError(t, err)
	require.False(t, ok)
}
