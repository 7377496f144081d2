package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"ammEngine/internal/amm"
	"ammEngine/internal/instruction"
	"ammEngine/internal/ledger"
	"ammEngine/internal/model"
	"ammEngine/internal/processor"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type fixture struct {
	handler   http.Handler
	proc      *processor.Processor
	user      solana.PrivateKey
	accounts  processor.Accounts
	poolID    solana.PublicKey
	shareMint solana.PublicKey
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	l, err := ledger.Open(ledger.Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })

	user, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	f := &fixture{
		proc: processor.New(l, processor.Options{}),
		user: user,
		accounts: processor.Accounts{
			Pool:      solana.NewWallet().PublicKey(),
			Authority: user.PublicKey(),
			ShareMint: solana.NewWallet().PublicKey(),
			AssetMint: solana.NewWallet().PublicKey(),
		},
	}
	f.poolID = f.accounts.Pool
	f.shareMint = f.accounts.ShareMint
	f.handler = New(l, f.proc, nil).Handler()

	require.NoError(t, l.Credit(ctx, solana.SolMint, user.PublicKey(), 5000))
	require.NoError(t, l.Credit(ctx, f.accounts.AssetMint, user.PublicKey(), 5000))
	_, err = f.proc.Process(ctx, f.signed(t, instruction.InitializePool{AmountA: 1000, AmountB: 1000, FeeRateBps: 30}))
	require.NoError(t, err)
	return f
}

func (f *fixture) signed(t *testing.T, ix instruction.Instruction) processor.Request {
	req := processor.Request{Accounts: f.accounts, Data: instruction.Encode(ix)}
	require.NoError(t, req.Sign(f.user))
	return req
}

func (f *fixture) get(t *testing.T, path string, out any) int {
	t.Helper()
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	if out != nil {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
	}
	return rec.Code
}

func (f *fixture) post(t *testing.T, body any, out any) int {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/submit", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	f.handler.ServeHTTP(rec, req)
	if out != nil {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
	}
	return rec.Code
}

type errorBody struct {
	Error string `json:"error"`
	Code  *int   `json:"code"`
}

func TestGetPool(t *testing.T) {
	f := newFixture(t)

	var body poolResponse
	require.Equal(t, http.StatusOK, f.get(t, "/api/pools/"+f.poolID.String(), &body))
	require.True(t, body.Initialized)
	require.Equal(t, uint64(1000), body.ReserveA)
	require.Equal(t, uint64(1000), body.ShareSupply)
	require.Equal(t, f.shareMint.String(), body.ShareMint)
	require.NotNil(t, body.SpotPrice)
	require.True(t, body.SpotPrice.Equal(decimal.NewFromInt(1)))
}

func TestGetPoolErrors(t *testing.T) {
	f := newFixture(t)

	var missing errorBody
	require.Equal(t, http.StatusNotFound, f.get(t, "/api/pools/"+solana.NewWallet().PublicKey().String(), &missing))
	require.NotNil(t, missing.Code)
	require.Equal(t, int(amm.ErrPoolNotInitialized), *missing.Code)

	require.Equal(t, http.StatusBadRequest, f.get(t, "/api/pools/not-a-key", nil))
}

func TestQuoteSwap(t *testing.T) {
	f := newFixture(t)

	var q SwapQuote
	path := "/api/pools/" + f.poolID.String() + "/quote/swap?direction=a-to-b&amount_in=100"
	require.Equal(t, http.StatusOK, f.get(t, path, &q))
	require.Equal(t, uint64(99), q.AmountInNet)
	require.Equal(t, uint64(90), q.AmountOut)
	require.Equal(t, uint64(1100), q.ReserveA)
	require.Equal(t, uint64(910), q.ReserveB)
	require.NotNil(t, q.PriceImpact)
	require.True(t, q.PriceImpact.GreaterThan(decimal.Zero))

	// Quotes never touch the pool.
	var body poolResponse
	require.Equal(t, http.StatusOK, f.get(t, "/api/pools/"+f.poolID.String(), &body))
	require.Equal(t, uint64(1000), body.ReserveA)

	require.Equal(t, http.StatusBadRequest, f.get(t, "/api/pools/"+f.poolID.String()+"/quote/swap?amount_in=x", nil))
	require.Equal(t, http.StatusBadRequest, f.get(t, "/api/pools/"+f.poolID.String()+"/quote/swap?direction=up&amount_in=1", nil))
}

func TestQuoteLiquidity(t *testing.T) {
	f := newFixture(t)
	base := "/api/pools/" + f.poolID.String()

	var dq DepositQuote
	require.Equal(t, http.StatusOK, f.get(t, base+"/quote/deposit?amount_a=100&amount_b=300", &dq))
	require.Equal(t, uint64(100), dq.Shares)

	var wq WithdrawQuote
	require.Equal(t, http.StatusOK, f.get(t, base+"/quote/withdraw?shares=250", &wq))
	require.Equal(t, uint64(250), wq.AmountA)
	require.Equal(t, uint64(250), wq.AmountB)

	var eb errorBody
	require.Equal(t, http.StatusUnprocessableEntity, f.get(t, base+"/quote/withdraw?shares=0", &eb))
	require.Equal(t, int(amm.ErrInvalidUserPosition), *eb.Code)
}

func TestSubmit(t *testing.T) {
	f := newFixture(t)

	var op model.Operation
	body := NewSubmitRequest(f.signed(t, instruction.Swap{AmountIn: 100, MinimumAmountOut: 90, Direction: amm.AToB}))
	require.Equal(t, http.StatusOK, f.post(t, body, &op))
	require.Equal(t, "swap", op.Op)
	require.Equal(t, uint64(90), op.AmountOut)
	require.Equal(t, uint64(1100), op.Pool.ReserveA)

	var eb errorBody
	body = NewSubmitRequest(f.signed(t, instruction.Swap{AmountIn: 100, MinimumAmountOut: 1000, Direction: amm.AToB}))
	require.Equal(t, http.StatusUnprocessableEntity, f.post(t, body, &eb))
	require.Equal(t, int(amm.ErrSlippageExceeded), *eb.Code)

	tampered := NewSubmitRequest(f.signed(t, instruction.Swap{AmountIn: 1, Direction: amm.AToB}))
	tampered.Signature = NewSubmitRequest(f.signed(t, instruction.Swap{AmountIn: 2, Direction: amm.AToB})).Signature
	require.Equal(t, http.StatusUnauthorized, f.post(t, tampered, nil))

	require.Equal(t, http.StatusBadRequest, f.post(t, map[string]string{"signer": "x"}, nil))
}
