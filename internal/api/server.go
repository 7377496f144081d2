// Package api exposes pools over HTTP: snapshots, read-only quotes and
// submission of signed requests.
package api

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ammEngine/internal/amm"
	"ammEngine/internal/ledger"
	"ammEngine/internal/model"
	"ammEngine/internal/processor"
	"ammEngine/internal/state"
)

// PoolReader is the read side of the host ledger.
type PoolReader interface {
	LoadPool(ctx context.Context, id solana.PublicKey) ([]byte, error)
	ShareSupply(ctx context.Context, mint solana.PublicKey) (uint64, error)
}

// Submitter executes signed requests.
type Submitter interface {
	Process(ctx context.Context, req processor.Request) (processor.Receipt, error)
}

type Server struct {
	reader    PoolReader
	submitter Submitter
	logger    *zap.Logger
}

func New(reader PoolReader, submitter Submitter, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{reader: reader, submitter: submitter, logger: logger}
}

// Handler builds the gin router.
func (s *Server) Handler() http.Handler {
	router := gin.New()
	router.Use(gin.Recovery(), s.accessLog)

	g := router.Group("/api")
	g.GET("/pools/:id", s.getPool)
	g.GET("/pools/:id/quote/swap", s.quoteSwap)
	g.GET("/pools/:id/quote/deposit", s.quoteDeposit)
	g.GET("/pools/:id/quote/withdraw", s.quoteWithdraw)
	g.POST("/submit", s.submit)
	return router
}

func (s *Server) accessLog(c *gin.Context) {
	start := time.Now()
	c.Next()
	s.logger.Debug("http request",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Int("status", c.Writer.Status()),
		zap.Duration("latency", time.Since(start)),
	)
}

type poolResponse struct {
	model.PoolSnapshot
	SpotPrice *Price `json:"spot_price,omitempty"`
}

func (s *Server) getPool(c *gin.Context) {
	id, pool, supply, ok := s.loadPool(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, poolResponse{
		PoolSnapshot: processor.Snapshot(id, pool, supply),
		SpotPrice:    SpotPrice(pool),
	})
}

func (s *Server) quoteSwap(c *gin.Context) {
	_, pool, _, ok := s.loadPool(c)
	if !ok {
		return
	}
	d, err := amm.ParseDirection(c.DefaultQuery("direction", amm.AToB.String()))
	if err != nil {
		writeError(c, err)
		return
	}
	amountIn, ok := queryUint(c, "amount_in")
	if !ok {
		return
	}
	q, err := QuoteSwap(pool, amountIn, d)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

func (s *Server) quoteDeposit(c *gin.Context) {
	_, pool, supply, ok := s.loadPool(c)
	if !ok {
		return
	}
	amountA, ok := queryUint(c, "amount_a")
	if !ok {
		return
	}
	amountB, ok := queryUint(c, "amount_b")
	if !ok {
		return
	}
	q, err := QuoteDeposit(pool, amountA, amountB, supply)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

func (s *Server) quoteWithdraw(c *gin.Context) {
	_, pool, supply, ok := s.loadPool(c)
	if !ok {
		return
	}
	shares, ok := queryUint(c, "shares")
	if !ok {
		return
	}
	q, err := QuoteWithdraw(pool, shares, supply)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

// SubmitRequest is the JSON form of processor.Request. Keys and the signature
// are base58, data is base64.
type SubmitRequest struct {
	Signer    string `json:"signer" binding:"required"`
	Signature string `json:"signature" binding:"required"`
	Pool      string `json:"pool" binding:"required"`
	Authority string `json:"authority"`
	ShareMint string `json:"share_mint"`
	AssetMint string `json:"asset_mint"`
	Data      string `json:"data" binding:"required"`
}

// NewSubmitRequest renders a signed request for the submit endpoint.
func NewSubmitRequest(req processor.Request) SubmitRequest {
	return SubmitRequest{
		Signer:    req.Signer.String(),
		Signature: req.Signature.String(),
		Pool:      req.Accounts.Pool.String(),
		Authority: req.Accounts.Authority.String(),
		ShareMint: req.Accounts.ShareMint.String(),
		AssetMint: req.Accounts.AssetMint.String(),
		Data:      base64.StdEncoding.EncodeToString(req.Data),
	}
}

// Decode parses the request back into its binary form.
func (r SubmitRequest) Decode() (processor.Request, error) {
	var req processor.Request
	var err error
	if req.Signer, err = solana.PublicKeyFromBase58(r.Signer); err != nil {
		return req, fmt.Errorf("signer: %w", err)
	}
	if req.Signature, err = solana.SignatureFromBase58(r.Signature); err != nil {
		return req, fmt.Errorf("signature: %w", err)
	}
	if req.Accounts.Pool, err = solana.PublicKeyFromBase58(r.Pool); err != nil {
		return req, fmt.Errorf("pool: %w", err)
	}
	if req.Accounts.Authority, err = optionalKey(r.Authority); err != nil {
		return req, fmt.Errorf("authority: %w", err)
	}
	if req.Accounts.ShareMint, err = optionalKey(r.ShareMint); err != nil {
		return req, fmt.Errorf("share_mint: %w", err)
	}
	if req.Accounts.AssetMint, err = optionalKey(r.AssetMint); err != nil {
		return req, fmt.Errorf("asset_mint: %w", err)
	}
	if req.Data, err = base64.StdEncoding.DecodeString(r.Data); err != nil {
		return req, fmt.Errorf("data: %w", err)
	}
	return req, nil
}

func (s *Server) submit(c *gin.Context) {
	var body SubmitRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req, err := body.Decode()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	receipt, err := s.submitter.Process(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, processor.Operation(receipt))
}

func (s *Server) loadPool(c *gin.Context) (solana.PublicKey, amm.Pool, uint64, bool) {
	id, err := solana.PublicKeyFromBase58(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid pool id: %v", err)})
		return id, amm.Pool{}, 0, false
	}

	ctx := c.Request.Context()
	raw, err := s.reader.LoadPool(ctx, id)
	if err != nil {
		writeError(c, err)
		return id, amm.Pool{}, 0, false
	}
	if raw == nil {
		writeError(c, amm.ErrPoolNotInitialized)
		return id, amm.Pool{}, 0, false
	}
	pool, err := state.Load(raw)
	if err != nil {
		writeError(c, err)
		return id, amm.Pool{}, 0, false
	}
	supply, err := s.reader.ShareSupply(ctx, pool.ShareMint)
	if err != nil {
		writeError(c, err)
		return id, amm.Pool{}, 0, false
	}
	return id, pool, supply, true
}

func queryUint(c *gin.Context, key string) (uint64, bool) {
	v, err := strconv.ParseUint(c.Query(key), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid %s: %q", key, c.Query(key))})
		return 0, false
	}
	return v, true
}

func optionalKey(s string) (solana.PublicKey, error) {
	if s == "" {
		return solana.PublicKey{}, nil
	}
	return solana.PublicKeyFromBase58(s)
}

func writeError(c *gin.Context, err error) {
	var code amm.Error
	if errors.As(err, &code) {
		c.JSON(statusFor(code), gin.H{"error": err.Error(), "code": code.Code()})
		return
	}
	switch {
	case errors.Is(err, processor.ErrMissingSignature):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, ledger.ErrInsufficientFunds):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func statusFor(code amm.Error) int {
	switch code {
	case amm.ErrInvalidInstruction:
		return http.StatusBadRequest
	case amm.ErrPoolNotInitialized:
		return http.StatusNotFound
	case amm.ErrPoolAlreadyInitialized:
		return http.StatusConflict
	case amm.ErrInvalidPoolAuthority:
		return http.StatusForbidden
	default:
		return http.StatusUnprocessableEntity
	}
}
