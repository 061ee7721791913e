// internal/api/server.go
// Package api exposes the engine over HTTP. Handlers never leak
// faults: every response is structured JSON, every trade failure is a
// TradeResult with its error inside.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/guardiavault-oss/Paradexx-sub011/internal/analyzer"
	"github.com/guardiavault-oss/Paradexx-sub011/internal/quota"
	"github.com/guardiavault-oss/Paradexx-sub011/internal/storage"
	"github.com/guardiavault-oss/Paradexx-sub011/internal/trading"
	"github.com/guardiavault-oss/Paradexx-sub011/internal/whales"
)

const requestTimeout = 6 * time.Minute

// Analyzer produces a safety verdict for a token.
type Analyzer interface {
	Analyze(ctx context.Context, address string) *analyzer.Analysis
}

// Trader executes swaps and reports results structurally.
type Trader interface {
	Buy(ctx context.Context, token string, baseAmount *big.Int, opts *trading.TradeOptions) *trading.TradeResult
	Sell(ctx context.Context, token string, percent int, opts *trading.TradeOptions) *trading.TradeResult
}

// Positions exposes the ledger's read side.
type Positions interface {
	Refresh(ctx context.Context) []*trading.PositionStatus
	Count() int
}

// BalanceReader is the chain-gateway slice behind the balance endpoint.
type BalanceReader interface {
	SignerAddress() (common.Address, bool)
	NativeBalance(ctx context.Context, addr common.Address) (*big.Int, error)
}

// ActivityReader lists classified whale transfers.
type ActivityReader interface {
	Activity(ctx context.Context, address string, limit int) ([]*whales.Activity, error)
}

// QuotaGate guards buys against the caller's daily allowance.
type QuotaGate interface {
	Check(ctx context.Context, id quota.Identity) quota.Decision
	Record(ctx context.Context, id quota.Identity)
}

// TradeHistory exposes the recorded audit trail.
type TradeHistory interface {
	ListByWallet(ctx context.Context, wallet string, limit int) ([]*storage.TradeRecord, error)
	CountByWalletSince(ctx context.Context, wallet string, since time.Time) (int, error)
}

// Server wires the engine components behind an HTTP mux.
type Server struct {
	analyzer  Analyzer
	trader    Trader
	positions Positions
	balance   BalanceReader
	tracker   *whales.Tracker
	activity  ActivityReader
	gate      QuotaGate
	trades    TradeHistory
	logger    *zap.Logger

	httpServer *http.Server
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	ListenAddr string
	Analyzer   Analyzer
	Trader     Trader
	Positions  Positions
	Balance    BalanceReader
	Tracker    *whales.Tracker
	Activity   ActivityReader
	Gate       QuotaGate
	Trades     TradeHistory
	Logger     *zap.Logger
}

// NewServer creates the HTTP server with all routes registered.
func NewServer(cfg *ServerConfig) *Server {
	s := &Server{
		analyzer:  cfg.Analyzer,
		trader:    cfg.Trader,
		positions: cfg.Positions,
		balance:   cfg.Balance,
		tracker:   cfg.Tracker,
		activity:  cfg.Activity,
		gate:      cfg.Gate,
		trades:    cfg.Trades,
		logger:    cfg.Logger.Named("api"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/analyze", s.handleAnalyze)
	mux.HandleFunc("POST /api/buy", s.handleBuy)
	mux.HandleFunc("POST /api/sell", s.handleSell)
	mux.HandleFunc("GET /api/positions", s.handlePositions)
	mux.HandleFunc("GET /api/trades", s.handleTrades)
	mux.HandleFunc("GET /api/balance", s.handleBalance)
	mux.HandleFunc("POST /api/whales/add", s.handleWhaleAdd)
	mux.HandleFunc("POST /api/whales/remove", s.handleWhaleRemove)
	mux.HandleFunc("GET /api/whales/activity", s.handleWhaleActivity)
	mux.HandleFunc("GET /api/status", s.handleStatus)

	s.httpServer = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           s.withLogging(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe blocks serving HTTP until Shutdown or failure.
func (s *Server) ListenAndServe() error {
	s.logger.Info("http server listening", zap.String("addr", s.httpServer.Addr))
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("elapsed", time.Since(start)))
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
