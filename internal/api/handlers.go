// internal/api/handlers.go
package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/guardiavault-oss/Paradexx-sub011/internal/chain"
	"github.com/guardiavault-oss/Paradexx-sub011/internal/quota"
	"github.com/guardiavault-oss/Paradexx-sub011/internal/trading"
)

const baseAssetDecimals = 18

const (
	userIDHeader   = "X-User-ID"
	userTierHeader = "X-User-Tier"
	tierUnlimited  = "unlimited"
)

// identityFrom reads the caller's identity from request headers. The
// routing layer in front of this service authenticates them; an absent
// ID falls back to a shared default allowance.
func identityFrom(r *http.Request) quota.Identity {
	return quota.Identity{
		UserID:    r.Header.Get(userIDHeader),
		Unlimited: strings.EqualFold(r.Header.Get(userTierHeader), tierUnlimited),
	}
}

type analyzeRequest struct {
	TokenAddress string `json:"tokenAddress"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	writeJSON(w, http.StatusOK, s.analyzer.Analyze(ctx, req.TokenAddress))
}

type buyRequest struct {
	TokenAddress  string  `json:"tokenAddress"`
	BaseAmount    string  `json:"baseAmount"`
	SlippageBps   int     `json:"slippageBps,omitempty"`
	GasMultiplier float64 `json:"gasMultiplier,omitempty"`
}

type quotaExceededResponse struct {
	QuotaExceeded bool `json:"quotaExceeded"`
	Remaining     int  `json:"remaining"`
}

func (s *Server) handleBuy(w http.ResponseWriter, r *http.Request) {
	var req buyRequest
	if !decodeBody(w, r, &req) {
		return
	}

	amount, err := chain.ParseUnits(req.BaseAmount, baseAssetDecimals)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid base amount: "+req.BaseAmount)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	// Quota exhaustion is a distinct condition, not a trade failure.
	caller := identityFrom(r)
	decision := s.gate.Check(ctx, caller)
	if !decision.Allowed {
		writeJSON(w, http.StatusTooManyRequests, quotaExceededResponse{
			QuotaExceeded: true,
			Remaining:     decision.Remaining,
		})
		return
	}

	result := s.trader.Buy(ctx, req.TokenAddress, amount, &trading.TradeOptions{
		SlippageBps:   req.SlippageBps,
		GasMultiplier: req.GasMultiplier,
	})
	if result.Success {
		s.gate.Record(ctx, caller)
	}
	writeJSON(w, http.StatusOK, tradeResponse(result))
}

type sellRequest struct {
	TokenAddress  string  `json:"tokenAddress"`
	Percent       int     `json:"percent,omitempty"`
	SlippageBps   int     `json:"slippageBps,omitempty"`
	GasMultiplier float64 `json:"gasMultiplier,omitempty"`
}

func (s *Server) handleSell(w http.ResponseWriter, r *http.Request) {
	var req sellRequest
	if !decodeBody(w, r, &req) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	result := s.trader.Sell(ctx, req.TokenAddress, req.Percent, &trading.TradeOptions{
		SlippageBps:   req.SlippageBps,
		GasMultiplier: req.GasMultiplier,
	})
	writeJSON(w, http.StatusOK, tradeResponse(result))
}

type tradeResultJSON struct {
	Success        bool    `json:"success"`
	TxHash         string  `json:"txHash,omitempty"`
	AmountOut      string  `json:"amountOut,omitempty"`
	BaseSpent      string  `json:"baseSpent,omitempty"`
	GasUsed        uint64  `json:"gasUsed,omitempty"`
	EffectivePrice float64 `json:"effectivePrice,omitempty"`
	Error          string  `json:"error,omitempty"`
}

func tradeResponse(r *trading.TradeResult) tradeResultJSON {
	out := tradeResultJSON{
		Success:        r.Success,
		TxHash:         r.TxHash,
		GasUsed:        r.GasUsed,
		EffectivePrice: r.EffectivePrice,
		Error:          r.Error,
	}
	if r.AmountOut != nil {
		out.AmountOut = r.AmountOut.String()
	}
	if r.BaseSpent != nil {
		out.BaseSpent = r.BaseSpent.String()
	}
	return out
}

type positionJSON struct {
	ID            string  `json:"id"`
	TokenAddress  string  `json:"tokenAddress"`
	TokenSymbol   string  `json:"tokenSymbol"`
	Amount        string  `json:"amount"`
	EntryCost     string  `json:"entryCost"`
	CurrentValue  string  `json:"currentValue"`
	PnL           string  `json:"pnl"`
	PnLPercent    float64 `json:"pnlPercent"`
	OpenedAt      string  `json:"openedAt"`
	TokenDecimals uint8   `json:"tokenDecimals"`
}

func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	statuses := s.positions.Refresh(ctx)
	out := make([]positionJSON, 0, len(statuses))
	for _, st := range statuses {
		out = append(out, positionJSON{
			ID:            st.ID,
			TokenAddress:  st.TokenAddress.Hex(),
			TokenSymbol:   st.TokenSymbol,
			Amount:        st.Amount.String(),
			EntryCost:     st.EntryCost.String(),
			CurrentValue:  st.CurrentValue.String(),
			PnL:           st.PnL.String(),
			PnLPercent:    st.PnLPercent,
			OpenedAt:      st.OpenedAt.UTC().Format("2006-01-02T15:04:05Z"),
			TokenDecimals: st.TokenDecimals,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type balanceResponse struct {
	Configured  bool              `json:"configured"`
	BaseBalance string            `json:"baseBalance,omitempty"`
	Tokens      map[string]string `json:"tokens"`
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	resp := balanceResponse{Tokens: map[string]string{}}

	wallet, ok := s.balance.SignerAddress()
	if !ok {
		writeJSON(w, http.StatusOK, resp)
		return
	}
	resp.Configured = true

	if base, err := s.balance.NativeBalance(ctx, wallet); err == nil {
		resp.BaseBalance = chain.FormatUnits(base, baseAssetDecimals)
	}

	for _, st := range s.positions.Refresh(ctx) {
		resp.Tokens[st.TokenAddress.Hex()] = chain.FormatUnits(st.Amount, st.TokenDecimals)
	}
	writeJSON(w, http.StatusOK, resp)
}

type tradeRecordJSON struct {
	TxHash         string  `json:"txHash"`
	Token          string  `json:"token"`
	TokenSymbol    string  `json:"tokenSymbol"`
	Side           string  `json:"side"`
	BaseAmount     string  `json:"baseAmount"`
	TokenAmount    string  `json:"tokenAmount"`
	GasUsed        uint64  `json:"gasUsed"`
	EffectivePrice float64 `json:"effectivePrice"`
	ExecutedAt     string  `json:"executedAt"`
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	out := []tradeRecordJSON{}

	wallet, ok := s.balance.SignerAddress()
	if !ok {
		writeJSON(w, http.StatusOK, out)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}

	records, err := s.trades.ListByWallet(ctx, wallet.Hex(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read trade history")
		return
	}
	for _, t := range records {
		out = append(out, tradeRecordJSON{
			TxHash:         t.TxHash,
			Token:          t.Token,
			TokenSymbol:    t.TokenSymbol,
			Side:           string(t.Side),
			BaseAmount:     t.BaseAmount,
			TokenAmount:    t.TokenAmount,
			GasUsed:        t.GasUsed,
			EffectivePrice: t.EffectivePrice,
			ExecutedAt:     t.ExecutedAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type whaleRequest struct {
	Address string `json:"address"`
	Label   string `json:"label,omitempty"`
}

func (s *Server) handleWhaleAdd(w http.ResponseWriter, r *http.Request) {
	var req whaleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	wallet, err := s.tracker.Add(req.Address, req.Label)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid address: "+req.Address)
		return
	}
	writeJSON(w, http.StatusOK, wallet)
}

func (s *Server) handleWhaleRemove(w http.ResponseWriter, r *http.Request) {
	var req whaleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	wallet, err := s.tracker.Remove(req.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid address: "+req.Address)
		return
	}
	if wallet == nil {
		writeError(w, http.StatusNotFound, "address not tracked")
		return
	}
	writeJSON(w, http.StatusOK, wallet)
}

func (s *Server) handleWhaleActivity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}

	activities, err := s.activity.Activity(ctx, r.URL.Query().Get("address"), limit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, activities)
}

type statusResponse struct {
	Configured    bool           `json:"configured"`
	WalletAddress *string        `json:"walletAddress"`
	TrackedWhales int            `json:"trackedWhales"`
	OpenPositions int            `json:"openPositions"`
	TradesToday   int            `json:"tradesToday"`
	Quota         quota.Decision `json:"quota"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		TrackedWhales: s.tracker.Count(),
		OpenPositions: s.positions.Count(),
		Quota:         s.gate.Check(r.Context(), identityFrom(r)),
	}
	if wallet, ok := s.balance.SignerAddress(); ok {
		resp.Configured = true
		hex := wallet.Hex()
		resp.WalletAddress = &hex

		now := time.Now()
		midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		if n, err := s.trades.CountByWalletSince(r.Context(), hex, midnight); err == nil {
			resp.TradesToday = n
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
