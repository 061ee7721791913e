// internal/whales/reader.go
package whales

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/guardiavault-oss/Paradexx-sub011/internal/chain"
)

// Action classifies a transfer relative to the tracked address.
type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
)

const (
	defaultActivityLimit = 20
	feedRequestTimeout   = 15 * time.Second
)

// Activity is one classified transfer of a tracked wallet.
type Activity struct {
	Wallet       string    `json:"wallet"`
	Action       Action    `json:"action"`
	TokenAddress string    `json:"tokenAddress"`
	TokenSymbol  string    `json:"tokenSymbol"`
	// Amount is the transfer size as a decimal string, scaled by the
	// feed's reported token precision.
	Amount string `json:"amount"`
	// BaseValue approximates the transfer's worth in base-asset
	// smallest units; empty when no quote was obtainable.
	BaseValue string    `json:"baseValue,omitempty"`
	TxHash    string    `json:"txHash"`
	Timestamp time.Time `json:"timestamp"`
}

// Quoter is the optional chain-gateway slice used to approximate a
// transfer's base-asset value.
type Quoter interface {
	AmountsOut(ctx context.Context, router common.Address, amountIn *big.Int, path []common.Address) ([]*big.Int, error)
}

// feedTransfer is one row of the explorer's token-transfer feed.
type feedTransfer struct {
	Hash            string `json:"hash"`
	From            string `json:"from"`
	To              string `json:"to"`
	ContractAddress string `json:"contractAddress"`
	Value           string `json:"value"`
	TokenSymbol     string `json:"tokenSymbol"`
	TokenDecimal    string `json:"tokenDecimal"`
	TimeStamp       string `json:"timeStamp"`
}

type feedResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

// Reader fetches transfer history for tracked wallets from an
// etherscan-style explorer feed. Without a credential every query
// degrades to an empty result.
type Reader struct {
	tracker *Tracker
	client  *http.Client
	baseURL string
	apiKey  string
	quoter  Quoter
	router  common.Address
	wbase   common.Address
	logger  *zap.Logger
}

// ReaderConfig configures the activity reader. Quoter may be nil; base
// values are then omitted.
type ReaderConfig struct {
	Tracker *Tracker
	BaseURL string
	APIKey  string
	Quoter  Quoter
	Router  common.Address
	WBase   common.Address
	Logger  *zap.Logger
}

// NewReader creates a whale activity reader.
func NewReader(cfg *ReaderConfig) *Reader {
	return &Reader{
		tracker: cfg.Tracker,
		client:  &http.Client{Timeout: feedRequestTimeout},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		quoter:  cfg.Quoter,
		router:  cfg.Router,
		wbase:   cfg.WBase,
		logger:  cfg.Logger.Named("whale_feed"),
	}
}

// Activity returns recent classified transfers, newest first. With an
// empty address the whole tracked set is queried. Feed failures
// degrade to fewer (or zero) results, never an error.
func (r *Reader) Activity(ctx context.Context, address string, limit int) ([]*Activity, error) {
	if limit <= 0 {
		limit = defaultActivityLimit
	}

	var targets []common.Address
	if address != "" {
		addr, err := chain.ParseAddress(address)
		if err != nil {
			return nil, err
		}
		targets = append(targets, addr)
	} else {
		for _, w := range r.tracker.List() {
			targets = append(targets, common.HexToAddress(w.Address))
		}
	}

	if r.apiKey == "" || r.baseURL == "" {
		r.logger.Debug("explorer feed not configured, returning empty activity")
		return []*Activity{}, nil
	}

	var out []*Activity
	for _, target := range targets {
		transfers, err := r.fetchTransfers(ctx, target, limit)
		if err != nil {
			r.logger.Warn("transfer feed fetch failed",
				zap.String("address", target.Hex()), zap.Error(err))
			continue
		}
		activities := r.classify(ctx, target, transfers)
		r.tracker.recordTrades(target, activities)
		out = append(out, activities...)
	}

	sortActivities(out)
	if len(out) > limit {
		out = out[:limit]
	}
	if out == nil {
		out = []*Activity{}
	}
	return out, nil
}

func (r *Reader) fetchTransfers(ctx context.Context, address common.Address, limit int) ([]feedTransfer, error) {
	q := url.Values{}
	q.Set("module", "account")
	q.Set("action", "tokentx")
	q.Set("address", address.Hex())
	q.Set("page", "1")
	q.Set("offset", strconv.Itoa(limit))
	q.Set("sort", "desc")
	q.Set("apikey", r.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build feed request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feed request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	var body feedResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode feed response: %w", err)
	}

	// The feed reports "no transactions found" as a non-OK status with
	// an empty result, not an error.
	if body.Status != "1" {
		if strings.Contains(strings.ToLower(body.Message), "no transactions") {
			return nil, nil
		}
		return nil, fmt.Errorf("feed error: %s", body.Message)
	}

	var transfers []feedTransfer
	if err := json.Unmarshal(body.Result, &transfers); err != nil {
		return nil, fmt.Errorf("failed to decode transfers: %w", err)
	}
	return transfers, nil
}

func (r *Reader) classify(ctx context.Context, wallet common.Address, transfers []feedTransfer) []*Activity {
	var out []*Activity
	for _, tr := range transfers {
		action := ActionSell
		if strings.EqualFold(tr.To, wallet.Hex()) {
			action = ActionBuy
		}

		decimals := uint8(18)
		if d, err := strconv.Atoi(tr.TokenDecimal); err == nil && d >= 0 && d <= 77 {
			decimals = uint8(d)
		}

		raw, ok := new(big.Int).SetString(tr.Value, 10)
		if !ok {
			continue
		}

		ts := time.Time{}
		if unix, err := strconv.ParseInt(tr.TimeStamp, 10, 64); err == nil {
			ts = time.Unix(unix, 0)
		}

		out = append(out, &Activity{
			Wallet:       wallet.Hex(),
			Action:       action,
			TokenAddress: tr.ContractAddress,
			TokenSymbol:  tr.TokenSymbol,
			Amount:       chain.FormatUnits(raw, decimals),
			BaseValue:    r.approximateValue(ctx, tr.ContractAddress, raw),
			TxHash:       tr.Hash,
			Timestamp:    ts,
		})
	}
	return out
}

// approximateValue quotes the transfer against the base asset. Quote
// failures leave the value empty.
func (r *Reader) approximateValue(ctx context.Context, token string, amount *big.Int) string {
	if r.quoter == nil || amount.Sign() == 0 {
		return ""
	}
	tokenAddr, err := chain.ParseAddress(token)
	if err != nil {
		return ""
	}
	amounts, err := r.quoter.AmountsOut(ctx, r.router, amount,
		[]common.Address{tokenAddr, r.wbase})
	if err != nil || len(amounts) < 2 {
		return ""
	}
	return amounts[len(amounts)-1].String()
}

func sortActivities(list []*Activity) {
	sort.Slice(list, func(i, j int) bool {
		return list[i].Timestamp.After(list[j].Timestamp)
	})
}
