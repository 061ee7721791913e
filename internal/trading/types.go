// internal/trading/types.go
package trading

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// TradeResult reports a trade attempt. Either the success fields or the
// error description is populated, never both: callers always get a
// structured answer, never a fault.
type TradeResult struct {
	Success bool
	// Tx hash of the confirmed swap.
	TxHash string
	// AmountOut is the resulting amount: token smallest units on a buy,
	// base-asset smallest units on a sell.
	AmountOut *big.Int
	// BaseSpent is the base-asset amount spent on a buy.
	BaseSpent *big.Int
	GasUsed   uint64
	// EffectivePrice is base smallest units paid/received per token
	// smallest unit.
	EffectivePrice float64
	// Error describes the failure. A timeout message states that the
	// transaction may still confirm; a revert cannot.
	Error string
}

func tradeFailure(msg string) *TradeResult {
	return &TradeResult{Success: false, Error: msg}
}

// Position is an open holding. Amount and value are refreshed from the
// chain on read; PnL is always derived, never stored.
type Position struct {
	ID            string // originating transaction hash
	TokenAddress  common.Address
	TokenSymbol   string
	TokenDecimals uint8
	// EntryCost is the base-asset cost at open, smallest units.
	EntryCost *big.Int
	// Amount is the token holding in smallest units as of the last
	// write or refresh.
	Amount   *big.Int
	OpenedAt time.Time
}

// PositionStatus is a refreshed snapshot of a position with derived
// valuation fields.
type PositionStatus struct {
	Position
	// CurrentValue is the base-asset value of a full-balance sell. A
	// position whose pool disappeared is reported as worthless rather
	// than priced from stale history.
	CurrentValue *big.Int
	PnL          *big.Int
	PnLPercent   float64
}

// TradeOptions carries per-call overrides. Zero values fall back to the
// executor's configured defaults.
type TradeOptions struct {
	// SlippageBps is the tolerated slippage in basis points (two implied
	// decimal digits of a percentage, so 5% = 500).
	SlippageBps int
	// GasMultiplier scales the node's suggested gas price.
	GasMultiplier float64
	// Deadline bounds the router-side validity of the swap.
	Deadline time.Duration
}

// pnlPercent derives the gain ratio of value over cost in percent.
func pnlPercent(value, cost *big.Int) float64 {
	if cost == nil || cost.Sign() <= 0 {
		return 0
	}
	pnl := new(big.Float).SetInt(new(big.Int).Sub(value, cost))
	ratio, _ := new(big.Float).Quo(pnl, new(big.Float).SetInt(cost)).Float64()
	return ratio * 100
}
