// internal/trading/ledger.go
package trading

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/guardiavault-oss/Paradexx-sub011/internal/chain"
)

// refreshParallelism bounds concurrent per-position chain reads.
const refreshParallelism = 4

// ValueReader is the chain-gateway slice used to revalue positions.
type ValueReader interface {
	BalanceOf(ctx context.Context, token, holder common.Address) (*big.Int, error)
	GetPair(ctx context.Context, factory, tokenA, tokenB common.Address) (common.Address, error)
	AmountsOut(ctx context.Context, router common.Address, amountIn *big.Int, path []common.Address) ([]*big.Int, error)
}

// Ledger is the in-memory record of open positions, keyed by token
// address. Removals and value updates are mutually exclusive per key;
// reads proceed concurrently.
type Ledger struct {
	mu        sync.RWMutex
	positions map[common.Address]*Position

	reader  ValueReader
	wallet  common.Address
	router  common.Address
	factory common.Address
	wbase   common.Address
	logger  *zap.Logger
}

// LedgerConfig configures the position ledger.
type LedgerConfig struct {
	Reader  ValueReader
	Wallet  common.Address
	Router  common.Address
	Factory common.Address
	WBase   common.Address
	Logger  *zap.Logger
}

// NewLedger creates an empty position ledger.
func NewLedger(cfg *LedgerConfig) *Ledger {
	return &Ledger{
		positions: make(map[common.Address]*Position),
		reader:    cfg.Reader,
		wallet:    cfg.Wallet,
		router:    cfg.Router,
		factory:   cfg.Factory,
		wbase:     cfg.WBase,
		logger:    cfg.Logger.Named("ledger"),
	}
}

// Open records a position, overwriting any existing one for the token.
func (l *Ledger) Open(p *Position) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.positions[p.TokenAddress] = p
	l.logger.Info("position opened",
		zap.String("token", p.TokenAddress.Hex()),
		zap.String("symbol", p.TokenSymbol),
		zap.String("tx", p.ID))
}

// Remove drops the position for a token after a full-size sell.
func (l *Ledger) Remove(token common.Address) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.positions[token]; ok {
		delete(l.positions, token)
		l.logger.Info("position closed", zap.String("token", token.Hex()))
	}
}

// Get returns a copy of the position for a token.
func (l *Ledger) Get(token common.Address) (Position, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, ok := l.positions[token]
	if !ok {
		return Position{}, false
	}
	return *p, true
}

// Count returns the number of open positions.
func (l *Ledger) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.positions)
}

// Tokens lists the addresses of all open positions.
func (l *Ledger) Tokens() []common.Address {
	l.mu.RLock()
	defer l.mu.RUnlock()
	tokens := make([]common.Address, 0, len(l.positions))
	for addr := range l.positions {
		tokens = append(tokens, addr)
	}
	return tokens
}

// setAmount updates a position's recorded holding after a partial sell
// or refresh. No-op when the position was removed concurrently.
func (l *Ledger) setAmount(token common.Address, amount *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if p, ok := l.positions[token]; ok {
		p.Amount = amount
	}
}

// Refresh revalues every open position from live chain state: the token
// balance is re-read (external transfers can change it) and a
// full-balance sell is quoted. One position's read failure never aborts
// the others.
func (l *Ledger) Refresh(ctx context.Context) []*PositionStatus {
	snapshot := l.snapshot()
	statuses := make([]*PositionStatus, len(snapshot))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(refreshParallelism)

	for i, pos := range snapshot {
		g.Go(func() error {
			statuses[i] = l.refreshOne(gctx, pos)
			return nil
		})
	}
	// Workers never return errors; failures degrade per position.
	_ = g.Wait()

	return statuses
}

func (l *Ledger) snapshot() []Position {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Position, 0, len(l.positions))
	for _, p := range l.positions {
		out = append(out, *p)
	}
	return out
}

func (l *Ledger) refreshOne(ctx context.Context, pos Position) *PositionStatus {
	status := &PositionStatus{
		Position:     pos,
		CurrentValue: big.NewInt(0),
		PnL:          new(big.Int).Neg(pos.EntryCost),
	}

	balance, err := l.reader.BalanceOf(ctx, pos.TokenAddress, l.wallet)
	if err != nil {
		l.logger.Warn("balance refresh failed, keeping recorded amount",
			zap.String("token", pos.TokenAddress.Hex()), zap.Error(err))
		balance = pos.Amount
	} else {
		status.Amount = balance
		l.setAmount(pos.TokenAddress, balance)
	}

	if balance == nil || balance.Sign() == 0 {
		status.PnLPercent = pnlPercent(status.CurrentValue, pos.EntryCost)
		return status
	}

	pair, err := l.reader.GetPair(ctx, l.factory, pos.TokenAddress, l.wbase)
	if err != nil || pair == chain.ZeroAddress {
		// A position that lost its pool is worthless, not stale-priced.
		status.PnLPercent = pnlPercent(status.CurrentValue, pos.EntryCost)
		return status
	}

	amounts, err := l.reader.AmountsOut(ctx, l.router, balance,
		[]common.Address{pos.TokenAddress, l.wbase})
	if err != nil || len(amounts) < 2 {
		l.logger.Warn("value quote failed",
			zap.String("token", pos.TokenAddress.Hex()), zap.Error(err))
		status.PnLPercent = pnlPercent(status.CurrentValue, pos.EntryCost)
		return status
	}

	status.CurrentValue = amounts[len(amounts)-1]
	status.PnL = new(big.Int).Sub(status.CurrentValue, pos.EntryCost)
	status.PnLPercent = pnlPercent(status.CurrentValue, pos.EntryCost)
	return status
}
