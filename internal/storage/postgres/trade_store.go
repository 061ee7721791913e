// internal/storage/postgres/trade_store.go
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/guardiavault-oss/Paradexx-sub011/internal/storage"
)

const tradeSchema = `
CREATE TABLE IF NOT EXISTS trades (
	tx_hash         TEXT PRIMARY KEY,
	wallet          TEXT NOT NULL,
	token           TEXT NOT NULL,
	token_symbol    TEXT NOT NULL,
	side            TEXT NOT NULL,
	base_amount     TEXT NOT NULL,
	token_amount    TEXT NOT NULL,
	gas_used        BIGINT NOT NULL,
	effective_price DOUBLE PRECISION NOT NULL,
	executed_at     TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_trades_wallet_executed_at
	ON trades (wallet, executed_at DESC);
`

// TradeStore is the postgres implementation of storage.TradeStore.
type TradeStore struct {
	pool *Pool
}

// NewTradeStore creates a trade store backed by the given pool and
// ensures the trades table exists.
func NewTradeStore(ctx context.Context, pool *Pool) (*TradeStore, error) {
	if _, err := pool.pool.Exec(ctx, tradeSchema); err != nil {
		return nil, fmt.Errorf("failed to ensure trades schema: %w", err)
	}
	return &TradeStore{pool: pool}, nil
}

// Compile-time interface check.
var _ storage.TradeStore = (*TradeStore)(nil)

// Insert adds a settled trade. Returns ErrDuplicateKey if the tx hash
// was already recorded.
func (s *TradeStore) Insert(ctx context.Context, t *storage.TradeRecord) error {
	if t == nil || t.TxHash == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.pool.Exec(ctx, `
		INSERT INTO trades (
			tx_hash, wallet, token, token_symbol, side,
			base_amount, token_amount, gas_used, effective_price, executed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		t.TxHash, t.Wallet, t.Token, t.TokenSymbol, string(t.Side),
		t.BaseAmount, t.TokenAmount, t.GasUsed, t.EffectivePrice, t.ExecutedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("failed to insert trade: %w", err)
	}
	return nil
}

// ListByWallet retrieves a wallet's trades, newest first.
func (s *TradeStore) ListByWallet(ctx context.Context, wallet string, limit int) ([]*storage.TradeRecord, error) {
	query := `
		SELECT tx_hash, wallet, token, token_symbol, side,
			base_amount, token_amount, gas_used, effective_price, executed_at
		FROM trades
		WHERE wallet = $1
		ORDER BY executed_at DESC`
	args := []any{wallet}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := s.pool.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list trades: %w", err)
	}
	defer rows.Close()

	var out []*storage.TradeRecord
	for rows.Next() {
		var t storage.TradeRecord
		var side string
		if err := rows.Scan(
			&t.TxHash, &t.Wallet, &t.Token, &t.TokenSymbol, &side,
			&t.BaseAmount, &t.TokenAmount, &t.GasUsed, &t.EffectivePrice, &t.ExecutedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		t.Side = storage.TradeSide(side)
		out = append(out, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read trades: %w", err)
	}
	return out, nil
}

// CountByWalletSince counts a wallet's trades executed at or after the
// given time.
func (s *TradeStore) CountByWalletSince(ctx context.Context, wallet string, since time.Time) (int, error) {
	var count int
	err := s.pool.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM trades
		WHERE wallet = $1 AND executed_at >= $2`,
		wallet, since,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count trades: %w", err)
	}
	return count, nil
}
