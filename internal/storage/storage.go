// internal/storage/storage.go
// Package storage records settled trades for audit. Recording is
// best-effort from the engine's point of view: a trade that settled
// on-chain is never failed because its audit row could not be written.
package storage

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when inserting a record whose key
	// already exists.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
)

// TradeSide distinguishes buys from sells.
type TradeSide string

const (
	TradeSideBuy  TradeSide = "buy"
	TradeSideSell TradeSide = "sell"
)

// TradeRecord is the audit row for one settled trade. Amounts are
// decimal strings of smallest units; they can exceed 2^53 and must not
// pass through floats.
type TradeRecord struct {
	TxHash         string
	Wallet         string
	Token          string
	TokenSymbol    string
	Side           TradeSide
	BaseAmount     string
	TokenAmount    string
	GasUsed        uint64
	EffectivePrice float64
	ExecutedAt     time.Time
}

// TradeStore provides access to trade history.
type TradeStore interface {
	// Insert adds a settled trade. Returns ErrDuplicateKey if the tx
	// hash was already recorded.
	Insert(ctx context.Context, t *TradeRecord) error

	// ListByWallet retrieves a wallet's trades, newest first, up to
	// limit (0 means no limit).
	ListByWallet(ctx context.Context, wallet string, limit int) ([]*TradeRecord, error)

	// CountByWalletSince counts a wallet's trades executed at or after
	// the given time.
	CountByWalletSince(ctx context.Context, wallet string, since time.Time) (int, error)
}
