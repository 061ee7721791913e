// internal/storage/memory/trade_store.go
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/guardiavault-oss/Paradexx-sub011/internal/storage"
)

// TradeStore is an in-memory implementation of storage.TradeStore.
type TradeStore struct {
	mu   sync.RWMutex
	data map[string]*storage.TradeRecord // keyed by tx hash
}

// NewTradeStore creates an in-memory trade store.
func NewTradeStore() *TradeStore {
	return &TradeStore{data: make(map[string]*storage.TradeRecord)}
}

// Compile-time interface check.
var _ storage.TradeStore = (*TradeStore)(nil)

// Insert adds a settled trade. Returns ErrDuplicateKey if the tx hash
// was already recorded.
func (s *TradeStore) Insert(_ context.Context, t *storage.TradeRecord) error {
	if t == nil || t.TxHash == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[t.TxHash]; exists {
		return storage.ErrDuplicateKey
	}

	record := *t
	s.data[t.TxHash] = &record
	return nil
}

// ListByWallet retrieves a wallet's trades, newest first.
func (s *TradeStore) ListByWallet(_ context.Context, wallet string, limit int) ([]*storage.TradeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*storage.TradeRecord
	for _, t := range s.data {
		if t.Wallet == wallet {
			record := *t
			out = append(out, &record)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ExecutedAt.After(out[j].ExecutedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// CountByWalletSince counts a wallet's trades executed at or after the
// given time.
func (s *TradeStore) CountByWalletSince(_ context.Context, wallet string, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, t := range s.data {
		if t.Wallet == wallet && !t.ExecutedAt.Before(since) {
			count++
		}
	}
	return count, nil
}
