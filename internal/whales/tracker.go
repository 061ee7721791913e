// internal/whales/tracker.go
// Package whales watches a caller-managed set of addresses and
// classifies their recent token transfers. All data here is
// best-effort and read-only; nothing is persisted.
package whales

import (
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/guardiavault-oss/Paradexx-sub011/internal/chain"
)

// Wallet is one tracked address. The address is stored in canonical
// checksummed form.
type Wallet struct {
	Address    string    `json:"address"`
	Label      string    `json:"label,omitempty"`
	IsActive   bool      `json:"isActive"`
	TradeCount int       `json:"tradeCount"`
	AddedAt    time.Time `json:"addedAt"`
}

// Tracker holds the tracked set. The set is caller-managed, never
// auto-discovered.
type Tracker struct {
	mu      sync.RWMutex
	wallets map[common.Address]*Wallet
	// lastCounted is the newest transfer timestamp already reflected in
	// each wallet's TradeCount, so re-polling the same feed window does
	// not inflate the counter.
	lastCounted map[common.Address]time.Time
	logger      *zap.Logger
}

// NewTracker creates an empty tracker.
func NewTracker(logger *zap.Logger) *Tracker {
	return &Tracker{
		wallets:     make(map[common.Address]*Wallet),
		lastCounted: make(map[common.Address]time.Time),
		logger:      logger.Named("whales"),
	}
}

// Add starts tracking an address, normalizing it to checksummed form.
// Re-adding an existing address updates its label and reactivates it.
func (t *Tracker) Add(address, label string) (*Wallet, error) {
	addr, err := chain.ParseAddress(address)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if w, ok := t.wallets[addr]; ok {
		if label != "" {
			w.Label = label
		}
		w.IsActive = true
		snapshot := *w
		return &snapshot, nil
	}

	w := &Wallet{
		Address:  addr.Hex(),
		Label:    label,
		IsActive: true,
		AddedAt:  time.Now(),
	}
	t.wallets[addr] = w
	t.logger.Info("tracking whale", zap.String("address", w.Address), zap.String("label", label))

	snapshot := *w
	return &snapshot, nil
}

// Remove stops tracking an address. Removing an untracked address is
// not an error.
func (t *Tracker) Remove(address string) (*Wallet, error) {
	addr, err := chain.ParseAddress(address)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	w, ok := t.wallets[addr]
	if !ok {
		return nil, nil
	}
	delete(t.wallets, addr)
	delete(t.lastCounted, addr)
	t.logger.Info("untracked whale", zap.String("address", w.Address))

	snapshot := *w
	snapshot.IsActive = false
	return &snapshot, nil
}

// Get returns the tracked wallet for an address.
func (t *Tracker) Get(address string) (*Wallet, bool) {
	addr, err := chain.ParseAddress(address)
	if err != nil {
		return nil, false
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	w, ok := t.wallets[addr]
	if !ok {
		return nil, false
	}
	snapshot := *w
	return &snapshot, true
}

// List returns all tracked wallets, most recently added first.
func (t *Tracker) List() []*Wallet {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]*Wallet, 0, len(t.wallets))
	for _, w := range t.wallets {
		snapshot := *w
		out = append(out, &snapshot)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].AddedAt.After(out[j].AddedAt)
	})
	return out
}

// Count returns the number of tracked wallets.
func (t *Tracker) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.wallets)
}

// recordTrades bumps a wallet's trade counter by the transfers not yet
// counted, judged by timestamp against the previous poll.
func (t *Tracker) recordTrades(addr common.Address, activities []*Activity) {
	t.mu.Lock()
	defer t.mu.Unlock()

	w, ok := t.wallets[addr]
	if !ok {
		return
	}

	since := t.lastCounted[addr]
	newest := since
	fresh := 0
	for _, a := range activities {
		if a.Timestamp.After(since) {
			fresh++
			if a.Timestamp.After(newest) {
				newest = a.Timestamp
			}
		}
	}
	w.TradeCount += fresh
	t.lastCounted[addr] = newest
}
