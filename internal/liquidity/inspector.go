// internal/liquidity/inspector.go
// Package liquidity locates the pool pairing a token with the base
// asset and judges whether its reserves are deep enough to trade.
package liquidity

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/guardiavault-oss/Paradexx-sub011/internal/chain"
)

// Warnings recorded on degraded reads. Callers treat them as risk
// signals, never as hard failures.
const (
	WarnNoPair      = "no pair found for token"
	WarnFetchFailed = "could not fetch liquidity info"
)

// Report describes a token's pool state against the base asset.
type Report struct {
	HasPair      bool
	PairAddress  common.Address
	BaseReserve  *big.Int // reserve of the wrapped base asset, smallest units
	TokenReserve *big.Int
	Sufficient   bool
	Warnings     []string
}

// PoolReader is the chain-gateway slice the inspector consumes.
type PoolReader interface {
	GetPair(ctx context.Context, factory, tokenA, tokenB common.Address) (common.Address, error)
	GetReserves(ctx context.Context, pair common.Address) (*chain.PairReserves, error)
}

// Inspector reads pool reserves through the factory registry.
type Inspector struct {
	reader     PoolReader
	factory    common.Address
	wbase      common.Address
	minReserve *big.Int
	logger     *zap.Logger
}

// InspectorConfig configures the liquidity inspector.
type InspectorConfig struct {
	Reader  PoolReader
	Factory common.Address
	WBase   common.Address
	// MinBaseReserve is the sufficiency threshold in base-asset smallest
	// units (default 0.1 base units).
	MinBaseReserve *big.Int
	Logger         *zap.Logger
}

// DefaultMinBaseReserve is 0.1 of an 18-decimal base asset.
var DefaultMinBaseReserve = new(big.Int).Exp(big.NewInt(10), big.NewInt(17), nil)

// NewInspector creates a liquidity inspector.
func NewInspector(cfg *InspectorConfig) *Inspector {
	minReserve := cfg.MinBaseReserve
	if minReserve == nil || minReserve.Sign() <= 0 {
		minReserve = DefaultMinBaseReserve
	}
	return &Inspector{
		reader:     cfg.Reader,
		factory:    cfg.Factory,
		wbase:      cfg.WBase,
		minReserve: minReserve,
		logger:     cfg.Logger.Named("liquidity"),
	}
}

// Inspect reports the pool state for a token. Read failures degrade to
// warnings so the caller's analysis can continue.
func (i *Inspector) Inspect(ctx context.Context, token common.Address) *Report {
	report := &Report{
		BaseReserve:  big.NewInt(0),
		TokenReserve: big.NewInt(0),
	}

	pair, err := i.reader.GetPair(ctx, i.factory, token, i.wbase)
	if err != nil {
		i.logger.Warn("pair lookup failed",
			zap.String("token", token.Hex()), zap.Error(err))
		report.Warnings = append(report.Warnings, WarnFetchFailed)
		return report
	}
	if pair == chain.ZeroAddress {
		report.Warnings = append(report.Warnings, WarnNoPair)
		return report
	}

	report.HasPair = true
	report.PairAddress = pair

	reserves, err := i.reader.GetReserves(ctx, pair)
	if err != nil {
		i.logger.Warn("reserve read failed",
			zap.String("pair", pair.Hex()), zap.Error(err))
		report.Warnings = append(report.Warnings, WarnFetchFailed)
		return report
	}

	// Pools do not guarantee token ordering; orient by token0.
	if reserves.Token0 == i.wbase {
		report.BaseReserve = reserves.Reserve0
		report.TokenReserve = reserves.Reserve1
	} else {
		report.BaseReserve = reserves.Reserve1
		report.TokenReserve = reserves.Reserve0
	}

	report.Sufficient = report.BaseReserve.Cmp(i.minReserve) >= 0
	return report
}
