// internal/analyzer/analyzer.go
// Package analyzer produces a total risk verdict for a candidate token:
// metadata, liquidity and a simulated round-trip trade are combined into
// a safety score. Every error path degrades toward risk, never toward
// silence — an unanalyzable token is reported as critical, not skipped.
package analyzer

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/guardiavault-oss/Paradexx-sub011/internal/chain"
	"github.com/guardiavault-oss/Paradexx-sub011/internal/liquidity"
	"github.com/guardiavault-oss/Paradexx-sub011/internal/token"
)

// RiskLevel buckets a safety score.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// Score thresholds mapping safetyScore to RiskLevel.
const (
	lowThreshold    = 80
	mediumThreshold = 60
	highThreshold   = 30
)

// Round-trip loss boundaries in basis points.
const (
	honeypotLossBps = 8000 // above this the token is a honeypot
	warnLossBps     = 2000 // above this a high-tax warning is recorded
	maxTaxBps       = 5000 // per-leg tax clamp (50%)
)

// Score deductions.
const (
	honeypotPenalty  = 100
	ownershipPenalty = 20
	liquidityPenalty = 30
	taxFreePercent   = 5 // per-leg tax above this is deducted outright
)

// Analysis is the verdict for a single token. Produced fresh on every
// call, never mutated after creation.
type Analysis struct {
	TokenAddress        string      `json:"tokenAddress"`
	Token               *token.Info `json:"token,omitempty"`
	IsHoneypot          bool        `json:"isHoneypot"`
	HoneypotReason      string      `json:"honeypotReason,omitempty"`
	OwnershipRenounced  bool        `json:"ownershipRenounced"`
	BuyTaxPercent       float64     `json:"buyTaxPercent"`
	SellTaxPercent      float64     `json:"sellTaxPercent"`
	LiquiditySufficient bool        `json:"liquiditySufficient"`
	LiquidityLocked     bool        `json:"liquidityLocked"` // reserved: no lock detector yet
	IsVerified          bool        `json:"isVerified"`      // reserved
	SafetyScore         int         `json:"safetyScore"`
	RiskLevel           RiskLevel   `json:"riskLevel"`
	Warnings            []string    `json:"warnings"`
	Timestamp           time.Time   `json:"timestamp"`
}

// Quoter is the chain-gateway slice used for trade simulation.
type Quoter interface {
	AmountsOut(ctx context.Context, router common.Address, amountIn *big.Int, path []common.Address) ([]*big.Int, error)
}

// Config configures the safety analyzer.
type Config struct {
	Resolver  *token.Resolver
	Inspector *liquidity.Inspector
	Quoter    Quoter
	Router    common.Address
	WBase     common.Address
	// HoneypotCheck enables the simulated round-trip probe.
	HoneypotCheck bool
	// ProbeAmount is the fixed base-asset amount spent in simulation
	// (default 0.01 base units).
	ProbeAmount *big.Int
	Logger      *zap.Logger
}

// DefaultProbeAmount is 0.01 of an 18-decimal base asset.
var DefaultProbeAmount = new(big.Int).Exp(big.NewInt(10), big.NewInt(16), nil)

// Analyzer orchestrates metadata, liquidity and simulation into a
// verdict.
type Analyzer struct {
	resolver      *token.Resolver
	inspector     *liquidity.Inspector
	quoter        Quoter
	router        common.Address
	wbase         common.Address
	honeypotCheck bool
	probeAmount   *big.Int
	logger        *zap.Logger
}

// New creates a safety analyzer.
func New(cfg *Config) *Analyzer {
	probe := cfg.ProbeAmount
	if probe == nil || probe.Sign() <= 0 {
		probe = DefaultProbeAmount
	}
	return &Analyzer{
		resolver:      cfg.Resolver,
		inspector:     cfg.Inspector,
		quoter:        cfg.Quoter,
		router:        cfg.Router,
		wbase:         cfg.WBase,
		honeypotCheck: cfg.HoneypotCheck,
		probeAmount:   probe,
		logger:        cfg.Logger.Named("analyzer"),
	}
}

// Analyze produces a verdict for the token address. The result is
// always total: there is no "unknown" risk level.
func (a *Analyzer) Analyze(ctx context.Context, address string) *Analysis {
	addr, err := chain.ParseAddress(address)
	if err != nil {
		return critical(address, "invalid token address")
	}

	info, err := a.resolver.ResolveAddress(ctx, addr)
	if err != nil {
		a.logger.Warn("metadata resolution failed",
			zap.String("token", address), zap.Error(err))
		return critical(address, "token metadata could not be resolved")
	}

	analysis := &Analysis{
		TokenAddress: addr.Hex(),
		Token:        info,
		Warnings:     []string{},
		Timestamp:    time.Now(),
	}

	liq := a.inspector.Inspect(ctx, addr)
	analysis.LiquiditySufficient = liq.Sufficient
	analysis.Warnings = append(analysis.Warnings, liq.Warnings...)

	analysis.OwnershipRenounced = info.Owner == nil || chain.IsRenouncedOwner(*info.Owner)
	if !analysis.OwnershipRenounced {
		analysis.Warnings = append(analysis.Warnings,
			fmt.Sprintf("ownership not renounced (owner %s)", info.Owner.Hex()))
	}

	lossBps := 0
	if liq.Sufficient && a.honeypotCheck {
		lossBps = a.simulateRoundTrip(ctx, addr, analysis)
	}

	analysis.SafetyScore = a.score(analysis, lossBps)
	analysis.RiskLevel = riskLevelFor(analysis.SafetyScore)

	a.logger.Info("token analyzed",
		zap.String("token", analysis.TokenAddress),
		zap.String("symbol", info.Symbol),
		zap.Int("score", analysis.SafetyScore),
		zap.String("risk", string(analysis.RiskLevel)),
		zap.Bool("honeypot", analysis.IsHoneypot))

	return analysis
}

// simulateRoundTrip quotes a probe buy and the reverse sell, returning
// the total loss in basis points. Any simulation failure is itself a
// red flag: the token is marked a honeypot.
//
// The loss is split evenly into buy and sell tax. A single round trip
// cannot distinguish the two legs, so this split is a known heuristic,
// not a measurement.
func (a *Analyzer) simulateRoundTrip(ctx context.Context, addr common.Address, analysis *Analysis) int {
	markHoneypot := func(reason string) {
		analysis.IsHoneypot = true
		analysis.HoneypotReason = reason
		analysis.Warnings = append(analysis.Warnings, reason)
	}

	forward, err := a.quoter.AmountsOut(ctx, a.router, a.probeAmount,
		[]common.Address{a.wbase, addr})
	if err != nil || len(forward) < 2 {
		markHoneypot("could not simulate buy, assuming honeypot")
		return 0
	}
	tokenOut := forward[len(forward)-1]
	if tokenOut.Sign() == 0 {
		markHoneypot("simulated buy returns zero tokens")
		return 0
	}

	reverse, err := a.quoter.AmountsOut(ctx, a.router, tokenOut,
		[]common.Address{addr, a.wbase})
	if err != nil || len(reverse) < 2 {
		markHoneypot("could not simulate sell, assuming honeypot")
		return 0
	}
	baseBack := reverse[len(reverse)-1]

	// lossBps = (probe - returned) / probe in basis points, integer math.
	loss := new(big.Int).Sub(a.probeAmount, baseBack)
	if loss.Sign() < 0 {
		loss.SetInt64(0)
	}
	lossBps := int(new(big.Int).Div(
		new(big.Int).Mul(loss, big.NewInt(10000)), a.probeAmount).Int64())

	taxBps := lossBps / 2
	if taxBps > maxTaxBps {
		taxBps = maxTaxBps
	}
	analysis.BuyTaxPercent = float64(taxBps) / 100
	analysis.SellTaxPercent = float64(taxBps) / 100

	switch {
	case lossBps > honeypotLossBps:
		markHoneypot(fmt.Sprintf("round-trip loss %d%% exceeds honeypot threshold", lossBps/100))
	case lossBps > warnLossBps:
		analysis.Warnings = append(analysis.Warnings,
			fmt.Sprintf("high round-trip tax: %d%%", lossBps/100))
	}

	return lossBps
}

// score computes the safety score from the accumulated findings.
func (a *Analyzer) score(analysis *Analysis, lossBps int) int {
	score := 100
	if analysis.IsHoneypot {
		score -= honeypotPenalty
	}
	if !analysis.OwnershipRenounced {
		score -= ownershipPenalty
	}
	if !analysis.LiquiditySufficient {
		score -= liquidityPenalty
	}
	if taxPct := lossBps / 2 / 100; taxPct > taxFreePercent {
		score -= taxPct
	}
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}

func riskLevelFor(score int) RiskLevel {
	switch {
	case score >= lowThreshold:
		return RiskLow
	case score >= mediumThreshold:
		return RiskMedium
	case score >= highThreshold:
		return RiskHigh
	default:
		return RiskCritical
	}
}

// critical builds the fail-closed verdict for tokens that cannot be
// analyzed at all.
func critical(address, reason string) *Analysis {
	return &Analysis{
		TokenAddress:   address,
		IsHoneypot:     true,
		HoneypotReason: reason,
		SafetyScore:    0,
		RiskLevel:      RiskCritical,
		Warnings:       []string{reason},
		Timestamp:      time.Now(),
	}
}
