// internal/analyzer/analyzer_test.go
package analyzer

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/guardiavault-oss/Paradexx-sub011/internal/chain"
	"github.com/guardiavault-oss/Paradexx-sub011/internal/liquidity"
	"github.com/guardiavault-oss/Paradexx-sub011/internal/token"
)

var (
	routerAddr = common.HexToAddress("0x7a250d5630B4cF539739dF2C5dAcb4c659F2488D")
	factory    = common.HexToAddress("0x5C69bEe701ef814a2B6a3EDD4B1652CB9cc5aA6f")
	wbase      = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	pairAddr   = common.HexToAddress("0x3333333333333333333333333333333333333333")
	renounced  = common.HexToAddress("0x000000000000000000000000000000000000dEaD")
	liveOwner  = common.HexToAddress("0x1111111111111111111111111111111111111111")
)

const tokenAddr = "0x4444444444444444444444444444444444444444"

// mockGateway implements the resolver, inspector and quoter slices of
// the chain gateway with call counting.
type mockGateway struct {
	calls int

	hasCode bool
	owner   *common.Address

	pair     common.Address
	reserves *chain.PairReserves

	forwardOut *big.Int
	reverseOut *big.Int
	forwardErr error
	reverseErr error
}

func (m *mockGateway) HasCode(ctx context.Context, addr common.Address) (bool, error) {
	m.calls++
	return m.hasCode, nil
}

func (m *mockGateway) TokenName(ctx context.Context, t common.Address) (string, error) {
	m.calls++
	return "Mock Token", nil
}

func (m *mockGateway) TokenSymbol(ctx context.Context, t common.Address) (string, error) {
	m.calls++
	return "MOCK", nil
}

func (m *mockGateway) TokenDecimals(ctx context.Context, t common.Address) (uint8, error) {
	m.calls++
	return 18, nil
}

func (m *mockGateway) TokenTotalSupply(ctx context.Context, t common.Address) (*big.Int, error) {
	m.calls++
	return big.NewInt(1_000_000), nil
}

func (m *mockGateway) TokenOwner(ctx context.Context, t common.Address, accessor string) (common.Address, error) {
	m.calls++
	if m.owner == nil {
		return common.Address{}, errors.New("execution reverted")
	}
	return *m.owner, nil
}

func (m *mockGateway) GetPair(ctx context.Context, f, a, b common.Address) (common.Address, error) {
	m.calls++
	return m.pair, nil
}

func (m *mockGateway) GetReserves(ctx context.Context, pair common.Address) (*chain.PairReserves, error) {
	m.calls++
	if m.reserves == nil {
		return nil, errors.New("no reserves")
	}
	return m.reserves, nil
}

func (m *mockGateway) AmountsOut(ctx context.Context, router common.Address, amountIn *big.Int, path []common.Address) ([]*big.Int, error) {
	m.calls++
	if path[0] == wbase {
		if m.forwardErr != nil {
			return nil, m.forwardErr
		}
		return []*big.Int{amountIn, m.forwardOut}, nil
	}
	if m.reverseErr != nil {
		return nil, m.reverseErr
	}
	return []*big.Int{amountIn, m.reverseOut}, nil
}

// healthyGateway returns a gateway for a renounced, liquid token whose
// round trip loses nothing.
func healthyGateway() *mockGateway {
	deep := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	return &mockGateway{
		hasCode: true,
		owner:   nil, // no owner reported: renounced
		pair:    pairAddr,
		reserves: &chain.PairReserves{
			Pair:     pairAddr,
			Token0:   wbase,
			Reserve0: deep,
			Reserve1: big.NewInt(1_000_000),
		},
		forwardOut: big.NewInt(1000),
		reverseOut: DefaultProbeAmount, // full probe comes back
	}
}

func newAnalyzer(t *testing.T, gw *mockGateway) *Analyzer {
	logger := zaptest.NewLogger(t)
	return New(&Config{
		Resolver: token.NewResolver(gw, logger),
		Inspector: liquidity.NewInspector(&liquidity.InspectorConfig{
			Reader:  gw,
			Factory: factory,
			WBase:   wbase,
			Logger:  logger,
		}),
		Quoter:        gw,
		Router:        routerAddr,
		WBase:         wbase,
		HoneypotCheck: true,
		Logger:        logger,
	})
}

// probePortion returns the reverse-leg return that leaves lossPct of the
// probe behind.
func probePortion(lossPct int64) *big.Int {
	kept := new(big.Int).Mul(DefaultProbeAmount, big.NewInt(100-lossPct))
	return kept.Div(kept, big.NewInt(100))
}

func TestAnalyzeInvalidAddressFailsClosed(t *testing.T) {
	gw := healthyGateway()
	a := newAnalyzer(t, gw)

	analysis := a.Analyze(context.Background(), "definitely-not-an-address")
	assert.True(t, analysis.IsHoneypot)
	assert.Equal(t, RiskCritical, analysis.RiskLevel)
	assert.Zero(t, analysis.SafetyScore)
	assert.Zero(t, gw.calls, "malformed address must be rejected before any network call")
}

func TestAnalyzeUnreadableContractIsCritical(t *testing.T) {
	gw := healthyGateway()
	gw.hasCode = false
	a := newAnalyzer(t, gw)

	analysis := a.Analyze(context.Background(), tokenAddr)
	assert.True(t, analysis.IsHoneypot)
	assert.Equal(t, RiskCritical, analysis.RiskLevel)
	assert.Zero(t, analysis.SafetyScore)
}

func TestAnalyzeHealthyToken(t *testing.T) {
	a := newAnalyzer(t, healthyGateway())

	analysis := a.Analyze(context.Background(), tokenAddr)
	assert.False(t, analysis.IsHoneypot)
	assert.True(t, analysis.OwnershipRenounced)
	assert.True(t, analysis.LiquiditySufficient)
	assert.Equal(t, 100, analysis.SafetyScore)
	assert.Equal(t, RiskLow, analysis.RiskLevel)
	assert.Empty(t, analysis.Warnings)
}

func TestAnalyzeZeroForwardQuoteIsHoneypot(t *testing.T) {
	gw := healthyGateway()
	gw.forwardOut = big.NewInt(0)
	a := newAnalyzer(t, gw)

	analysis := a.Analyze(context.Background(), tokenAddr)
	assert.True(t, analysis.IsHoneypot)
	assert.Equal(t, RiskCritical, analysis.RiskLevel)
}

func TestAnalyzeSimulationErrorAssumesHoneypot(t *testing.T) {
	gw := healthyGateway()
	gw.reverseErr = errors.New("execution reverted")
	a := newAnalyzer(t, gw)

	analysis := a.Analyze(context.Background(), tokenAddr)
	assert.True(t, analysis.IsHoneypot)
	assert.Equal(t, RiskCritical, analysis.RiskLevel)
}

func TestAnalyzeHoneypotBoundary(t *testing.T) {
	t.Run("81 percent loss is a honeypot", func(t *testing.T) {
		gw := healthyGateway()
		gw.reverseOut = probePortion(81)
		a := newAnalyzer(t, gw)

		analysis := a.Analyze(context.Background(), tokenAddr)
		assert.True(t, analysis.IsHoneypot)
	})

	t.Run("79 percent loss is high tax, not honeypot", func(t *testing.T) {
		gw := healthyGateway()
		gw.reverseOut = probePortion(79)
		a := newAnalyzer(t, gw)

		analysis := a.Analyze(context.Background(), tokenAddr)
		assert.False(t, analysis.IsHoneypot)
		assert.NotEmpty(t, analysis.Warnings, "high round-trip tax must be warned about")
		assert.InDelta(t, 39.5, analysis.BuyTaxPercent, 0.01)
		assert.InDelta(t, 39.5, analysis.SellTaxPercent, 0.01)
	})

	t.Run("exactly 80 percent is not a honeypot", func(t *testing.T) {
		gw := healthyGateway()
		gw.reverseOut = probePortion(80)
		a := newAnalyzer(t, gw)

		analysis := a.Analyze(context.Background(), tokenAddr)
		assert.False(t, analysis.IsHoneypot)
	})
}

func TestAnalyzeTaxClampedAtFifty(t *testing.T) {
	gw := healthyGateway()
	gw.reverseOut = big.NewInt(0) // 100% loss
	a := newAnalyzer(t, gw)

	analysis := a.Analyze(context.Background(), tokenAddr)
	assert.True(t, analysis.IsHoneypot)
	assert.LessOrEqual(t, analysis.BuyTaxPercent, 50.0)
	assert.LessOrEqual(t, analysis.SellTaxPercent, 50.0)
}

func TestAnalyzeOwnershipNotRenounced(t *testing.T) {
	gw := healthyGateway()
	gw.owner = &liveOwner
	a := newAnalyzer(t, gw)

	analysis := a.Analyze(context.Background(), tokenAddr)
	assert.False(t, analysis.OwnershipRenounced)
	assert.Equal(t, 80, analysis.SafetyScore)
	assert.Equal(t, RiskLow, analysis.RiskLevel)
	assert.NotEmpty(t, analysis.Warnings)
}

func TestAnalyzeBurnOwnerCountsAsRenounced(t *testing.T) {
	gw := healthyGateway()
	gw.owner = &renounced
	a := newAnalyzer(t, gw)

	analysis := a.Analyze(context.Background(), tokenAddr)
	assert.True(t, analysis.OwnershipRenounced)
}

func TestAnalyzeInsufficientLiquiditySkipsSimulation(t *testing.T) {
	gw := healthyGateway()
	gw.reserves.Reserve0 = big.NewInt(1) // base side far below threshold
	gw.forwardErr = errors.New("should not be called")
	a := newAnalyzer(t, gw)

	analysis := a.Analyze(context.Background(), tokenAddr)
	assert.False(t, analysis.IsHoneypot, "no simulation without liquidity")
	assert.False(t, analysis.LiquiditySufficient)
	assert.Equal(t, 70, analysis.SafetyScore)
	assert.Equal(t, RiskMedium, analysis.RiskLevel)
}

// TestAnalyzeScoreMonotonicity composes negative conditions one at a
// time and asserts the score only ever drops.
func TestAnalyzeScoreMonotonicity(t *testing.T) {
	worsen := []func(*mockGateway){
		func(gw *mockGateway) { gw.owner = &liveOwner },
		func(gw *mockGateway) { gw.reverseOut = probePortion(30) }, // 15% tax per leg
		func(gw *mockGateway) { gw.reverseOut = probePortion(60) }, // 30% tax per leg
		func(gw *mockGateway) { gw.reverseOut = probePortion(95) }, // past the honeypot boundary
	}

	gw := healthyGateway()
	prev := newAnalyzer(t, gw).Analyze(context.Background(), tokenAddr).SafetyScore
	require.Equal(t, 100, prev)

	for i, mutate := range worsen {
		mutate(gw)
		score := newAnalyzer(t, gw).Analyze(context.Background(), tokenAddr).SafetyScore
		assert.LessOrEqual(t, score, prev, "condition %d must not raise the score", i)
		prev = score
	}
	assert.Zero(t, prev, "fully degraded token floors at zero")
}

func TestRiskLevelThresholds(t *testing.T) {
	assert.Equal(t, RiskLow, riskLevelFor(100))
	assert.Equal(t, RiskLow, riskLevelFor(80))
	assert.Equal(t, RiskMedium, riskLevelFor(79))
	assert.Equal(t, RiskMedium, riskLevelFor(60))
	assert.Equal(t, RiskHigh, riskLevelFor(59))
	assert.Equal(t, RiskHigh, riskLevelFor(30))
	assert.Equal(t, RiskCritical, riskLevelFor(29))
	assert.Equal(t, RiskCritical, riskLevelFor(0))
}
