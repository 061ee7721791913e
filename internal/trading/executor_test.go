// internal/trading/executor_test.go
package trading

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/guardiavault-oss/Paradexx-sub011/internal/chain"
	"github.com/guardiavault-oss/Paradexx-sub011/internal/storage/memory"
)

var (
	testWallet  = common.HexToAddress("0x1000000000000000000000000000000000000001")
	testRouter  = common.HexToAddress("0x2000000000000000000000000000000000000002")
	testFactory = common.HexToAddress("0x3000000000000000000000000000000000000003")
	testWBase   = common.HexToAddress("0x4000000000000000000000000000000000000004")
	testToken   = common.HexToAddress("0x5000000000000000000000000000000000000005")
	testPair    = common.HexToAddress("0x6000000000000000000000000000000000000006")
)

type submission struct {
	kind   string // "approve", "buy", "sell"
	minOut *big.Int
}

// mockGateway implements SwapGateway and ValueReader with canned
// responses and a log of every state-changing submission.
type mockGateway struct {
	readOnly    bool
	balance     *big.Int
	balanceErr  error
	allowance   *big.Int
	quoteOut    *big.Int
	quoteErr    error
	gasPrice    *big.Int
	gasPriceErr error
	swapErr     error
	approveErr  error
	pair        common.Address
	pairErr     error

	submissions []submission
	quoteCalls  int
}

func healthySwapGateway() *mockGateway {
	return &mockGateway{
		balance:   big.NewInt(0),
		allowance: big.NewInt(0),
		quoteOut:  big.NewInt(1_000_000),
		gasPrice:  big.NewInt(20_000_000_000),
		pair:      testPair,
	}
}

func (m *mockGateway) SignerAddress() (common.Address, bool) {
	if m.readOnly {
		return common.Address{}, false
	}
	return testWallet, true
}

func (m *mockGateway) SuggestGasPrice(_ context.Context) (*big.Int, error) {
	if m.gasPriceErr != nil {
		return nil, m.gasPriceErr
	}
	return new(big.Int).Set(m.gasPrice), nil
}

func (m *mockGateway) BalanceOf(_ context.Context, _, _ common.Address) (*big.Int, error) {
	if m.balanceErr != nil {
		return nil, m.balanceErr
	}
	return new(big.Int).Set(m.balance), nil
}

func (m *mockGateway) Allowance(_ context.Context, _, _, _ common.Address) (*big.Int, error) {
	return new(big.Int).Set(m.allowance), nil
}

func (m *mockGateway) AmountsOut(_ context.Context, _ common.Address, amountIn *big.Int, _ []common.Address) ([]*big.Int, error) {
	m.quoteCalls++
	if m.quoteErr != nil {
		return nil, m.quoteErr
	}
	return []*big.Int{new(big.Int).Set(amountIn), new(big.Int).Set(m.quoteOut)}, nil
}

func (m *mockGateway) GetPair(_ context.Context, _, _, _ common.Address) (common.Address, error) {
	if m.pairErr != nil {
		return common.Address{}, m.pairErr
	}
	return m.pair, nil
}

func (m *mockGateway) TokenSymbol(_ context.Context, _ common.Address) (string, error) {
	return "TKN", nil
}

func (m *mockGateway) TokenDecimals(_ context.Context, _ common.Address) (uint8, error) {
	return 18, nil
}

func (m *mockGateway) ApproveToken(_ context.Context, _, _ common.Address, _, _ *big.Int) (*chain.TxOutcome, error) {
	if m.approveErr != nil {
		return nil, m.approveErr
	}
	m.submissions = append(m.submissions, submission{kind: "approve"})
	return &chain.TxOutcome{Hash: "0xapprove", GasUsed: 46000}, nil
}

func (m *mockGateway) SwapBaseForTokens(_ context.Context, _ common.Address, _, minOut *big.Int, _ []common.Address, _ time.Time, _ *big.Int) (*chain.TxOutcome, error) {
	if m.swapErr != nil {
		return nil, m.swapErr
	}
	m.submissions = append(m.submissions, submission{kind: "buy", minOut: new(big.Int).Set(minOut)})
	m.balance = new(big.Int).Add(m.balance, m.quoteOut)
	return &chain.TxOutcome{Hash: "0xbuy", GasUsed: 180000}, nil
}

func (m *mockGateway) SwapTokensForBase(_ context.Context, _ common.Address, amountIn, minOut *big.Int, _ []common.Address, _ time.Time, _ *big.Int) (*chain.TxOutcome, error) {
	if m.swapErr != nil {
		return nil, m.swapErr
	}
	m.submissions = append(m.submissions, submission{kind: "sell", minOut: new(big.Int).Set(minOut)})
	m.balance = new(big.Int).Sub(m.balance, amountIn)
	return &chain.TxOutcome{Hash: "0xsell", GasUsed: 190000}, nil
}

func newTestExecutor(t *testing.T, gw *mockGateway) (*Executor, *Ledger) {
	logger := zaptest.NewLogger(t)
	ledger := NewLedger(&LedgerConfig{
		Reader:  gw,
		Wallet:  testWallet,
		Router:  testRouter,
		Factory: testFactory,
		WBase:   testWBase,
		Logger:  logger,
	})
	exec := NewExecutor(&ExecutorConfig{
		Gateway: gw,
		Ledger:  ledger,
		Trades:  memory.NewTradeStore(),
		Router:  testRouter,
		WBase:   testWBase,
		Logger:  logger,
	})
	return exec, ledger
}

func TestBuy_ReadOnlyMode(t *testing.T) {
	gw := healthySwapGateway()
	gw.readOnly = true
	exec, _ := newTestExecutor(t, gw)

	result := exec.Buy(context.Background(), testToken.Hex(), big.NewInt(1000), nil)

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "read-only")
	assert.Empty(t, gw.submissions, "read-only mode must not submit transactions")
}

func TestBuy_InvalidAddress(t *testing.T) {
	gw := healthySwapGateway()
	exec, _ := newTestExecutor(t, gw)

	result := exec.Buy(context.Background(), "not-an-address", big.NewInt(1000), nil)

	assert.False(t, result.Success)
	assert.Zero(t, gw.quoteCalls)
}

func TestBuy_SlippageFloorsMinOut(t *testing.T) {
	gw := healthySwapGateway()
	gw.quoteOut = big.NewInt(1000)
	exec, _ := newTestExecutor(t, gw)

	result := exec.Buy(context.Background(), testToken.Hex(), big.NewInt(500), &TradeOptions{SlippageBps: 500})

	require.True(t, result.Success, result.Error)
	require.Len(t, gw.submissions, 1)
	// 1000 quoted, 5% tolerance: floor to 950.
	assert.Equal(t, big.NewInt(950), gw.submissions[0].minOut)
}

func TestBuy_OpensPosition(t *testing.T) {
	gw := healthySwapGateway()
	gw.quoteOut = big.NewInt(2_000_000)
	exec, ledger := newTestExecutor(t, gw)

	result := exec.Buy(context.Background(), testToken.Hex(), big.NewInt(10_000), nil)

	require.True(t, result.Success, result.Error)
	assert.Equal(t, "0xbuy", result.TxHash)
	assert.Equal(t, big.NewInt(2_000_000), result.AmountOut)

	pos, ok := ledger.Get(testToken)
	require.True(t, ok)
	assert.Equal(t, "0xbuy", pos.ID)
	assert.Equal(t, big.NewInt(10_000), pos.EntryCost)
	assert.Equal(t, big.NewInt(2_000_000), pos.Amount)
	assert.Equal(t, "TKN", pos.TokenSymbol)
}

func TestBuy_ZeroQuoteFails(t *testing.T) {
	gw := healthySwapGateway()
	gw.quoteOut = big.NewInt(0)
	exec, _ := newTestExecutor(t, gw)

	result := exec.Buy(context.Background(), testToken.Hex(), big.NewInt(1000), nil)

	assert.False(t, result.Success)
	assert.Empty(t, gw.submissions)
}

func TestBuy_SwapErrorReported(t *testing.T) {
	gw := healthySwapGateway()
	gw.swapErr = errors.New("boom")
	exec, ledger := newTestExecutor(t, gw)

	result := exec.Buy(context.Background(), testToken.Hex(), big.NewInt(1000), nil)

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "boom")
	assert.Equal(t, 0, ledger.Count())
}

func TestBuy_GasSuggestionFallback(t *testing.T) {
	gw := healthySwapGateway()
	gw.gasPriceErr = errors.New("node down")
	exec, _ := newTestExecutor(t, gw)

	result := exec.Buy(context.Background(), testToken.Hex(), big.NewInt(1000), nil)

	assert.True(t, result.Success, result.Error)
}

func TestSell_NoTokens(t *testing.T) {
	gw := healthySwapGateway()
	gw.balance = big.NewInt(0)
	exec, _ := newTestExecutor(t, gw)

	result := exec.Sell(context.Background(), testToken.Hex(), 100, nil)

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "no tokens to sell")
	assert.Empty(t, gw.submissions, "zero balance must not submit transactions")
}

func TestSell_ApprovesBeforeSwap(t *testing.T) {
	gw := healthySwapGateway()
	gw.balance = big.NewInt(1_000_000)
	gw.allowance = big.NewInt(0)
	exec, _ := newTestExecutor(t, gw)

	result := exec.Sell(context.Background(), testToken.Hex(), 100, nil)

	require.True(t, result.Success, result.Error)
	require.Len(t, gw.submissions, 2)
	assert.Equal(t, "approve", gw.submissions[0].kind)
	assert.Equal(t, "sell", gw.submissions[1].kind)
}

func TestSell_SkipsApprovalWhenCovered(t *testing.T) {
	gw := healthySwapGateway()
	gw.balance = big.NewInt(1_000_000)
	gw.allowance = new(big.Int).Set(chain.MaxUint256)
	exec, _ := newTestExecutor(t, gw)

	result := exec.Sell(context.Background(), testToken.Hex(), 100, nil)

	require.True(t, result.Success, result.Error)
	require.Len(t, gw.submissions, 1)
	assert.Equal(t, "sell", gw.submissions[0].kind)
}

func TestSell_FullSellRemovesPosition(t *testing.T) {
	gw := healthySwapGateway()
	gw.balance = big.NewInt(1_000_000)
	exec, ledger := newTestExecutor(t, gw)
	ledger.Open(&Position{
		ID:           "0xorigin",
		TokenAddress: testToken,
		EntryCost:    big.NewInt(500),
		Amount:       big.NewInt(1_000_000),
	})

	result := exec.Sell(context.Background(), testToken.Hex(), 100, nil)

	require.True(t, result.Success, result.Error)
	assert.Equal(t, 0, ledger.Count())
}

func TestSell_PartialSellKeepsPosition(t *testing.T) {
	gw := healthySwapGateway()
	gw.balance = big.NewInt(1_000_000)
	exec, ledger := newTestExecutor(t, gw)
	ledger.Open(&Position{
		ID:           "0xorigin",
		TokenAddress: testToken,
		EntryCost:    big.NewInt(500),
		Amount:       big.NewInt(1_000_000),
	})

	result := exec.Sell(context.Background(), testToken.Hex(), 50, nil)

	require.True(t, result.Success, result.Error)
	pos, ok := ledger.Get(testToken)
	require.True(t, ok)
	assert.Equal(t, big.NewInt(500_000), pos.Amount)
}

func TestSell_DefaultsToFullBalance(t *testing.T) {
	gw := healthySwapGateway()
	gw.balance = big.NewInt(1_000_000)
	exec, _ := newTestExecutor(t, gw)

	result := exec.Sell(context.Background(), testToken.Hex(), 0, nil)

	require.True(t, result.Success, result.Error)
	assert.Zero(t, gw.balance.Cmp(big.NewInt(0)))
}

func TestSell_PercentOutOfRange(t *testing.T) {
	gw := healthySwapGateway()
	gw.balance = big.NewInt(1_000_000)
	exec, _ := newTestExecutor(t, gw)

	result := exec.Sell(context.Background(), testToken.Hex(), 101, nil)

	assert.False(t, result.Success)
	assert.Empty(t, gw.submissions)
}

func TestMinWithSlippage(t *testing.T) {
	tests := []struct {
		name     string
		quoted   int64
		bps      int
		expected int64
	}{
		{"five percent", 1000, 500, 950},
		{"ten percent", 1000, 1000, 900},
		{"rounds down", 999, 500, 949},
		{"zero tolerance", 1000, 0, 1000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := minWithSlippage(big.NewInt(tt.quoted), tt.bps)
			assert.Equal(t, big.NewInt(tt.expected), got)
		})
	}
}
