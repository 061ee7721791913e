// internal/trading/executor.go
// Package trading executes slippage-bounded swaps against the router
// and keeps the ledger of resulting positions.
package trading

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/guardiavault-oss/Paradexx-sub011/internal/chain"
	"github.com/guardiavault-oss/Paradexx-sub011/internal/storage"
)

const (
	bpsDenominator = 10000

	// DefaultSlippageBps tolerates 5% slippage when no override is given.
	DefaultSlippageBps = 500

	// DefaultGasMultiplier scales the node's suggested gas price.
	DefaultGasMultiplier = 1.1

	// DefaultDeadline bounds router-side swap validity.
	DefaultDeadline = 5 * time.Minute
)

// SwapGateway is the chain-gateway slice the executor drives.
type SwapGateway interface {
	SignerAddress() (common.Address, bool)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	BalanceOf(ctx context.Context, token, holder common.Address) (*big.Int, error)
	Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error)
	AmountsOut(ctx context.Context, router common.Address, amountIn *big.Int, path []common.Address) ([]*big.Int, error)
	TokenSymbol(ctx context.Context, token common.Address) (string, error)
	TokenDecimals(ctx context.Context, token common.Address) (uint8, error)
	ApproveToken(ctx context.Context, token, spender common.Address, amount, gasPrice *big.Int) (*chain.TxOutcome, error)
	SwapBaseForTokens(ctx context.Context, router common.Address, amountIn, minOut *big.Int, path []common.Address, deadline time.Time, gasPrice *big.Int) (*chain.TxOutcome, error)
	SwapTokensForBase(ctx context.Context, router common.Address, amountIn, minOut *big.Int, path []common.Address, deadline time.Time, gasPrice *big.Int) (*chain.TxOutcome, error)
}

// Executor performs buys and sells. Writes for the one signer are
// serialized so nonces never race; reads stay concurrent.
type Executor struct {
	writeMu sync.Mutex

	gateway SwapGateway
	ledger  *Ledger
	trades  storage.TradeStore // optional audit sink
	router  common.Address
	wbase   common.Address
	logger  *zap.Logger

	defaults TradeOptions
}

// ExecutorConfig configures the trade executor.
type ExecutorConfig struct {
	Gateway SwapGateway
	Ledger  *Ledger
	Trades  storage.TradeStore
	Router  common.Address
	WBase   common.Address
	Logger  *zap.Logger

	// Zero values fall back to the package defaults.
	SlippageBps   int
	GasMultiplier float64
	Deadline      time.Duration
}

// NewExecutor creates a trade executor.
func NewExecutor(cfg *ExecutorConfig) *Executor {
	defaults := TradeOptions{
		SlippageBps:   cfg.SlippageBps,
		GasMultiplier: cfg.GasMultiplier,
		Deadline:      cfg.Deadline,
	}
	if defaults.SlippageBps <= 0 {
		defaults.SlippageBps = DefaultSlippageBps
	}
	if defaults.GasMultiplier <= 0 {
		defaults.GasMultiplier = DefaultGasMultiplier
	}
	if defaults.Deadline <= 0 {
		defaults.Deadline = DefaultDeadline
	}
	return &Executor{
		gateway:  cfg.Gateway,
		ledger:   cfg.Ledger,
		trades:   cfg.Trades,
		router:   cfg.Router,
		wbase:    cfg.WBase,
		logger:   cfg.Logger.Named("executor"),
		defaults: defaults,
	}
}

// resolveOptions fills unset per-call overrides from the defaults.
func (e *Executor) resolveOptions(opts *TradeOptions) TradeOptions {
	out := e.defaults
	if opts == nil {
		return out
	}
	if opts.SlippageBps > 0 {
		out.SlippageBps = opts.SlippageBps
	}
	if opts.GasMultiplier > 0 {
		out.GasMultiplier = opts.GasMultiplier
	}
	if opts.Deadline > 0 {
		out.Deadline = opts.Deadline
	}
	return out
}

// minWithSlippage floors the quoted amount by the slippage tolerance.
func minWithSlippage(quoted *big.Int, slippageBps int) *big.Int {
	keep := big.NewInt(int64(bpsDenominator - slippageBps))
	out := new(big.Int).Mul(quoted, keep)
	return out.Div(out, big.NewInt(bpsDenominator))
}

// gasPrice asks the node for a suggestion and scales it. An unreachable
// suggestion falls back to the static default rather than failing the
// trade.
func (e *Executor) gasPrice(ctx context.Context, multiplier float64) *big.Int {
	suggested, err := e.gateway.SuggestGasPrice(ctx)
	if err != nil {
		e.logger.Warn("gas price suggestion failed, using fallback", zap.Error(err))
		return new(big.Int).Set(chain.DefaultGasPrice)
	}
	scaled, _ := new(big.Float).Mul(
		new(big.Float).SetInt(suggested),
		big.NewFloat(multiplier),
	).Int(nil)
	return scaled
}

// Buy swaps baseAmount of the base asset for the token. Failures are
// reported inside the result, never as an error.
func (e *Executor) Buy(ctx context.Context, token string, baseAmount *big.Int, opts *TradeOptions) *TradeResult {
	wallet, ok := e.gateway.SignerAddress()
	if !ok {
		return tradeFailure("wallet not configured: running in read-only mode")
	}
	tokenAddr, err := chain.ParseAddress(token)
	if err != nil {
		return tradeFailure(fmt.Sprintf("invalid token address: %s", token))
	}
	if baseAmount == nil || baseAmount.Sign() <= 0 {
		return tradeFailure("buy amount must be positive")
	}
	cfg := e.resolveOptions(opts)

	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	path := []common.Address{e.wbase, tokenAddr}
	amounts, err := e.gateway.AmountsOut(ctx, e.router, baseAmount, path)
	if err != nil || len(amounts) < 2 {
		return tradeFailure(fmt.Sprintf("quote failed: %v", err))
	}
	expected := amounts[len(amounts)-1]
	if expected.Sign() == 0 {
		return tradeFailure("router quoted zero output for this amount")
	}
	minOut := minWithSlippage(expected, cfg.SlippageBps)

	balanceBefore, balErr := e.gateway.BalanceOf(ctx, tokenAddr, wallet)

	gasPrice := e.gasPrice(ctx, cfg.GasMultiplier)
	deadline := time.Now().Add(cfg.Deadline)

	e.logger.Info("🚀 submitting buy",
		zap.String("token", tokenAddr.Hex()),
		zap.String("base_in", baseAmount.String()),
		zap.String("min_out", minOut.String()),
		zap.Int("slippage_bps", cfg.SlippageBps))

	outcome, err := e.gateway.SwapBaseForTokens(ctx, e.router, baseAmount, minOut, path, deadline, gasPrice)
	if err != nil {
		e.logger.Error("buy failed", zap.String("token", tokenAddr.Hex()), zap.Error(err))
		return tradeFailure(fmt.Sprintf("swap failed: %v", err))
	}

	// The credited amount comes from balance movement, not the quote:
	// fee-on-transfer tokens deliver less than the router promises.
	acquired := new(big.Int).Set(expected)
	if balErr == nil {
		if balanceAfter, err := e.gateway.BalanceOf(ctx, tokenAddr, wallet); err == nil {
			if diff := new(big.Int).Sub(balanceAfter, balanceBefore); diff.Sign() > 0 {
				acquired = diff
			}
		}
	}

	symbol, decimals := e.describeToken(ctx, tokenAddr)

	e.ledger.Open(&Position{
		ID:            outcome.Hash,
		TokenAddress:  tokenAddr,
		TokenSymbol:   symbol,
		TokenDecimals: decimals,
		EntryCost:     new(big.Int).Set(baseAmount),
		Amount:        acquired,
		OpenedAt:      time.Now(),
	})

	result := &TradeResult{
		Success:        true,
		TxHash:         outcome.Hash,
		AmountOut:      acquired,
		BaseSpent:      new(big.Int).Set(baseAmount),
		GasUsed:        outcome.GasUsed,
		EffectivePrice: effectivePrice(baseAmount, acquired),
	}
	e.record(ctx, wallet, tokenAddr, symbol, storage.TradeSideBuy, baseAmount, acquired, result)

	e.logger.Info("✅ buy confirmed",
		zap.String("token", tokenAddr.Hex()),
		zap.String("tx", outcome.Hash),
		zap.String("acquired", acquired.String()))
	return result
}

// Sell swaps percent of the held token back to the base asset. A zero
// percent sells the full balance. Failures are reported inside the
// result, never as an error.
func (e *Executor) Sell(ctx context.Context, token string, percent int, opts *TradeOptions) *TradeResult {
	wallet, ok := e.gateway.SignerAddress()
	if !ok {
		return tradeFailure("wallet not configured: running in read-only mode")
	}
	tokenAddr, err := chain.ParseAddress(token)
	if err != nil {
		return tradeFailure(fmt.Sprintf("invalid token address: %s", token))
	}
	if percent == 0 {
		percent = 100
	}
	if percent < 1 || percent > 100 {
		return tradeFailure("sell percent must be between 1 and 100")
	}
	cfg := e.resolveOptions(opts)

	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	balance, err := e.gateway.BalanceOf(ctx, tokenAddr, wallet)
	if err != nil {
		return tradeFailure(fmt.Sprintf("balance read failed: %v", err))
	}
	if balance.Sign() == 0 {
		return tradeFailure("no tokens to sell")
	}

	sellAmount := new(big.Int).Mul(balance, big.NewInt(int64(percent)))
	sellAmount.Div(sellAmount, big.NewInt(100))
	if sellAmount.Sign() == 0 {
		return tradeFailure("sell amount rounds to zero")
	}

	path := []common.Address{tokenAddr, e.wbase}
	amounts, err := e.gateway.AmountsOut(ctx, e.router, sellAmount, path)
	if err != nil || len(amounts) < 2 {
		return tradeFailure(fmt.Sprintf("quote failed: %v", err))
	}
	expected := amounts[len(amounts)-1]
	if expected.Sign() == 0 {
		return tradeFailure("router quoted zero output for this amount")
	}
	minOut := minWithSlippage(expected, cfg.SlippageBps)

	gasPrice := e.gasPrice(ctx, cfg.GasMultiplier)

	if err := e.ensureAllowance(ctx, tokenAddr, wallet, sellAmount, gasPrice); err != nil {
		return tradeFailure(fmt.Sprintf("approval failed: %v", err))
	}

	deadline := time.Now().Add(cfg.Deadline)

	e.logger.Info("🚀 submitting sell",
		zap.String("token", tokenAddr.Hex()),
		zap.String("token_in", sellAmount.String()),
		zap.String("min_out", minOut.String()),
		zap.Int("percent", percent))

	outcome, err := e.gateway.SwapTokensForBase(ctx, e.router, sellAmount, minOut, path, deadline, gasPrice)
	if err != nil {
		e.logger.Error("sell failed", zap.String("token", tokenAddr.Hex()), zap.Error(err))
		return tradeFailure(fmt.Sprintf("swap failed: %v", err))
	}

	if percent == 100 {
		e.ledger.Remove(tokenAddr)
	} else {
		remaining := new(big.Int).Sub(balance, sellAmount)
		if current, err := e.gateway.BalanceOf(ctx, tokenAddr, wallet); err == nil {
			remaining = current
		}
		e.ledger.setAmount(tokenAddr, remaining)
	}

	symbol, _ := e.describeToken(ctx, tokenAddr)

	result := &TradeResult{
		Success:        true,
		TxHash:         outcome.Hash,
		AmountOut:      expected,
		GasUsed:        outcome.GasUsed,
		EffectivePrice: effectivePrice(expected, sellAmount),
	}
	e.record(ctx, wallet, tokenAddr, symbol, storage.TradeSideSell, expected, sellAmount, result)

	e.logger.Info("✅ sell confirmed",
		zap.String("token", tokenAddr.Hex()),
		zap.String("tx", outcome.Hash),
		zap.String("base_out", expected.String()))
	return result
}

// ensureAllowance grants the router an unlimited allowance when the
// current one cannot cover the sell. The approval is awaited before the
// swap is submitted.
func (e *Executor) ensureAllowance(ctx context.Context, token, wallet common.Address, needed, gasPrice *big.Int) error {
	allowance, err := e.gateway.Allowance(ctx, token, wallet, e.router)
	if err != nil {
		return fmt.Errorf("allowance read failed: %w", err)
	}
	if allowance.Cmp(needed) >= 0 {
		return nil
	}

	e.logger.Info("approving router", zap.String("token", token.Hex()))
	outcome, err := e.gateway.ApproveToken(ctx, token, e.router, chain.MaxUint256, gasPrice)
	if err != nil {
		return err
	}
	e.logger.Debug("approval confirmed", zap.String("tx", outcome.Hash))
	return nil
}

// describeToken resolves symbol and decimals best-effort; metadata
// failures never block a trade.
func (e *Executor) describeToken(ctx context.Context, token common.Address) (string, uint8) {
	symbol := "???"
	if s, err := e.gateway.TokenSymbol(ctx, token); err == nil {
		symbol = s
	}
	decimals := uint8(18)
	if d, err := e.gateway.TokenDecimals(ctx, token); err == nil {
		decimals = d
	}
	return symbol, decimals
}

// record writes the audit row. Persistence failures are logged, never
// surfaced: the trade already settled on-chain.
func (e *Executor) record(ctx context.Context, wallet, token common.Address, symbol string, side storage.TradeSide, baseAmount, tokenAmount *big.Int, result *TradeResult) {
	if e.trades == nil {
		return
	}
	err := e.trades.Insert(ctx, &storage.TradeRecord{
		TxHash:         result.TxHash,
		Wallet:         wallet.Hex(),
		Token:          token.Hex(),
		TokenSymbol:    symbol,
		Side:           side,
		BaseAmount:     baseAmount.String(),
		TokenAmount:    tokenAmount.String(),
		GasUsed:        result.GasUsed,
		EffectivePrice: result.EffectivePrice,
		ExecutedAt:     time.Now(),
	})
	if err != nil {
		e.logger.Warn("trade audit write failed", zap.String("tx", result.TxHash), zap.Error(err))
	}
}

// effectivePrice is base smallest units per token smallest unit.
func effectivePrice(base, tokens *big.Int) float64 {
	if tokens == nil || tokens.Sign() == 0 {
		return 0
	}
	price, _ := new(big.Float).Quo(
		new(big.Float).SetInt(base),
		new(big.Float).SetInt(tokens),
	).Float64()
	return price
}
