// internal/chain/client.go
package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

// DefaultConfirmTimeout bounds the submit-and-wait path. A trade that is
// not confirmed within this window is reported as failed, not left hung.
const DefaultConfirmTimeout = 5 * time.Minute

// Signer holds the signing capability for write operations. A Client
// without a Signer is read-only.
type Signer struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// Address returns the signer's account address.
func (s *Signer) Address() common.Address { return s.address }

// NewSigner derives a signer from a hex-encoded private key.
func NewSigner(privateKeyHex string) (*Signer, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	pub, ok := key.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("failed to derive public key")
	}
	return &Signer{key: key, address: crypto.PubkeyToAddress(*pub)}, nil
}

// Client is the gateway to the chain node: read-only contract calls, fee
// estimates and signed transaction submission. Writes require a Signer;
// all read methods work without one.
type Client struct {
	eth     *ethclient.Client
	chainID *big.Int
	signer  *Signer
	logger  *zap.Logger
}

// ClientConfig configures the chain client.
type ClientConfig struct {
	RPCURL        string
	ChainID       int64
	PrivateKeyHex string // empty means read-only mode
	Logger        *zap.Logger
}

// NewClient connects to the RPC endpoint. An empty private key yields a
// read-only client rather than an error.
func NewClient(ctx context.Context, cfg *ClientConfig) (*Client, error) {
	eth, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC: %w", err)
	}

	c := &Client{
		eth:     eth,
		chainID: big.NewInt(cfg.ChainID),
		logger:  cfg.Logger.Named("chain"),
	}

	if cfg.PrivateKeyHex != "" {
		signer, err := NewSigner(cfg.PrivateKeyHex)
		if err != nil {
			eth.Close()
			return nil, err
		}
		c.signer = signer
		c.logger.Info("chain client ready",
			zap.String("wallet", signer.address.Hex()),
			zap.Int64("chain_id", cfg.ChainID))
	} else {
		c.logger.Warn("no signing key configured, running in read-only mode")
	}

	return c, nil
}

// Close releases the underlying RPC connection.
func (c *Client) Close() {
	if c.eth != nil {
		c.eth.Close()
	}
}

// Signer returns the configured signer, or nil in read-only mode.
func (c *Client) Signer() *Signer { return c.signer }

// SignerAddress returns the signing account and whether one is configured.
func (c *Client) SignerAddress() (common.Address, bool) {
	if c.signer == nil {
		return common.Address{}, false
	}
	return c.signer.address, true
}

// HasCode reports whether the address hosts contract code.
func (c *Client) HasCode(ctx context.Context, addr common.Address) (bool, error) {
	code, err := c.eth.CodeAt(ctx, addr, nil)
	if err != nil {
		return false, fmt.Errorf("failed to fetch code: %w", err)
	}
	return len(code) > 0, nil
}

// NativeBalance returns the base-asset balance of an account.
func (c *Client) NativeBalance(ctx context.Context, addr common.Address) (*big.Int, error) {
	balance, err := c.eth.BalanceAt(ctx, addr, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch balance: %w", err)
	}
	return balance, nil
}

// SuggestGasPrice returns the node's suggested gas price.
func (c *Client) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return c.eth.SuggestGasPrice(ctx)
}

func (c *Client) call(ctx context.Context, contract common.Address, parsed abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s call: %w", method, err)
	}
	res, err := c.eth.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("%s call failed: %w", method, err)
	}
	out, err := parsed.Unpack(method, res)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s result: %w", method, err)
	}
	return out, nil
}

// TokenName reads the token's declared name.
func (c *Client) TokenName(ctx context.Context, token common.Address) (string, error) {
	out, err := c.call(ctx, token, erc20ABI, "name")
	if err != nil {
		return "", err
	}
	name, ok := out[0].(string)
	if !ok {
		return "", fmt.Errorf("unexpected name type %T", out[0])
	}
	return name, nil
}

// TokenSymbol reads the token's declared symbol.
func (c *Client) TokenSymbol(ctx context.Context, token common.Address) (string, error) {
	out, err := c.call(ctx, token, erc20ABI, "symbol")
	if err != nil {
		return "", err
	}
	symbol, ok := out[0].(string)
	if !ok {
		return "", fmt.Errorf("unexpected symbol type %T", out[0])
	}
	return symbol, nil
}

// TokenDecimals reads the token's decimal precision.
func (c *Client) TokenDecimals(ctx context.Context, token common.Address) (uint8, error) {
	out, err := c.call(ctx, token, erc20ABI, "decimals")
	if err != nil {
		return 0, err
	}
	decimals, ok := out[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("unexpected decimals type %T", out[0])
	}
	return decimals, nil
}

// TokenTotalSupply reads the token's total supply in smallest units.
func (c *Client) TokenTotalSupply(ctx context.Context, token common.Address) (*big.Int, error) {
	out, err := c.call(ctx, token, erc20ABI, "totalSupply")
	if err != nil {
		return nil, err
	}
	supply, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected totalSupply type %T", out[0])
	}
	return supply, nil
}

// TokenOwner reads the declared owner through the given accessor, which
// must be "owner" or "getOwner". Tokens expose either, both or neither.
func (c *Client) TokenOwner(ctx context.Context, token common.Address, accessor string) (common.Address, error) {
	out, err := c.call(ctx, token, erc20ABI, accessor)
	if err != nil {
		return common.Address{}, err
	}
	owner, ok := out[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("unexpected owner type %T", out[0])
	}
	return owner, nil
}

// BalanceOf reads a holder's token balance in smallest units.
func (c *Client) BalanceOf(ctx context.Context, token, holder common.Address) (*big.Int, error) {
	out, err := c.call(ctx, token, erc20ABI, "balanceOf", holder)
	if err != nil {
		return nil, err
	}
	balance, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected balanceOf type %T", out[0])
	}
	return balance, nil
}

// Allowance reads the router's spending allowance for a holding.
func (c *Client) Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	out, err := c.call(ctx, token, erc20ABI, "allowance", owner, spender)
	if err != nil {
		return nil, err
	}
	allowance, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected allowance type %T", out[0])
	}
	return allowance, nil
}

// GetPair looks up the pool pairing two tokens in the factory registry.
// A zero address means no pool exists.
func (c *Client) GetPair(ctx context.Context, factory, tokenA, tokenB common.Address) (common.Address, error) {
	out, err := c.call(ctx, factory, factoryABI, "getPair", tokenA, tokenB)
	if err != nil {
		return common.Address{}, err
	}
	pair, ok := out[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("unexpected getPair type %T", out[0])
	}
	return pair, nil
}

// GetReserves reads a pool's reserves and token ordering.
func (c *Client) GetReserves(ctx context.Context, pair common.Address) (*PairReserves, error) {
	out, err := c.call(ctx, pair, pairABI, "getReserves")
	if err != nil {
		return nil, err
	}
	reserve0, ok0 := out[0].(*big.Int)
	reserve1, ok1 := out[1].(*big.Int)
	if !ok0 || !ok1 {
		return nil, fmt.Errorf("unexpected getReserves types %T, %T", out[0], out[1])
	}

	t0, err := c.call(ctx, pair, pairABI, "token0")
	if err != nil {
		return nil, err
	}
	token0, ok := t0[0].(common.Address)
	if !ok {
		return nil, fmt.Errorf("unexpected token0 type %T", t0[0])
	}

	return &PairReserves{
		Pair:     pair,
		Token0:   token0,
		Reserve0: reserve0,
		Reserve1: reserve1,
	}, nil
}

// AmountsOut quotes a swap along the given path via the router.
func (c *Client) AmountsOut(ctx context.Context, router common.Address, amountIn *big.Int, path []common.Address) ([]*big.Int, error) {
	out, err := c.call(ctx, router, routerABI, "getAmountsOut", amountIn, path)
	if err != nil {
		return nil, err
	}
	amounts, ok := out[0].([]*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected getAmountsOut type %T", out[0])
	}
	return amounts, nil
}

// ApproveToken submits an ERC-20 approval and awaits its confirmation.
func (c *Client) ApproveToken(ctx context.Context, token, spender common.Address, amount, gasPrice *big.Int) (*TxOutcome, error) {
	data, err := erc20ABI.Pack("approve", spender, amount)
	if err != nil {
		return nil, fmt.Errorf("failed to pack approve call: %w", err)
	}
	return c.submit(ctx, token, nil, data, gasPrice)
}

// SwapBaseForTokens buys tokens with the base asset through the router.
// The fee-on-transfer variant is used so that received amounts may
// legitimately differ from the naive quote.
func (c *Client) SwapBaseForTokens(ctx context.Context, router common.Address, amountIn, minOut *big.Int, path []common.Address, deadline time.Time, gasPrice *big.Int) (*TxOutcome, error) {
	data, err := routerABI.Pack("swapExactETHForTokensSupportingFeeOnTransferTokens",
		minOut, path, c.mustSignerAddress(), big.NewInt(deadline.Unix()))
	if err != nil {
		return nil, fmt.Errorf("failed to pack swap call: %w", err)
	}
	return c.submit(ctx, router, amountIn, data, gasPrice)
}

// SwapTokensForBase sells tokens back into the base asset through the
// router, tolerating fee-on-transfer tokens.
func (c *Client) SwapTokensForBase(ctx context.Context, router common.Address, amountIn, minOut *big.Int, path []common.Address, deadline time.Time, gasPrice *big.Int) (*TxOutcome, error) {
	data, err := routerABI.Pack("swapExactTokensForETHSupportingFeeOnTransferTokens",
		amountIn, minOut, path, c.mustSignerAddress(), big.NewInt(deadline.Unix()))
	if err != nil {
		return nil, fmt.Errorf("failed to pack swap call: %w", err)
	}
	return c.submit(ctx, router, nil, data, gasPrice)
}

func (c *Client) mustSignerAddress() common.Address {
	if c.signer == nil {
		return common.Address{}
	}
	return c.signer.address
}

// submit runs the full write path: nonce, gas estimate, sign, send and
// await the receipt. The caller is expected to hold the per-signer
// execution lock; two concurrent submissions from one key race on the
// nonce sequence.
func (c *Client) submit(ctx context.Context, to common.Address, value *big.Int, data []byte, gasPrice *big.Int) (*TxOutcome, error) {
	if c.signer == nil {
		return nil, ErrReadOnly
	}
	if value == nil {
		value = big.NewInt(0)
	}
	if gasPrice == nil || gasPrice.Sign() <= 0 {
		gasPrice = DefaultGasPrice
	}

	nonce, err := c.eth.PendingNonceAt(ctx, c.signer.address)
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce: %w", err)
	}

	// Estimation doubles as a revert check before spending gas.
	estimated, err := c.eth.EstimateGas(ctx, ethereum.CallMsg{
		From:  c.signer.address,
		To:    &to,
		Value: value,
		Data:  data,
	})
	if err != nil {
		return nil, fmt.Errorf("transaction would revert: %w", err)
	}
	gasLimit := estimated * 120 / 100

	tx := types.NewTransaction(nonce, to, value, gasLimit, gasPrice, data)
	signedTx, err := types.SignTx(tx, types.NewEIP155Signer(c.chainID), c.signer.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := c.eth.SendTransaction(ctx, signedTx); err != nil {
		return nil, fmt.Errorf("failed to send transaction: %w", err)
	}

	hash := signedTx.Hash()
	c.logger.Info("transaction submitted",
		zap.String("tx", hash.Hex()),
		zap.String("to", to.Hex()),
		zap.Uint64("gas_limit", gasLimit))

	waitCtx, cancel := context.WithTimeout(ctx, DefaultConfirmTimeout)
	defer cancel()

	receipt, err := c.waitForReceipt(waitCtx, hash)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("%w (tx %s)", ErrConfirmTimeout, hash.Hex())
		}
		return nil, fmt.Errorf("failed to get transaction receipt: %w", err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("%w (tx %s)", ErrReverted, hash.Hex())
	}

	return &TxOutcome{
		Hash:        hash.Hex(),
		GasUsed:     receipt.GasUsed,
		BlockNumber: receipt.BlockNumber.Uint64(),
	}, nil
}

// waitForReceipt polls for the receipt with exponential backoff until
// the context deadline expires.
func (c *Client) waitForReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 2 * time.Second
	policy.MaxInterval = 15 * time.Second

	operation := func() (*types.Receipt, error) {
		receipt, err := c.eth.TransactionReceipt(ctx, hash)
		if err != nil {
			// Not found yet is the normal pending state.
			return nil, err
		}
		return receipt, nil
	}

	return backoff.Retry(ctx, operation, backoff.WithBackOff(policy))
}
