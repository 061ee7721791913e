// internal/token/resolver_test.go
package token

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
)

var errRevert = errors.New("execution reverted")

// mockReader implements MetadataReader with per-field behavior and call
// counting.
type mockReader struct {
	calls int

	hasCode bool
	codeErr error

	name, symbol   string
	nameErr        error
	symbolErr      error
	decimals       uint8
	decimalsErr    error
	totalSupply    *big.Int
	totalSupplyErr error
	owner          common.Address
	ownerErrs      map[string]error
}

func (m *mockReader) HasCode(ctx context.Context, addr common.Address) (bool, error) {
	m.calls++
	return m.hasCode, m.codeErr
}

func (m *mockReader) TokenName(ctx context.Context, token common.Address) (string, error) {
	m.calls++
	return m.name, m.nameErr
}

func (m *mockReader) TokenSymbol(ctx context.Context, token common.Address) (string, error) {
	m.calls++
	return m.symbol, m.symbolErr
}

func (m *mockReader) TokenDecimals(ctx context.Context, token common.Address) (uint8, error) {
	m.calls++
	return m.decimals, m.decimalsErr
}

func (m *mockReader) TokenTotalSupply(ctx context.Context, token common.Address) (*big.Int, error) {
	m.calls++
	return m.totalSupply, m.totalSupplyErr
}

func (m *mockReader) TokenOwner(ctx context.Context, token common.Address, accessor string) (common.Address, error) {
	m.calls++
	if err, ok := m.ownerErrs[accessor]; ok && err != nil {
		return common.Address{}, err
	}
	return m.owner, nil
}

func healthyReader() *mockReader {
	return &mockReader{
		hasCode:     true,
		name:        "Test Token",
		symbol:      "TST",
		decimals:    9,
		totalSupply: big.NewInt(1_000_000),
		owner:       common.HexToAddress("0x1111111111111111111111111111111111111111"),
	}
}

const tokenAddr = "0x2222222222222222222222222222222222222222"

func TestResolveInvalidAddressNoNetworkCall(t *testing.T) {
	reader := healthyReader()
	resolver := NewResolver(reader, zaptest.NewLogger(t))

	_, err := resolver.Resolve(context.Background(), "banana")
	assert.ErrorIs(t, err, chain.ErrInvalidAddress)
	assert.Zero(t, reader.calls, "validation must happen before any network call")
}

func TestResolveHealthyToken(t *testing.T) {
	resolver := NewResolver(healthyReader(), zaptest.NewLogger(t))

	info, err := resolver.Resolve(context.Background(), tokenAddr)
	require.NoError(t, err)
	assert.Equal(t, "Test Token", info.Name)
	assert.Equal(t, "TST", info.Symbol)
	assert.Equal(t, uint8(9), info.Decimals)
	assert.Equal(t, "1000000", info.TotalSupply.String())
	require.NotNil(t, info.Owner)
	assert.Equal(t, common.HexToAddress("0x1111111111111111111111111111111111111111"), *info.Owner)
}

func TestResolveSubstitutesSentinels(t *testing.T) {
	reader := healthyReader()
	reader.nameErr = errRevert
	reader.symbolErr = errRevert
	reader.decimalsErr = errRevert
	reader.totalSupplyErr = errRevert
	resolver := NewResolver(reader, zaptest.NewLogger(t))

	info, err := resolver.Resolve(context.Background(), tokenAddr)
	require.NoError(t, err, "individual field failures must not abort resolution")
	assert.Equal(t, UnknownName, info.Name)
	assert.Equal(t, UnknownSymbol, info.Symbol)
	assert.Equal(t, uint8(18), info.Decimals)
	assert.Zero(t, info.TotalSupply.Sign())
}

func TestResolveOwnerFallbackAccessor(t *testing.T) {
	reader := healthyReader()
	reader.ownerErrs = map[string]error{"owner": errRevert}
	resolver := NewResolver(reader, zaptest.NewLogger(t))

	info, err := resolver.Resolve(context.Background(), tokenAddr)
	require.NoError(t, err)
	require.NotNil(t, info.Owner, "getOwner should answer when owner reverts")
}

func TestResolveNoOwnerReported(t *testing.T) {
	reader := healthyReader()
	reader.ownerErrs = map[string]error{"owner": errRevert, "getOwner": errRevert}
	resolver := NewResolver(reader, zaptest.NewLogger(t))

	info, err := resolver.Resolve(context.Background(), tokenAddr)
	require.NoError(t, err, "missing owner is not an error")
	assert.Nil(t, info.Owner)
}

func TestResolveNotAContract(t *testing.T) {
	reader := healthyReader()
	reader.hasCode = false
	resolver := NewResolver(reader, zaptest.NewLogger(t))

	_, err := resolver.Resolve(context.Background(), tokenAddr)
	assert.ErrorIs(t, err, chain.ErrNotContract)
}
