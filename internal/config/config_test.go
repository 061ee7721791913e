// internal/config/config_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const validYAML = `
rpc_url: "https://rpc.example.com"
router_address: "0x7a250d5630B4cF539739dF2C5dAcb4c659F2488D"
factory_address: "0x5C69bEe701ef814a2B6a3EDD4B1652CB9cc5aA6f"
wbase_address: "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"
`

func TestLoadConfig_Defaults(t *testing.T) {
	path := writeConfigFile(t, validYAML)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, int64(DefaultChainID), cfg.ChainID)
	assert.Equal(t, DefaultSlippageBps, cfg.SlippageBps)
	assert.Equal(t, DefaultGasMultiplier, cfg.GasMultiplier)
	assert.Equal(t, DefaultDailyTradeLimit, cfg.DailyTradeLimit)
	assert.Equal(t, DefaultListenAddr, cfg.ListenAddr)
	assert.True(t, cfg.HoneypotCheck)
	assert.True(t, cfg.ReadOnly())
}

func TestLoadConfig_MissingRPC(t *testing.T) {
	path := writeConfigFile(t, `router_address: "0x1"`)

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfig_InvalidRPCProtocol(t *testing.T) {
	path := writeConfigFile(t, `
rpc_url: "ftp://rpc.example.com"
router_address: "0x1"
factory_address: "0x2"
wbase_address: "0x3"
`)

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfig_InvalidSlippage(t *testing.T) {
	path := writeConfigFile(t, validYAML+"slippage_bps: 10000\n")

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	path := writeConfigFile(t, validYAML)
	t.Setenv("TRADE_ENGINE_SLIPPAGE_BPS", "250")
	t.Setenv("TRADE_ENGINE_PRIVATE_KEY", "abc123")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 250, cfg.SlippageBps)
	assert.False(t, cfg.ReadOnly())
}

func TestLoadConfig_EnvOnly(t *testing.T) {
	t.Setenv("TRADE_ENGINE_RPC_URL", "https://rpc.example.com")
	t.Setenv("TRADE_ENGINE_ROUTER_ADDRESS", "0x1")
	t.Setenv("TRADE_ENGINE_FACTORY_ADDRESS", "0x2")
	t.Setenv("TRADE_ENGINE_WBASE_ADDRESS", "0x3")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "https://rpc.example.com", cfg.RPCURL)
}
