package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"raisefunds/chain"
)

const testConfigFile = `
[db]
driver = "sqlite"
database = "raisefunds.db"
seed_at_start = true

[logger]
level = "DEBUG"
console = false

[chain]
node_url = "https://coston2-api.flare.network/ext/C/rpc"
api_key = "secret"
chain_type = "eth"
verify_timeout_millis = 4000

[server]
address = ":9090"
admin_key = "from-file"

[reconciler]
interval_seconds = 30
`

func TestParseConfigFile(t *testing.T) {
	fileName := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(fileName, []byte(testConfigFile), 0o600))

	cfg := newConfig()
	require.NoError(t, ParseConfigFile(cfg, fileName))

	assert.Equal(t, "sqlite", cfg.DB.Driver)
	assert.Equal(t, "raisefunds.db", cfg.DB.Database)
	assert.True(t, cfg.DB.SeedAtStart)
	assert.Equal(t, chain.ChainTypeEth, cfg.Chain.ChainType)
	assert.Equal(t, 4*time.Second, cfg.Chain.VerifyTimeout())
	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.Equal(t, "from-file", cfg.Server.AdminKey)
	assert.Equal(t, 30, cfg.Reconciler.IntervalSeconds)

	// defaults that the file does not override survive decoding
	assert.Equal(t, 15000, cfg.Server.ReadTimeoutMillis)
	assert.Equal(t, 3306, cfg.DB.Port)
	assert.Less(t, cfg.Chain.VerifyTimeout(), newConfig().Server.WriteTimeout())
}

func TestParseConfigFileMissing(t *testing.T) {
	err := ParseConfigFile(newConfig(), filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
}

func TestReadEnvOverrides(t *testing.T) {
	t.Setenv("ADMIN_KEY", "from-env")
	t.Setenv("DB_PORT", "3307")
	t.Setenv("CHAIN_TYPE", "avax")

	cfg := newConfig()
	cfg.Chain.ChainType = chain.ChainTypeEth
	require.NoError(t, ReadEnv(cfg))

	assert.Equal(t, "from-env", cfg.Server.AdminKey)
	assert.Equal(t, 3307, cfg.DB.Port)
	assert.Equal(t, chain.ChainTypeAvax, cfg.Chain.ChainType)
}

func TestLoadDotEnv(t *testing.T) {
	fileName := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(fileName, []byte("CREATOR_PASSWORD=hunter2\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("CREATOR_PASSWORD") })

	require.NoError(t, LoadDotEnv(fileName))

	cfg := newConfig()
	require.NoError(t, ReadEnv(cfg))
	assert.Equal(t, "hunter2", cfg.Server.CreatorPassword)

	require.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")))
}

func TestFullNodeURL(t *testing.T) {
	cfg := ChainConfig{NodeURL: "http://localhost:9650/ext/bc/C/rpc", APIKey: "abc"}

	u, err := cfg.FullNodeURL()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9650/ext/bc/C/rpc?x-apikey=abc", u.String())

	cfg.APIKey = ""
	u, err = cfg.FullNodeURL()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9650/ext/bc/C/rpc", u.String())
}

func TestConfigCallback(t *testing.T) {
	var cc ConfigCallback[GlobalConfig]
	var got LoggerConfig
	cc.AddCallback(func(c GlobalConfig) { got = c.LoggerConfig() })

	cc.Call(Config{Logger: LoggerConfig{Level: "WARN"}})
	assert.Equal(t, "WARN", got.Level)
}
