package config

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	txerrors "attackreg/internal/errors"
)

const testContract = "0x3503543A2dAD949457deC8CEBf09F9d28Ec42416"

func mapLookup(m map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func TestFromLookupDefaults(t *testing.T) {
	cfg, err := FromLookup(mapLookup(map[string]string{
		EnvNodeURL:         "https://testnet.vechain.org",
		EnvContractAddress: testContract,
	}))
	require.NoError(t, err)

	assert.Equal(t, common.HexToAddress(testContract), cfg.ContractAddress)
	assert.Nil(t, cfg.ChainID)
	assert.Equal(t, DefaultPollInterval, cfg.PollInterval)
	assert.Equal(t, DefaultMaxPollAttempts, cfg.MaxPollAttempts)
	assert.Equal(t, DefaultRetryAttempts, cfg.RetryAttempts)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "console", cfg.LogFormat)
	assert.True(t, cfg.Sender.Empty())
	assert.ErrorIs(t, cfg.RequireSender(), txerrors.ErrConfig)
}

func TestFromLookupParsesValues(t *testing.T) {
	cfg, err := FromLookup(mapLookup(map[string]string{
		EnvNodeURL:          "http://127.0.0.1:8545",
		EnvContractAddress:  testContract,
		EnvChainID:          "100010",
		EnvPollInterval:     "500ms",
		EnvMaxPollAttempts:  "5",
		EnvRetryAttempts:    "7",
		EnvLogFormat:        "json",
		EnvSenderPrivateKey: "0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318",
	}))
	require.NoError(t, err)

	assert.Equal(t, big.NewInt(100010), cfg.ChainID)
	assert.Equal(t, 500*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, 5, cfg.MaxPollAttempts)
	assert.Equal(t, 7, cfg.RetryAttempts)
	assert.NoError(t, cfg.RequireSender())
	assert.NotContains(t, cfg.Sender.String(), "4c0883a6")
}

func TestFromLookupRejectsInvalidInput(t *testing.T) {
	base := func() map[string]string {
		return map[string]string{EnvNodeURL: "http://127.0.0.1:8545", EnvContractAddress: testContract}
	}
	testCases := []struct {
		name  string
		key   string
		value string
	}{
		{name: "missing node url", key: EnvNodeURL, value: ""},
		{name: "node url without scheme", key: EnvNodeURL, value: "localhost"},
		{name: "missing contract", key: EnvContractAddress, value: ""},
		{name: "bad contract", key: EnvContractAddress, value: "0x1234"},
		{name: "bad chain id", key: EnvChainID, value: "-4"},
		{name: "bad poll interval", key: EnvPollInterval, value: "soon"},
		{name: "bad max polls", key: EnvMaxPollAttempts, value: "many"},
		{name: "bad log format", key: EnvLogFormat, value: "xml"},
		{name: "keystore without password", key: EnvSenderKeystore, value: "/tmp/key.json"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			env := base()
			env[tc.key] = tc.value
			_, err := FromLookup(mapLookup(env))
			require.Error(t, err)
			assert.ErrorIs(t, err, txerrors.ErrConfig)
		})
	}
}

func TestValidateRejectsMultipleCredentialSources(t *testing.T) {
	cfg := &Config{
		NodeURL:         "http://127.0.0.1:8545",
		ContractAddress: common.HexToAddress(testContract),
		Sender:          Credentials{PrivateKey: "0x01", PrivateKeyFile: "/run/secrets/key"},
	}
	assert.ErrorIs(t, cfg.Validate(), txerrors.ErrConfig)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("ATTACKREG_TEST_VALUE=from-dotenv\n"), 0o600))
	t.Setenv("ATTACKREG_TEST_VALUE", "")
	require.NoError(t, os.Unsetenv("ATTACKREG_TEST_VALUE"))

	require.NoError(t, LoadDotEnv(path, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "from-dotenv", os.Getenv("ATTACKREG_TEST_VALUE"))
}

func TestCredentialsStringIsRedacted(t *testing.T) {
	c := Credentials{PrivateKey: "deadbeef"}
	assert.NotContains(t, c.String(), "deadbeef")
	assert.Equal(t, "none", Credentials{}.String())
	assert.Equal(t, "keystore:/k.json", Credentials{KeystorePath: "/k.json"}.String())
}
