package lspd

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lightninglabs/lspctl/labels"
	"github.com/stretchr/testify/require"
)

// TestValidateDirectories tests that the data and log directories are
// namespaced per network and that conflicting directories are rejected.
func TestValidateDirectories(t *testing.T) {
	dir := t.TempDir()

	cfg := DefaultConfig()
	cfg.LspctlDir = dir
	cfg.Network = "bitcoin"
	require.NoError(t, Validate(&cfg))

	require.Equal(t, filepath.Join(dir, "mainnet"), cfg.DataDir)
	require.Equal(t, filepath.Join(dir, "logs", "mainnet"), cfg.LogDir)
	require.DirExists(t, cfg.DataDir)
	require.DirExists(t, cfg.LogDir)

	cfg = DefaultConfig()
	cfg.LspctlDir = dir
	cfg.DataDir = filepath.Join(dir, "data")
	require.ErrorContains(t, Validate(&cfg), "overwrites datadir")
}

// TestValidateTunables tests the rejection of inconsistent tunables.
func TestValidateTunables(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		err    error
	}{
		{
			name: "floor above ceiling",
			mutate: func(cfg *Config) {
				cfg.Pay.BackoffFloor = time.Minute
				cfg.Pay.BackoffCeiling = time.Second
			},
			err: errInvalidBackoff,
		},
		{
			name: "negative poll interval",
			mutate: func(cfg *Config) {
				cfg.Pay.PollInterval = -time.Second
			},
			err: errNegativeDuration,
		},
		{
			name: "zero sync attempts",
			mutate: func(cfg *Config) {
				cfg.Sweep.SyncAttempts = 0
			},
			err: errZeroTunable,
		},
		{
			name: "zero headroom",
			mutate: func(cfg *Config) {
				cfg.Pay.Headroom = 0
			},
			err: errZeroTunable,
		},
		{
			name: "zero invoice expiry",
			mutate: func(cfg *Config) {
				cfg.Invoice.Expiry = 0
			},
			err: errZeroTunable,
		},
		{
			name: "reserved label",
			mutate: func(cfg *Config) {
				cfg.Sweep.Label = labels.Reserved + " mine"
			},
			err: labels.ErrReservedPrefix,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.LspctlDir = t.TempDir()
			test.mutate(&cfg)

			require.ErrorIs(t, Validate(&cfg), test.err)
		})
	}
}

// TestLoadConfig tests the precedence of arguments, environment and config
// file.
func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()

	conf := "[pay]\n" +
		"pay.maxattempts=7\n" +
		"pay.backoffceiling=10s\n" +
		"[sweep]\n" +
		"sweep.label=cold storage\n"
	err := os.WriteFile(
		filepath.Join(dir, defaultConfigFilename), []byte(conf), 0600,
	)
	require.NoError(t, err)

	t.Setenv("LSPCTL_DIR", dir)
	t.Setenv("NETWORK", "regtest")
	t.Setenv("LND_HOST", "lnd:10009")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadConfig([]string{
		"--pay.backoffceiling=1m", "pay", "lnbcrt1",
	})
	require.NoError(t, err)

	require.Equal(t, "regtest", cfg.Network)
	require.Equal(t, "lnd:10009", cfg.Lnd.Host)
	require.Equal(t, "debug", cfg.DebugLevel)
	require.Equal(t, uint32(7), cfg.Pay.MaxAttempts)
	require.Equal(t, time.Minute, cfg.Pay.BackoffCeiling)
	require.Equal(t, "cold storage", cfg.Sweep.Label)
	require.Equal(t, filepath.Join(dir, "regtest"), cfg.DataDir)
}

// TestUnknownNetwork asserts the mainnet fallback for unknown networks.
func TestUnknownNetwork(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LspctlDir = t.TempDir()
	cfg.Network = "dogecoin"

	require.NoError(t, Validate(&cfg))
	require.Equal(t, "mainnet", filepath.Base(cfg.DataDir))
	require.Equal(t, "mainnet", cfg.ChainParams().Name)
}
