package lspd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/jessevdk/go-flags"
	"github.com/lightninglabs/lspctl"
	"github.com/lightninglabs/lspctl/labels"
	"github.com/lightninglabs/lspctl/liquidity"
	"github.com/lightninglabs/lspctl/node"
	"github.com/lightninglabs/lspctl/payment"
	"github.com/lightninglabs/lspctl/sweep"
	"github.com/lightningnetwork/lnd/build"
	"github.com/lightningnetwork/lnd/lncfg"
)

var (
	// LspctlDirBase is the default main directory where lspctl stores its
	// data.
	LspctlDirBase = btcutil.AppDataDir("lspctl", false)

	defaultNetwork        = "mainnet"
	defaultLogLevel       = "info"
	defaultLogDirname     = "logs"
	defaultLogFilename    = "lspctl.log"
	defaultConfigFilename = "lspctl.conf"

	defaultLogDir     = filepath.Join(LspctlDirBase, defaultLogDirname)
	defaultConfigFile = filepath.Join(
		LspctlDirBase, defaultNetwork, defaultConfigFilename,
	)

	defaultMaxLogFiles    = 3
	defaultMaxLogFileSize = 10

	defaultLndHost = "localhost:10009"
)

var (
	// errInvalidBackoff is returned if the backoff floor exceeds the
	// ceiling.
	errInvalidBackoff = errors.New("pay.backofffloor must not exceed " +
		"pay.backoffceiling")

	// errNegativeDuration is returned for negative intervals.
	errNegativeDuration = errors.New("intervals must not be negative")

	// errZeroTunable is returned for tunables set to zero. The packages
	// consuming them treat zero as unset.
	errZeroTunable = errors.New("tunable must not be zero")
)

type lndConfig struct {
	Host        string `long:"host" env:"LND_HOST" description:"lnd instance rpc address"`
	MacaroonDir string `long:"macaroondir" env:"LND_MACAROONDIR" description:"Path to the directory containing lnd's admin macaroon"`
	TLSPath     string `long:"tlspath" env:"LND_TLSPATH" description:"Path to lnd tls certificate"`
}

type payConfig struct {
	PollInterval   time.Duration `long:"pollinterval" description:"Time between two polls of the channel and payment lists"`
	BackoffFloor   time.Duration `long:"backofffloor" description:"Retry delay after the first failed payment attempt"`
	BackoffCeiling time.Duration `long:"backoffceiling" description:"Maximum retry delay between payment attempts"`
	Headroom       uint64        `long:"headroom" description:"Outbound liquidity in msat required on top of the amount and its 2% fee margin"`
	MaxAttempts    uint32        `long:"maxattempts" description:"Maximum number of payment attempts, 0 retries until the payment succeeds"`
}

type sweepConfig struct {
	SyncAttempts int           `long:"syncattempts" description:"Number of wallet sync retries before a sweep gives up"`
	SyncInterval time.Duration `long:"syncinterval" description:"Time between two wallet sync attempts"`
	Label        string        `long:"label" description:"Label for sweep transactions, a generated one is used if empty"`
}

type invoiceConfig struct {
	Expiry       time.Duration `long:"expiry" description:"Expiry of created invoices"`
	PollInterval time.Duration `long:"pollinterval" description:"Time between two lookups of an invoice that is waited for"`
}

// Config is the configuration of lspctl. Values are taken from the command
// line, the environment and the config file.
type Config struct {
	Network    string `long:"network" env:"NETWORK" description:"network to run on (mainnet, testnet, regtest, signet, simnet)"`
	LspctlDir  string `long:"lspctldir" env:"LSPCTL_DIR" description:"The directory for all of lspctl's data."`
	ConfigFile string `long:"configfile" description:"Path to configuration file."`
	DataDir    string `long:"datadir" description:"Directory for the journal."`
	LogDir     string `long:"logdir" description:"Directory to log output."`

	DebugLevel string `long:"debuglevel" env:"LOG_LEVEL" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- You may also specify <subsystem>=<level>,<subsystem2>=<level>,... to set the log level for individual subsystems -- Use show to list available subsystems"`

	NoJournal bool `long:"nojournal" description:"Don't journal payment attempts and sweeps"`

	Lnd *lndConfig `group:"lnd" namespace:"lnd"`

	Pay *payConfig `group:"pay" namespace:"pay"`

	Sweep *sweepConfig `group:"sweep" namespace:"sweep"`

	Invoice *invoiceConfig `group:"invoice" namespace:"invoice"`

	Logging *build.LogConfig `group:"logging" namespace:"logging"`
}

// DefaultConfig returns all default values for the Config struct.
func DefaultConfig() Config {
	logging := build.DefaultLogConfig()
	logging.File.MaxLogFiles = defaultMaxLogFiles
	logging.File.MaxLogFileSize = defaultMaxLogFileSize

	return Config{
		Network:    defaultNetwork,
		LspctlDir:  LspctlDirBase,
		ConfigFile: defaultConfigFile,
		DataDir:    LspctlDirBase,
		LogDir:     defaultLogDir,
		DebugLevel: defaultLogLevel,
		Lnd: &lndConfig{
			Host: defaultLndHost,
		},
		Pay: &payConfig{
			PollInterval:   payment.DefaultPollInterval,
			BackoffFloor:   payment.DefaultBackoffFloor,
			BackoffCeiling: payment.DefaultBackoffCeiling,
			Headroom:       uint64(liquidity.FixedHeadroom),
		},
		Sweep: &sweepConfig{
			SyncAttempts: sweep.DefaultSyncAttempts,
			SyncInterval: sweep.DefaultSyncInterval,
		},
		Invoice: &invoiceConfig{
			Expiry:       lspctl.DefaultInvoiceExpiry,
			PollInterval: lspctl.DefaultInvoicePollInterval,
		},
		Logging: logging,
	}
}

// ChainParams returns the parameters of the configured network, falling back
// to mainnet for unknown names.
func (c *Config) ChainParams() *chaincfg.Params {
	return node.ChainParamsOrDefault(c.Network)
}

// LoadConfig parses the given arguments, the environment and the config
// file, in that order of precedence, and validates the result. Arguments that
// don't belong to the configuration are ignored.
func LoadConfig(args []string) (*Config, error) {
	config := DefaultConfig()

	parser := flags.NewParser(&config, flags.IgnoreUnknown)
	if _, err := parser.ParseArgs(args); err != nil {
		return nil, err
	}

	lspctlDir := lncfg.CleanAndExpandPath(config.LspctlDir)
	configFile := getConfigPath(config, lspctlDir)

	if err := flags.IniParse(configFile, &config); err != nil {
		// If it's a parsing related error, then we'll return
		// immediately, otherwise we can proceed as possibly the config
		// file doesn't exist which is OK.
		var iniErr *flags.IniError
		if errors.As(err, &iniErr) {
			return nil, err
		}
	}

	// Parse the arguments again to restore values overwritten by the
	// config file.
	if _, err := parser.ParseArgs(args); err != nil {
		return nil, err
	}

	if err := Validate(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate cleans up paths in the config provided and validates it.
func Validate(cfg *Config) error {
	// Cleanup any paths before we use them.
	cfg.LspctlDir = lncfg.CleanAndExpandPath(cfg.LspctlDir)
	cfg.DataDir = lncfg.CleanAndExpandPath(cfg.DataDir)
	cfg.LogDir = lncfg.CleanAndExpandPath(cfg.LogDir)
	cfg.Lnd.MacaroonDir = lncfg.CleanAndExpandPath(cfg.Lnd.MacaroonDir)
	cfg.Lnd.TLSPath = lncfg.CleanAndExpandPath(cfg.Lnd.TLSPath)

	// Since our main directory overrides our log/data dir values, make
	// sure that they are not set when it is set.
	logDirSet := cfg.LogDir != defaultLogDir
	dataDirSet := cfg.DataDir != LspctlDirBase
	lspctlDirSet := cfg.LspctlDir != LspctlDirBase

	if lspctlDirSet {
		if logDirSet {
			return fmt.Errorf("lspctldir overwrites logdir, please " +
				"only set one value")
		}

		if dataDirSet {
			return fmt.Errorf("lspctldir overwrites datadir, " +
				"please only set one value")
		}

		cfg.DataDir = cfg.LspctlDir
		cfg.LogDir = filepath.Join(cfg.LspctlDir, defaultLogDirname)
	}

	if cfg.Pay.PollInterval < 0 || cfg.Pay.BackoffFloor < 0 ||
		cfg.Pay.BackoffCeiling < 0 || cfg.Sweep.SyncInterval < 0 ||
		cfg.Invoice.PollInterval < 0 || cfg.Invoice.Expiry < 0 {

		return errNegativeDuration
	}

	if cfg.Pay.BackoffFloor > cfg.Pay.BackoffCeiling {
		return errInvalidBackoff
	}

	if cfg.Sweep.SyncAttempts < 0 {
		return fmt.Errorf("sweep.syncattempts must not be negative")
	}

	zeroChecks := []struct {
		name string
		zero bool
	}{
		{"pay.pollinterval", cfg.Pay.PollInterval == 0},
		{"pay.backofffloor", cfg.Pay.BackoffFloor == 0},
		{"pay.backoffceiling", cfg.Pay.BackoffCeiling == 0},
		{"pay.headroom", cfg.Pay.Headroom == 0},
		{"sweep.syncattempts", cfg.Sweep.SyncAttempts == 0},
		{"sweep.syncinterval", cfg.Sweep.SyncInterval == 0},
		{"invoice.expiry", cfg.Invoice.Expiry == 0},
		{"invoice.pollinterval", cfg.Invoice.PollInterval == 0},
	}
	for _, check := range zeroChecks {
		if check.zero {
			return fmt.Errorf("%v: %w", check.name, errZeroTunable)
		}
	}

	if err := labels.Validate(cfg.Sweep.Label); err != nil {
		return fmt.Errorf("sweep.label: %w", err)
	}

	// Append the network type to the data and log directory so they are
	// "namespaced" per network.
	network := node.NetworkName(cfg.ChainParams())
	cfg.DataDir = filepath.Join(cfg.DataDir, network)
	cfg.LogDir = filepath.Join(cfg.LogDir, network)

	// If either of these directories do not exist, create them.
	if err := os.MkdirAll(cfg.DataDir, os.ModePerm); err != nil {
		return err
	}

	return os.MkdirAll(cfg.LogDir, os.ModePerm)
}

// getConfigPath gets our config path based on the values that are set in our
// config.
func getConfigPath(cfg Config, lspctlDir string) string {
	// If the config file path provided by the user is set, then we just
	// use this value.
	if cfg.ConfigFile != defaultConfigFile {
		return lncfg.CleanAndExpandPath(cfg.ConfigFile)
	}

	// A custom main directory holds the config file without network
	// namespacing.
	if lspctlDir != LspctlDirBase {
		return filepath.Join(lspctlDir, defaultConfigFilename)
	}

	// Otherwise, we are using our default directory, and the user did not
	// set a config file path. We use our default directory, namespaced by
	// network.
	return filepath.Join(
		lspctlDir, node.NetworkName(cfg.ChainParams()),
		defaultConfigFilename,
	)
}
