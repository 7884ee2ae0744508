// Package lspd wires configuration, logging, the lnd connection and the
// journal into a ready to use client.
package lspd

import (
	"context"
	"path/filepath"

	"github.com/davecgh/go-spew/spew"
	"github.com/lightninglabs/lspctl"
	"github.com/lightninglabs/lspctl/lndnode"
	"github.com/lightninglabs/lspctl/paydb"
	"github.com/lightningnetwork/lnd/build"
	"github.com/lightningnetwork/lnd/lnwire"
	"github.com/lightningnetwork/lnd/signal"
)

// Logging is the running log setup.
type Logging struct {
	writer *build.RotatingLogWriter
	root   *build.SubLoggerManager
}

// StartLogging creates the log rotator in the configured log directory and
// registers all subsystem loggers. The debug level "show" leaves the levels
// untouched so that the caller can list the subsystems.
func StartLogging(cfg *Config, intercept signal.Interceptor) (*Logging,
	error) {

	writer := build.NewRotatingLogWriter()
	root := build.NewSubLoggerManager(
		build.NewDefaultLogHandlers(cfg.Logging, writer)...,
	)
	SetupLoggers(root, intercept)

	err := writer.InitLogRotator(
		cfg.Logging.File, filepath.Join(cfg.LogDir, defaultLogFilename),
	)
	if err != nil {
		return nil, err
	}

	if cfg.DebugLevel != "show" {
		err = build.ParseAndSetDebugLevels(cfg.DebugLevel, root)
		if err != nil {
			_ = writer.Close()
			return nil, err
		}
	}

	return &Logging{
		writer: writer,
		root:   root,
	}, nil
}

// SupportedSubsystems returns the names of all registered subsystems.
func (l *Logging) SupportedSubsystems() []string {
	return l.root.SupportedSubsystems()
}

// Close flushes and closes the log file.
func (l *Logging) Close() error {
	return l.writer.Close()
}

// NewClient connects to lnd and opens the journal. The returned cleanup
// closes both and must be called once the client is no longer used.
func NewClient(ctx context.Context, cfg *Config) (*lspctl.Client, func(),
	error) {

	log.Infof("Version: %v", lspctl.Version())
	log.Debugf("Configuration: %v", spew.Sdump(cfg))

	params := cfg.ChainParams()

	lnd, err := lndnode.New(ctx, &lndnode.Config{
		Host:        cfg.Lnd.Host,
		TLSPath:     cfg.Lnd.TLSPath,
		MacaroonDir: cfg.Lnd.MacaroonDir,
		Network:     params,
	})
	if err != nil {
		return nil, nil, err
	}

	clientCfg := &lspctl.ClientConfig{
		Node:                lnd,
		PollInterval:        cfg.Pay.PollInterval,
		BackoffFloor:        cfg.Pay.BackoffFloor,
		BackoffCeiling:      cfg.Pay.BackoffCeiling,
		Headroom:            lnwire.MilliSatoshi(cfg.Pay.Headroom),
		MaxAttempts:         cfg.Pay.MaxAttempts,
		SyncAttempts:        cfg.Sweep.SyncAttempts,
		SyncInterval:        cfg.Sweep.SyncInterval,
		SweepLabel:          cfg.Sweep.Label,
		InvoiceExpiry:       cfg.Invoice.Expiry,
		InvoicePollInterval: cfg.Invoice.PollInterval,
	}

	var store *paydb.BoltStore
	if !cfg.NoJournal {
		store, err = paydb.NewBoltStore(cfg.DataDir)
		if err != nil {
			_ = lnd.Close()
			return nil, nil, err
		}
		clientCfg.Store = store
	}

	cleanup := func() {
		if store != nil {
			if err := store.Close(); err != nil {
				log.Errorf("Unable to close journal: %v", err)
			}
		}

		if err := lnd.Close(); err != nil {
			log.Errorf("Unable to close lnd connection: %v", err)
		}
	}

	return lspctl.NewClient(clientCfg), cleanup, nil
}

// NewJournalClient opens the journal without connecting to lnd. The client
// can only be used to read the history.
func NewJournalClient(_ context.Context, cfg *Config) (*lspctl.Client,
	func(), error) {

	if cfg.NoJournal {
		return nil, nil, lspctl.ErrNoJournal
	}

	store, err := paydb.NewBoltStore(cfg.DataDir)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		if err := store.Close(); err != nil {
			log.Errorf("Unable to close journal: %v", err)
		}
	}

	return lspctl.NewClient(&lspctl.ClientConfig{Store: store}), cleanup,
		nil
}
