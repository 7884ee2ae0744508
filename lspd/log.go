package lspd

import (
	"github.com/btcsuite/btclog/v2"
	"github.com/lightninglabs/lndclient"
	"github.com/lightninglabs/lspctl"
	"github.com/lightninglabs/lspctl/fsm"
	"github.com/lightninglabs/lspctl/liquidity"
	"github.com/lightninglabs/lspctl/lndnode"
	"github.com/lightninglabs/lspctl/node"
	"github.com/lightninglabs/lspctl/paydb"
	"github.com/lightninglabs/lspctl/payment"
	"github.com/lightninglabs/lspctl/sweep"
	"github.com/lightninglabs/lspctl/utils"
	"github.com/lightningnetwork/lnd"
	"github.com/lightningnetwork/lnd/build"
	"github.com/lightningnetwork/lnd/signal"
)

// Subsystem defines the sub system name of this package.
const Subsystem = "LSPD"

// log is the logger of this package, disabled until SetupLoggers is called.
var log btclog.Logger

// The default amount of logging is none.
func init() {
	log = build.NewSubLogger(Subsystem, nil)
}

// SetupLoggers initializes all package-global logger variables.
func SetupLoggers(root *build.SubLoggerManager, intercept signal.Interceptor) {
	genLogger := genSubLogger(root, intercept)

	log = build.NewSubLogger(Subsystem, genLogger)

	lnd.SetSubLogger(root, Subsystem, log)
	lnd.AddSubLogger(root, lspctl.Subsystem, intercept, lspctl.UseLogger)
	lnd.AddSubLogger(root, "LNDC", intercept, lndclient.UseLogger)
	lnd.AddSubLogger(root, lndnode.Subsystem, intercept, lndnode.UseLogger)
	lnd.AddSubLogger(root, node.Subsystem, intercept, node.UseLogger)
	lnd.AddSubLogger(root, fsm.Subsystem, intercept, fsm.UseLogger)
	lnd.AddSubLogger(root, utils.Subsystem, intercept, utils.UseLogger)
	lnd.AddSubLogger(root, paydb.Subsystem, intercept, paydb.UseLogger)
	lnd.AddSubLogger(
		root, liquidity.Subsystem, intercept, liquidity.UseLogger,
	)
	lnd.AddSubLogger(root, payment.Subsystem, intercept, payment.UseLogger)
	lnd.AddSubLogger(root, sweep.Subsystem, intercept, sweep.UseLogger)
}

// genSubLogger creates a logger for a subsystem. We provide an instance of
// a signal.Interceptor to be able to shutdown in the case of a critical error.
func genSubLogger(root *build.SubLoggerManager,
	interceptor signal.Interceptor) func(string) btclog.Logger {

	// Create a shutdown function which will request shutdown from our
	// interceptor if it is listening.
	shutdown := func() {
		if !interceptor.Listening() {
			return
		}

		interceptor.RequestShutdown()
	}

	// Return a function which will create a sublogger from our root
	// logger without shutdown fn.
	return func(tag string) btclog.Logger {
		return root.GenSubLogger(tag, shutdown)
	}
}
