package main

import (
	"fmt"
	"os"

	"github.com/lightninglabs/lspctl"
	"github.com/urfave/cli"
)

var globalFlags = []cli.Flag{
	cli.StringFlag{
		Name:  "network",
		Usage: "the network lnd is running on, e.g. mainnet, testnet, regtest",
	},
	cli.StringFlag{
		Name:  "lspctldir",
		Usage: "directory for config, journal and logs",
	},
	cli.StringFlag{
		Name:  "configfile",
		Usage: "path to the configuration file",
	},
	cli.StringFlag{
		Name:  "debuglevel",
		Usage: "logging level for all subsystems, use show to list them",
	},
	cli.StringFlag{
		Name:  "lnd.host",
		Usage: "lnd instance rpc address host:port",
	},
	cli.StringFlag{
		Name:  "lnd.macaroondir",
		Usage: "path to the directory containing lnd's admin macaroon",
	},
	cli.StringFlag{
		Name:  "lnd.tlspath",
		Usage: "path to lnd's tls certificate",
	},
	cli.BoolFlag{
		Name:  "nojournal",
		Usage: "don't journal payment attempts and sweeps",
	},
}

func main() {
	app := cli.NewApp()

	app.Version = lspctl.Version()
	app.Name = "lspctl"
	app.Usage = "pay, receive and sweep with an lnd node behind an LSP"
	app.Flags = globalFlags
	app.OnUsageError = onUsageError
	app.Commands = []cli.Command{
		payCommand, sweepCommand, invoiceCommand, balanceCommand,
		channelsCommand, historyCommand,
	}

	err := app.Run(os.Args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[lspctl] %v\n", err)
		os.Exit(exitCode(err))
	}
}
