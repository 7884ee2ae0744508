package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lightninglabs/lspctl"
	"github.com/lightninglabs/lspctl/lspd"
	"github.com/lightningnetwork/lnd/signal"
	"github.com/urfave/cli"
	"golang.org/x/sync/errgroup"
)

// commandOptions maps command flags to the configuration options they
// override.
var commandOptions = map[string]string{
	"maxattempts": "pay.maxattempts",
	"label":       "sweep.label",
	"expiry":      "invoice.expiry",
}

// configArgs converts the flags set on the command line into arguments for
// the configuration parser.
func configArgs(ctx *cli.Context) []string {
	var args []string
	for _, flag := range ctx.App.Flags {
		name := flag.GetName()
		if !ctx.GlobalIsSet(name) {
			continue
		}

		// Boolean options don't take a value.
		if _, ok := flag.(cli.BoolFlag); ok {
			if ctx.GlobalBool(name) {
				args = append(args, "--"+name)
			}

			continue
		}

		args = append(
			args, fmt.Sprintf("--%s=%s", name, ctx.GlobalString(name)),
		)
	}

	for name, option := range commandOptions {
		if !ctx.IsSet(name) {
			continue
		}

		args = append(
			args, fmt.Sprintf("--%s=%s", option, ctx.String(name)),
		)
	}

	return args
}

// operation is a command body that runs with a connected client.
type operation func(ctx context.Context, client *lspctl.Client) error

// clientFactory creates the client an operation runs with.
type clientFactory func(ctx context.Context, cfg *lspd.Config) (
	*lspctl.Client, func(), error)

// run runs the operation with a client connected to lnd.
func run(cliCtx *cli.Context, op operation) error {
	return runWith(cliCtx, lspd.NewClient, op)
}

// runJournal runs the operation with a client that only has the journal.
func runJournal(cliCtx *cli.Context, op operation) error {
	return runWith(cliCtx, lspd.NewJournalClient, op)
}

// runWith loads the configuration, sets up logging and shutdown handling and
// runs the operation. An interrupt cancels the operation's context.
func runWith(cliCtx *cli.Context, newClient clientFactory,
	op operation) error {

	cfg, err := lspd.LoadConfig(configArgs(cliCtx))
	if err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	interceptor, err := signal.Intercept()
	if err != nil {
		return err
	}

	logging, err := lspd.StartLogging(cfg, interceptor)
	if err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	defer func() {
		_ = logging.Close()
	}()

	// Special show command to list supported subsystems and exit.
	if cfg.DebugLevel == "show" {
		fmt.Printf("Supported subsystems: %v\n",
			logging.SupportedSubsystems())

		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		select {
		case <-interceptor.ShutdownChannel():
			cancel()

		case <-ctx.Done():
		}

		return nil
	})

	g.Go(func() error {
		defer cancel()

		client, cleanup, err := newClient(ctx, cfg)
		if err != nil {
			return err
		}
		defer cleanup()

		return op(ctx, client)
	})

	return g.Wait()
}

func printJSON(resp interface{}) {
	b, err := json.MarshalIndent(resp, "", "    ")
	if err != nil {
		fmt.Println("unable to encode response: ", err)
		return
	}

	fmt.Println(string(b))
}
