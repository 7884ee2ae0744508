package main

import (
	"errors"
	"fmt"

	"github.com/lightninglabs/lspctl/labels"
	"github.com/lightninglabs/lspctl/payment"
	"github.com/lightninglabs/lspctl/sweep"
	"github.com/urfave/cli"
)

// Exit codes.
const (
	exitUsage         = 1
	exitInvalidInput  = 2
	exitSyncExhausted = 3
	exitFailure       = 4
	exitNoBalance     = 5
)

var (
	// errUsage marks errors in the invocation itself.
	errUsage = errors.New("usage error")

	// errInvalidAmount is returned for unparsable amounts.
	errInvalidAmount = errors.New("invalid amount")
)

// exitCode maps an error to the process exit code.
func exitCode(err error) int {
	switch {
	case errors.Is(err, errUsage):
		return exitUsage

	case errors.Is(err, payment.ErrInvalidTarget),
		errors.Is(err, payment.ErrNoAmount),
		errors.Is(err, sweep.ErrInvalidAddress),
		errors.Is(err, sweep.ErrWrongNetwork),
		errors.Is(err, labels.ErrLabelTooLong),
		errors.Is(err, labels.ErrReservedPrefix),
		errors.Is(err, errInvalidAmount):

		return exitInvalidInput

	case errors.Is(err, sweep.ErrSyncExhausted):
		return exitSyncExhausted

	case errors.Is(err, sweep.ErrNoSpendableBalance):
		return exitNoBalance

	default:
		return exitFailure
	}
}

// withExitCode turns the error of a command into an exit error carrying the
// matching exit code.
func withExitCode(fn func(*cli.Context) error) func(*cli.Context) error {
	return func(ctx *cli.Context) error {
		err := fn(ctx)
		if err == nil {
			return nil
		}

		return cli.NewExitError(
			fmt.Sprintf("[lspctl] %v", err), exitCode(err),
		)
	}
}

// onUsageError marks flag parsing errors as usage errors.
func onUsageError(_ *cli.Context, err error, _ bool) error {
	return fmt.Errorf("%w: %v", errUsage, err)
}

// missingArg shows the command help and returns a usage error.
func missingArg(ctx *cli.Context, arg string) error {
	_ = cli.ShowCommandHelp(ctx, ctx.Command.Name)

	return fmt.Errorf("%w: missing %v", errUsage, arg)
}
