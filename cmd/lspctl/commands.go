package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/lightninglabs/lspctl"
	"github.com/lightninglabs/lspctl/sweep"
	"github.com/lightningnetwork/lnd/lnwire"
	"github.com/urfave/cli"
)

var payCommand = cli.Command{
	Name:      "pay",
	Usage:     "pay an invoice once the channels can carry it",
	ArgsUsage: "invoice",
	Description: `
	Waits until at least one channel is usable and the outbound liquidity
	covers the invoice amount plus a 2% fee margin and a fixed headroom,
	then sends the payment and retries failed attempts with an exponential
	backoff until it succeeds.`,
	Flags: []cli.Flag{
		cli.UintFlag{
			Name: "maxattempts",
			Usage: "give up after this many payment attempts, " +
				"0 retries until the payment succeeds",
		},
	},
	OnUsageError: onUsageError,
	Action:       withExitCode(pay),
}

type payResponse struct {
	PaymentHash string `json:"payment_hash"`
	Handle      string `json:"handle"`
	AmountMsat  uint64 `json:"amount_msat"`
	FeeMsat     uint64 `json:"fee_msat"`
	Attempts    uint32 `json:"attempts"`
}

func pay(ctx *cli.Context) error {
	if err := checkArgs(ctx, "invoice"); err != nil {
		return err
	}
	payReq := ctx.Args().First()

	return run(ctx, func(ctx context.Context, client *lspctl.Client) error {
		result, err := client.Pay(ctx, payReq)
		if err != nil {
			return err
		}

		printJSON(&payResponse{
			PaymentHash: result.Hash.String(),
			Handle:      string(result.Handle),
			AmountMsat:  uint64(result.Amount),
			FeeMsat:     uint64(result.Fee),
			Attempts:    result.Attempts,
		})

		return nil
	})
}

var sweepCommand = cli.Command{
	Name:      "sweep",
	Usage:     "send all on-chain funds to an address",
	ArgsUsage: "address",
	Description: `
	Waits for lnd to sync to the chain and sends the spendable on-chain
	balance to the given address in a single transaction. By default the
	reserve for anchor channels stays in the wallet.`,
	Flags: []cli.Flag{
		cli.BoolFlag{
			Name: "no-reserves",
			Usage: "also sweep the reserve kept for anchor " +
				"channels",
		},
		cli.StringFlag{
			Name:  "label",
			Usage: "label for the sweep transaction",
		},
	},
	OnUsageError: onUsageError,
	Action:       withExitCode(sweepFunds),
}

type sweepResponse struct {
	Txid         string `json:"txid"`
	Address      string `json:"address"`
	SpendableSat int64  `json:"spendable_sat"`
	Label        string `json:"label"`
}

func sweepFunds(ctx *cli.Context) error {
	if err := checkArgs(ctx, "address"); err != nil {
		return err
	}
	addr := ctx.Args().First()
	policy := sweep.Policy{
		DrainIncludingReserves: ctx.Bool("no-reserves"),
	}

	return run(ctx, func(ctx context.Context, client *lspctl.Client) error {
		result, err := client.Sweep(ctx, addr, policy)
		if err != nil {
			return err
		}

		printJSON(&sweepResponse{
			Txid:         result.Txid.String(),
			Address:      result.Address.String(),
			SpendableSat: int64(result.Spendable),
			Label:        result.Label,
		})

		return nil
	})
}

var invoiceCommand = cli.Command{
	Name:      "invoice",
	Usage:     "create an invoice",
	ArgsUsage: "amt",
	Description: `
	Creates an invoice for the given amount in satoshis. With --wait the
	command keeps running until the invoice is paid.`,
	Flags: []cli.Flag{
		cli.StringFlag{
			Name:  "memo",
			Usage: "description of the invoice",
		},
		cli.DurationFlag{
			Name:  "expiry",
			Usage: "expiry of the invoice",
		},
		cli.BoolFlag{
			Name:  "wait",
			Usage: "wait until the invoice is paid",
		},
	},
	OnUsageError: onUsageError,
	Action:       withExitCode(createInvoice),
}

type invoiceResponse struct {
	PaymentRequest string `json:"payment_request"`
	PaymentHash    string `json:"payment_hash"`
	Settled        bool   `json:"settled"`
}

func createInvoice(ctx *cli.Context) error {
	if err := checkArgs(ctx, "amt"); err != nil {
		return err
	}

	amt, err := parseAmt(ctx.Args().First())
	if err != nil {
		return err
	}
	memo := ctx.String("memo")
	wait := ctx.Bool("wait")

	return run(ctx, func(ctx context.Context, client *lspctl.Client) error {
		invoice, err := client.CreateInvoice(
			ctx, lnwire.NewMSatFromSatoshis(amt), memo, 0,
		)
		if err != nil {
			return err
		}

		resp := &invoiceResponse{
			PaymentRequest: invoice.PaymentRequest,
			PaymentHash:    invoice.Hash.String(),
		}
		if !wait {
			printJSON(resp)
			return nil
		}

		fmt.Printf("Waiting for payment of %v\n", invoice.PaymentRequest)

		if err := client.WaitForInvoice(ctx, invoice.Hash); err != nil {
			return err
		}

		resp.Settled = true
		printJSON(resp)

		return nil
	})
}

// checkArgs makes sure exactly one positional argument was given.
func checkArgs(ctx *cli.Context, arg string) error {
	switch {
	case ctx.NArg() == 0:
		return missingArg(ctx, arg)

	case ctx.NArg() > 1:
		_ = cli.ShowCommandHelp(ctx, ctx.Command.Name)

		return fmt.Errorf("%w: unexpected arguments %v", errUsage,
			ctx.Args().Tail())
	}

	return nil
}

// parseAmt parses a positive amount in satoshis.
func parseAmt(text string) (btcutil.Amount, error) {
	amt, err := strconv.ParseInt(text, 10, 64)
	if err != nil || amt <= 0 {
		return 0, fmt.Errorf("%w: %q", errInvalidAmount, text)
	}

	return btcutil.Amount(amt), nil
}
