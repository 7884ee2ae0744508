package main

import (
	"context"
	"time"

	"github.com/lightninglabs/lspctl"
	"github.com/urfave/cli"
)

var balanceCommand = cli.Command{
	Name:         "balance",
	Usage:        "show the on-chain and lightning balances",
	OnUsageError: onUsageError,
	Action:       withExitCode(balance),
}

type balanceResponse struct {
	TotalOnChainSat     int64 `json:"total_onchain_sat"`
	SpendableOnChainSat int64 `json:"spendable_onchain_sat"`
	TotalLightningSat   int64 `json:"total_lightning_sat"`
}

func balance(ctx *cli.Context) error {
	return run(ctx, func(ctx context.Context, client *lspctl.Client) error {
		balances, err := client.Balances(ctx)
		if err != nil {
			return err
		}

		printJSON(&balanceResponse{
			TotalOnChainSat:     int64(balances.TotalOnChain),
			SpendableOnChainSat: int64(balances.SpendableOnChain),
			TotalLightningSat:   int64(balances.TotalLightning),
		})

		return nil
	})
}

var channelsCommand = cli.Command{
	Name:         "channels",
	Usage:        "list channels and the available liquidity",
	OnUsageError: onUsageError,
	Action:       withExitCode(channels),
}

type channelResponse struct {
	ShortChannelID string `json:"short_channel_id"`
	ChannelPoint   string `json:"channel_point"`
	Ready          bool   `json:"ready"`
	Usable         bool   `json:"usable"`
	OutboundMsat   uint64 `json:"outbound_msat"`
	InboundMsat    uint64 `json:"inbound_msat"`
	CapacitySat    int64  `json:"capacity_sat"`
}

type channelsResponse struct {
	Channels     []channelResponse `json:"channels"`
	Ready        int               `json:"ready"`
	Usable       int               `json:"usable"`
	OutboundMsat uint64            `json:"outbound_msat"`
	InboundMsat  uint64            `json:"inbound_msat"`
}

func channels(ctx *cli.Context) error {
	return run(ctx, func(ctx context.Context, client *lspctl.Client) error {
		channels, summary, err := client.Channels(ctx)
		if err != nil {
			return err
		}

		resp := &channelsResponse{
			Channels:     make([]channelResponse, 0, len(channels)),
			Ready:        summary.Ready,
			Usable:       summary.Usable,
			OutboundMsat: uint64(summary.Outbound),
			InboundMsat:  uint64(summary.Inbound),
		}
		for _, c := range channels {
			resp.Channels = append(resp.Channels, channelResponse{
				ShortChannelID: c.ShortID(),
				ChannelPoint:   c.ChannelPoint,
				Ready:          c.Ready,
				Usable:         c.Usable,
				OutboundMsat:   uint64(c.Outbound),
				InboundMsat:    uint64(c.Inbound),
				CapacitySat:    int64(c.Capacity),
			})
		}

		printJSON(resp)

		return nil
	})
}

var historyCommand = cli.Command{
	Name:         "history",
	Usage:        "show the journal of payments and sweeps",
	OnUsageError: onUsageError,
	Action:       withExitCode(history),
}

type attemptResponse struct {
	Number  uint32 `json:"number"`
	Handle  string `json:"handle,omitempty"`
	Outcome string `json:"outcome"`
	Delay   string `json:"delay,omitempty"`
	Error   string `json:"error,omitempty"`
	Time    string `json:"time"`
}

type paymentResponse struct {
	PaymentHash string            `json:"payment_hash"`
	Attempts    []attemptResponse `json:"attempts"`
}

type sweepEntryResponse struct {
	Address       string `json:"address"`
	DrainReserves bool   `json:"drain_reserves"`
	Label         string `json:"label"`
	Txid          string `json:"txid,omitempty"`
	Error         string `json:"error,omitempty"`
	Time          string `json:"time"`
}

type historyResponse struct {
	Payments []paymentResponse    `json:"payments"`
	Sweeps   []sweepEntryResponse `json:"sweeps"`
}

func history(ctx *cli.Context) error {
	return runJournal(ctx, func(ctx context.Context,
		client *lspctl.Client) error {

		payments, sweeps, err := client.History(ctx)
		if err != nil {
			return err
		}

		resp := &historyResponse{
			Payments: make([]paymentResponse, 0, len(payments)),
			Sweeps:   make([]sweepEntryResponse, 0, len(sweeps)),
		}
		for _, p := range payments {
			payment := paymentResponse{
				PaymentHash: p.Hash.String(),
			}
			for _, a := range p.Attempts {
				attempt := attemptResponse{
					Number:  a.Number,
					Handle:  a.Handle,
					Outcome: a.Outcome.String(),
					Error:   a.Error,
					Time:    a.Time.Format(time.RFC3339),
				}
				if a.Delay > 0 {
					attempt.Delay = a.Delay.String()
				}

				payment.Attempts = append(
					payment.Attempts, attempt,
				)
			}

			resp.Payments = append(resp.Payments, payment)
		}

		for _, s := range sweeps {
			entry := sweepEntryResponse{
				Address:       s.Address,
				DrainReserves: s.DrainReserves,
				Label:         s.Label,
				Error:         s.Error,
				Time:          s.Time.Format(time.RFC3339),
			}
			if s.Error == "" {
				entry.Txid = s.Txid.String()
			}

			resp.Sweeps = append(resp.Sweeps, entry)
		}

		printJSON(resp)

		return nil
	})
}
