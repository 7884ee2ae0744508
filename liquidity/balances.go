package liquidity

import (
	"fmt"

	"github.com/lightninglabs/lspctl/node"
	"github.com/lightningnetwork/lnd/lnwire"
)

// Summary aggregates a single poll of the channel list.
type Summary struct {
	// Channels is the total number of channels in the snapshot.
	Channels int

	// Ready is the number of channels with a confirmed funding output.
	Ready int

	// Usable is the number of channels that can route payments.
	Usable int

	// Outbound is the saturating sum of the outbound capacity of all
	// channels, usable or not.
	Outbound lnwire.MilliSatoshi

	// Inbound is the saturating sum of the inbound capacity of all
	// channels.
	Inbound lnwire.MilliSatoshi
}

// Summarize aggregates the given channel snapshots.
func Summarize(channels []node.ChannelSnapshot) Summary {
	summary := Summary{
		Channels: len(channels),
	}

	for _, channel := range channels {
		if channel.Ready {
			summary.Ready++
		}
		if channel.Usable {
			summary.Usable++
		}

		summary.Outbound = node.SaturatingAdd(
			summary.Outbound, channel.Outbound,
		)
		summary.Inbound = node.SaturatingAdd(
			summary.Inbound, channel.Inbound,
		)
	}

	return summary
}

// Satisfies returns true if at least one channel is usable and the total
// outbound capacity covers the requirement.
func (s Summary) Satisfies(requirement lnwire.MilliSatoshi) bool {
	return s.Usable > 0 && s.Outbound >= requirement
}

// String returns a one-line summary.
func (s Summary) String() string {
	return fmt.Sprintf("channels=%d ready=%d usable=%d out_msat=%d "+
		"in_msat=%d", s.Channels, s.Ready, s.Usable,
		uint64(s.Outbound), uint64(s.Inbound))
}
