package labels

import "fmt"

const (
	// lspctlLabelPattern is the pattern that lspctl uses to label
	// on-chain transactions in the lnd backend.
	lspctlLabelPattern = "lspctl -- %s(addr=%s)"

	// sweep is the label used for sweeps that leave the anchor reserve in
	// the wallet.
	sweep = "Sweep"

	// sweepAll is the label used for sweeps that drain the reserve too.
	sweepAll = "SweepAll"
)

// Sweep returns the label for a sweep to the given address. A non-empty
// user label takes precedence over the generated one.
func Sweep(userLabel, addr string, drainReserves bool) string {
	if userLabel != "" {
		return userLabel
	}

	kind := sweep
	if drainReserves {
		kind = sweepAll
	}

	label := fmt.Sprintf(lspctlLabelPattern, kind, addr)
	if len(label) > MaxLength {
		label = label[:MaxLength]
	}

	return label
}
