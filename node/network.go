package node

import (
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/chaincfg"
)

// ChainParams maps a network name to its chain parameters. Both lnd's
// "mainnet" and the "bitcoin" spelling select the main network.
func ChainParams(network string) (*chaincfg.Params, error) {
	switch strings.ToLower(strings.TrimSpace(network)) {
	case "mainnet", "bitcoin":
		return &chaincfg.MainNetParams, nil

	case "testnet", "testnet3":
		return &chaincfg.TestNet3Params, nil

	case "regtest":
		return &chaincfg.RegressionNetParams, nil

	case "signet":
		return &chaincfg.SigNetParams, nil

	case "simnet":
		return &chaincfg.SimNetParams, nil

	default:
		return nil, fmt.Errorf("unknown network: %v", network)
	}
}

// NetworkName returns lnd's name for the given chain parameters.
func NetworkName(params *chaincfg.Params) string {
	switch params.Net {
	case chaincfg.MainNetParams.Net:
		return "mainnet"

	case chaincfg.TestNet3Params.Net:
		return "testnet"

	case chaincfg.RegressionNetParams.Net:
		return "regtest"

	case chaincfg.SigNetParams.Net:
		return "signet"

	case chaincfg.SimNetParams.Net:
		return "simnet"

	default:
		return params.Name
	}
}

// ChainParamsOrDefault is like ChainParams, but falls back to mainnet with a
// warning if the network name is unknown.
func ChainParamsOrDefault(network string) *chaincfg.Params {
	params, err := ChainParams(network)
	if err != nil {
		log.Warnf("Unknown network '%v', defaulting to mainnet",
			network)

		return &chaincfg.MainNetParams
	}

	return params
}
