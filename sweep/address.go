package sweep

import (
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
)

var (
	// ErrInvalidAddress is returned for addresses that can't be decoded.
	ErrInvalidAddress = errors.New("invalid address")

	// ErrWrongNetwork is returned for addresses of another network.
	ErrWrongNetwork = errors.New("address is for a different network")
)

// ParseAddress decodes an on-chain address and checks that it belongs to
// the given network.
func ParseAddress(addr string, params *chaincfg.Params) (btcutil.Address,
	error) {

	addr = strings.TrimSpace(addr)
	addr = strings.TrimPrefix(addr, "bitcoin:")

	decoded, err := btcutil.DecodeAddress(addr, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}

	if !decoded.IsForNet(params) {
		return nil, fmt.Errorf("%w: %v is not a %v address",
			ErrWrongNetwork, addr, params.Name)
	}

	return decoded, nil
}
