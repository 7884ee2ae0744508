package utils

import (
	"context"
	"strings"
	"time"

	"github.com/lightningnetwork/lnd/clock"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	// rpcStartupMessage is part of the error lnd returns while its RPC
	// server is still initialising.
	rpcStartupMessage = "in the process of starting"

	// walletLockedMessage is returned by lnd before the wallet has been
	// unlocked.
	walletLockedMessage = "wallet locked"
)

// IsRPCStartingErr checks whether an error indicates that lnd's RPC server,
// or one of its sub-servers, has not started yet.
func IsRPCStartingErr(err error) bool {
	return errContains(err, rpcStartupMessage)
}

// IsWalletLockedErr checks whether lnd refused the call because its wallet
// is still locked.
func IsWalletLockedErr(err error) bool {
	return errContains(err, walletLockedMessage)
}

// IsUnavailableErr reports whether the error is a gRPC Unavailable error,
// which means the connection to lnd is (temporarily) gone.
func IsUnavailableErr(err error) bool {
	if err == nil {
		return false
	}

	st, ok := status.FromError(err)

	return ok && st.Code() == codes.Unavailable
}

// IsTransientErr reports whether a call failed for a reason that is expected
// to resolve itself while lnd is starting up.
func IsTransientErr(err error) bool {
	return IsRPCStartingErr(err) || IsWalletLockedErr(err) ||
		IsUnavailableErr(err)
}

func errContains(err error, msg string) bool {
	if err == nil {
		return false
	}

	st, ok := status.FromError(err)
	if ok && strings.Contains(st.Message(), msg) {
		return true
	}

	return strings.Contains(err.Error(), msg)
}

// RetryWhileStarting keeps calling fn as long as lnd reports that its RPC
// server is still starting, waiting the given interval between attempts.
func RetryWhileStarting(ctx context.Context, clk clock.Clock,
	interval time.Duration, fn func(context.Context) error) error {

	for {
		err := fn(ctx)
		if err == nil {
			return nil
		}

		if !IsRPCStartingErr(err) {
			return err
		}

		log.Warnf("lnd RPC not ready yet, retrying in %v: %v",
			interval, err)

		if err := Sleep(ctx, clk, interval); err != nil {
			return err
		}
	}
}
