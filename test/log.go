package test

import (
	"os"

	"github.com/btcsuite/btclog/v2"
)

// logger writes test helper output straight to stdout so that it is
// interleaved with the output of the package under test.
var logger = btclog.NewSLogger(
	btclog.NewDefaultHandler(os.Stdout),
).SubSystem("TEST")
