package test

import (
	"os"
	"runtime/pprof"
	"testing"
	"time"

	"github.com/fortytw2/leaktest"
)

// Timeout is the default timeout when tests wait for something to happen.
var Timeout = 5 * time.Second

// Guard implements a test level timeout and checks for leaked goroutines
// once the returned function is called.
func Guard(t *testing.T) func() {
	done := make(chan struct{})
	go func() {
		select {
		case <-time.After(Timeout):
			DumpGoroutines()

			panic("test timeout")

		case <-done:
		}
	}()

	fn := leaktest.Check(t)

	return func() {
		close(done)
		fn()
	}
}

// DumpGoroutines dumps all currently running goroutines.
func DumpGoroutines() {
	err := pprof.Lookup("goroutine").WriteTo(os.Stdout, 1)
	if err != nil {
		panic(err)
	}
}
