package app

import (
	"os"
	"sync"
	"sync/atomic"
)

const testModeEnv = "FINREPORTS_TEST_MODE"

var (
	testModeFlag atomic.Bool
	testModeOnce sync.Once
)

func detectTestMode() {
	testModeFlag.Store(os.Getenv(testModeEnv) == "1")
}

// InTestMode reports whether the process runs under the test harness. Binaries use it to skip
// connecting to Postgres, Redis and the asynq broker.
func InTestMode() bool {
	testModeOnce.Do(detectTestMode)
	return testModeFlag.Load()
}

// RefreshTestMode re-reads FINREPORTS_TEST_MODE after environment changes.
func RefreshTestMode() {
	testModeOnce.Do(func() {})
	detectTestMode()
}
