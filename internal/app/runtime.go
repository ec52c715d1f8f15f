package app

import (
	"os"
	"sync"
)

// TestModeEnv makes both binaries return before touching Postgres or Redis,
// so their packages can be imported from tests.
const TestModeEnv = "ODYSSEY_TEST_MODE"

var testMode = sync.OnceValue(func() bool {
	return os.Getenv(TestModeEnv) == "1"
})

// InTestMode reports whether runtime side effects should be skipped. The
// variable is read once per process.
func InTestMode() bool {
	return testMode()
}
