// Package testmode is imported for its side effect by tests of the two
// binaries: it sets app.TestModeEnv so main returns before dialing Postgres
// or Redis. An explicit value in the environment wins.
package testmode

import (
	"os"

	"github.com/odyssey-erp/odyssey-console/internal/app"
)

func init() {
	if _, set := os.LookupEnv(app.TestModeEnv); !set {
		_ = os.Setenv(app.TestModeEnv, "1")
	}
}
