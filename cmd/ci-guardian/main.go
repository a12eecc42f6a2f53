// ci-guardian installs git hooks that validate Python commits and revert
// commits made with --no-verify.
package main

import (
	"os"

	"github.com/ciguardian/ci-guardian/internal/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
