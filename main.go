// The main package for the splunkq executable.
package main

import (
	"os"

	"github.com/opsverify/splunkq/cmd"
)

// main defers all execution to the Cobra CLI layer and exits with the
// code it reports.
func main() {
	os.Exit(cmd.Execute())
}
