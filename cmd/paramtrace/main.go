// Command paramtrace compiles parametric properties and monitors event
// traces against them.
//
// Usage:
//
//	paramtrace validate ./properties.cue
//	paramtrace run ./properties.cue ./trace.yaml --db ./matches.db
//	paramtrace matches --db ./matches.db
package main

import (
	"fmt"
	"os"

	"github.com/roach88/paramtrace/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
