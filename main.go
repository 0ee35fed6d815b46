// Command mantra is a requirements traceability engine: it ingests
// requirements, source traces, test coverage and manual reviews into a
// SQLite store, driven by a mantra.toml manifest.
package main

import (
	"fmt"
	"os"

	"github.com/daedaleanai/mantra/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
