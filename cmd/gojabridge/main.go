// Command gojabridge evaluates and calls JavaScript using an embedded goja
// engine.
//
// Results are written to stdout as JSON. Logs, including console output, are
// written to stderr as JSON lines.
package main

import (
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
