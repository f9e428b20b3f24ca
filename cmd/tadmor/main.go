// Command tadmor is the thin client for erraidd: it turns a single
// command-line invocation into one framed request, round-trips it over
// the daemon's pipes, and renders the reply.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "tadmor:", err)
		os.Exit(1)
	}
}
