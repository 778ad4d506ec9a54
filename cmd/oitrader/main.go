// Command oitrader runs the OI reversal options signal engine.
package main

import (
	"os"

	"github.com/fatih/color"

	"oi-reversal/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
