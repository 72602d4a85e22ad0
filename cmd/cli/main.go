// Package main is the entry point for seoctl, the developer terminal tool for
// the sponte controller API.
package main

import (
	"os"

	"sponte/cmd/cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
