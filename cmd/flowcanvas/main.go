// Package main is the flowcanvas CLI entrypoint.
package main

import (
	"os"

	"github.com/leapstack-labs/flowcanvas/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
