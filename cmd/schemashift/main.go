// Package main is the schemashift command.
package main

import (
	"os"

	"github.com/leapstack-labs/schemashift/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
