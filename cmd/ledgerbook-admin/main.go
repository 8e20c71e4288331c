// Package main is the entry point for the ledgerbook-admin CLI.
package main

import (
	"os"

	"ledgerbook/cmd/ledgerbook-admin/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
