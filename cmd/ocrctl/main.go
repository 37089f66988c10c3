// Package main is the entry point for the ocrctl CLI.
// The CLI is the operator terminal tool for interacting with the ocrplane API.
package main

import (
	"ocrplane/cmd/ocrctl/cmd"
	"os"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
