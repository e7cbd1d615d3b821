// Package main is the entry point for the pricectl operator CLI.
package main

import (
	"os"

	"github.com/wooyoungkug/photocafe-sub007/cmd/pricectl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
