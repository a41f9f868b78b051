// Package main is the entrypoint of the gitmetrics CLI.
package main

import (
	"github.com/crackerjack/gitmetrics/cmd"
	"github.com/crackerjack/gitmetrics/internal/contract"
)

func main() {
	if err := cmd.Execute(); err != nil {
		contract.LogFatal("Error", err)
	}
}
