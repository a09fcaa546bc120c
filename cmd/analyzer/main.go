package main

import (
	"os"

	"github.com/quantfolio/portfolio-analyzer/cmd/analyzer/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
