package main

import (
	"os"

	"budgetflow/internal/cli"
)

func main() {
	cli.LoadEnvFile()

	if err := cli.NewRootCommand(cli.DefaultOpener).Execute(); err != nil {
		os.Exit(1)
	}
}
