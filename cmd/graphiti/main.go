package main

import (
	"os"

	"github.com/graphiti-lang/graphiti/internal/cli/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
