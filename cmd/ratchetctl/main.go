package main

import (
	"os"

	"quantum-ratchet/cmd/ratchetctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
