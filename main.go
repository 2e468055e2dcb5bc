package main

import (
	"os"

	"github.com/spigell/outreach/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
