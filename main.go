package main

import (
	"os"

	"github.com/profsim/profsim/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
