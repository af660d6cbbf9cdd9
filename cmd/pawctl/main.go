package main

import (
	"os"

	"github.com/okanlawon/pawdispatch/cmd/pawctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
