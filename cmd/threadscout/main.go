package main

import (
	"os"

	"github.com/hoanghai1803/threadscout/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
