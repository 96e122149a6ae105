package main

import (
	"os"

	"github.com/khutwa-dev/khutwa/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
