package main

import (
	"os"

	"spotfake-daily/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
