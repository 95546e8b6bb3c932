package main

import (
	"os"

	"github.com/keybase/fsse/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
