package main

import (
	"os"

	"github.com/platforma-dev/keepalive/cmd/keepalived/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
