package main

import (
	"fmt"
	"os"

	"github.com/justyntemme/salpanel/internal/cli"
)

var version = "dev"

func main() {
	cli.SetVersion(version)

	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "salpanel: %v\n", err)
		os.Exit(1)
	}
}
