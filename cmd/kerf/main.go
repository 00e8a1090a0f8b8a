package main

import (
	"os"

	"github.com/chazu/kerf/internal/cli"
)

var version = "dev"

func main() {
	cli.SetVersion(version)
	os.Exit(cli.Main())
}
