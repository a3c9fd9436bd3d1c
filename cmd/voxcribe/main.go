package main

import (
	"os"

	"github.com/devbush/voxcribe/internal/adapters/cli"
)

func main() {
	os.Exit(cli.Execute())
}
