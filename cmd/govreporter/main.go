package main

import (
	"os"

	"govreporter/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
