package main

import (
	"os"

	"github.com/pkgvet/pkgvet/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
