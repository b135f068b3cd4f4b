package main

import (
	"os"

	"github.com/alanmeadows/land/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
