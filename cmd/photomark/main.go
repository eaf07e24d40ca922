package main

import (
	"os"

	"github.com/abdul-hamid-achik/photomark/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
