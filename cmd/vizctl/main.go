// Command vizctl classifies, summarises and charts CSV files from the
// command line.
package main

import (
	"os"

	"github.com/JonMunkholm/dataviz/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
