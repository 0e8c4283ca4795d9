package main

import (
	"os"

	"github.com/mna/mainer"

	"bvm/internal/maincmd"
)

// Build information, set via -ldflags at build time.
var (
	buildVersion = "dev"
	buildDate    = "unknown"
)

func main() {
	stdio := mainer.CurrentStdio()
	cmd := maincmd.Cmd{BuildVersion: buildVersion, BuildDate: buildDate}
	os.Exit(int(cmd.Main(os.Args, stdio)))
}
