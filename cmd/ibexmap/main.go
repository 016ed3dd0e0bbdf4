// Command ibexmap renders IBEX spherical-harmonic coefficient tables into
// Mollweide map scenes from the command line.
package main

import (
	"fmt"
	"os"

	"github.com/BlackCockder/IBEX-Mapper/internal/config"
	"github.com/BlackCockder/IBEX-Mapper/internal/interfaces/cli"
)

// Build-time variables injected via ldflags.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func init() {
	cli.Version = version
	cli.GitCommit = commit
	cli.BuildDate = buildDate
}

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
