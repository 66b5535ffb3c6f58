// Package main is the single-binary entrypoint for strata.
package main

import "github.com/strata-labs/strata/internal/cli"

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cli.Execute(version)
}
