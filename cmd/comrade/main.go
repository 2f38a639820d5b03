// Package main is the single-binary entrypoint for Comrade.
package main

import "github.com/comrade-fit/comrade/internal/cli"

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cli.Execute(version)
}
