// Package main is the entry point for the utrun CLI.
package main

import (
	"os"

	"github.com/AndreyAkinshin/utrun/internal/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:]))
}
