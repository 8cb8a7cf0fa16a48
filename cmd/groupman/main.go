// Package main is the entry point for the groupman binary.
package main

import (
	"os"

	"groupman/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
