// The main package for the shopfinder executable.
package main

import (
	"github.com/shoplocal/shopfinder/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
