// The main package for the regsync executable.
package main

import (
	"github.com/openregs/regsync/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
