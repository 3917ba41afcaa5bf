// The main package for the vatk executable.
package main

import (
	"github.com/JakeFAU/annotation-tables/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
