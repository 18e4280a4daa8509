// Command wa is the Whereabouts client CLI.
package main

import (
	"os"

	"github.com/whereabouts-app/whereabouts/cmd/cli/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
