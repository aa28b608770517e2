// main is the entry point for the evoked CLI.
package main

import (
	"fmt"
	"os"

	"github.com/evokedbci/evoked/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "❌", err)
		os.Exit(1)
	}
}
