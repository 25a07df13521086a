// Command jobctl drives the jobforge demo workflows.
package main

import (
	"fmt"
	"os"

	"github.com/riftlane/jobforge/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
