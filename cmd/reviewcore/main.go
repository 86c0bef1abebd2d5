// Command reviewcore runs the adaptive review-scheduling core standalone.
package main

import (
	"fmt"
	"os"

	"github.com/memoster/reviewcore/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
