// Command linkage runs dependency-ordered API contract scenarios.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/linkage/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(cli.GetExitCode(err))
}
