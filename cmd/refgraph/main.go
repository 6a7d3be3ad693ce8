// Command refgraph manages accounts, posts, profiles and member types with
// enforced references and cascading account deletion.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/refgraph/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		if !cli.IsReported(err) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
