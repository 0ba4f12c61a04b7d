// Command carbonledger is the emission calculation engine CLI and server.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/carbonledger/carbonledger/internal/cli"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cmd := cli.NewRootCmd(version)
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
