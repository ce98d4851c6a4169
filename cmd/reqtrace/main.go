// reqtrace CLI - outbound request lifecycle tracing.
package main

import (
	"fmt"
	"os"

	"github.com/getmockd/reqtrace/pkg/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
