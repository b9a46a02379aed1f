// Command yashd serves the networked shell daemon described in the package
// documentation of yashd/internal/yashd/cli.
package main

import (
	"os"

	"yashd/internal/yashd/cli"
)

func main() {
	os.Exit(cli.Run())
}
