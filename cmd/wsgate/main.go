package main

import (
	"fmt"
	"os"

	"github.com/wsgate/wsgate/cmd/wsgate/cmds"
)

func main() {
	if err := cmds.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
