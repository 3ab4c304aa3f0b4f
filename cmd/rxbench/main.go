package main

import (
	"fmt"
	"os"

	"github.com/xinjiayu/rxgo/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "rxbench:", err)
		os.Exit(1)
	}
}
