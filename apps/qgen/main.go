package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/quatton/qgen/apps/qgen/cmd"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "qgen crashed: %v\n", r)
			if os.Getenv("QGEN_DEBUG") != "" {
				debug.PrintStack()
			}
			os.Exit(2)
		}
	}()

	cmd.Execute()
}
