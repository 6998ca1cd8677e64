package main

import (
	"fmt"
	"os"

	"github.com/cloo-solutions/biorag/internal/cli"
)

func main() {
	rootCmd := cli.RootCmd()

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
