package main

import (
	"fmt"
	"os"

	"ttreset/internal/command"
	"ttreset/pkg/errors"
)

func main() {
	rootCmd, err := command.NewRootCommand()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(errors.ExitCode(err))
	}
}
