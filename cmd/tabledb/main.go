package main

import (
	"fmt"
	"os"
)

func main() {
	cmd, closeLogger := NewRootCmd()
	err := cmd.Execute()
	closeLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
