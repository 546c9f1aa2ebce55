package main

import (
	"fmt"
	"os"

	"github.com/uneeb123/alpha-hunter-sub000/cmd/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
