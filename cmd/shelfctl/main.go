package main

import (
	"fmt"
	"os"
)

func main() {
	app := newCLIApp(os.Stdin, os.Stdout, os.Stderr)
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "shelfctl: %v\n", err)
		os.Exit(1)
	}
}
