package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli"
)

var Version = "0.1.0"

func main() {
	app := cli.NewApp()
	app.Name = "wavedash"
	app.Version = Version
	app.Usage = "tick WebAssembly guests against shared host resources"

	app.Commands = []cli.Command{
		cmdRun,
		cmdInspect,
		cmdDemo,
		cmdSchema,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
