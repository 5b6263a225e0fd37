// Command snesgen is a demonstration host for the code-generation kernel:
// it assembles a tiny ROM, writes its debug artifacts, and offers
// subcommands to flash it to hardware, report on its coverage, or serve
// its debug artifacts live over a websocket.
package main

import (
	"fmt"
	"log"
	"os"

	"snesgen/util"
)

func main() {
	logger := util.NewPanicSafeLogger(os.Stderr)
	log.SetOutput(logger)
	defer func() {
		if r := recover(); r != nil {
			util.LogPanic(r)
			os.Exit(1)
		}
	}()

	args := os.Args[1:]
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: snesgen <build|flash|serve|report> [args...]")
		os.Exit(1)
	}

	var err error
	switch args[0] {
	case "build":
		err = runBuild(args[1:])
	case "flash":
		err = runFlash(args[1:])
	case "serve":
		err = runServe(args[1:])
	case "report":
		err = runReport(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown subcommand %q\n", args[0])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "snesgen %s: %v\n", args[0], err)
		os.Exit(1)
	}
}
