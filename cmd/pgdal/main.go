package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/vvka-141/pgdal/internal/cli"
	"github.com/vvka-141/pgdal/pkg/pgdal"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "panic: %v\n%s\n", r, debug.Stack())
			os.Exit(pgdal.ExitPanic)
		}
	}()

	if os.Getenv("PGDAL_TEST_PANIC") == "1" {
		panic("intentional test panic")
	}

	if err := cli.Execute(); err != nil {
		os.Exit(pgdal.ExitCodeForError(err))
	}
}
