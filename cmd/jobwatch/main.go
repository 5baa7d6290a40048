// Command jobwatch submits long-running jobs and watches them to
// completion, or serves a reference executor to submit them to.
//
//	jobwatch run --topic "Go generics" --photos 2 --target-chars 1200
//	jobwatch serve --listen :8000 --store.driver redis
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

const usage = `usage: jobwatch <command> [flags]

commands:
  run     submit a job and print its progress until it finishes
  serve   run the reference executor (run-async, status, result)

Run "jobwatch <command> --help" for the flags of a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "run":
		err = runCommand(ctx, os.Args[2:], os.Stdout)
	case "serve":
		err = serveCommand(ctx, os.Args[2:])
	case "-h", "--help", "help":
		fmt.Fprint(os.Stdout, usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "jobwatch: unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}

	if err != nil && !errors.Is(err, errHelp) {
		fmt.Fprintf(os.Stderr, "jobwatch: %v\n", err)
		os.Exit(1)
	}
}
