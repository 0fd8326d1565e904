// Command codecrew turns a natural-language requirement into tested code by
// looping a coder, a tester, and a debugger until the tests pass or the
// iteration budget runs out.
//
// Usage:
//
//	GEMINI_API_KEY=... codecrew run "Write a function that adds two numbers"
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/martinemde/codecrew/cli"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := cli.NewRoot().ExecuteContext(ctx)
	cancel()
	if err != nil {
		if !errors.Is(err, cli.ErrRunFailed) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}
