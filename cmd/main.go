package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// main is the entry point of the application.
func main() {
	os.Exit(run())
}

// run executes the command line and returns the process exit code: 0 when every stage passed,
// 1 otherwise.
func run() int {
	// Create a context that will be canceled when an interrupt signal is received,
	// so a geocoding run stops between two requests.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := &application{}
	root := newRootCmd(app)

	err := root.ExecuteContext(ctx)
	app.flushMetrics(ctx)

	if err != nil {
		if app.log != nil {
			app.log.ErrorContext(ctx, "Command failed", "error", err)
		}
		fmt.Fprintln(root.ErrOrStderr(), "Error:", err)
		return 1
	}

	return 0
}
