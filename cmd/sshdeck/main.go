package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
)

// Set via -ldflags at release time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	root := newRootCmd(newApp(os.Stdout, os.Stderr))
	err := root.ExecuteContext(ctx)
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "sshdeck: %v\n", err)
		os.Exit(1)
	}
}

func versionString() string {
	return fmt.Sprintf("sshdeck %s (%s, %s, %s)", version, commit[:min(7, len(commit))], date, runtime.Version())
}
