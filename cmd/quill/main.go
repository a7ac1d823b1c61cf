// Package main provides the quill CLI process entrypoint.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/quillvoice/quill/internal/app"
	"github.com/quillvoice/quill/internal/cli"
)

// main wires process signal handling to the command tree.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := &app.Runner{Stdout: os.Stdout, Stderr: os.Stderr}
	rootCmd := cli.NewRootCmd(runner)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
