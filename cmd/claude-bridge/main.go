// Command claude-bridge sends code and questions to Claude from the
// terminal, through the Claude CLI or the Anthropic HTTP API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kdrezo/claude-bridge/internal/backend"
)

func main() {
	// Create signal-aware context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Create ProcessManager for subprocess tracking
	pm := backend.NewProcessManager()

	err := newRootCmd(pm).ExecuteContext(ctx)

	if ctx.Err() != nil {
		// Signal received: no claude process may outlive us.
		stop()
		if kerr := pm.KillAll(); kerr != nil {
			fmt.Fprintf(os.Stderr, "Error killing subprocesses: %v\n", kerr)
		}
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
