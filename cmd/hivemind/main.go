// Command hivemind serves the task and dispute boards over HTTP, WebSocket
// and MCP, and offers the same reads and writes as CLI subcommands.
package main

import (
	"log/slog"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}
