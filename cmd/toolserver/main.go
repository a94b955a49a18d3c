// The built-in browser tool server: serves navigate / click / type_text
// / snapshot / screenshot over MCP stdio, backed by Playwright. Runs as
// a subprocess of the agent CLI; stdout belongs to the protocol, so all
// logging goes to stderr.
package main

import (
	"log/slog"
	"os"

	"github.com/copaw/webagent/internal/browsertools"
	"github.com/jessevdk/go-flags"
	"github.com/mark3labs/mcp-go/server"
)

type options struct {
	Headless bool `long:"headless" description:"run the browser without a visible window"`
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	var opts options
	if _, err := flags.NewParser(&opts, flags.Default).Parse(); err != nil {
		os.Exit(1)
	}

	driver, err := browsertools.NewDriver(opts.Headless)
	if err != nil {
		logger.Error("failed to start browser", "error", err)
		os.Exit(1)
	}
	defer driver.Close()

	if err := server.ServeStdio(browsertools.NewServer(driver)); err != nil {
		logger.Error("tool server stopped", "error", err)
		os.Exit(1)
	}
}
