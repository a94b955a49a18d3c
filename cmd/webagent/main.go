// webagent drives a browser from natural-language instructions: an MCP
// tool server does the browser work, a language model decides each next
// step, and the agent loop in internal/agent ties the two together.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"
)

// Options is the root command. Struct tags are interpreted by
// github.com/jessevdk/go-flags.
type Options struct {
	Config string `short:"f" long:"config" description:"path to a YAML config file"`

	Run         RunCmd         `command:"run" description:"execute one natural-language instruction and exit"`
	Interactive InteractiveCmd `command:"interactive" alias:"i" description:"start an interactive session"`
}

var opts Options

func main() {
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return
		}
		if !errors.As(err, &flagsErr) {
			// Execute() errors are ours, not go-flags usage errors.
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}
