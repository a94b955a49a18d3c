package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/copaw/webagent/internal/agent"
)

type InteractiveCmd struct {
	Headless bool `long:"headless" description:"run the browser without a visible window"`
}

func (c *InteractiveCmd) Execute(args []string) error {
	ctx := context.Background()
	sess, err := newSession(ctx, opts.Config, c.Headless)
	if err != nil {
		return err
	}
	defer sess.Close()

	signals := agent.NewSignalController()
	defer signals.Close()

	synth := agent.NewSynthesizer(sess.model, sess.logger)
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("webagent interactive session. Type 'help' for commands.")
	for {
		if signals.Interrupted() {
			fmt.Println("\ninterrupted, closing session")
			return nil
		}

		fmt.Print("webagent> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			// stdin closed
			fmt.Println()
			return nil
		}

		input := strings.TrimSpace(line)
		switch strings.ToLower(input) {
		case "":
			continue
		case "exit", "quit":
			return nil
		case "help":
			fmt.Println("Commands:")
			fmt.Println("  help         show this help")
			fmt.Println("  tools        list the tools the server exposes")
			fmt.Println("  exit, quit   close the session")
			fmt.Println("Anything else is run as a natural-language instruction.")
			continue
		case "tools":
			fmt.Print(sess.conn.DescribeTools())
			continue
		}

		c.runInstruction(ctx, sess, synth, signals, input)
	}
}

// runInstruction executes one command; errors end the command, not the
// session. The signal controller is polled between iterations, so
// Ctrl+C stops the command after the current step instead of waiting
// for the whole run.
func (c *InteractiveCmd) runInstruction(ctx context.Context, sess *session, synth *agent.Synthesizer, signals *agent.SignalController, instruction string) {
	loop, err := agent.NewLoop(sess.conn, sess.model, agent.Config{
		MaxIterations: agent.InteractiveMaxIterations,
		ResultBudget:  sess.cfg.Agent.ResultBudget,
		Temperature:   sess.cfg.Agent.Temperature,
		MaxTokens:     sess.cfg.Agent.MaxTokens,
		MaxRetries:    sess.cfg.Agent.MaxRetries,
		Interrupted:   signals.Interrupted,
	}, sess.logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return
	}

	start := time.Now()
	result, err := loop.Run(ctx, instruction)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return
	}

	summary := result.Summary
	if summary == "" {
		summary = synth.Summarize(ctx, instruction, result.Records)
	}
	printReport(instruction, result, summary, time.Since(start))
}
