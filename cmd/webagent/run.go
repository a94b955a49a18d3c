package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/copaw/webagent/internal/agent"
)

type RunCmd struct {
	Headless   bool   `long:"headless" description:"run the browser without a visible window"`
	Screenshot string `long:"screenshot" value-name:"PATH" description:"persist screenshot tool output to this file"`

	Args struct {
		Prompt []string `positional-arg-name:"prompt" required:"yes" description:"natural-language instruction"`
	} `positional-args:"yes"`
}

func (c *RunCmd) Execute(args []string) error {
	instruction := strings.TrimSpace(strings.Join(c.Args.Prompt, " "))
	if instruction == "" {
		return fmt.Errorf("empty instruction")
	}

	ctx := context.Background()
	sess, err := newSession(ctx, opts.Config, c.Headless)
	if err != nil {
		return err
	}
	defer sess.Close()

	loop, err := agent.NewLoop(sess.conn, sess.model, agent.Config{
		MaxIterations:  sess.cfg.Agent.MaxIterations,
		ResultBudget:   sess.cfg.Agent.ResultBudget,
		Temperature:    sess.cfg.Agent.Temperature,
		MaxTokens:      sess.cfg.Agent.MaxTokens,
		MaxRetries:     sess.cfg.Agent.MaxRetries,
		ScreenshotPath: c.Screenshot,
	}, sess.logger)
	if err != nil {
		return err
	}

	start := time.Now()
	result, err := loop.Run(ctx, instruction)
	if err != nil {
		return err
	}

	synth := agent.NewSynthesizer(sess.model, sess.logger)
	summary := result.Summary
	if summary == "" {
		summary = synth.Summarize(ctx, instruction, result.Records)
	}

	printReport(instruction, result, summary, time.Since(start))
	return nil
}
