package main

import (
	"fmt"
	"time"

	"github.com/copaw/webagent/internal/agent"
)

func exitReason(outcome agent.Outcome) string {
	switch outcome {
	case agent.OutcomeDone:
		return "task finished"
	case agent.OutcomeMaxIterations:
		return "max iterations reached"
	case agent.OutcomeInterrupted:
		return "interrupted by user"
	default:
		return string(outcome)
	}
}

func printReport(instruction string, result *agent.RunResult, summary string, duration time.Duration) {
	fmt.Println("\n===== EXECUTION REPORT =====")
	fmt.Printf("Task: %s\n", instruction)
	fmt.Printf("Duration: %s\n", duration.Truncate(time.Millisecond))
	fmt.Printf("Exit reason: %s\n", exitReason(result.Outcome))
	fmt.Printf("Tokens: %d prompt / %d completion\n",
		result.Usage.PromptTokens, result.Usage.CompletionTokens)

	fmt.Println("\n--- ACTIONS ---")
	if len(result.Records) == 0 {
		fmt.Println("(no actions recorded)")
	}
	for i, r := range result.Records {
		status := "ok"
		if r.IsError {
			status = "FAILED"
		}
		fmt.Printf("%d. %s [%s]\n", i+1, r.Tool, status)
	}

	fmt.Println("\n--- SUMMARY ---")
	fmt.Println(summary)
	fmt.Println("===== END OF REPORT =====")
}
