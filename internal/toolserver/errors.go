package toolserver

import "fmt"

// ConnectionError means the tool-server handshake failed or the server
// is unusable. Fatal to the run; never retried.
type ConnectionError struct {
	Reason string
	Err    error
}

func (e *ConnectionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("tool server connection failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("tool server connection failed: %s", e.Reason)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// ToolInvocationError means a single tool call failed. The agent loop
// records it as context and continues; whether it is fatal is the
// caller's decision.
type ToolInvocationError struct {
	Tool    string
	Message string
}

func (e *ToolInvocationError) Error() string {
	return fmt.Sprintf("tool %q failed: %s", e.Tool, e.Message)
}
