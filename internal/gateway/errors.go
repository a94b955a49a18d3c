package gateway

import "fmt"

// TokenFetchError reports a rejected client-credentials request. It is
// always fatal to the model call that needed the token; the adapter
// never falls back to an unauthenticated request.
type TokenFetchError struct {
	StatusCode int
	Reason     string
}

func (e *TokenFetchError) Error() string {
	return fmt.Sprintf("token endpoint rejected request: status %d: %s", e.StatusCode, e.Reason)
}

// ModelRequestError reports a gateway call that failed after the retry
// budget was exhausted.
type ModelRequestError struct {
	Attempts int
	Err      error
}

func (e *ModelRequestError) Error() string {
	return fmt.Sprintf("model gateway request failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ModelRequestError) Unwrap() error { return e.Err }
