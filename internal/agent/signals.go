package agent

import (
	"os"
	"os/signal"
	"syscall"
)

// SignalController exposes Ctrl+C as a non-blocking poll. The loop is
// strictly sequential, so interruption is only observed between
// iterations, never mid tool call.
type SignalController struct {
	ch chan os.Signal
}

func NewSignalController() *SignalController {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	return &SignalController{ch: ch}
}

func (s *SignalController) Interrupted() bool {
	select {
	case <-s.ch:
		return true
	default:
		return false
	}
}

func (s *SignalController) Close() {
	signal.Stop(s.ch)
	close(s.ch)
}
