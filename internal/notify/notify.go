// Package notify defines the fire-and-forget notification sink used to
// surface save/submit outcomes to the surrounding UI.
package notify

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Notifier receives success and error toasts. Implementations must not block;
// delivery is best-effort and has no bearing on correctness.
type Notifier interface {
	Success(message string)
	Error(message string)
}

// LogNotifier writes notifications to the structured log. Used as the default
// sink when no interactive front end is attached.
type LogNotifier struct {
	log zerolog.Logger
}

// NewLogNotifier creates a Notifier backed by the given logger.
func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log.With().Str("component", "notify").Logger()}
}

func (n *LogNotifier) Success(message string) {
	n.log.Info().Msg(message)
}

func (n *LogNotifier) Error(message string) {
	n.log.Error().Msg(message)
}

// TerminalNotifier prints toasts straight to the terminal for the CLI.
type TerminalNotifier struct{}

func (TerminalNotifier) Success(message string) {
	fmt.Printf("✓ %s\n", message)
}

func (TerminalNotifier) Error(message string) {
	fmt.Printf("✗ %s\n", message)
}
