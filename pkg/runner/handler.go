package runner

import (
	"context"

	"github.com/Himanshu040604/PregelFlow"
)

// IOHandler defines the strategy for interacting with the user.
// This allows switching between Text (CLI/TUI) and JSON (Structured) modes.
type IOHandler interface {
	// Input prompts for and reads the next line. It returns io.EOF when the
	// input is exhausted and ctx.Err() when interrupted.
	Input(ctx context.Context) (string, error)

	// Output presents the result of a finished turn.
	Output(ctx context.Context, res *pregelflow.Result) error

	// SystemOutput presents a meta-message (progress, errors, notices).
	// This is distinct from content rendering.
	SystemOutput(ctx context.Context, msg string) error
}

// ContentRenderer transforms report text before it is written, e.g. markdown
// to ANSI. This keeps terminal rendering out of the core package.
type ContentRenderer func(string) (string, error)
