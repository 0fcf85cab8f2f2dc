// Package collaborator defines the contract between graph nodes and the
// external data sources they consult.
//
// A Collaborator never fails: missing credentials, network errors and empty
// results are all reported as human-readable text, which flows into the
// shared state as an ordinary result.
package collaborator

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
)

// Collaborator answers a free-text query with text.
type Collaborator interface {
	Fetch(ctx context.Context, query string) string
}

// Func adapts a plain function to Collaborator.
type Func func(ctx context.Context, query string) string

// Fetch calls f.
func (f Func) Fetch(ctx context.Context, query string) string { return f(ctx, query) }

// Static always answers with the same text.
type Static string

// Fetch returns s.
func (s Static) Fetch(context.Context, string) string { return string(s) }

// Guard wraps c so that a panic inside it is reported as text instead of
// crashing the node.
func Guard(name string, c Collaborator, logger *slog.Logger) Collaborator {
	return Func(func(ctx context.Context, query string) (out string) {
		defer func() {
			if r := recover(); r != nil {
				if logger != nil {
					logger.Error("Collaborator panicked", "collaborator", name, "panic", r, "stack", string(debug.Stack()))
				}
				out = fmt.Sprintf("%s Error: internal failure (%v)", name, r)
			}
		}()
		return c.Fetch(ctx, query)
	})
}
