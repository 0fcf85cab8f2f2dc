package cli

import (
	"context"
	"io"
	"os"

	"github.com/Himanshu040604/PregelFlow"
	"github.com/Himanshu040604/PregelFlow/internal/presentation/tui"
	"github.com/Himanshu040604/PregelFlow/internal/research"
	"github.com/Himanshu040604/PregelFlow/pkg/runner"
)

// RunOptions contains all the configuration for the Run command.
type RunOptions struct {
	// JSON switches to line-delimited JSON input and output.
	JSON bool
	// Fresh deletes the session's history before the first prompt.
	Fresh bool
	// Plain disables banner and markdown rendering even on a terminal.
	Plain bool

	Stdin  io.Reader
	Stdout io.Writer
}

func (o *RunOptions) streams() (io.Reader, io.Writer) {
	in, out := o.Stdin, o.Stdout
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}
	return in, out
}

// interactive reports whether both ends are a terminal.
func (o *RunOptions) interactive(in io.Reader, out io.Writer) bool {
	if o.JSON || o.Plain {
		return false
	}
	fin, ok := in.(*os.File)
	if !ok {
		return false
	}
	fout, ok := out.(*os.File)
	return ok && tui.IsTerminal(fin) && tui.IsTerminal(fout)
}

// Run drives the research REPL for the configured session until EOF or
// exit/quit.
func Run(ctx context.Context, app *App, opts RunOptions) error {
	in, out := opts.streams()
	sessionID := app.Config.Session

	if opts.Fresh {
		if err := app.Engine.Delete(ctx, sessionID); err != nil {
			return err
		}
		app.Logger.Info("Session reset", "session_id", sessionID)
	}

	var handler runner.IOHandler
	switch {
	case opts.JSON:
		handler = runner.NewJSONHandler(in, out)
	case opts.interactive(in, out):
		tui.PrintBanner(out, pregelflow.Version)
		printSystemMessage(out, "Session '%s' active. Type 'exit' or 'quit' to leave.", sessionID)
		var textOpts []runner.TextHandlerOption
		if render, err := tui.NewRenderer(); err == nil {
			textOpts = append(textOpts, runner.WithTextHandlerRenderer(render))
		} else {
			app.Logger.Warn("Markdown renderer unavailable", "err", err)
		}
		handler = runner.NewTextHandler(in, out, textOpts...)
	default:
		handler = runner.NewTextHandler(in, out)
	}

	r := runner.New(app.Engine,
		runner.WithLogger(app.Logger),
		runner.WithInputHandler(handler),
		runner.WithSessionID(sessionID),
		runner.WithSeed(research.Seed),
		runner.WithAutoResume(app.Config.Engine.AutoResume),
		runner.WithTurnTimeout(app.Config.Engine.RunTimeout),
	)
	return r.Run(ctx)
}
