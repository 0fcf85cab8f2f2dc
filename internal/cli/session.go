package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	presentation "github.com/Himanshu040604/PregelFlow/internal/presentation/graph"
	"github.com/Himanshu040604/PregelFlow/pkg/domain"
)

// ListSessions prints every session with its latest status.
func ListSessions(ctx context.Context, app *App, w io.Writer) error {
	ids, err := app.Engine.Sessions(ctx)
	if err != nil {
		return fmt.Errorf("listing sessions: %w", err)
	}
	if len(ids) == 0 {
		fmt.Fprintln(w, "No sessions found.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SESSION\tSEQ\tSTATUS\tUPDATED")
	for _, id := range ids {
		cp, err := app.Engine.Latest(ctx, id)
		if err != nil {
			fmt.Fprintf(tw, "%s\t-\terror: %v\t-\n", id, err)
			continue
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", id, cp.Sequence, cp.Status, cp.CreatedAt.Local().Format(time.DateTime))
	}
	return tw.Flush()
}

// InspectSession prints the latest checkpoint of a session as indented JSON.
func InspectSession(ctx context.Context, app *App, w io.Writer, sessionID string) error {
	cp, err := app.Engine.Latest(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("loading session '%s': %w", sessionID, err)
	}
	// Pretty print JSON
	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling checkpoint: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}

// SessionHistory prints one line per checkpoint, oldest first.
func SessionHistory(ctx context.Context, app *App, w io.Writer, sessionID string) error {
	history, err := app.Engine.History(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("loading history of '%s': %w", sessionID, err)
	}
	if len(history) == 0 {
		return fmt.Errorf("session '%s': %w", sessionID, domain.ErrNoHistory)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tRUN\tWAVEFRONT\tSTATUS\tCOMPLETED")
	for _, cp := range history {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%v\n", cp.Sequence, shortID(cp.RunID), cp.Wavefront, cp.Status, cp.Completed)
	}
	return tw.Flush()
}

// RemoveSessions deletes each session, reporting every failure.
func RemoveSessions(ctx context.Context, app *App, w io.Writer, ids []string) error {
	var errs []error
	for _, id := range ids {
		if err := app.Engine.Delete(ctx, id); err != nil {
			errs = append(errs, fmt.Errorf("removing '%s': %w", id, err))
			continue
		}
		fmt.Fprintf(w, "Removed session '%s'\n", id)
	}
	return errors.Join(errs...)
}

// WriteGraph prints the graph as Mermaid, overlaying the session when one
// is given and has history.
func WriteGraph(ctx context.Context, app *App, w io.Writer, sessionID string) error {
	g := app.Engine.Graph()
	var overlay *presentation.GraphOverlay
	if sessionID != "" {
		cp, err := app.Engine.Latest(ctx, sessionID)
		switch {
		case err == nil:
			overlay = presentation.OverlayFor(g, cp)
		case errors.Is(err, domain.ErrNoHistory):
		default:
			return err
		}
	}
	_, err := io.WriteString(w, presentation.GenerateMermaid(g, overlay))
	return err
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
