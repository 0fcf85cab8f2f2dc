package graph

import (
	"fmt"
	"strings"

	"github.com/Himanshu040604/PregelFlow/pkg/domain"
	"github.com/Himanshu040604/PregelFlow/pkg/graph"
)

// GraphOverlay contains checkpoint data to visualize on the graph.
type GraphOverlay struct {
	CompletedNodes []string
	// NextNodes is the wavefront that would run on resume.
	NextNodes []string
}

// OverlayFor derives the overlay of a session's latest checkpoint.
func OverlayFor(g *graph.Graph, cp *domain.Checkpoint) *GraphOverlay {
	if cp == nil {
		return nil
	}
	overlay := &GraphOverlay{CompletedNodes: cp.Completed}
	if cp.IsComplete() {
		return overlay
	}
	done := cp.CompletedSet()
	for _, n := range g.Nodes() {
		if done[n.ID] {
			continue
		}
		ready := true
		for _, p := range g.Predecessors(n.ID) {
			if p != graph.START && !done[p] {
				ready = false
				break
			}
		}
		if ready {
			overlay.NextNodes = append(overlay.NextNodes, n.ID)
		}
	}
	return overlay
}

// GenerateMermaid produces a Mermaid flowchart of the graph.
// It applies semantic styling:
// - START/END: ((Circle))
// - Optional: (["Stadium"]) reached by dotted edges
// - Default: [Rectangle]
// It also applies overlay styles (Completed/Next) if provided.
func GenerateMermaid(g *graph.Graph, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	fmt.Fprintf(&sb, "    %s((\"START\"))\n", sanitizeMermaidID(graph.START))
	optional := make(map[string]bool)
	for _, node := range g.Nodes() {
		safeID := sanitizeMermaidID(node.ID)
		opener, closer := "[", "]"
		if node.Optional {
			optional[node.ID] = true
			opener, closer = "([", "])"
		}
		label := node.ID
		if len(node.Writes) > 0 {
			label = fmt.Sprintf("%s <br/> ✎ %s", node.ID, strings.Join(node.Writes, ", "))
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", safeID, opener, label, closer)
	}
	fmt.Fprintf(&sb, "    %s((\"END\"))\n", sanitizeMermaidID(graph.END))

	for _, e := range g.Edges() {
		arrow := "-->"
		if optional[e.From] || optional[e.To] {
			arrow = "-.->"
		}
		fmt.Fprintf(&sb, "    %s %s %s\n", sanitizeMermaidID(e.From), arrow, sanitizeMermaidID(e.To))
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef completed fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef next fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[string]bool)
		for _, id := range overlay.CompletedNodes {
			if _, ok := g.Node(id); !ok || seen[id] {
				continue
			}
			seen[id] = true
			fmt.Fprintf(&sb, "    class %s completed;\n", sanitizeMermaidID(id))
		}
		for _, id := range overlay.NextNodes {
			if _, ok := g.Node(id); ok {
				fmt.Fprintf(&sb, "    class %s next;\n", sanitizeMermaidID(id))
			}
		}
	}

	return sb.String()
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
