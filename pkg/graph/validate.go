package graph

import (
	"errors"
	"slices"
	"sort"
	"strings"

	"github.com/Himanshu040604/PregelFlow/pkg/schema"
)

// validate runs the build checks phase by phase. A phase that fails stops
// the later ones, since e.g. reachability is meaningless on a cyclic graph.
func validate(s *schema.Schema, nodes []Node, rawEdges []Edge, declErrs []error) (*Graph, error) {
	if len(declErrs) > 0 {
		return nil, errors.Join(declErrs...)
	}

	g := &Graph{
		schema: s,
		nodes:  slices.Clone(nodes),
		index:  make(map[string]int, len(nodes)),
		succs:  make(map[string][]string),
		preds:  make(map[string][]string),
		levels: make(map[string]int, len(nodes)),
	}
	for i, n := range g.nodes {
		g.index[n.ID] = i
	}

	if err := g.linkEdges(rawEdges); err != nil {
		return nil, err
	}
	if err := g.computeLevels(); err != nil {
		return nil, err
	}
	if err := g.checkReachability(); err != nil {
		return nil, err
	}
	if err := g.checkSchema(); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *Graph) known(id string) bool {
	_, ok := g.index[id]
	return ok || id == START || id == END
}

func (g *Graph) linkEdges(raw []Edge) error {
	var errs []error
	seen := make(map[Edge]bool, len(raw))
	for _, e := range raw {
		switch {
		case !g.known(e.From):
			errs = append(errs, defErr(ErrUnknownEdgeEndpoint, e.From, "edge %s -> %s references an undeclared node", e.From, e.To))
			continue
		case !g.known(e.To):
			errs = append(errs, defErr(ErrUnknownEdgeEndpoint, e.To, "edge %s -> %s references an undeclared node", e.From, e.To))
			continue
		case e.To == START:
			errs = append(errs, defErr(ErrUnknownEdgeEndpoint, e.From, "START cannot be an edge target"))
			continue
		case e.From == END:
			errs = append(errs, defErr(ErrUnknownEdgeEndpoint, e.To, "END cannot be an edge source"))
			continue
		case e.From == e.To:
			errs = append(errs, defErr(ErrCycleDetected, e.From, "self loop"))
			continue
		case e.From == START && e.To == END:
			continue
		}
		if seen[e] {
			continue
		}
		seen[e] = true
		g.edges = append(g.edges, e)
		g.succs[e.From] = append(g.succs[e.From], e.To)
		g.preds[e.To] = append(g.preds[e.To], e.From)
	}
	return errors.Join(errs...)
}

// computeLevels performs Kahn's topological sort. A node's level is the
// superstep it runs in: one more than the deepest of its predecessors, with
// START at level 0. Nodes left unsorted sit on a cycle.
func (g *Graph) computeLevels() error {
	indegree := make(map[string]int, len(g.nodes))
	for _, n := range g.nodes {
		for _, p := range g.preds[n.ID] {
			if p != START {
				indegree[n.ID]++
			}
		}
	}

	var queue []string
	for _, n := range g.nodes {
		if indegree[n.ID] == 0 {
			queue = append(queue, n.ID)
			g.levels[n.ID] = 1
		}
	}

	sorted := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		sorted++
		for _, next := range g.succs[id] {
			if next == END {
				continue
			}
			if lvl := g.levels[id] + 1; lvl > g.levels[next] {
				g.levels[next] = lvl
			}
			indegree[next]--
			if indegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	if sorted != len(g.nodes) {
		var cyclic []string
		for _, n := range g.nodes {
			if indegree[n.ID] > 0 {
				cyclic = append(cyclic, n.ID)
			}
		}
		sort.Strings(cyclic)
		return defErr(ErrCycleDetected, "", "nodes on or behind a cycle: %s", strings.Join(cyclic, ", "))
	}

	depth := 0
	for _, lvl := range g.levels {
		depth = max(depth, lvl)
	}
	g.waves = make([][]string, depth)
	for _, n := range g.nodes {
		lvl := g.levels[n.ID]
		g.waves[lvl-1] = append(g.waves[lvl-1], n.ID)
	}
	for _, w := range g.waves {
		sort.Strings(w)
	}
	return nil
}

func (g *Graph) checkReachability() error {
	if len(g.nodes) == 0 {
		return defErr(ErrUnreachableNode, END, "graph has no nodes between START and END")
	}
	fromStart := walk(START, g.succs)
	toEnd := walk(END, g.preds)

	var errs []error
	for _, n := range g.nodes {
		if !fromStart[n.ID] {
			errs = append(errs, defErr(ErrUnreachableNode, n.ID, "not reachable from START"))
		}
		if !toEnd[n.ID] {
			errs = append(errs, defErr(ErrUnreachableNode, n.ID, "cannot reach END"))
		}
	}
	return errors.Join(errs...)
}

func walk(from string, adj map[string][]string) map[string]bool {
	seen := map[string]bool{from: true}
	queue := []string{from}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, next := range adj[id] {
			if !seen[next] {
				seen[next] = true
				queue = append(queue, next)
			}
		}
	}
	return seen
}

// checkSchema enforces that nodes only write declared fields and that a
// Replace field has at most one writer per wavefront.
func (g *Graph) checkSchema() error {
	var errs []error
	for _, n := range g.nodes {
		for _, field := range n.Writes {
			if !g.schema.Has(field) {
				errs = append(errs, defErr(ErrSchemaConflict, n.ID, "writes undeclared field %q", field))
			}
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	for i, wave := range g.waves {
		writers := make(map[string][]string)
		for _, id := range wave {
			n, _ := g.Node(id)
			for _, field := range uniq(n.Writes) {
				writers[field] = append(writers[field], id)
			}
		}
		for _, f := range g.schema.Fields() {
			ids := writers[f.Name]
			if f.Policy == schema.Replace && len(ids) > 1 {
				errs = append(errs, defErr(ErrSchemaConflict, "",
					"field %q uses %v but is written by %s concurrently in wavefront %d; use %v",
					f.Name, schema.Replace, strings.Join(ids, ", "), i+1, schema.Append))
			}
		}
	}
	return errors.Join(errs...)
}

func uniq(in []string) []string {
	out := slices.Clone(in)
	slices.Sort(out)
	return slices.Compact(out)
}
