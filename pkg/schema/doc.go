// Package schema declares the fields of the shared state record and the
// merge policy of each field.
//
// A Schema is an ordered list of fields. Every field has a value Type, a
// merge Policy and a Scope:
//
//	s, err := schema.New(
//	    schema.Field{Name: "topic", Type: schema.String(), Policy: schema.Replace},
//	    schema.Field{Name: "results", Type: schema.String(), Policy: schema.Append},
//	    schema.Field{Name: "topics", Type: schema.String(), Policy: schema.Append, Scope: schema.ScopeSession},
//	)
//
// Replace fields hold a single value written by at most one node per
// superstep. Append fields hold an ordered sequence; for them Type describes
// the element type and every contribution is preserved.
//
// A Schema is immutable once built. The graph package cross-checks it against
// the concurrency structure of a graph before any execution begins.
package schema
