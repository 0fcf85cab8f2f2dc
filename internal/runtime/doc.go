// Package runtime implements the superstep executor: it runs a validated
// graph wavefront by wavefront, merges each wavefront's partial updates
// after a barrier, and commits a checkpoint per wavefront.
package runtime
