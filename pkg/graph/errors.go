package graph

import (
	"errors"
	"fmt"
)

// Definition error kinds. Every build error wraps exactly one of these.
var (
	ErrInvalidNode         = errors.New("invalid node")
	ErrDuplicateNodeID     = errors.New("duplicate node id")
	ErrUnknownEdgeEndpoint = errors.New("unknown edge endpoint")
	ErrCycleDetected       = errors.New("cycle detected")
	ErrUnreachableNode     = errors.New("unreachable node")
	ErrSchemaConflict      = errors.New("schema conflict")
)

// DefinitionError is a build-time, fatal graph definition error.
type DefinitionError struct {
	Kind   error
	Node   string
	Detail string
}

func (e *DefinitionError) Error() string {
	if e.Node == "" {
		return fmt.Sprintf("graph definition: %v: %s", e.Kind, e.Detail)
	}
	return fmt.Sprintf("graph definition: %v: node %q: %s", e.Kind, e.Node, e.Detail)
}

func (e *DefinitionError) Unwrap() error { return e.Kind }

func defErr(kind error, node, format string, args ...any) error {
	return &DefinitionError{Kind: kind, Node: node, Detail: fmt.Sprintf(format, args...)}
}
