package compiler

import (
	"fmt"

	"github.com/gridnote/studio/internal/ports"
)

// ValidationError reports a graph that references unknown definitions or is
// otherwise structurally malformed.
type ValidationError struct {
	NodeID string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.NodeID == "" {
		return "invalid graph: " + e.Reason
	}
	return fmt.Sprintf("invalid graph: node %q: %s", e.NodeID, e.Reason)
}

// TypeMismatchError reports an edge connecting two incompatible port types.
type TypeMismatchError struct {
	EdgeID   string
	FromPort string
	FromType ports.Type
	ToPort   string
	ToType   ports.Type
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("type mismatch on edge %q: output port %q has type %q but input port %q has type %q",
		e.EdgeID, e.FromPort, e.FromType, e.ToPort, e.ToType)
}

// CycleError reports that the declared graph is not a DAG.
type CycleError struct {
	NodeID string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cycle detected involving node %q", e.NodeID)
}
