// Package compiler validates a declared workflow graph against the node
// registry and produces a deterministic execution plan. Compilation is a
// pure function of its inputs: it never mutates the project document and is
// safe to call repeatedly or concurrently on the same project.
package compiler

import (
	"context"
	"fmt"
	"sort"

	"github.com/gridnote/studio/internal/ctxlog"
	"github.com/gridnote/studio/internal/ports"
	"github.com/gridnote/studio/internal/registry"
	"github.com/gridnote/studio/internal/schema"
)

// Plan is the compiled form of a graph: a topological execution order plus
// the resolved lookups the runtime needs to drive it.
type Plan struct {
	// ExecutionOrder lists node ids so that every edge's source precedes
	// its destination. Ties break on declaration order, so the order is
	// stable for a given document.
	ExecutionOrder []string
	// Nodes indexes the declared node instances by id.
	Nodes map[string]schema.Node
	// Defs holds each node's resolved definition.
	Defs map[string]*registry.Definition
	// Inbound maps node id -> input port id -> the single inbound edge.
	Inbound map[string]map[string]schema.Edge
	// Dependencies maps node id -> ids of nodes it depends on.
	Dependencies map[string][]string
	// Dependents maps node id -> ids of nodes that depend on it.
	Dependents map[string][]string
}

// Compile validates the project's graph and derives its execution plan.
func Compile(ctx context.Context, project *schema.Project, reg *registry.Registry) (*Plan, error) {
	logger := ctxlog.FromContext(ctx)
	graph := &project.Graph
	logger.Debug("Compile: starting graph compilation.", "nodes", len(graph.Nodes), "edges", len(graph.Edges))

	plan := &Plan{
		Nodes:        make(map[string]schema.Node, len(graph.Nodes)),
		Defs:         make(map[string]*registry.Definition, len(graph.Nodes)),
		Inbound:      make(map[string]map[string]schema.Edge),
		Dependencies: make(map[string][]string),
		Dependents:   make(map[string][]string),
	}

	// Pass 1: index nodes and resolve every definition.
	declOrder := make(map[string]int, len(graph.Nodes))
	for i, node := range graph.Nodes {
		if node.ID == "" {
			return nil, &ValidationError{Reason: fmt.Sprintf("node at index %d has an empty id", i)}
		}
		if _, dup := plan.Nodes[node.ID]; dup {
			return nil, &ValidationError{NodeID: node.ID, Reason: "duplicate node id"}
		}
		def, ok := reg.Get(node.Kind, node.Version)
		if !ok {
			return nil, &ValidationError{NodeID: node.ID, Reason: fmt.Sprintf("no registered definition for kind %q version %q", node.Kind, node.Version)}
		}
		if err := def.CheckConfig(node.Config); err != nil {
			return nil, &ValidationError{NodeID: node.ID, Reason: err.Error()}
		}
		plan.Nodes[node.ID] = node
		plan.Defs[node.ID] = def
		declOrder[node.ID] = i
	}

	// Pass 2: resolve edges against declared ports and check types.
	deps := make(map[string]map[string]bool, len(graph.Nodes))
	for _, edge := range graph.Edges {
		fromNode, ok := plan.Nodes[edge.FromNodeID]
		if !ok {
			return nil, &ValidationError{NodeID: edge.FromNodeID, Reason: fmt.Sprintf("edge %q references unknown source node", edge.ID)}
		}
		toNode, ok := plan.Nodes[edge.ToNodeID]
		if !ok {
			return nil, &ValidationError{NodeID: edge.ToNodeID, Reason: fmt.Sprintf("edge %q references unknown destination node", edge.ID)}
		}

		fromPort, ok := ports.Find(plan.Defs[fromNode.ID].Outputs, edge.FromPortID)
		if !ok {
			return nil, &ValidationError{NodeID: fromNode.ID, Reason: fmt.Sprintf("edge %q references unknown output port %q", edge.ID, edge.FromPortID)}
		}
		toPort, ok := ports.Find(plan.Defs[toNode.ID].Inputs, edge.ToPortID)
		if !ok {
			return nil, &ValidationError{NodeID: toNode.ID, Reason: fmt.Sprintf("edge %q references unknown input port %q", edge.ID, edge.ToPortID)}
		}

		if !ports.Compatible(fromPort.Type, toPort.Type) {
			return nil, &TypeMismatchError{
				EdgeID:   edge.ID,
				FromPort: edge.FromPortID,
				FromType: fromPort.Type,
				ToPort:   edge.ToPortID,
				ToType:   toPort.Type,
			}
		}

		// No fan-in merge rule is defined for this model, so a second edge
		// into the same input port is rejected rather than silently picking
		// a winner.
		inbound, ok := plan.Inbound[toNode.ID]
		if !ok {
			inbound = make(map[string]schema.Edge)
			plan.Inbound[toNode.ID] = inbound
		}
		if prev, taken := inbound[edge.ToPortID]; taken {
			return nil, &ValidationError{NodeID: toNode.ID, Reason: fmt.Sprintf("input port %q receives both edge %q and edge %q; an input port accepts at most one inbound edge", edge.ToPortID, prev.ID, edge.ID)}
		}
		inbound[edge.ToPortID] = edge

		if deps[toNode.ID] == nil {
			deps[toNode.ID] = make(map[string]bool)
		}
		deps[toNode.ID][fromNode.ID] = true
	}

	for nodeID, set := range deps {
		for depID := range set {
			plan.Dependencies[nodeID] = append(plan.Dependencies[nodeID], depID)
			plan.Dependents[depID] = append(plan.Dependents[depID], nodeID)
		}
	}
	for _, list := range []map[string][]string{plan.Dependencies, plan.Dependents} {
		for _, ids := range list {
			sort.Slice(ids, func(i, j int) bool { return declOrder[ids[i]] < declOrder[ids[j]] })
		}
	}

	// Pass 3: cycle detection, then a deterministic topological order.
	if err := detectCycles(plan.Nodes, deps, declOrder); err != nil {
		return nil, err
	}
	plan.ExecutionOrder = topoSort(graph.Nodes, deps, plan.Dependents)

	logger.Debug("Compile: graph compilation successful.", "executionOrder", plan.ExecutionOrder)
	return plan, nil
}
