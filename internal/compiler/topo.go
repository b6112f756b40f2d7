package compiler

import (
	"sort"

	"github.com/gridnote/studio/internal/schema"
)

// detectCycles walks the dependency graph depth-first with the classic
// three-color marking: permanent nodes are fully explored, temporary nodes
// are on the current recursion stack, everything else is unvisited. Hitting
// a temporary node again means a back-edge, i.e. a cycle.
func detectCycles(nodes map[string]schema.Node, deps map[string]map[string]bool, declOrder map[string]int) error {
	permanent := make(map[string]bool, len(nodes))
	temporary := make(map[string]bool)

	byDecl := func(ids []string) {
		sort.Slice(ids, func(i, j int) bool { return declOrder[ids[i]] < declOrder[ids[j]] })
	}

	var visit func(id string) error
	visit = func(id string) error {
		if permanent[id] {
			return nil
		}
		if temporary[id] {
			return &CycleError{NodeID: id}
		}
		temporary[id] = true

		depIDs := make([]string, 0, len(deps[id]))
		for depID := range deps[id] {
			depIDs = append(depIDs, depID)
		}
		byDecl(depIDs)
		for _, depID := range depIDs {
			if err := visit(depID); err != nil {
				return err
			}
		}

		delete(temporary, id)
		permanent[id] = true
		return nil
	}

	allIDs := make([]string, 0, len(nodes))
	for id := range nodes {
		allIDs = append(allIDs, id)
	}
	byDecl(allIDs)
	for _, id := range allIDs {
		if !permanent[id] {
			if err := visit(id); err != nil {
				return err
			}
		}
	}
	return nil
}

// topoSort produces the execution order: every node appears exactly once,
// every edge's source precedes its destination, and among ready nodes the
// one declared first in the document wins. The graph is already known to be
// acyclic when this runs.
func topoSort(declared []schema.Node, deps map[string]map[string]bool, dependents map[string][]string) []string {
	remaining := make(map[string]int, len(declared))
	for _, n := range declared {
		remaining[n.ID] = len(deps[n.ID])
	}

	order := make([]string, 0, len(declared))
	emitted := make(map[string]bool, len(declared))

	for len(order) < len(declared) {
		for _, n := range declared {
			if emitted[n.ID] || remaining[n.ID] != 0 {
				continue
			}
			order = append(order, n.ID)
			emitted[n.ID] = true
			for _, dep := range dependents[n.ID] {
				remaining[dep]--
			}
			break
		}
	}
	return order
}
