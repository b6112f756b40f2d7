package runner

import (
	"context"
	"fmt"

	"github.com/gridnote/studio/internal/ctxlog"
)

// defaultWorkers bounds in-flight nodes when the caller does not choose.
const defaultWorkers = 4

type nodeDone struct {
	id  string
	err error
}

// runAdaptive executes independent branches of the DAG concurrently: a node
// is dispatched as soon as all of its dependencies have recorded outputs. A
// single coordinator goroutine owns all scheduling state; workers only run
// nodes and report back, so no bookkeeping is mutated concurrently.
func (s *execState) runAdaptive(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	workers := s.opts.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	logger := ctxlog.FromContext(ctx)

	total := len(s.plan.ExecutionOrder)
	pending := make(map[string]int, total)
	for _, id := range s.plan.ExecutionOrder {
		pending[id] = len(s.plan.Dependencies[id])
	}

	var readyQueue []string
	for _, id := range s.plan.ExecutionOrder {
		if pending[id] == 0 {
			readyQueue = append(readyQueue, id)
		}
	}

	doneCh := make(chan nodeDone, total)
	inFlight := 0
	completed := 0
	var firstErr error

	for completed < total {
		for firstErr == nil && inFlight < workers && len(readyQueue) > 0 {
			id := readyQueue[0]
			readyQueue = readyQueue[1:]
			inFlight++
			logger.Debug("Dispatching node.", "node", id, "inFlight", inFlight)
			go func(id string) {
				doneCh <- nodeDone{id: id, err: s.runNode(runCtx, id)}
			}(id)
		}

		if inFlight == 0 {
			if firstErr == nil {
				// Unreachable for a compiled DAG; guard against a hang.
				firstErr = fmt.Errorf("scheduler stalled with %d of %d nodes completed", completed, total)
			}
			break
		}

		d := <-doneCh
		inFlight--
		completed++

		if d.err != nil {
			if firstErr == nil {
				firstErr = d.err
				cancel()
			}
			continue
		}
		if firstErr != nil {
			continue
		}
		for _, dependent := range s.plan.Dependents[d.id] {
			pending[dependent]--
			if pending[dependent] == 0 {
				readyQueue = append(readyQueue, dependent)
			}
		}
	}

	return firstErr
}
