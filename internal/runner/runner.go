// Package runner drives a compiled execution plan: it builds each node's
// input map from upstream outputs, applies the node's cache policy, invokes
// its execute function against the per-run service boundary, and records
// outputs and artifacts for downstream nodes and the caller.
package runner

import (
	"context"
	"fmt"
	"sync"

	"github.com/gridnote/studio/internal/compiler"
	"github.com/gridnote/studio/internal/ctxlog"
	"github.com/gridnote/studio/internal/ports"
	"github.com/gridnote/studio/internal/registry"
	"github.com/gridnote/studio/internal/schema"
	"github.com/gridnote/studio/internal/services"
	"github.com/google/uuid"
	"github.com/zclconf/go-cty/cty"
)

// Options configures one run.
type Options struct {
	// RunID identifies the run; a fresh UUID is generated when empty.
	RunID string
	// ProjectPath is the absolute local path of the project directory.
	ProjectPath string
	// Concurrency selects the schedule: schema.ConcurrencySequential (the
	// default) or schema.ConcurrencyAdaptive.
	Concurrency string
	// Workers bounds in-flight nodes under adaptive scheduling.
	Workers int
}

// RunResult is what a completed run hands back to the caller.
type RunResult struct {
	RunID     string
	Outputs   map[string]map[string]cty.Value
	Artifacts []schema.AssetRef
	CacheHits int
}

// NodeError wraps a failure with the id of the node it originated from.
type NodeError struct {
	NodeID string
	Err    error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("node %q: %v", e.NodeID, e.Err)
}

func (e *NodeError) Unwrap() error {
	return e.Err
}

// Run compiles the project's graph and executes it. Any error aborts the
// run immediately; execution-time errors arrive wrapped in a NodeError and
// no partial output is returned.
func Run(ctx context.Context, project *schema.Project, reg *registry.Registry, boundary *services.Boundary, opts Options) (*RunResult, error) {
	plan, err := compiler.Compile(ctx, project, reg)
	if err != nil {
		return nil, err
	}
	return RunPlan(ctx, plan, boundary, opts)
}

// RunPlan executes an already-compiled plan.
func RunPlan(ctx context.Context, plan *compiler.Plan, boundary *services.Boundary, opts Options) (*RunResult, error) {
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	logger := ctxlog.FromContext(ctx).With("runId", opts.RunID)
	ctx = ctxlog.WithLogger(ctx, logger)

	if err := preflight(plan); err != nil {
		return nil, err
	}

	state := &execState{
		plan:     plan,
		boundary: boundary,
		opts:     opts,
		outputs:  make(map[string]map[string]cty.Value, len(plan.ExecutionOrder)),
		memo:     make(map[string]*registry.Result),
	}
	defer boundary.CleanupTemp()

	logger.Info("Starting run.", "nodes", len(plan.ExecutionOrder), "concurrency", opts.Concurrency)

	var err error
	if opts.Concurrency == schema.ConcurrencyAdaptive {
		err = state.runAdaptive(ctx)
	} else {
		err = state.runSequential(ctx)
	}
	if err != nil {
		logger.Error("Run failed.", "error", err)
		return nil, err
	}

	logger.Info("Run finished.", "cacheHits", state.cacheHits, "artifacts", len(state.artifacts))
	return &RunResult{
		RunID:     opts.RunID,
		Outputs:   state.outputs,
		Artifacts: state.artifacts,
		CacheHits: state.cacheHits,
	}, nil
}

// preflight rejects the plan before anything executes when a required input
// port has neither an inbound edge nor a same-named config default.
func preflight(plan *compiler.Plan) error {
	for _, nodeID := range plan.ExecutionOrder {
		def := plan.Defs[nodeID]
		node := plan.Nodes[nodeID]
		for _, port := range def.Inputs {
			if !port.Required {
				continue
			}
			if _, wired := plan.Inbound[nodeID][port.ID]; wired {
				continue
			}
			if v, ok := node.Config[port.ID]; ok && v != nil {
				continue
			}
			return &NodeError{NodeID: nodeID, Err: fmt.Errorf("required input port %q has no inbound edge and no default", port.ID)}
		}
	}
	return nil
}

// execState is the shared bookkeeping of one run. The mutex covers outputs,
// artifacts, and the memo table; under sequential scheduling it is
// uncontended, under adaptive scheduling it serializes recording.
type execState struct {
	plan     *compiler.Plan
	boundary *services.Boundary
	opts     Options

	mu        sync.Mutex
	outputs   map[string]map[string]cty.Value
	artifacts []schema.AssetRef
	memo      map[string]*registry.Result
	cacheHits int
}

// runSequential walks the execution order one node at a time. This is always
// a valid schedule because the order already respects every dependency.
func (s *execState) runSequential(ctx context.Context) error {
	for _, nodeID := range s.plan.ExecutionOrder {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.runNode(ctx, nodeID); err != nil {
			return err
		}
	}
	return nil
}

// runNode executes a single node, consulting the memo table first when the
// definition's cache policy allows it.
func (s *execState) runNode(ctx context.Context, nodeID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	def := s.plan.Defs[nodeID]
	node := s.plan.Nodes[nodeID]
	logger := ctxlog.FromContext(ctx).With("node", nodeID, "kind", def.Kind)
	nodeCtx := ctxlog.WithLogger(ctx, logger)

	inputs, err := s.buildInputs(nodeID)
	if err != nil {
		return &NodeError{NodeID: nodeID, Err: err}
	}

	config, err := configValues(node.Config)
	if err != nil {
		return &NodeError{NodeID: nodeID, Err: err}
	}

	var memoKey string
	if def.Cache == registry.CacheByInputs {
		memoKey, err = cacheKey(def, config, inputs)
		if err != nil {
			return &NodeError{NodeID: nodeID, Err: fmt.Errorf("derive cache key: %w", err)}
		}
		s.mu.Lock()
		cached, hit := s.memo[memoKey]
		s.mu.Unlock()
		if hit {
			logger.Debug("Reusing memoized result.")
			s.record(nodeID, def, cached, true)
			return nil
		}
	}

	logger.Info("Executing node.")
	ec := &registry.ExecContext{
		RunID:       s.opts.RunID,
		ProjectPath: s.opts.ProjectPath,
		Node:        node,
		Config:      config,
		Inputs:      inputs,
		Services:    s.boundary,
	}
	result, err := def.Execute(nodeCtx, ec)
	if err != nil {
		return &NodeError{NodeID: nodeID, Err: err}
	}
	if result == nil {
		result = &registry.Result{}
	}
	if err := checkOutputs(def, result); err != nil {
		return &NodeError{NodeID: nodeID, Err: err}
	}

	s.record(nodeID, def, result, false)
	if memoKey != "" {
		s.mu.Lock()
		s.memo[memoKey] = result
		s.mu.Unlock()
	}
	logger.Debug("Node finished.")
	return nil
}

// buildInputs assembles a node's input map: for each declared input port the
// single inbound edge's source output, read from the already-recorded
// upstream results.
func (s *execState) buildInputs(nodeID string) (map[string]cty.Value, error) {
	def := s.plan.Defs[nodeID]
	inputs := make(map[string]cty.Value, len(def.Inputs))

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, port := range def.Inputs {
		edge, wired := s.plan.Inbound[nodeID][port.ID]
		if !wired {
			continue
		}
		upstream, ok := s.outputs[edge.FromNodeID]
		if !ok {
			return nil, fmt.Errorf("internal: upstream node %q has not recorded outputs", edge.FromNodeID)
		}
		value, ok := upstream[edge.FromPortID]
		if !ok {
			return nil, fmt.Errorf("internal: upstream node %q has no output %q", edge.FromNodeID, edge.FromPortID)
		}
		if err := ports.CheckValue(port.Type, value); err != nil {
			return nil, fmt.Errorf("input port %q: %w", port.ID, err)
		}
		inputs[port.ID] = value
	}
	return inputs, nil
}

// record publishes a node's outputs for downstream consumption. Declared
// output ports the node did not populate are recorded as nulls so edges from
// them resolve.
func (s *execState) record(nodeID string, def *registry.Definition, result *registry.Result, fromCache bool) {
	outputs := make(map[string]cty.Value, len(def.Outputs))
	for _, port := range def.Outputs {
		if v, ok := result.Outputs[port.ID]; ok {
			outputs[port.ID] = v
		} else {
			outputs[port.ID] = cty.NullVal(cty.DynamicPseudoType)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.outputs[nodeID] = outputs
	s.artifacts = append(s.artifacts, result.Artifacts...)
	if fromCache {
		s.cacheHits++
	}
}

// checkOutputs verifies the returned values fit the declared output ports.
func checkOutputs(def *registry.Definition, result *registry.Result) error {
	for id, value := range result.Outputs {
		port, ok := ports.Find(def.Outputs, id)
		if !ok {
			return fmt.Errorf("execute returned undeclared output port %q", id)
		}
		if err := ports.CheckValue(port.Type, value); err != nil {
			return fmt.Errorf("output port %q: %w", id, err)
		}
	}
	return nil
}

func configValues(config map[string]any) (map[string]cty.Value, error) {
	out := make(map[string]cty.Value, len(config))
	for key, raw := range config {
		v, err := ports.FromGo(raw)
		if err != nil {
			return nil, fmt.Errorf("config key %q: %w", key, err)
		}
		out[key] = v
	}
	return out, nil
}
