package runner

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/gridnote/studio/internal/ports"
	"github.com/gridnote/studio/internal/registry"
	"github.com/gridnote/studio/internal/schema"
	"github.com/gridnote/studio/internal/testutil"
	"github.com/gridnote/studio/modules/input"
	"github.com/gridnote/studio/modules/template"
)

func builtinRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	r := registry.New()
	(&input.Module{}).Register(r)
	(&template.Module{}).Register(r)
	return r
}

func TestRun_InputFeedsTemplate(t *testing.T) {
	t.Parallel()

	proj := testutil.Project(
		[]schema.Node{
			testutil.Node("tpl", "template", map[string]any{"template": "hello {{input}}"}),
			testutil.Node("src", "input", map[string]any{"value": "world"}),
		},
		[]schema.Edge{
			testutil.Edge("src", "value", "tpl", "input"),
		},
	)

	dir := t.TempDir()
	result, err := Run(context.Background(), proj, builtinRegistry(t), testutil.NewBoundary(dir, nil), Options{ProjectPath: dir})
	require.NoError(t, err)

	require.NotEmpty(t, result.RunID)
	require.Contains(t, result.Outputs, "tpl")
	assert.Equal(t, cty.StringVal("hello world"), result.Outputs["tpl"]["text"])
}

func TestRun_MemoizesIdenticalByInputsNodes(t *testing.T) {
	t.Parallel()

	var executions atomic.Int32
	r := registry.New()
	r.Register(&registry.Definition{
		Kind:       "counted",
		Version:    "1.0.0",
		Capability: registry.CapabilityLocalCPU,
		Cache:      registry.CacheByInputs,
		Outputs:    []ports.Port{{ID: "out", Type: ports.TypeText}},
		ConfigFields: []registry.ConfigField{
			{Name: "seed", Type: ports.TypeText},
		},
		Execute: func(ctx context.Context, ec *registry.ExecContext) (*registry.Result, error) {
			executions.Add(1)
			return &registry.Result{Outputs: map[string]cty.Value{"out": cty.StringVal(ec.String("seed", ""))}}, nil
		},
	})

	// Two nodes with identical (kind, version, config, inputs) and one that
	// differs.
	proj := testutil.Project(
		[]schema.Node{
			testutil.Node("first", "counted", map[string]any{"seed": "same"}),
			testutil.Node("second", "counted", map[string]any{"seed": "same"}),
			testutil.Node("other", "counted", map[string]any{"seed": "different"}),
		},
		nil,
	)

	dir := t.TempDir()
	result, err := Run(context.Background(), proj, r, testutil.NewBoundary(dir, nil), Options{ProjectPath: dir})
	require.NoError(t, err)

	assert.Equal(t, int32(2), executions.Load(), "identical nodes share one execution")
	assert.Equal(t, 1, result.CacheHits)
	assert.Equal(t, cty.StringVal("same"), result.Outputs["second"]["out"])
	assert.Equal(t, cty.StringVal("different"), result.Outputs["other"]["out"])
}

func TestRun_CacheNeverAlwaysExecutes(t *testing.T) {
	t.Parallel()

	var executions atomic.Int32
	r := registry.New()
	r.Register(&registry.Definition{
		Kind:       "effectful",
		Version:    "1.0.0",
		Capability: registry.CapabilityLocalIO,
		Cache:      registry.CacheNever,
		Execute: func(ctx context.Context, ec *registry.ExecContext) (*registry.Result, error) {
			executions.Add(1)
			return &registry.Result{}, nil
		},
	})

	proj := testutil.Project(
		[]schema.Node{
			testutil.Node("a", "effectful", nil),
			testutil.Node("b", "effectful", nil),
		},
		nil,
	)

	dir := t.TempDir()
	result, err := Run(context.Background(), proj, r, testutil.NewBoundary(dir, nil), Options{ProjectPath: dir})
	require.NoError(t, err)
	assert.Equal(t, int32(2), executions.Load())
	assert.Equal(t, 0, result.CacheHits)
}

func TestRun_FailureWrapsNodeError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	var downstream atomic.Int32
	r := registry.New()
	r.Register(&registry.Definition{
		Kind:       "failing",
		Version:    "1.0.0",
		Capability: registry.CapabilityLocalCPU,
		Cache:      registry.CacheNever,
		Outputs:    []ports.Port{{ID: "out", Type: ports.TypeAny}},
		Execute: func(ctx context.Context, ec *registry.ExecContext) (*registry.Result, error) {
			return nil, boom
		},
	})
	r.Register(&registry.Definition{
		Kind:       "after",
		Version:    "1.0.0",
		Capability: registry.CapabilityLocalCPU,
		Cache:      registry.CacheNever,
		Inputs:     []ports.Port{{ID: "in", Type: ports.TypeAny}},
		Execute: func(ctx context.Context, ec *registry.ExecContext) (*registry.Result, error) {
			downstream.Add(1)
			return &registry.Result{}, nil
		},
	})

	proj := testutil.Project(
		[]schema.Node{
			testutil.Node("bad", "failing", nil),
			testutil.Node("next", "after", nil),
		},
		[]schema.Edge{
			testutil.Edge("bad", "out", "next", "in"),
		},
	)

	dir := t.TempDir()
	_, err := Run(context.Background(), proj, r, testutil.NewBoundary(dir, nil), Options{ProjectPath: dir})
	require.Error(t, err)

	var nodeErr *NodeError
	require.ErrorAs(t, err, &nodeErr)
	assert.Equal(t, "bad", nodeErr.NodeID)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int32(0), downstream.Load(), "dependents of a failed node must not run")
}

func TestRun_PreflightRejectsUnsatisfiedRequiredInput(t *testing.T) {
	t.Parallel()

	var executions atomic.Int32
	r := registry.New()
	r.Register(&registry.Definition{
		Kind:       "strict",
		Version:    "1.0.0",
		Capability: registry.CapabilityLocalCPU,
		Cache:      registry.CacheNever,
		Inputs:     []ports.Port{{ID: "must", Type: ports.TypeText, Required: true}},
		ConfigFields: []registry.ConfigField{
			{Name: "must", Type: ports.TypeText},
		},
		Execute: func(ctx context.Context, ec *registry.ExecContext) (*registry.Result, error) {
			executions.Add(1)
			return &registry.Result{}, nil
		},
	})

	proj := testutil.Project([]schema.Node{testutil.Node("lonely", "strict", nil)}, nil)

	dir := t.TempDir()
	_, err := Run(context.Background(), proj, r, testutil.NewBoundary(dir, nil), Options{ProjectPath: dir})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `required input port "must"`)
	assert.Equal(t, int32(0), executions.Load(), "preflight failures must stop the run before any node executes")

	// The same port satisfied through a config default passes preflight.
	satisfied := testutil.Project(
		[]schema.Node{testutil.Node("ok", "strict", map[string]any{"must": "from config"})},
		nil,
	)
	_, err = Run(context.Background(), satisfied, r, testutil.NewBoundary(dir, nil), Options{ProjectPath: dir})
	require.NoError(t, err)
}

func TestRun_CancelledContextAborts(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	proj := testutil.Project(
		[]schema.Node{testutil.Node("src", "input", map[string]any{"value": "x"})},
		nil,
	)

	dir := t.TempDir()
	_, err := Run(ctx, proj, builtinRegistry(t), testutil.NewBoundary(dir, nil), Options{ProjectPath: dir})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_UndeclaredOutputIsRejected(t *testing.T) {
	t.Parallel()

	r := registry.New()
	r.Register(&registry.Definition{
		Kind:       "leaky",
		Version:    "1.0.0",
		Capability: registry.CapabilityLocalCPU,
		Cache:      registry.CacheNever,
		Outputs:    []ports.Port{{ID: "declared", Type: ports.TypeText}},
		Execute: func(ctx context.Context, ec *registry.ExecContext) (*registry.Result, error) {
			return &registry.Result{Outputs: map[string]cty.Value{"sneaky": cty.True}}, nil
		},
	})

	proj := testutil.Project([]schema.Node{testutil.Node("n", "leaky", nil)}, nil)

	dir := t.TempDir()
	_, err := Run(context.Background(), proj, r, testutil.NewBoundary(dir, nil), Options{ProjectPath: dir})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `undeclared output port "sneaky"`)
}

func TestRunAdaptive_IndependentBranchesOverlap(t *testing.T) {
	t.Parallel()

	// Two independent nodes rendezvous inside their executions; this only
	// completes if the scheduler has both in flight at once.
	arrived := make(chan struct{}, 2)
	proceed := make(chan struct{})
	go func() {
		<-arrived
		<-arrived
		close(proceed)
	}()

	r := registry.New()
	r.Register(&registry.Definition{
		Kind:       "meet",
		Version:    "1.0.0",
		Capability: registry.CapabilityLocalCPU,
		Cache:      registry.CacheNever,
		Execute: func(ctx context.Context, ec *registry.ExecContext) (*registry.Result, error) {
			arrived <- struct{}{}
			select {
			case <-proceed:
				return &registry.Result{}, nil
			case <-time.After(5 * time.Second):
				return nil, fmt.Errorf("peer never started; scheduling was not concurrent")
			}
		},
	})

	proj := testutil.Project(
		[]schema.Node{
			testutil.Node("left", "meet", nil),
			testutil.Node("right", "meet", nil),
		},
		nil,
	)

	dir := t.TempDir()
	_, err := Run(context.Background(), proj, r, testutil.NewBoundary(dir, nil), Options{
		ProjectPath: dir,
		Concurrency: schema.ConcurrencyAdaptive,
		Workers:     2,
	})
	require.NoError(t, err)
}

func TestRunAdaptive_FailureSkipsDependents(t *testing.T) {
	t.Parallel()

	var downstream atomic.Int32
	r := registry.New()
	r.Register(&registry.Definition{
		Kind:       "failing",
		Version:    "1.0.0",
		Capability: registry.CapabilityLocalCPU,
		Cache:      registry.CacheNever,
		Outputs:    []ports.Port{{ID: "out", Type: ports.TypeAny}},
		Execute: func(ctx context.Context, ec *registry.ExecContext) (*registry.Result, error) {
			return nil, errors.New("boom")
		},
	})
	r.Register(&registry.Definition{
		Kind:       "after",
		Version:    "1.0.0",
		Capability: registry.CapabilityLocalCPU,
		Cache:      registry.CacheNever,
		Inputs:     []ports.Port{{ID: "in", Type: ports.TypeAny}},
		Execute: func(ctx context.Context, ec *registry.ExecContext) (*registry.Result, error) {
			downstream.Add(1)
			return &registry.Result{}, nil
		},
	})

	proj := testutil.Project(
		[]schema.Node{
			testutil.Node("bad", "failing", nil),
			testutil.Node("next", "after", nil),
		},
		[]schema.Edge{
			testutil.Edge("bad", "out", "next", "in"),
		},
	)

	dir := t.TempDir()
	_, err := Run(context.Background(), proj, r, testutil.NewBoundary(dir, nil), Options{
		ProjectPath: dir,
		Concurrency: schema.ConcurrencyAdaptive,
	})
	require.Error(t, err)

	var nodeErr *NodeError
	require.ErrorAs(t, err, &nodeErr)
	assert.Equal(t, "bad", nodeErr.NodeID)
	assert.Equal(t, int32(0), downstream.Load())
}
