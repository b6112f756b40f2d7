// Package clicommand provides the generic CLI invocation node. The working
// directory and the binary must both be covered by the project's policy.
package clicommand

import (
	"context"
	"fmt"

	"github.com/gridnote/studio/internal/cliexec"
	"github.com/gridnote/studio/internal/ports"
	"github.com/gridnote/studio/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// Module implements registry.Module for this package.
type Module struct{}

func execute(ctx context.Context, ec *registry.ExecContext) (*registry.Result, error) {
	command, err := ec.RequireString("command")
	if err != nil {
		return nil, err
	}
	cwd, err := ec.RequireString("cwd")
	if err != nil {
		return nil, err
	}
	args, err := ec.StringSlice("args")
	if err != nil {
		return nil, err
	}

	if err := ec.Services.AssertFilesystemPath(cwd); err != nil {
		return nil, err
	}
	if err := ec.Services.AssertCLIBinary(command); err != nil {
		return nil, err
	}

	resp, err := ec.Services.RunCLI(ctx, cliexec.Request{
		Command:        command,
		Args:           args,
		Cwd:            cwd,
		TimeoutMs:      int(ec.Number("timeoutMs", 60_000)),
		MaxOutputBytes: int(ec.Number("maxOutputBytes", 0)),
	})
	if err != nil {
		return nil, err
	}

	failOnError := ec.Bool("failOnError", true)
	if failOnError {
		if resp.TimedOut {
			return nil, fmt.Errorf("command %q timed out", command)
		}
		if exitErr := resp.ExitError(command); exitErr != nil {
			return nil, exitErr
		}
	}

	return &registry.Result{
		Outputs: map[string]cty.Value{
			"stdout":   cty.StringVal(resp.Stdout),
			"stderr":   cty.StringVal(resp.Stderr),
			"exitCode": cty.NumberIntVal(int64(resp.ExitCode)),
			"timedOut": cty.BoolVal(resp.TimedOut),
		},
	}, nil
}

// Register registers the CLI command node definition.
func (m *Module) Register(r *registry.Registry) {
	r.Register(&registry.Definition{
		Kind:        "cli-command",
		Version:     "1.0.0",
		Description: "Runs a policy-granted external command.",
		Capability:  registry.CapabilityLocalIO,
		Cache:       registry.CacheNever,
		Inputs: []ports.Port{
			{ID: "command", Type: ports.TypeText},
		},
		Outputs: []ports.Port{
			{ID: "stdout", Type: ports.TypeText},
			{ID: "stderr", Type: ports.TypeText},
			{ID: "exitCode", Type: ports.TypeNumber},
			{ID: "timedOut", Type: ports.TypeBool},
		},
		ConfigFields: []registry.ConfigField{
			{Name: "command", Type: ports.TypeText, Description: "Command name or absolute path."},
			{Name: "args", Type: ports.TypeJSON, Description: "Arguments as a list of text."},
			{Name: "cwd", Type: ports.TypeText, Required: true, Description: "Absolute working directory, must be policy-granted."},
			{Name: "timeoutMs", Type: ports.TypeNumber, Description: "Execution timeout in milliseconds."},
			{Name: "maxOutputBytes", Type: ports.TypeNumber, Description: "Cap on captured stdout/stderr."},
			{Name: "failOnError", Type: ports.TypeBool, Description: "Fail the node on timeout or non-zero exit, default true."},
		},
		Execute: execute,
	})
}
