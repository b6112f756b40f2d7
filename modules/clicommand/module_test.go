package clicommand

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/gridnote/studio/internal/cliexec"
	"github.com/gridnote/studio/internal/registry"
	"github.com/gridnote/studio/internal/schema"
	"github.com/gridnote/studio/internal/testutil"
)

func newContext(t *testing.T, dir string, config map[string]cty.Value) *registry.ExecContext {
	t.Helper()
	if config == nil {
		config = map[string]cty.Value{}
	}
	if _, ok := config["cwd"]; !ok {
		config["cwd"] = cty.StringVal(dir)
	}
	return &registry.ExecContext{
		Config:   config,
		Services: testutil.NewBoundary(dir, nil),
	}
}

func TestExecute_RunsGrantedCommand(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	ec := newContext(t, dir, map[string]cty.Value{
		"command": cty.StringVal("echo"),
		"args":    cty.TupleVal([]cty.Value{cty.StringVal("hi")}),
	})
	fake := ec.Services.CLI.(*testutil.FakeCLI)
	fake.Default = cliexec.Response{Stdout: "hi\n"}

	result, err := execute(context.Background(), ec)
	require.NoError(t, err)

	assert.Equal(t, cty.StringVal("hi\n"), result.Outputs["stdout"])
	assert.Equal(t, cty.NumberIntVal(0), result.Outputs["exitCode"])
	assert.Equal(t, cty.False, result.Outputs["timedOut"])
	require.Len(t, fake.Calls, 1)
	assert.Equal(t, dir, fake.Calls[0].Cwd)
	assert.Equal(t, []string{"hi"}, fake.Calls[0].Args)
}

func TestExecute_FailOnErrorDefaultsToFatal(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	ec := newContext(t, dir, map[string]cty.Value{"command": cty.StringVal("false")})
	ec.Services.CLI.(*testutil.FakeCLI).Default = cliexec.Response{ExitCode: 1}

	_, err := execute(context.Background(), ec)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exited with code 1")
}

func TestExecute_FailOnErrorFalseReportsExitCode(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	ec := newContext(t, dir, map[string]cty.Value{
		"command":     cty.StringVal("false"),
		"failOnError": cty.False,
	})
	ec.Services.CLI.(*testutil.FakeCLI).Default = cliexec.Response{ExitCode: 1, Stderr: "nope"}

	result, err := execute(context.Background(), ec)
	require.NoError(t, err)
	assert.Equal(t, cty.NumberIntVal(1), result.Outputs["exitCode"])
	assert.Equal(t, cty.StringVal("nope"), result.Outputs["stderr"])
}

func TestExecute_UngrantedBinaryIsDenied(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	ec := newContext(t, dir, map[string]cty.Value{"command": cty.StringVal("rm")})

	_, err := execute(context.Background(), ec)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "capability denied")
	assert.Equal(t, 0, ec.Services.CLI.(*testutil.FakeCLI).CallCount())
}

func TestExecute_UngrantedCwdIsDenied(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	ec := newContext(t, dir, map[string]cty.Value{
		"command": cty.StringVal("echo"),
		"cwd":     cty.StringVal("/somewhere/else"),
	})
	ec.Services = testutil.NewBoundary(dir, &schema.Policy{
		Grants: schema.Grants{FilesystemPaths: []string{dir}, CLIBinaries: []string{"echo"}},
	})

	_, err := execute(context.Background(), ec)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "capability denied")
	assert.Contains(t, err.Error(), "/somewhere/else")
}
