// Package dataset provides the CLI-backed dataset query node. Results are
// cached in a per-node file under the project's cache directory; the cache
// is reused while the identity fields match and the entry is younger than
// refreshHours, so repeated runs do not re-invoke the external adapter.
package dataset

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gridnote/studio/internal/cliexec"
	"github.com/gridnote/studio/internal/ctxlog"
	"github.com/gridnote/studio/internal/ports"
	"github.com/gridnote/studio/internal/registry"
	"github.com/gridnote/studio/internal/schema"
	"github.com/zclconf/go-cty/cty"
)

// defaultRefreshHours is the cache freshness window when unconfigured.
const defaultRefreshHours = 24

// Module implements registry.Module for this package.
type Module struct{}

func execute(ctx context.Context, ec *registry.ExecContext) (*registry.Result, error) {
	logger := ctxlog.FromContext(ctx)

	workingDir, err := ec.RequireString("workingDirectory")
	if err != nil {
		return nil, err
	}
	query, err := ec.RequireString("query")
	if err != nil {
		return nil, err
	}
	adapterCommand, err := ec.RequireString("adapterCommand")
	if err != nil {
		return nil, err
	}
	adapterArgs, err := ec.StringSlice("adapterArgs")
	if err != nil {
		return nil, err
	}
	refreshHours := ec.Number("refreshHours", defaultRefreshHours)

	// Grants are checked before the cache is consulted, so revoking them
	// stops cached results too, not just fresh adapter invocations.
	if err := ec.Services.AssertFilesystemPath(workingDir); err != nil {
		return nil, err
	}
	if err := ec.Services.AssertCLIBinary(adapterCommand); err != nil {
		return nil, err
	}

	cachePath := cacheFilePath(ec.ProjectPath, ec.Node.ID)
	if cached, ok := loadCache(cachePath, ec.Node.ID, workingDir, query, adapterCommand, adapterArgs, refreshHours); ok {
		logger.Debug("Dataset cache hit, skipping adapter invocation.", "cachePath", cachePath)
		return resultFrom(cached.Stdout), nil
	}

	args := append(append([]string{}, adapterArgs...), query)
	resp, err := ec.Services.RunCLI(ctx, cliexec.Request{
		Command:   adapterCommand,
		Args:      args,
		Cwd:       workingDir,
		TimeoutMs: int(ec.Number("timeoutMs", 120_000)),
	})
	if err != nil {
		return nil, err
	}
	if resp.TimedOut {
		return nil, fmt.Errorf("dataset adapter %q timed out", adapterCommand)
	}
	if exitErr := resp.ExitError(adapterCommand); exitErr != nil {
		return nil, exitErr
	}

	entry := schema.DatasetCache{
		Schema:           schema.DatasetCacheSchemaV1,
		NodeID:           ec.Node.ID,
		WorkingDirectory: workingDir,
		Query:            query,
		AdapterCommand:   adapterCommand,
		AdapterArgs:      adapterArgs,
		RefreshHours:     refreshHours,
		GeneratedAt:      time.Now().UTC(),
		Stdout:           resp.Stdout,
		Stderr:           resp.Stderr,
		ExitCode:         resp.ExitCode,
		TimedOut:         resp.TimedOut,
	}
	if err := saveCache(cachePath, &entry); err != nil {
		// The query succeeded; a cache write failure only costs freshness.
		logger.Warn("Could not write dataset cache file.", "cachePath", cachePath, "error", err)
	}

	return resultFrom(resp.Stdout), nil
}

func resultFrom(stdout string) *registry.Result {
	outputs := map[string]cty.Value{
		"stdout": cty.StringVal(stdout),
		"rows":   cty.NullVal(cty.DynamicPseudoType),
	}
	var decoded any
	if json.Unmarshal([]byte(stdout), &decoded) == nil {
		if v, err := ports.FromGo(decoded); err == nil {
			outputs["rows"] = v
		}
	}
	return &registry.Result{Outputs: outputs}
}

// cacheFilePath keys the cache file by node id, so no two nodes contend for
// the same file.
func cacheFilePath(projectPath, nodeID string) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, nodeID)
	return filepath.Join(projectPath, "cache", "dataset-"+safe+".json")
}

func loadCache(path, nodeID, workingDir, query, adapterCommand string, adapterArgs []string, refreshHours float64) (*schema.DatasetCache, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	var entry schema.DatasetCache
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, false
	}
	if entry.Schema != schema.DatasetCacheSchemaV1 ||
		entry.NodeID != nodeID ||
		entry.WorkingDirectory != workingDir ||
		entry.Query != query ||
		entry.AdapterCommand != adapterCommand ||
		!equalArgs(entry.AdapterArgs, adapterArgs) {
		return nil, false
	}
	if entry.TimedOut || entry.ExitCode != 0 {
		return nil, false
	}
	if time.Since(entry.GeneratedAt) > time.Duration(refreshHours*float64(time.Hour)) {
		return nil, false
	}
	return &entry, true
}

func saveCache(path string, entry *schema.DatasetCache) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func equalArgs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Register registers the dataset node definition.
func (m *Module) Register(r *registry.Registry) {
	r.Register(&registry.Definition{
		Kind:        "dataset",
		Version:     "1.0.0",
		Description: "Queries a dataset through an external adapter command, with on-disk caching.",
		Capability:  registry.CapabilityLocalIO,
		Cache:       registry.CacheNever,
		Inputs: []ports.Port{
			{ID: "query", Type: ports.TypeText},
		},
		Outputs: []ports.Port{
			{ID: "stdout", Type: ports.TypeText},
			{ID: "rows", Type: ports.TypeJSON},
		},
		ConfigFields: []registry.ConfigField{
			{Name: "workingDirectory", Type: ports.TypeText, Required: true, Description: "Absolute working directory for the adapter."},
			{Name: "query", Type: ports.TypeText, Description: "Query passed to the adapter when the port is unwired."},
			{Name: "adapterCommand", Type: ports.TypeText, Required: true, Description: "Adapter command name or path."},
			{Name: "adapterArgs", Type: ports.TypeJSON, Description: "Extra adapter arguments as a list of text."},
			{Name: "refreshHours", Type: ports.TypeNumber, Description: "Cache freshness window in hours, default 24."},
			{Name: "timeoutMs", Type: ports.TypeNumber, Description: "Adapter timeout in milliseconds."},
		},
		Execute: execute,
	})
}
