package app

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/zclconf/go-cty/cty"

	"github.com/gridnote/studio/internal/aiclient"
	"github.com/gridnote/studio/internal/assets"
	"github.com/gridnote/studio/internal/cliexec"
	"github.com/gridnote/studio/internal/ctxlog"
	"github.com/gridnote/studio/internal/ledger"
	"github.com/gridnote/studio/internal/policy"
	"github.com/gridnote/studio/internal/runner"
	"github.com/gridnote/studio/internal/schema"
	"github.com/gridnote/studio/internal/services"
)

// lockRetryInterval is how often a blocked run retries the project lock.
const lockRetryInterval = 250 * time.Millisecond

// RunOptions are per-invocation overrides for RunProject.
type RunOptions struct {
	// Concurrency overrides the project's runConcurrency setting when set.
	Concurrency string
	// Workers bounds in-flight nodes under adaptive scheduling.
	Workers int
}

// RunSummary is what a completed run reports to the CLI.
type RunSummary struct {
	RunID      string
	Status     string
	Duration   time.Duration
	CacheHits  int
	Artifacts  []schema.AssetRef
	Outputs    map[string]map[string]cty.Value
	RunsPruned int
}

// RunProject executes a project's graph end to end: lock, load, run, record
// in the ledger, prune retention. A failed run is still recorded before the
// error is returned.
func (a *App) RunProject(ctx context.Context, dir string, opts RunOptions) (*RunSummary, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	projectAbs := a.abs(dir)

	// One run per project at a time, across processes.
	lock := flock.New(filepath.Join(projectAbs, ".studio.lock"))
	locked, err := lock.TryLockContext(ctx, lockRetryInterval)
	if err != nil {
		return nil, fmt.Errorf("acquire project lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("project %s is locked by another run", dir)
	}
	defer func() {
		_ = lock.Unlock()
	}()

	proj, err := a.projects.LoadProject(ctx, dir)
	if err != nil {
		return nil, err
	}
	if err := checkEngineVersion(proj.Engine.MinEngineVersion); err != nil {
		return nil, err
	}

	pol, err := a.projects.LoadPolicy(ctx, path.Join(dir, proj.PermissionsRef.PolicyPath))
	if err != nil {
		return nil, err
	}

	led, err := ledger.Open(filepath.Join(projectAbs, "runs", "ledger.db"))
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = led.Close()
	}()

	concurrency := proj.Settings.RunConcurrency
	if opts.Concurrency != "" {
		concurrency = opts.Concurrency
	}

	runID := uuid.NewString()
	started := time.Now().UTC()
	result, runErr := runner.Run(ctx, proj, a.registry, a.newBoundary(projectAbs, pol), runner.Options{
		RunID:       runID,
		ProjectPath: projectAbs,
		Concurrency: concurrency,
		Workers:     opts.Workers,
	})
	finished := time.Now().UTC()

	rec := ledger.RunRecord{
		RunID:      runID,
		ProjectID:  proj.ProjectID,
		StartedAt:  started,
		FinishedAt: finished,
		Status:     ledger.StatusSucceeded,
	}
	if runErr != nil {
		rec.Status = ledger.StatusFailed
		rec.Error = runErr.Error()
	} else {
		rec.CacheHits = result.CacheHits
		rec.Artifacts = result.Artifacts
	}
	if err := led.RecordRun(ctx, rec); err != nil {
		a.logger.Error("Could not record run in ledger.", "runId", runID, "error", err)
	}
	if runErr != nil {
		return nil, runErr
	}

	pruned, err := a.prune(ctx, led, projectAbs, proj)
	if err != nil {
		// Retention is housekeeping; the run itself succeeded.
		a.logger.Warn("Retention pruning failed.", "error", err)
		pruned = 0
	}

	return &RunSummary{
		RunID:      runID,
		Status:     ledger.StatusSucceeded,
		Duration:   finished.Sub(started),
		CacheHits:  result.CacheHits,
		Artifacts:  result.Artifacts,
		Outputs:    result.Outputs,
		RunsPruned: pruned,
	}, nil
}

// ListRuns returns a project's recent run history, newest first.
func (a *App) ListRuns(ctx context.Context, dir string, limit int) ([]ledger.RunRecord, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)

	proj, err := a.projects.LoadProject(ctx, dir)
	if err != nil {
		return nil, err
	}

	led, err := ledger.Open(filepath.Join(a.abs(dir), "runs", "ledger.db"))
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = led.Close()
	}()

	return led.ListRuns(ctx, proj.ProjectID, limit)
}

// PruneRuns applies the project's retention settings immediately.
func (a *App) PruneRuns(ctx context.Context, dir string) (int, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	projectAbs := a.abs(dir)

	proj, err := a.projects.LoadProject(ctx, dir)
	if err != nil {
		return 0, err
	}

	led, err := ledger.Open(filepath.Join(projectAbs, "runs", "ledger.db"))
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = led.Close()
	}()

	return a.prune(ctx, led, projectAbs, proj)
}

// prune enforces retention and deletes asset files no surviving run
// references.
func (a *App) prune(ctx context.Context, led *ledger.Store, projectAbs string, proj *schema.Project) (int, error) {
	result, err := led.Prune(ctx, proj.ProjectID, proj.Settings.Retention)
	if err != nil {
		return 0, err
	}
	for _, rel := range result.OrphanedAssetPaths {
		abs := filepath.Join(projectAbs, filepath.FromSlash(rel))
		if err := os.Remove(abs); err != nil && !os.IsNotExist(err) {
			a.logger.Warn("Could not remove orphaned asset.", "path", rel, "error", err)
		}
	}
	if result.RunsDeleted > 0 {
		a.logger.Info("Pruned run history.", "runsDeleted", result.RunsDeleted, "assetsRemoved", len(result.OrphanedAssetPaths))
	}
	return result.RunsDeleted, nil
}

// newBoundary assembles the per-run service surface from the engine config
// and the project's policy.
func (a *App) newBoundary(projectAbs string, pol *schema.Policy) *services.Boundary {
	return &services.Boundary{
		AI:        aiclient.NewOpenAIClient(a.cfg.API.BaseURL, os.Getenv(a.cfg.API.APIKeyEnv)),
		Secrets:   services.EnvSecrets{Prefix: "STUDIO_"},
		Assets:    assets.NewStore(projectAbs),
		Vault:     a.vaultFS,
		CLI:       &cliexec.ExecRunner{},
		Sandbox:   policy.NewSandbox(pol),
		VaultRoot: a.vaultRoot,
	}
}
