package app

import (
	"context"
	"path"

	"github.com/gridnote/studio/internal/compiler"
	"github.com/gridnote/studio/internal/ctxlog"
	"github.com/gridnote/studio/internal/project"
	"github.com/gridnote/studio/internal/schema"
)

// CreateProject creates a project under the configured projects directory and
// returns the document and its vault-relative directory. The default policy
// grants filesystem access to the project's own directory only.
func (a *App) CreateProject(ctx context.Context, name, apiMode string) (*schema.Project, string, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)

	proj, dir, err := a.projects.CreateProject(ctx, project.CreateOptions{
		BaseDir: a.cfg.Vault.ProjectsDir,
		Name:    name,
		APIMode: apiMode,
	})
	if err != nil {
		return nil, "", err
	}

	// The directory is only known after allocation, so the filesystem grant
	// is stamped in a second pass.
	policyPath := path.Join(dir, proj.PermissionsRef.PolicyPath)
	pol, err := a.projects.LoadPolicy(ctx, policyPath)
	if err != nil {
		return nil, "", err
	}
	pol.Grants.FilesystemPaths = []string{a.abs(dir)}
	if err := a.projects.SavePolicy(ctx, policyPath, pol); err != nil {
		return nil, "", err
	}

	return proj, dir, nil
}

// InspectProject loads and compiles a project without running it, so the CLI
// can report the document, the execution order, and any compile errors.
func (a *App) InspectProject(ctx context.Context, dir string) (*schema.Project, *compiler.Plan, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)

	proj, err := a.projects.LoadProject(ctx, dir)
	if err != nil {
		return nil, nil, err
	}
	if err := checkEngineVersion(proj.Engine.MinEngineVersion); err != nil {
		return proj, nil, err
	}

	plan, err := compiler.Compile(ctx, proj, a.registry)
	if err != nil {
		return proj, nil, err
	}
	return proj, plan, nil
}
