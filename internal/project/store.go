// Package project persists Studio project documents and their permission
// policies through the vault adapter, with schema migration on load and
// atomic unique-path allocation for new projects.
package project

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"

	"github.com/gridnote/studio/internal/ctxlog"
	"github.com/gridnote/studio/internal/schema"
	"github.com/gridnote/studio/internal/vault"
)

// File names inside a project directory.
const (
	ProjectFileName  = "project.json"
	PolicyFileName   = "permissions.json"
	ManifestFileName = "assets/manifest.json"
)

// maxPathAttempts bounds the numeric-suffix scan during path allocation.
const maxPathAttempts = 100

// Store reads and writes project documents through a vault adapter. Paths
// are vault-relative.
type Store struct {
	fs vault.FS
}

// NewStore returns a store over the given vault.
func NewStore(fs vault.FS) *Store {
	return &Store{fs: fs}
}

// CreateOptions configures a new project.
type CreateOptions struct {
	// BaseDir is the vault directory new projects are created under.
	BaseDir string
	// Name is the project's display name and preferred directory name.
	Name string
	// APIMode selects the project's AI API mode.
	APIMode string
	// GrantPaths seeds the default policy's filesystem grants.
	GrantPaths []string
}

// CreateProject allocates a non-colliding project directory, writes a fresh
// project document, a default permission policy, and the asset manifest, and
// returns the document and its vault-relative directory.
func (s *Store) CreateProject(ctx context.Context, opts CreateOptions) (*schema.Project, string, error) {
	logger := ctxlog.FromContext(ctx)

	dir, err := s.allocatePath(ctx, opts.BaseDir, opts.Name)
	if err != nil {
		return nil, "", err
	}

	for _, sub := range []string{"", "assets", "runs", "cache"} {
		if err := s.fs.MkdirAll(ctx, path.Join(dir, sub)); err != nil {
			return nil, "", err
		}
	}

	now := time.Now().UTC()
	proj := &schema.Project{
		Schema:    schema.ProjectSchemaV1,
		ProjectID: uuid.NewString(),
		Name:      opts.Name,
		CreatedAt: now,
		UpdatedAt: now,
		Engine: schema.Engine{
			APIMode:          opts.APIMode,
			MinEngineVersion: "1.0.0",
		},
		Graph: schema.Graph{
			Nodes:        []schema.Node{},
			Edges:        []schema.Edge{},
			EntryNodeIDs: []string{},
		},
		PermissionsRef: schema.PermissionsRef{
			PolicyVersion: 1,
			PolicyPath:    PolicyFileName,
		},
		Settings: schema.Settings{
			RunConcurrency: schema.ConcurrencySequential,
			DefaultFsScope: dir,
			Retention: schema.Retention{
				MaxRuns:        50,
				MaxArtifactsMB: 512,
			},
		},
		Migrations: schema.Migrations{
			ProjectSchemaVersion: currentSchemaVersion,
			Applied:              []string{schema.ProjectSchemaV1},
		},
	}

	if err := s.SaveProject(ctx, dir, proj); err != nil {
		return nil, "", err
	}
	if err := s.SavePolicy(ctx, path.Join(dir, PolicyFileName), defaultPolicy(opts.GrantPaths)); err != nil {
		return nil, "", err
	}

	manifest := schema.AssetManifest{
		Schema:    "studio.assets.v1",
		ProjectID: proj.ProjectID,
		CreatedAt: now,
	}
	manifestJSON, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, "", fmt.Errorf("encode asset manifest: %w", err)
	}
	if err := s.fs.WriteFile(ctx, path.Join(dir, ManifestFileName), manifestJSON); err != nil {
		return nil, "", err
	}

	logger.Info("Created project.", "projectId", proj.ProjectID, "dir", dir)
	return proj, dir, nil
}

// allocatePath finds a free directory under baseDir: the preferred name
// first, then "name 2", "name 3", ... up to a fixed bound. Exceeding the
// bound is a fatal allocation error.
func (s *Store) allocatePath(ctx context.Context, baseDir, name string) (string, error) {
	for attempt := 1; attempt <= maxPathAttempts; attempt++ {
		candidate := path.Join(baseDir, name)
		if attempt > 1 {
			candidate = path.Join(baseDir, fmt.Sprintf("%s %d", name, attempt))
		}
		exists, err := s.fs.Exists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("could not allocate a project path for %q under %q after %d attempts", name, baseDir, maxPathAttempts)
}

// LoadProject reads the project document in dir, migrating it in place when
// its schema tag is stale. A missing policy document is synthesized with
// defaults so permissionsRef always resolves.
func (s *Store) LoadProject(ctx context.Context, dir string) (*schema.Project, error) {
	logger := ctxlog.FromContext(ctx)
	docPath := path.Join(dir, ProjectFileName)

	raw, err := s.fs.ReadFile(ctx, docPath)
	if err != nil {
		return nil, err
	}

	proj, didMigrate, err := Migrate(raw)
	if err != nil {
		return nil, fmt.Errorf("load project %s: %w", docPath, err)
	}
	if didMigrate {
		// Back up the original bytes first; the re-save is a separate step
		// and forward migration has no rollback path.
		backupPath := fmt.Sprintf("%s.bak-%s", docPath, time.Now().UTC().Format("20060102T150405Z"))
		if err := s.fs.WriteFile(ctx, backupPath, raw); err != nil {
			return nil, fmt.Errorf("write migration backup: %w", err)
		}
		if err := s.SaveProject(ctx, dir, proj); err != nil {
			return nil, fmt.Errorf("save migrated project: %w", err)
		}
		logger.Info("Migrated project document.", "dir", dir, "backup", backupPath)
	}

	policyPath := path.Join(dir, proj.PermissionsRef.PolicyPath)
	exists, err := s.fs.Exists(ctx, policyPath)
	if err != nil {
		return nil, err
	}
	if !exists {
		logger.Warn("Policy document missing, synthesizing default.", "path", policyPath)
		if err := s.SavePolicy(ctx, policyPath, defaultPolicy(nil)); err != nil {
			return nil, fmt.Errorf("synthesize default policy: %w", err)
		}
	}

	return proj, nil
}

// SaveProject writes the project document with a fresh updatedAt stamp.
func (s *Store) SaveProject(ctx context.Context, dir string, proj *schema.Project) error {
	proj.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(proj, "", "  ")
	if err != nil {
		return fmt.Errorf("encode project document: %w", err)
	}
	return s.fs.WriteFile(ctx, path.Join(dir, ProjectFileName), data)
}

// LoadPolicy reads a policy document.
func (s *Store) LoadPolicy(ctx context.Context, policyPath string) (*schema.Policy, error) {
	raw, err := s.fs.ReadFile(ctx, policyPath)
	if err != nil {
		return nil, err
	}
	var pol schema.Policy
	if err := json.Unmarshal(raw, &pol); err != nil {
		return nil, fmt.Errorf("decode policy %s: %w", policyPath, err)
	}
	return &pol, nil
}

// SavePolicy writes a policy document with a fresh updatedAt stamp.
func (s *Store) SavePolicy(ctx context.Context, policyPath string, pol *schema.Policy) error {
	pol.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(pol, "", "  ")
	if err != nil {
		return fmt.Errorf("encode policy document: %w", err)
	}
	return s.fs.WriteFile(ctx, policyPath, data)
}

// defaultPolicy is the policy a fresh or repaired project starts with: no
// network or CLI grants, filesystem access only where explicitly seeded.
func defaultPolicy(grantPaths []string) *schema.Policy {
	if grantPaths == nil {
		grantPaths = []string{}
	}
	return &schema.Policy{
		Schema:        schema.PolicySchemaV1,
		PolicyVersion: 1,
		Grants: schema.Grants{
			FilesystemPaths: grantPaths,
			NetworkHosts:    []string{},
			CLIBinaries:     []string{},
		},
	}
}
