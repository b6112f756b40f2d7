package project

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gridnote/studio/internal/schema"
)

// currentSchemaVersion is the project schema version this engine writes.
const currentSchemaVersion = 1

// legacySchemaV0 is the tag written by pre-release engines. Those documents
// predate the settings and migrations blocks.
const legacySchemaV0 = "studio.project.v0"

// Migrate decodes a raw project document, upgrading it to the current schema
// when needed. It returns the current-form document and whether a migration
// was applied; callers own the backup-write and re-save steps.
func Migrate(raw []byte) (*schema.Project, bool, error) {
	var probe struct {
		Schema string `json:"schema"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, false, fmt.Errorf("decode document: %w", err)
	}

	switch probe.Schema {
	case schema.ProjectSchemaV1:
		var proj schema.Project
		if err := json.Unmarshal(raw, &proj); err != nil {
			return nil, false, fmt.Errorf("decode v1 document: %w", err)
		}
		return &proj, false, nil

	case legacySchemaV0, "":
		proj, err := migrateV0(raw)
		if err != nil {
			return nil, false, err
		}
		return proj, true, nil

	default:
		return nil, false, fmt.Errorf("document schema %q is newer than this engine understands", probe.Schema)
	}
}

// projectV0 is the legacy document shape: same graph, but no settings,
// migrations, or policy version.
type projectV0 struct {
	Schema     string       `json:"schema"`
	ProjectID  string       `json:"projectId"`
	Name       string       `json:"name"`
	CreatedAt  time.Time    `json:"createdAt"`
	UpdatedAt  time.Time    `json:"updatedAt"`
	APIMode    string       `json:"apiMode"`
	Graph      schema.Graph `json:"graph"`
	PolicyPath string       `json:"policyPath"`
}

func migrateV0(raw []byte) (*schema.Project, error) {
	var old projectV0
	if err := json.Unmarshal(raw, &old); err != nil {
		return nil, fmt.Errorf("decode v0 document: %w", err)
	}

	policyPath := old.PolicyPath
	if policyPath == "" {
		policyPath = PolicyFileName
	}
	if old.Graph.Nodes == nil {
		old.Graph.Nodes = []schema.Node{}
	}
	if old.Graph.Edges == nil {
		old.Graph.Edges = []schema.Edge{}
	}
	if old.Graph.EntryNodeIDs == nil {
		old.Graph.EntryNodeIDs = []string{}
	}

	return &schema.Project{
		Schema:    schema.ProjectSchemaV1,
		ProjectID: old.ProjectID,
		Name:      old.Name,
		CreatedAt: old.CreatedAt,
		UpdatedAt: old.UpdatedAt,
		Engine: schema.Engine{
			APIMode:          old.APIMode,
			MinEngineVersion: "1.0.0",
		},
		Graph: old.Graph,
		PermissionsRef: schema.PermissionsRef{
			PolicyVersion: 1,
			PolicyPath:    policyPath,
		},
		Settings: schema.Settings{
			RunConcurrency: schema.ConcurrencySequential,
			Retention: schema.Retention{
				MaxRuns:        50,
				MaxArtifactsMB: 512,
			},
		},
		Migrations: schema.Migrations{
			ProjectSchemaVersion: currentSchemaVersion,
			Applied:              []string{legacySchemaV0, schema.ProjectSchemaV1},
		},
	}, nil
}
