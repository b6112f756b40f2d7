package testutil

import (
	"fmt"
	"time"

	"github.com/gridnote/studio/internal/assets"
	"github.com/gridnote/studio/internal/policy"
	"github.com/gridnote/studio/internal/schema"
	"github.com/gridnote/studio/internal/services"
	"github.com/gridnote/studio/internal/vault"
)

// Node builds a graph node with the default version.
func Node(id, kind string, config map[string]any) schema.Node {
	if config == nil {
		config = map[string]any{}
	}
	return schema.Node{
		ID:      id,
		Kind:    kind,
		Version: "1.0.0",
		Config:  config,
	}
}

// Edge builds an edge with a derived id.
func Edge(fromNode, fromPort, toNode, toPort string) schema.Edge {
	return schema.Edge{
		ID:         fmt.Sprintf("%s.%s->%s.%s", fromNode, fromPort, toNode, toPort),
		FromNodeID: fromNode,
		FromPortID: fromPort,
		ToNodeID:   toNode,
		ToPortID:   toPort,
	}
}

// Project wraps nodes and edges into a minimal valid project document.
func Project(nodes []schema.Node, edges []schema.Edge) *schema.Project {
	now := time.Now().UTC()
	return &schema.Project{
		Schema:    schema.ProjectSchemaV1,
		ProjectID: "test-project",
		Name:      "test",
		CreatedAt: now,
		UpdatedAt: now,
		Graph: schema.Graph{
			Nodes: nodes,
			Edges: edges,
		},
		Settings: schema.Settings{
			RunConcurrency: schema.ConcurrencySequential,
		},
	}
}

// GrantAll returns a policy granting the given directory, localhost-ish
// hosts, and common test binaries.
func GrantAll(dir string) *schema.Policy {
	return &schema.Policy{
		Schema:        schema.PolicySchemaV1,
		PolicyVersion: 1,
		Grants: schema.Grants{
			FilesystemPaths: []string{dir},
			NetworkHosts:    []string{"localhost", "127.0.0.1", "example.com", "*.example.com"},
			CLIBinaries:     []string{"echo", "sh", "true", "false", "ffmpeg", "adapter"},
		},
	}
}

// NewBoundary builds a service boundary rooted at dir with fake AI and CLI
// doubles. Callers adjust fields for what they exercise.
func NewBoundary(dir string, pol *schema.Policy) *services.Boundary {
	if pol == nil {
		pol = GrantAll(dir)
	}
	return &services.Boundary{
		AI:        &FakeAI{},
		Secrets:   services.EnvSecrets{},
		Assets:    assets.NewStore(dir),
		Vault:     vault.NewOSFS(dir),
		CLI:       &FakeCLI{},
		Sandbox:   policy.NewSandbox(pol),
		VaultRoot: dir,
	}
}
