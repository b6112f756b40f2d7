// Package schema defines the persisted document shapes for Studio projects:
// the project document, its graph, the permission policy, asset references,
// and the dataset cache file. These structs are the wire format; behavior
// lives in the compiler, runner, and project store.
package schema

import "time"

// ProjectSchemaV1 is the schema tag carried by current project documents.
const ProjectSchemaV1 = "studio.project.v1"

// PolicySchemaV1 is the schema tag carried by current policy documents.
const PolicySchemaV1 = "studio.policy.v1"

// DatasetCacheSchemaV1 is the schema tag of per-node dataset cache files.
const DatasetCacheSchemaV1 = "studio.dataset-cache.v1"

// Project is the root document persisted for a Studio project.
type Project struct {
	Schema         string         `json:"schema"`
	ProjectID      string         `json:"projectId"`
	Name           string         `json:"name"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
	Engine         Engine         `json:"engine"`
	Graph          Graph          `json:"graph"`
	PermissionsRef PermissionsRef `json:"permissionsRef"`
	Settings       Settings       `json:"settings"`
	Migrations     Migrations     `json:"migrations"`
}

// Engine records which API mode the project targets and the minimum engine
// version it is compatible with.
type Engine struct {
	APIMode          string `json:"apiMode"`
	MinEngineVersion string `json:"minPluginVersion"`
}

// Graph is the declared workflow graph: node instances, edges, and the ids
// of entry nodes.
type Graph struct {
	Nodes        []Node   `json:"nodes"`
	Edges        []Edge   `json:"edges"`
	EntryNodeIDs []string `json:"entryNodeIds"`
}

// Node is one declared node instance in a graph. Position is layout only
// and never affects behavior.
type Node struct {
	ID       string         `json:"id"`
	Kind     string         `json:"kind"`
	Version  string         `json:"version"`
	Title    string         `json:"title"`
	Position Position       `json:"position"`
	Config   map[string]any `json:"config"`
}

// Position is the node's canvas placement.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Edge connects an output port on one node to an input port on another.
type Edge struct {
	ID         string `json:"id"`
	FromNodeID string `json:"fromNodeId"`
	FromPortID string `json:"fromPortId"`
	ToNodeID   string `json:"toNodeId"`
	ToPortID   string `json:"toPortId"`
}

// PermissionsRef pairs a project with its policy document.
type PermissionsRef struct {
	PolicyVersion int    `json:"policyVersion"`
	PolicyPath    string `json:"policyPath"`
}

// Settings holds per-project run behavior knobs.
type Settings struct {
	RunConcurrency string    `json:"runConcurrency"`
	DefaultFsScope string    `json:"defaultFsScope"`
	Retention      Retention `json:"retention"`
}

// Run concurrency modes accepted in Settings.RunConcurrency.
const (
	ConcurrencySequential = "sequential"
	ConcurrencyAdaptive   = "adaptive"
)

// Retention caps how much run history a project keeps.
type Retention struct {
	MaxRuns        int `json:"maxRuns"`
	MaxArtifactsMB int `json:"maxArtifactsMb"`
}

// Migrations records the schema version history applied to this document.
type Migrations struct {
	ProjectSchemaVersion int      `json:"projectSchemaVersion"`
	Applied              []string `json:"applied"`
}

// Policy is the permission policy document consulted by the sandbox. It
// evolves independently of the project document but is always paired 1:1
// with it.
type Policy struct {
	Schema        string    `json:"schema"`
	PolicyVersion int       `json:"policyVersion"`
	UpdatedAt     time.Time `json:"updatedAt"`
	Grants        Grants    `json:"grants"`
}

// Grants enumerates what the policy allows during execution.
type Grants struct {
	// FilesystemPaths are absolute path prefixes nodes may read or write.
	FilesystemPaths []string `json:"filesystemPaths"`
	// NetworkHosts are hostnames nodes may reach. A leading "*." grants a
	// whole subdomain tree.
	NetworkHosts []string `json:"networkHosts"`
	// CLIBinaries are command names or absolute paths nodes may execute.
	CLIBinaries []string `json:"cliBinaries"`
}

// AssetRef is a content-addressed pointer to binary data in the project's
// asset directory. Once created it is immutable.
type AssetRef struct {
	Hash      string `json:"hash"`
	MimeType  string `json:"mimeType"`
	SizeBytes int64  `json:"sizeBytes"`
	Path      string `json:"path"`
}

// AssetManifest stamps the asset directory with its owning project.
type AssetManifest struct {
	Schema    string    `json:"schema"`
	ProjectID string    `json:"projectId"`
	CreatedAt time.Time `json:"createdAt"`
}

// DatasetCache is the on-disk cache file written by a dataset node, one per
// node instance. A hit requires an exact match on the identity fields and a
// GeneratedAt within the node's refresh window.
type DatasetCache struct {
	Schema           string    `json:"schema"`
	NodeID           string    `json:"nodeId"`
	WorkingDirectory string    `json:"workingDirectory"`
	Query            string    `json:"query"`
	AdapterCommand   string    `json:"adapterCommand"`
	AdapterArgs      []string  `json:"adapterArgs"`
	RefreshHours     float64   `json:"refreshHours"`
	GeneratedAt      time.Time `json:"generatedAt"`
	Stdout           string    `json:"stdout"`
	Stderr           string    `json:"stderr"`
	ExitCode         int       `json:"exitCode"`
	TimedOut         bool      `json:"timedOut"`
}
