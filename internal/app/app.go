// Package app wires the engine together: configuration, logging, the
// built-in node registry, the project store, and the run pipeline with its
// ledger bookkeeping. The CLI in cmd/studio is a thin shell over this
// package.
package app

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gridnote/studio/internal/appconfig"
	"github.com/gridnote/studio/internal/project"
	"github.com/gridnote/studio/internal/registry"
	"github.com/gridnote/studio/internal/vault"
)

// EngineVersion is compared against each project's minEngineVersion gate.
const EngineVersion = "1.0.0"

// App holds the wired engine.
type App struct {
	cfg       *appconfig.Config
	logger    *slog.Logger
	registry  *registry.Registry
	vaultFS   *vault.OSFS
	projects  *project.Store
	vaultRoot string
}

// New loads the configuration file at configPath (missing file means
// defaults), builds the logger, and registers the built-in node set.
func New(configPath string, logOut io.Writer) (*App, error) {
	cfg, err := appconfig.Load(configPath)
	if err != nil {
		return nil, err
	}

	vaultRoot, err := filepath.Abs(cfg.Vault.Root)
	if err != nil {
		return nil, fmt.Errorf("resolve vault root %q: %w", cfg.Vault.Root, err)
	}

	reg := registry.New()
	for _, m := range BuiltinModules() {
		m.Register(reg)
	}

	vfs := vault.NewOSFS(vaultRoot)
	return &App{
		cfg:       cfg,
		logger:    newLogger(cfg.Log.Level, cfg.Log.Format, logOut),
		registry:  reg,
		vaultFS:   vfs,
		projects:  project.NewStore(vfs),
		vaultRoot: vaultRoot,
	}, nil
}

// abs resolves a vault-relative directory to an absolute local path.
func (a *App) abs(dir string) string {
	return a.vaultFS.Abs(dir)
}

// checkEngineVersion rejects projects that require a newer engine.
func checkEngineVersion(minVersion string) error {
	if minVersion == "" {
		return nil
	}
	if versionLess(EngineVersion, minVersion) {
		return fmt.Errorf("project requires engine %s or newer, this engine is %s", minVersion, EngineVersion)
	}
	return nil
}

// versionLess compares dotted numeric versions segment by segment.
func versionLess(a, b string) bool {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")
	for i := 0; i < len(as) || i < len(bs); i++ {
		var an, bn int
		if i < len(as) {
			an, _ = strconv.Atoi(as[i])
		}
		if i < len(bs) {
			bn, _ = strconv.Atoi(bs[i])
		}
		if an != bn {
			return an < bn
		}
	}
	return false
}
