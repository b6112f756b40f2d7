// Package services assembles the per-run boundary a node executes against.
// Every external capability a node may touch — the AI API, secrets, assets,
// vault files, temp files, subprocesses, and the sandbox assertions guarding
// them — is reached through an explicit Boundary value built once per run.
// There is no ambient or process-global service state.
package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gridnote/studio/internal/aiclient"
	"github.com/gridnote/studio/internal/assets"
	"github.com/gridnote/studio/internal/cliexec"
	"github.com/gridnote/studio/internal/policy"
	"github.com/gridnote/studio/internal/vault"
)

// SecretStore resolves secret names to values.
type SecretStore interface {
	Get(name string) (string, bool)
}

// EnvSecrets resolves secrets from process environment variables, optionally
// under a prefix (Get("api_key") with prefix "STUDIO_" reads STUDIO_API_KEY).
type EnvSecrets struct {
	Prefix string
}

// Get implements SecretStore.
func (e EnvSecrets) Get(name string) (string, bool) {
	key := e.Prefix + strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
	return os.LookupEnv(key)
}

// Boundary is the service surface handed to nodes through their execution
// context. It is constructed once per run and shared by every node in it.
type Boundary struct {
	AI      aiclient.Client
	Secrets SecretStore
	Assets  *assets.Store
	Vault   vault.FS
	CLI     cliexec.Runner
	Sandbox *policy.Sandbox

	// VaultRoot is the absolute local path of the vault root, used to map
	// vault-relative paths onto sandbox-checked filesystem paths.
	VaultRoot string

	tempDir string
}

// AssertFilesystemPath delegates to the run's policy sandbox.
func (b *Boundary) AssertFilesystemPath(path string) error {
	return b.Sandbox.AssertFilesystemPath(path)
}

// AssertNetworkURL delegates to the run's policy sandbox.
func (b *Boundary) AssertNetworkURL(rawURL string) error {
	return b.Sandbox.AssertNetworkURL(rawURL)
}

// AssertCLIBinary delegates to the run's policy sandbox.
func (b *Boundary) AssertCLIBinary(binary string) error {
	return b.Sandbox.AssertCLIBinary(binary)
}

// ResolvePath maps a vault-relative path to an absolute local path. The
// result has not been sandbox-checked; callers assert it before use.
func (b *Boundary) ResolvePath(rel string) string {
	return filepath.Join(b.VaultRoot, filepath.FromSlash(rel))
}

// TempDir lazily creates one scratch directory for the run and returns it.
// CleanupTemp removes it when the run ends.
func (b *Boundary) TempDir() (string, error) {
	if b.tempDir != "" {
		return b.tempDir, nil
	}
	dir, err := os.MkdirTemp("", "studio-run-*")
	if err != nil {
		return "", fmt.Errorf("create run temp dir: %w", err)
	}
	b.tempDir = dir
	return dir, nil
}

// CleanupTemp removes the run's scratch directory, if one was created.
func (b *Boundary) CleanupTemp() {
	if b.tempDir != "" {
		_ = os.RemoveAll(b.tempDir)
		b.tempDir = ""
	}
}

// RunCLI executes a command through the boundary's runner. By convention the
// caller has already asserted the working directory and the binary.
func (b *Boundary) RunCLI(ctx context.Context, req cliexec.Request) (cliexec.Response, error) {
	return b.CLI.Run(ctx, req)
}
