package appconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.hcl"))
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, "https://api.openai.com/v1", cfg.API.BaseURL)
	assert.Equal(t, "STUDIO_API_KEY", cfg.API.APIKeyEnv)
	assert.Equal(t, "Studio", cfg.Vault.ProjectsDir)
}

func TestLoad_LayersFileOverDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "studio.hcl")
	require.NoError(t, os.WriteFile(path, []byte(`
log {
  level = "debug"
}

api {
  base_url = "http://localhost:8080/v1"
}
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format, "unset fields keep their defaults")
	assert.Equal(t, "http://localhost:8080/v1", cfg.API.BaseURL)
	assert.Equal(t, "STUDIO_API_KEY", cfg.API.APIKeyEnv)
}

func TestLoad_FullFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "studio.hcl")
	require.NoError(t, os.WriteFile(path, []byte(`
log {
  level  = "warn"
  format = "json"
}

api {
  base_url    = "https://proxy.internal/v1"
  api_key_env = "MY_KEY"
}

vault {
  root         = "/data/vault"
  projects_dir = "Workflows"
}
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "https://proxy.internal/v1", cfg.API.BaseURL)
	assert.Equal(t, "MY_KEY", cfg.API.APIKeyEnv)
	assert.Equal(t, "/data/vault", cfg.Vault.Root)
	assert.Equal(t, "Workflows", cfg.Vault.ProjectsDir)
}

func TestLoad_MalformedFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "studio.hcl")
	require.NoError(t, os.WriteFile(path, []byte(`log { level = `), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}
