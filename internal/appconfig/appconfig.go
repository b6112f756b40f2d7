// Package appconfig loads the engine-level configuration file. The file is
// HCL; everything in it has a sensible default so a missing file is valid.
package appconfig

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// Config is the decoded engine configuration.
type Config struct {
	Log   LogConfig   `hcl:"log,block"`
	API   APIConfig   `hcl:"api,block"`
	Vault VaultConfig `hcl:"vault,block"`
}

// LogConfig controls the engine logger.
type LogConfig struct {
	Level  string `hcl:"level,optional"`
	Format string `hcl:"format,optional"`
}

// APIConfig points at the AI endpoint. The key itself is never stored in
// the file; APIKeyEnv names the environment variable that carries it.
type APIConfig struct {
	BaseURL   string `hcl:"base_url,optional"`
	APIKeyEnv string `hcl:"api_key_env,optional"`
}

// VaultConfig locates the vault on the local filesystem and the directory
// inside it that holds Studio projects.
type VaultConfig struct {
	Root        string `hcl:"root,optional"`
	ProjectsDir string `hcl:"projects_dir,optional"`
}

// fileConfig mirrors Config with every block optional, so a sparse file
// decodes cleanly.
type fileConfig struct {
	Log   *LogConfig   `hcl:"log,block"`
	API   *APIConfig   `hcl:"api,block"`
	Vault *VaultConfig `hcl:"vault,block"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		API: APIConfig{
			BaseURL:   "https://api.openai.com/v1",
			APIKeyEnv: "STUDIO_API_KEY",
		},
		Vault: VaultConfig{
			Root:        ".",
			ProjectsDir: "Studio",
		},
	}
}

// Load reads and decodes the config file at path, layering it over the
// defaults. A missing file yields the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parse config %s: %w", path, diags)
	}

	var decoded fileConfig
	if diags := gohcl.DecodeBody(file.Body, &hcl.EvalContext{}, &decoded); diags.HasErrors() {
		return nil, fmt.Errorf("decode config %s: %w", path, diags)
	}

	if decoded.Log != nil {
		if decoded.Log.Level != "" {
			cfg.Log.Level = decoded.Log.Level
		}
		if decoded.Log.Format != "" {
			cfg.Log.Format = decoded.Log.Format
		}
	}
	if decoded.API != nil {
		if decoded.API.BaseURL != "" {
			cfg.API.BaseURL = decoded.API.BaseURL
		}
		if decoded.API.APIKeyEnv != "" {
			cfg.API.APIKeyEnv = decoded.API.APIKeyEnv
		}
	}
	if decoded.Vault != nil {
		if decoded.Vault.Root != "" {
			cfg.Vault.Root = decoded.Vault.Root
		}
		if decoded.Vault.ProjectsDir != "" {
			cfg.Vault.ProjectsDir = decoded.Vault.ProjectsDir
		}
	}

	return cfg, nil
}
