// Package policy enforces a project's permission policy document. The
// sandbox is a thin check layer over the policy data: every service call a
// node makes that touches a filesystem path, remote URL, or external binary
// must first pass through the corresponding assertion.
package policy

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/gridnote/studio/internal/schema"
)

// DeniedError reports that the policy does not cover a requested capability.
type DeniedError struct {
	Capability string
	Target     string
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("capability denied: %s %q is not covered by the project's permission policy", e.Capability, e.Target)
}

// Sandbox answers capability questions for one loaded policy document.
type Sandbox struct {
	grants schema.Grants
}

// NewSandbox builds a sandbox over the given policy document.
func NewSandbox(p *schema.Policy) *Sandbox {
	return &Sandbox{grants: p.Grants}
}

// AssertFilesystemPath returns nil when path falls under one of the granted
// path prefixes. Path must be absolute; relative paths are rejected outright
// so callers cannot smuggle traversal through the working directory.
func (s *Sandbox) AssertFilesystemPath(path string) error {
	if !filepath.IsAbs(path) {
		return &DeniedError{Capability: "filesystem path", Target: path}
	}
	cleaned := filepath.Clean(path)
	for _, grant := range s.grants.FilesystemPaths {
		if grant == "" {
			continue
		}
		prefix := filepath.Clean(grant)
		if cleaned == prefix || strings.HasPrefix(cleaned, prefix+string(filepath.Separator)) {
			return nil
		}
	}
	return &DeniedError{Capability: "filesystem path", Target: path}
}

// AssertNetworkURL returns nil when the URL is http(s) and its hostname is
// covered by a granted host. A "*.example.com" grant covers any subdomain of
// example.com but not example.com itself.
func (s *Sandbox) AssertNetworkURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Hostname() == "" {
		return &DeniedError{Capability: "network url", Target: rawURL}
	}
	host := strings.ToLower(u.Hostname())
	for _, grant := range s.grants.NetworkHosts {
		g := strings.ToLower(strings.TrimSpace(grant))
		if g == "" {
			continue
		}
		if sub, ok := strings.CutPrefix(g, "*."); ok {
			if strings.HasSuffix(host, "."+sub) {
				return nil
			}
			continue
		}
		if host == g {
			return nil
		}
	}
	return &DeniedError{Capability: "network url", Target: rawURL}
}

// AssertCLIBinary returns nil when the binary is granted. A path grant
// matches that exact path only; a bare-name grant matches the command by
// name wherever it resolves from.
func (s *Sandbox) AssertCLIBinary(binary string) error {
	for _, grant := range s.grants.CLIBinaries {
		if grant == "" {
			continue
		}
		if filepath.IsAbs(grant) {
			if binary == grant {
				return nil
			}
			continue
		}
		if binary == grant || filepath.Base(binary) == grant {
			return nil
		}
	}
	return &DeniedError{Capability: "cli binary", Target: binary}
}
