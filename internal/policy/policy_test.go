package policy

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridnote/studio/internal/schema"
)

func sandbox(grants schema.Grants) *Sandbox {
	return NewSandbox(&schema.Policy{
		Schema:        schema.PolicySchemaV1,
		PolicyVersion: 1,
		Grants:        grants,
	})
}

func TestAssertFilesystemPath(t *testing.T) {
	t.Parallel()

	s := sandbox(schema.Grants{FilesystemPaths: []string{"/vault/projects/demo"}})

	testCases := []struct {
		name    string
		path    string
		allowed bool
	}{
		{name: "granted root itself", path: "/vault/projects/demo", allowed: true},
		{name: "file below grant", path: "/vault/projects/demo/assets/a.png", allowed: true},
		{name: "sibling directory", path: "/vault/projects/other", allowed: false},
		{name: "prefix without separator boundary", path: "/vault/projects/demo-evil", allowed: false},
		{name: "traversal out of the grant", path: "/vault/projects/demo/../other/file", allowed: false},
		{name: "relative path", path: "projects/demo/file", allowed: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := s.AssertFilesystemPath(tc.path)
			if tc.allowed {
				assert.NoError(t, err)
			} else {
				var denied *DeniedError
				require.ErrorAs(t, err, &denied)
				assert.Equal(t, "filesystem path", denied.Capability)
			}
		})
	}
}

func TestAssertNetworkURL(t *testing.T) {
	t.Parallel()

	s := sandbox(schema.Grants{NetworkHosts: []string{"api.example.com", "*.cdn.example.com"}})

	testCases := []struct {
		name    string
		url     string
		allowed bool
	}{
		{name: "exact host", url: "https://api.example.com/v1/things", allowed: true},
		{name: "exact host over http", url: "http://api.example.com/", allowed: true},
		{name: "wildcard subdomain", url: "https://img.cdn.example.com/a.png", allowed: true},
		{name: "deep wildcard subdomain", url: "https://a.b.cdn.example.com/x", allowed: true},
		{name: "wildcard does not cover the apex", url: "https://cdn.example.com/x", allowed: false},
		{name: "ungranted host", url: "https://evil.example.org/", allowed: false},
		{name: "non-http scheme", url: "ftp://api.example.com/file", allowed: false},
		{name: "unparseable", url: "://nope", allowed: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := s.AssertNetworkURL(tc.url)
			if tc.allowed {
				assert.NoError(t, err)
			} else {
				var denied *DeniedError
				require.ErrorAs(t, err, &denied)
			}
		})
	}
}

func TestAssertCLIBinary(t *testing.T) {
	t.Parallel()

	s := sandbox(schema.Grants{CLIBinaries: []string{"ffmpeg", "/opt/tools/convert"}})

	// A bare-name grant covers the command wherever it resolves from.
	assert.NoError(t, s.AssertCLIBinary("ffmpeg"))
	assert.NoError(t, s.AssertCLIBinary("/usr/bin/ffmpeg"))

	// A path grant covers that exact path only, not same-named binaries
	// elsewhere or the bare name.
	assert.NoError(t, s.AssertCLIBinary("/opt/tools/convert"))
	assert.Error(t, s.AssertCLIBinary("convert"))
	assert.Error(t, s.AssertCLIBinary("/home/attacker/convert"))

	err := s.AssertCLIBinary("rm")
	var denied *DeniedError
	require.True(t, errors.As(err, &denied))
	assert.Equal(t, "rm", denied.Target)
}

func TestEmptyPolicyDeniesEverything(t *testing.T) {
	t.Parallel()

	s := sandbox(schema.Grants{})

	assert.Error(t, s.AssertFilesystemPath("/anything"))
	assert.Error(t, s.AssertNetworkURL("https://example.com"))
	assert.Error(t, s.AssertCLIBinary("echo"))
}
