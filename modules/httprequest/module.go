// Package httprequest provides the arbitrary HTTP fetch node. Every request
// URL must pass the network capability check before the request is made.
package httprequest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gridnote/studio/internal/ctxlog"
	"github.com/gridnote/studio/internal/ports"
	"github.com/gridnote/studio/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// maxResponseBytes caps how much of a response body is captured.
const maxResponseBytes = 16 << 20

// Module implements registry.Module for this package.
type Module struct{}

func execute(ctx context.Context, ec *registry.ExecContext) (*registry.Result, error) {
	url, err := ec.RequireString("url")
	if err != nil {
		return nil, err
	}
	if err := ec.Services.AssertNetworkURL(url); err != nil {
		return nil, err
	}

	method := strings.ToUpper(ec.String("method", http.MethodGet))
	var body io.Reader
	if payload := ec.String("body", ""); payload != "" {
		body = strings.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if headers, ok := ec.Config["headers"]; ok && !headers.IsNull() && headers.Type().IsObjectType() {
		for it := headers.ElementIterator(); it.Next(); {
			k, v := it.Element()
			if v.Type() == cty.String {
				req.Header.Set(k.AsString(), v.AsString())
			}
		}
	}

	// Tokens come from the secret store, never from the project document.
	if secretName := ec.String("authTokenSecret", ""); secretName != "" {
		token, ok := ec.Services.Secrets.Get(secretName)
		if !ok {
			return nil, fmt.Errorf("secret %q is not set", secretName)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := &http.Client{Timeout: time.Duration(ec.Number("timeoutMs", 30_000)) * time.Millisecond}
	ctxlog.FromContext(ctx).Debug("Fetching URL.", "method", method, "url", url)
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	outputs := map[string]cty.Value{
		"status": cty.NumberIntVal(int64(resp.StatusCode)),
		"body":   cty.StringVal(string(data)),
		"json":   cty.NullVal(cty.DynamicPseudoType),
	}
	var decoded any
	if json.Unmarshal(data, &decoded) == nil {
		if v, convErr := ports.FromGo(decoded); convErr == nil {
			outputs["json"] = v
		}
	}

	return &registry.Result{Outputs: outputs}, nil
}

// Register registers the HTTP request node definition.
func (m *Module) Register(r *registry.Registry) {
	r.Register(&registry.Definition{
		Kind:        "http-request",
		Version:     "1.0.0",
		Description: "Performs an HTTP request against a policy-granted host.",
		Capability:  registry.CapabilityAPI,
		Cache:       registry.CacheNever,
		Inputs: []ports.Port{
			{ID: "url", Type: ports.TypeText},
			{ID: "body", Type: ports.TypeText},
		},
		Outputs: []ports.Port{
			{ID: "status", Type: ports.TypeNumber},
			{ID: "body", Type: ports.TypeText},
			{ID: "json", Type: ports.TypeJSON},
		},
		ConfigFields: []registry.ConfigField{
			{Name: "url", Type: ports.TypeText, Description: "Request URL when the port is unwired."},
			{Name: "method", Type: ports.TypeText, Description: "HTTP method, default GET."},
			{Name: "headers", Type: ports.TypeJSON, Description: "Request headers as an object."},
			{Name: "authTokenSecret", Type: ports.TypeText, Description: "Secret name resolved to a bearer token."},
			{Name: "timeoutMs", Type: ports.TypeNumber, Description: "Request timeout in milliseconds."},
		},
		Execute: execute,
	})
}
