package runner

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/gridnote/studio/internal/ports"
	"github.com/gridnote/studio/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// cacheKey derives the memo key for a by_inputs node. The key hashes a
// canonical JSON rendering of (kind, version, config, inputs): object keys
// are sorted, so two equivalent-but-differently-ordered configs produce the
// same key.
func cacheKey(def *registry.Definition, config, inputs map[string]cty.Value) (string, error) {
	configJSON, err := ports.CanonicalMapJSON(config)
	if err != nil {
		return "", fmt.Errorf("canonicalize config: %w", err)
	}
	inputsJSON, err := ports.CanonicalMapJSON(inputs)
	if err != nil {
		return "", fmt.Errorf("canonicalize inputs: %w", err)
	}

	h := sha256.New()
	fmt.Fprintf(h, "%s@%s\n", def.Kind, def.Version)
	h.Write(configJSON)
	h.Write([]byte{'\n'})
	h.Write(inputsJSON)
	return hex.EncodeToString(h.Sum(nil)), nil
}
