// Package audioextract provides the audio extraction node: it pulls the
// audio track out of a local media file with ffmpeg and stores the result
// as a content-addressed asset.
package audioextract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gridnote/studio/internal/cliexec"
	"github.com/gridnote/studio/internal/ctxlog"
	"github.com/gridnote/studio/internal/ports"
	"github.com/gridnote/studio/internal/registry"
	"github.com/gridnote/studio/internal/schema"
	"github.com/zclconf/go-cty/cty"
)

// maxInputBytes bounds how much extracted audio the node will load back.
const maxInputBytes = 256 << 20

// Module implements registry.Module for this package.
type Module struct{}

func execute(ctx context.Context, ec *registry.ExecContext) (*registry.Result, error) {
	logger := ctxlog.FromContext(ctx)

	mediaPath, err := ec.RequireString("path")
	if err != nil {
		return nil, err
	}
	format := ec.String("format", "wav")

	srcAbs := ec.Services.ResolvePath(mediaPath)
	if err := ec.Services.AssertFilesystemPath(srcAbs); err != nil {
		return nil, err
	}
	if err := ec.Services.AssertCLIBinary("ffmpeg"); err != nil {
		return nil, err
	}

	tempDir, err := ec.Services.TempDir()
	if err != nil {
		return nil, err
	}
	outPath := filepath.Join(tempDir, fmt.Sprintf("extract-%s.%s", ec.Node.ID, format))

	resp, err := ec.Services.RunCLI(ctx, cliexec.Request{
		Command:   "ffmpeg",
		Args:      []string{"-y", "-i", srcAbs, "-vn", outPath},
		Cwd:       tempDir,
		TimeoutMs: int(ec.Number("timeoutMs", 300_000)),
	})
	if err != nil {
		return nil, err
	}
	if resp.TimedOut {
		return nil, fmt.Errorf("audio extraction timed out")
	}
	if err := resp.ExitError("ffmpeg"); err != nil {
		return nil, err
	}

	info, err := os.Stat(outPath)
	if err != nil {
		return nil, fmt.Errorf("extracted audio missing: %w", err)
	}
	if info.Size() > maxInputBytes {
		return nil, fmt.Errorf("extracted audio is %d bytes, over the %d byte limit", info.Size(), int64(maxInputBytes))
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("read extracted audio: %w", err)
	}

	ref, err := ec.Services.Assets.Store(ctx, data, mimeFor(format))
	if err != nil {
		return nil, err
	}
	logger.Debug("Extracted audio track.", "source", mediaPath, "sizeBytes", ref.SizeBytes)

	return &registry.Result{
		Outputs:   map[string]cty.Value{"audio": registry.AssetRefValue(ref)},
		Artifacts: []schema.AssetRef{ref},
	}, nil
}

func mimeFor(format string) string {
	switch format {
	case "mp3":
		return "audio/mpeg"
	default:
		return "audio/wav"
	}
}

// Register registers the audio extraction node definition.
func (m *Module) Register(r *registry.Registry) {
	r.Register(&registry.Definition{
		Kind:        "audio-extract",
		Version:     "1.0.0",
		Description: "Extracts the audio track from a local media file via ffmpeg.",
		Capability:  registry.CapabilityLocalIO,
		Cache:       registry.CacheNever,
		Inputs: []ports.Port{
			{ID: "path", Type: ports.TypeText, Required: true},
		},
		Outputs: []ports.Port{
			{ID: "audio", Type: ports.TypeJSON},
		},
		ConfigFields: []registry.ConfigField{
			{Name: "path", Type: ports.TypeText, Description: "Default vault-relative media path when the port is unwired."},
			{Name: "format", Type: ports.TypeText, Description: "Target audio format, wav or mp3."},
			{Name: "timeoutMs", Type: ports.TypeNumber, Description: "Extraction timeout in milliseconds."},
		},
		Execute: execute,
	})
}
