// Package assets implements content-addressable binary storage for a
// project. The on-disk path is a pure function of the content digest, so
// storing identical content twice is a no-op and concurrent writers of the
// same bytes are safe to race without locking.
package assets

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gridnote/studio/internal/ctxlog"
	"github.com/gridnote/studio/internal/schema"
)

// DirName is the asset directory inside a project.
const DirName = "assets"

// Store reads and writes content-addressed assets under a project directory.
type Store struct {
	projectDir string
}

// NewStore returns a store rooted at the given project directory. Asset
// paths in refs are recorded relative to that directory.
func NewStore(projectDir string) *Store {
	return &Store{projectDir: projectDir}
}

// Digest computes the content hash for a (bytes, mimeType) pair. The mime
// type participates in the digest so the same bytes under two mime types
// yield two distinct assets.
func Digest(data []byte, mimeType string) string {
	h := sha256.New()
	fmt.Fprintf(h, "mime:%s\n", mimeType)
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Store writes the bytes under their content-addressed path unless that
// path already exists, and returns the asset reference either way.
func (s *Store) Store(ctx context.Context, data []byte, mimeType string) (schema.AssetRef, error) {
	hash := Digest(data, mimeType)
	relPath := filepath.Join(DirName, hash[:2], hash+extensionFor(mimeType))
	absPath := filepath.Join(s.projectDir, relPath)

	ref := schema.AssetRef{
		Hash:      hash,
		MimeType:  mimeType,
		SizeBytes: int64(len(data)),
		Path:      filepath.ToSlash(relPath),
	}

	if _, err := os.Stat(absPath); err == nil {
		ctxlog.FromContext(ctx).Debug("Asset already stored, skipping write.", "hash", hash)
		return ref, nil
	} else if !os.IsNotExist(err) {
		return schema.AssetRef{}, fmt.Errorf("stat asset %s: %w", relPath, err)
	}

	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return schema.AssetRef{}, fmt.Errorf("create asset shard dir: %w", err)
	}

	// Write to a temp file first so a concurrent reader never observes a
	// partial asset; the final rename is atomic on POSIX filesystems.
	tmp, err := os.CreateTemp(filepath.Dir(absPath), "."+hash+".tmp-*")
	if err != nil {
		return schema.AssetRef{}, fmt.Errorf("create temp asset file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return schema.AssetRef{}, fmt.Errorf("write asset bytes: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return schema.AssetRef{}, fmt.Errorf("close temp asset file: %w", err)
	}
	if err := os.Rename(tmpName, absPath); err != nil {
		_ = os.Remove(tmpName)
		return schema.AssetRef{}, fmt.Errorf("finalize asset %s: %w", relPath, err)
	}

	ctxlog.FromContext(ctx).Debug("Stored asset.", "hash", hash, "sizeBytes", ref.SizeBytes, "mimeType", mimeType)
	return ref, nil
}

// Read returns the bytes an asset reference points to.
func (s *Store) Read(ctx context.Context, ref schema.AssetRef) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.projectDir, filepath.FromSlash(ref.Path)))
	if err != nil {
		return nil, fmt.Errorf("read asset %s: %w", ref.Hash, err)
	}
	return data, nil
}

// extensionFor picks a file extension for a mime type so asset directories
// stay browsable. Unknown types fall back to .bin.
func extensionFor(mimeType string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "audio/wav", "audio/x-wav":
		return ".wav"
	case "audio/mpeg":
		return ".mp3"
	case "application/json":
		return ".json"
	case "text/plain":
		return ".txt"
	default:
		return ".bin"
	}
}
