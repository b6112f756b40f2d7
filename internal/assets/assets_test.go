package assets

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_ContentAddressing(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store := NewStore(dir)
	ctx := context.Background()
	data := []byte("the same bytes")

	first, err := store.Store(ctx, data, "text/plain")
	require.NoError(t, err)
	second, err := store.Store(ctx, data, "text/plain")
	require.NoError(t, err)

	// Identical content yields the identical reference; the second store is
	// a no-op.
	assert.Equal(t, first, second)
	assert.Equal(t, int64(len(data)), first.SizeBytes)

	// Sharded layout: assets/<hh>/<hash><ext>.
	assert.True(t, strings.HasPrefix(first.Path, "assets/"+first.Hash[:2]+"/"), "path %q not sharded by hash prefix", first.Path)
	assert.True(t, strings.HasSuffix(first.Path, ".txt"))

	entries, err := os.ReadDir(filepath.Join(dir, "assets", first.Hash[:2]))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestStore_MimeTypeParticipatesInDigest(t *testing.T) {
	t.Parallel()

	data := []byte("ambiguous bytes")
	asText := Digest(data, "text/plain")
	asJSON := Digest(data, "application/json")
	assert.NotEqual(t, asText, asJSON)
}

func TestStore_ReadRoundTrip(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())
	ctx := context.Background()
	data := []byte{0x89, 0x50, 0x4e, 0x47}

	ref, err := store.Store(ctx, data, "image/png")
	require.NoError(t, err)
	assert.Equal(t, "image/png", ref.MimeType)
	assert.True(t, strings.HasSuffix(ref.Path, ".png"))

	back, err := store.Read(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, data, back)
}

func TestStore_ReadMissingAsset(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())
	ref, err := store.Store(context.Background(), []byte("x"), "text/plain")
	require.NoError(t, err)

	ref.Path = "assets/zz/doesnotexist.txt"
	_, err = store.Read(context.Background(), ref)
	require.Error(t, err)
}
