package resources

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oneclick_bridge/contract"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("png"), 0o644))
}

func TestParseManifest(t *testing.T) {
	catalog, err := ParseManifest(strings.NewReader(`
drawable:
  logo: res/drawable/logo.png
mipmap:
  ic_launcher: res/mipmap/ic_launcher.png
`))
	require.NoError(t, err)

	id, ok := catalog.Lookup("logo", "drawable")
	assert.True(t, ok)
	assert.Equal(t, contract.ResourceID("res/drawable/logo.png"), id)

	_, ok = catalog.Lookup("logo", "mipmap")
	assert.False(t, ok)
	assert.Equal(t, []string{"drawable", "mipmap"}, catalog.Buckets())
}

func TestParseManifestEmptyAndInvalid(t *testing.T) {
	catalog, err := ParseManifest(strings.NewReader(""))
	require.NoError(t, err)
	_, ok := catalog.Lookup("logo", "drawable")
	assert.False(t, ok)

	_, err = ParseManifest(strings.NewReader("drawable: [1, 2"))
	assert.Error(t, err)
}

func TestDirectoryLookup(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "drawable", "logo.png"))
	writeFile(t, filepath.Join(root, "mipmap-xxhdpi", "ic_launcher.webp"))
	writeFile(t, filepath.Join(root, "drawableextra", "other.png"))

	dir := Directory{Root: root}

	id, ok := dir.Lookup("logo", "drawable")
	require.True(t, ok)
	assert.Equal(t, contract.ResourceID("drawable/logo.png"), id)

	id, ok = dir.Lookup("ic_launcher", "mipmap")
	require.True(t, ok)
	assert.Equal(t, contract.ResourceID("mipmap-xxhdpi/ic_launcher.webp"), id)

	_, ok = dir.Lookup("other", "drawable")
	assert.False(t, ok, "bucket prefix must be followed by a qualifier")

	_, ok = dir.Lookup("../drawable/logo", "drawable")
	assert.False(t, ok)
	_, ok = dir.Lookup("*", "drawable")
	assert.False(t, ok)
}

type countingLookup struct {
	calls int
}

func (c *countingLookup) Lookup(name, bucket string) (contract.ResourceID, bool) {
	c.calls++
	if name == "logo" {
		return contract.ResourceID(bucket + "/" + name), true
	}
	return "", false
}

func TestCachedMemoizesHitsOnly(t *testing.T) {
	next := &countingLookup{}
	cached, err := NewCached(next, 0)
	require.NoError(t, err)

	for range 3 {
		id, ok := cached.Lookup("logo", "drawable")
		assert.True(t, ok)
		assert.Equal(t, contract.ResourceID("drawable/logo"), id)
		_, ok = cached.Lookup("missing", "drawable")
		assert.False(t, ok)
	}
	assert.Equal(t, 4, next.calls, "one call for the hit, one per miss")

	cached.Purge()
	cached.Lookup("logo", "drawable")
	assert.Equal(t, 5, next.calls)
}

func TestLoadedDirectoryFindsResourcesAddedLater(t *testing.T) {
	root := t.TempDir()
	lookup, err := Load(root, 8)
	require.NoError(t, err)

	_, ok := lookup.Lookup("logo", "drawable")
	require.False(t, ok)

	writeFile(t, filepath.Join(root, "drawable", "logo.png"))
	id, ok := lookup.Lookup("logo", "drawable")
	assert.True(t, ok)
	assert.Equal(t, contract.ResourceID("drawable/logo.png"), id)
}

func TestLoad(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "res", "drawable", "logo.png"))
	manifest := filepath.Join(root, "resources.yaml")
	require.NoError(t, os.WriteFile(manifest, []byte("mipmap:\n  logo: m/logo.png\n"), 0o644))

	fromDir, err := Load(filepath.Join(root, "res"), 8)
	require.NoError(t, err)
	_, ok := fromDir.Lookup("logo", "drawable")
	assert.True(t, ok)

	fromFile, err := Load(manifest, 8)
	require.NoError(t, err)
	id, ok := fromFile.Lookup("logo", "mipmap")
	assert.True(t, ok)
	assert.Equal(t, contract.ResourceID("m/logo.png"), id)

	_, err = Load(filepath.Join(root, "missing"), 8)
	assert.Error(t, err)
}
