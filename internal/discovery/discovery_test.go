package discovery

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/specialistvlad/artifactgen/internal/artifact"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mkfile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("usage: test\n"), 0o644))
}

func TestDiscover_MissingRoot(t *testing.T) {
	units, err := Discover(context.Background(), filepath.Join(t.TempDir(), "nope"), DefaultConvention)
	require.NoError(t, err)
	assert.Empty(t, units)
}

func TestDiscover_RootIsAFile(t *testing.T) {
	root := filepath.Join(t.TempDir(), "file")
	mkfile(t, root)

	units, err := Discover(context.Background(), root, DefaultConvention)
	require.NoError(t, err)
	assert.Empty(t, units)
}

func TestDiscover_ExcludesEmptyUnits(t *testing.T) {
	root := t.TempDir()
	mkfile(t, filepath.Join(root, "alpha", "actions", "zip", "two.yaml"))
	mkfile(t, filepath.Join(root, "alpha", "actions", "zip", "one.yaml"))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "beta", "actions", "zip"), 0o755))
	mkfile(t, filepath.Join(root, "gamma", "other", "x.yaml"))
	mkfile(t, filepath.Join(root, "delta", "actions", "zip", "notes.txt"))

	units, err := Discover(context.Background(), root, DefaultConvention)
	require.NoError(t, err)
	require.Len(t, units, 1)

	alpha := units[0]
	assert.Equal(t, "alpha", alpha.Name)
	assert.Equal(t, filepath.Join(root, "alpha", "actions", "zip"), alpha.SourceDirectory)
	assert.Equal(t, []string{
		filepath.Join(alpha.SourceDirectory, "one.yaml"),
		filepath.Join(alpha.SourceDirectory, "two.yaml"),
	}, alpha.FileSet)
}

func TestDiscover_FollowsSymlinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need elevated privileges on windows")
	}
	root := t.TempDir()
	mkfile(t, filepath.Join(root, "alpha", "real.yaml"))
	zipDir := filepath.Join(root, "alpha", "actions", "zip")
	require.NoError(t, os.MkdirAll(zipDir, 0o755))
	require.NoError(t, os.Symlink(filepath.Join("..", "..", "real.yaml"), filepath.Join(zipDir, "one.yaml")))

	elsewhere := t.TempDir()
	mkfile(t, filepath.Join(elsewhere, "actions", "zip", "b.yaml"))
	require.NoError(t, os.Symlink(elsewhere, filepath.Join(root, "beta")))

	units, err := Discover(context.Background(), root, DefaultConvention)
	require.NoError(t, err)
	require.Len(t, units, 2)
	assert.Equal(t, "alpha", units[0].Name)
	assert.Equal(t, []string{filepath.Join(zipDir, "one.yaml")}, units[0].FileSet)
	assert.Equal(t, "beta", units[1].Name)
	assert.Equal(t, []string{filepath.Join(root, "beta", "actions", "zip", "b.yaml")}, units[1].FileSet)
}

func TestDiscover_OrderedAndDeterministic(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"ssc", "fod", "generic_action", "config"} {
		mkfile(t, filepath.Join(root, name, "actions", "zip", "a.yaml"))
	}

	first, err := Discover(context.Background(), root, DefaultConvention)
	require.NoError(t, err)
	second, err := Discover(context.Background(), root, DefaultConvention)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	var names []string
	for _, u := range first {
		names = append(names, u.Name)
	}
	assert.Equal(t, []string{"config", "fod", "generic_action", "ssc"}, names)
}

func TestDiscover_CustomConvention(t *testing.T) {
	root := t.TempDir()
	mkfile(t, filepath.Join(root, "m1", "templates", "t.tmpl"))

	units, err := Discover(context.Background(), root, Convention{Subpath: "templates", Extension: ".tmpl"})
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Equal(t, "m1", units[0].Name)
}

func TestDiscover_RejectsIncompleteConvention(t *testing.T) {
	_, err := Discover(context.Background(), t.TempDir(), Convention{Subpath: "actions/zip"})
	var malformed *artifact.MalformedConfigurationError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, "convention", malformed.Field)
}
