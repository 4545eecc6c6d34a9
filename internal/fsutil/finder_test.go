package fsutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestProbe(t *testing.T) {
	root := t.TempDir()

	state, err := Probe(filepath.Join(root, "missing"), ".yaml")
	require.NoError(t, err)
	assert.Equal(t, NotFound, state)

	empty := filepath.Join(root, "empty")
	require.NoError(t, os.MkdirAll(empty, 0o755))
	writeFile(t, filepath.Join(empty, "README.md"), "not an action")
	state, err = Probe(empty, ".yaml")
	require.NoError(t, err)
	assert.Equal(t, Empty, state)

	populated := filepath.Join(root, "populated")
	writeFile(t, filepath.Join(populated, "one.yaml"), "a: 1")
	state, err = Probe(populated, ".yaml")
	require.NoError(t, err)
	assert.Equal(t, Populated, state)

	file := filepath.Join(root, "plain.yaml")
	writeFile(t, file, "a: 1")
	state, err = Probe(file, ".yaml")
	require.NoError(t, err)
	assert.Equal(t, NotFound, state, "a regular file is not a conventional directory")
}

func TestProbe_IgnoresNestedFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "zip")
	writeFile(t, filepath.Join(dir, "nested", "deep.yaml"), "a: 1")

	state, err := Probe(dir, ".yaml")
	require.NoError(t, err)
	assert.Equal(t, Empty, state)
}

func TestFilesWithExtension_Sorted(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"c.yaml", "b.yaml", "a.yaml", "skip.yml"} {
		writeFile(t, filepath.Join(dir, name), name)
	}

	files, err := FilesWithExtension(dir, ".yaml")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.yaml"),
		filepath.Join(dir, "b.yaml"),
		filepath.Join(dir, "c.yaml"),
	}, files)
}

func TestWalkFiles(t *testing.T) {
	base := t.TempDir()
	writeFile(t, filepath.Join(base, "z.txt"), "z")
	writeFile(t, filepath.Join(base, "com", "fortify", "b.yaml"), "b")
	writeFile(t, filepath.Join(base, "com", "a.yaml"), "a")

	rels, err := WalkFiles(base)
	require.NoError(t, err)
	assert.Equal(t, []string{"com/a.yaml", "com/fortify/b.yaml", "z.txt"}, rels)
}

func skipWithoutSymlinks(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need elevated privileges on windows")
	}
}

func TestFilesWithExtension_FollowsSymlinkedFiles(t *testing.T) {
	skipWithoutSymlinks(t)
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "real.yaml"), "usage: real\n")
	dir := filepath.Join(root, "actions", "zip")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.Symlink(filepath.Join("..", "..", "real.yaml"), filepath.Join(dir, "one.yaml")))
	require.NoError(t, os.Symlink(filepath.Join(root, "missing.yaml"), filepath.Join(dir, "dangling.yaml")))
	require.NoError(t, os.Symlink(root, filepath.Join(dir, "loop.yaml")))

	files, err := FilesWithExtension(dir, ".yaml")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "one.yaml")}, files)

	state, err := Probe(dir, ".yaml")
	require.NoError(t, err)
	assert.Equal(t, Populated, state)
}

func TestWalkFiles_FollowsSymlinkedFiles(t *testing.T) {
	skipWithoutSymlinks(t)
	outside := t.TempDir()
	writeFile(t, filepath.Join(outside, "real.yaml"), "r")
	base := t.TempDir()
	writeFile(t, filepath.Join(base, "com", "a.yaml"), "a")
	require.NoError(t, os.Symlink(filepath.Join(outside, "real.yaml"), filepath.Join(base, "com", "linked.yaml")))
	require.NoError(t, os.Symlink(outside, filepath.Join(base, "linkdir")))

	rels, err := WalkFiles(base)
	require.NoError(t, err)
	assert.Equal(t, []string{"com/a.yaml", "com/linked.yaml"}, rels)
}

func TestWalkFiles_MissingBase(t *testing.T) {
	rels, err := WalkFiles(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Empty(t, rels)
}

func TestDirStateString(t *testing.T) {
	assert.Equal(t, "not-found", NotFound.String())
	assert.Equal(t, "empty", Empty.String())
	assert.Equal(t, "populated", Populated.String())
}
