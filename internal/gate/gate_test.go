package gate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/specialistvlad/artifactgen/internal/artifact"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrite_CreatesParentsAndFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "META-INF", "native-image", "x", "resource-config.json")

	outcome, err := New().Write(context.Background(), path, []byte("{}"))
	require.NoError(t, err)
	assert.Equal(t, Written, outcome)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))
}

func TestWrite_IdempotentAcrossRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fcli-build.properties")
	content := []byte("projectName=fcli\n")

	_, err := New().Write(context.Background(), path, content)
	require.NoError(t, err)

	old := time.Now().Add(-time.Hour).Truncate(time.Second)
	require.NoError(t, os.Chtimes(path, old, old))

	outcome, err := New().Write(context.Background(), path, content)
	require.NoError(t, err)
	assert.Equal(t, Unchanged, outcome)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.True(t, info.ModTime().Equal(old), "unchanged content must not touch the file")
}

func TestWrite_RewritesChangedContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o644))

	outcome, err := New().Write(context.Background(), path, []byte("new"))
	require.NoError(t, err)
	assert.Equal(t, Written, outcome)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestWrite_ConflictWithinOneRun(t *testing.T) {
	g := New()
	path := filepath.Join(t.TempDir(), "actions.zip")

	_, err := g.Write(context.Background(), path, []byte("one"))
	require.NoError(t, err)

	outcome, err := g.Write(context.Background(), path, []byte("one"))
	require.NoError(t, err)
	assert.Equal(t, Unchanged, outcome, "same content twice in a run is not a conflict")

	_, err = g.Write(context.Background(), path, []byte("two"))
	var conflict *artifact.WriteConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, filepath.Clean(path), conflict.Path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "one", string(data), "a conflicting write must not reach the disk")
}

func TestWrite_ConcurrentSamePathAndDirectories(t *testing.T) {
	g := New()
	root := t.TempDir()
	var wg sync.WaitGroup

	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			shared := filepath.Join(root, "shared", "out.json")
			if _, err := g.Write(context.Background(), shared, []byte("same")); err != nil {
				t.Errorf("shared write: %v", err)
			}
			own := filepath.Join(root, "shared", fmt.Sprintf("unit-%d", i), "actions.zip")
			if _, err := g.Write(context.Background(), own, []byte(fmt.Sprint(i))); err != nil {
				t.Errorf("own write: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 33, g.Produced())
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "written", Written.String())
	assert.Equal(t, "unchanged", Unchanged.String())
}
