// Package gate implements the change-detection gate every generated file is
// written through. A file is rewritten only when its content actually
// changes, so consumers relying on modification times never see spurious
// updates.
//
// A Gate is scoped to one pipeline run. Besides the on-disk comparison it
// keeps a ledger of what the run already produced for each path, which is
// how two steps computing different content for the same output are
// detected.
package gate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/specialistvlad/artifactgen/internal/artifact"
	"github.com/specialistvlad/artifactgen/internal/ctxlog"
	"github.com/zeebo/blake3"
)

// Outcome tells the caller whether the gate touched the file.
type Outcome int

const (
	Unchanged Outcome = iota
	Written
)

func (o Outcome) String() string {
	if o == Written {
		return "written"
	}
	return "unchanged"
}

type digest [32]byte

// Gate serializes read-compare-write per target path. Writes to different
// paths proceed concurrently.
type Gate struct {
	locks sync.Map // cleaned path -> *sync.Mutex

	mu     sync.Mutex
	ledger map[string]digest
}

// New returns a Gate with an empty run ledger.
func New() *Gate {
	return &Gate{ledger: make(map[string]digest)}
}

// Write persists content at path unless the file already holds exactly
// these bytes. Parent directories are created on demand.
func (g *Gate) Write(ctx context.Context, path string, content []byte) (Outcome, error) {
	logger := ctxlog.FromContext(ctx)
	path = filepath.Clean(path)

	lock := g.lockFor(path)
	lock.Lock()
	defer lock.Unlock()

	sum := digest(blake3.Sum256(content))
	if err := g.record(path, sum); err != nil {
		return Unchanged, err
	}

	existing, err := os.ReadFile(path)
	switch {
	case err == nil:
		if bytes.Equal(existing, content) {
			logger.Debug("Output unchanged, skipping write.", "path", path)
			return Unchanged, nil
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return Unchanged, fmt.Errorf("reading existing output %s: %w", path, err)
	}

	if err := writeAtomic(path, content); err != nil {
		return Unchanged, err
	}
	logger.Debug("Output written.", "path", path, "bytes", len(content))
	return Written, nil
}

// Produced returns the number of distinct paths the run wrote or confirmed.
func (g *Gate) Produced() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.ledger)
}

func (g *Gate) lockFor(path string) *sync.Mutex {
	actual, _ := g.locks.LoadOrStore(path, &sync.Mutex{})
	return actual.(*sync.Mutex)
}

// record remembers sum for path and rejects a different sum for a path the
// run already produced.
func (g *Gate) record(path string, sum digest) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if previous, ok := g.ledger[path]; ok && previous != sum {
		return &artifact.WriteConflictError{Path: path}
	}
	g.ledger[path] = sum
	return nil
}

// writeAtomic writes to a temporary sibling and renames it into place.
func writeAtomic(path string, content []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temporary file for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("closing %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return fmt.Errorf("setting permissions on %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}
