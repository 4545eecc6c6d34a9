// Package discovery finds source units by directory convention: every
// immediate child of a root that holds a conventional subdirectory with at
// least one qualifying file becomes a unit, without explicit enumeration.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/specialistvlad/artifactgen/internal/artifact"
	"github.com/specialistvlad/artifactgen/internal/ctxlog"
	"github.com/specialistvlad/artifactgen/internal/fsutil"
)

// Convention names the subpath expected under each child of the root and
// the extension a file must carry to qualify.
type Convention struct {
	Subpath   string
	Extension string
}

// DefaultConvention matches action definitions packaged into actions.zip.
var DefaultConvention = Convention{Subpath: "actions/zip", Extension: ".yaml"}

// SourceUnit is a discovered, named group of input files. It is computed
// fresh on every run and never mutated afterwards.
type SourceUnit struct {
	// Name is the name of the child directory the unit was found under.
	Name string
	// SourceDirectory is the absolute conventional directory.
	SourceDirectory string
	// FileSet lists the qualifying files, sorted.
	FileSet []string
}

// Discover scans root and returns the units it holds, ordered by name. A
// missing root yields an empty result and no error.
func Discover(ctx context.Context, root string, conv Convention) ([]SourceUnit, error) {
	logger := ctxlog.FromContext(ctx)
	if conv.Subpath == "" || conv.Extension == "" {
		return nil, &artifact.MalformedConfigurationError{Field: "convention", Reason: "subpath and extension are required"}
	}

	children, err := listChildren(root)
	if errors.Is(err, artifact.ErrMissingRoot) {
		logger.Debug("Discovery root not found, nothing to do.", "root", root)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var units []SourceUnit
	for _, name := range children {
		dir := filepath.Join(root, name, filepath.FromSlash(conv.Subpath))
		state, err := fsutil.Probe(dir, conv.Extension)
		if err != nil {
			return nil, fmt.Errorf("probing %s: %w", dir, err)
		}
		if state != fsutil.Populated {
			logger.Debug("Skipping candidate.", "candidate", name, "state", state.String())
			continue
		}
		files, err := fsutil.FilesWithExtension(dir, conv.Extension)
		if err != nil {
			return nil, fmt.Errorf("listing %s: %w", dir, err)
		}
		units = append(units, SourceUnit{Name: name, SourceDirectory: dir, FileSet: files})
	}

	logger.Debug("Discovery finished.", "root", root, "units", len(units))
	return units, nil
}

// listChildren returns the sorted names of the directories directly under
// root, symlinked ones included, or ErrMissingRoot.
func listChildren(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, artifact.ErrMissingRoot
		}
		var pathErr *fs.PathError
		if errors.As(err, &pathErr) {
			if info, statErr := os.Stat(root); statErr == nil && !info.IsDir() {
				return nil, artifact.ErrMissingRoot
			}
		}
		return nil, fmt.Errorf("reading discovery root %s: %w", root, err)
	}

	var names []string
	for _, entry := range entries {
		if fsutil.IsDir(filepath.Join(root, entry.Name()), entry) {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
