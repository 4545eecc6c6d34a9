// Package fsutil provides file system utility functions shared by the
// discovery and builder stages.
package fsutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DirState is the tri-state answer to "does this conventional directory
// hold anything worth building?".
type DirState int

const (
	// NotFound means the path does not exist or is not a directory.
	NotFound DirState = iota
	// Empty means the directory exists but holds no qualifying file.
	Empty
	// Populated means at least one qualifying file exists directly inside.
	Populated
)

func (s DirState) String() string {
	switch s {
	case NotFound:
		return "not-found"
	case Empty:
		return "empty"
	case Populated:
		return "populated"
	default:
		return fmt.Sprintf("DirState(%d)", int(s))
	}
}

// Probe classifies dir by whether it directly contains a regular file
// ending with extension.
func Probe(dir, extension string) (DirState, error) {
	files, err := FilesWithExtension(dir, extension)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return NotFound, nil
		}
		return NotFound, err
	}
	if len(files) == 0 {
		return Empty, nil
	}
	return Populated, nil
}

// FilesWithExtension lists the regular files directly inside dir whose name
// ends with extension, sorted lexicographically. It returns an error
// wrapping fs.ErrNotExist when dir is missing or is not a directory.
func FilesWithExtension(dir, extension string) ([]string, error) {
	if extension == "" {
		panic("extension must not be empty")
	}

	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory: %w", dir, fs.ErrNotExist)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if !strings.HasSuffix(entry.Name(), extension) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if !IsRegularFile(path, entry) {
			continue
		}
		files = append(files, path)
	}
	sort.Strings(files)
	return files, nil
}

// IsRegularFile reports whether entry is a regular file, following a
// symlink to its target. Dangling links are not files.
func IsRegularFile(path string, entry fs.DirEntry) bool {
	if entry.Type().IsRegular() {
		return true
	}
	if entry.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// IsDir reports whether entry is a directory, following a symlink to its
// target.
func IsDir(path string, entry fs.DirEntry) bool {
	if entry.IsDir() {
		return true
	}
	if entry.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// WalkFiles recursively collects every regular file under base and returns
// their paths relative to base, forward-slash separated and sorted.
// Symlinked files are included; symlinked directories are not descended
// into. A missing base yields no files.
func WalkFiles(base string) ([]string, error) {
	var rels []string
	err := filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == base && errors.Is(err, fs.ErrNotExist) {
				return fs.SkipAll
			}
			return err
		}
		if d.IsDir() || !IsRegularFile(path, d) {
			return nil
		}
		rel, err := RelSlash(base, path)
		if err != nil {
			return err
		}
		rels = append(rels, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(rels)
	return rels, nil
}

// RelSlash returns target relative to base using forward slashes regardless
// of the host separator.
func RelSlash(base, target string) (string, error) {
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}
