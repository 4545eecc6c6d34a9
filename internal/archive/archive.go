// Package archive builds the archive variant of derived artifacts: a
// source unit's files, transformed line by line, packaged into one zip at
// a deterministic path with byte-stable content.
package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/specialistvlad/artifactgen/internal/artifact"
	"github.com/specialistvlad/artifactgen/internal/ctxlog"
	"github.com/specialistvlad/artifactgen/internal/discovery"
	"github.com/specialistvlad/artifactgen/internal/transform"
	"gopkg.in/yaml.v3"
)

// DefaultArchiveName is used when a unit does not override it.
const DefaultArchiveName = "actions.zip"

// entryTime is stamped on every entry so identical inputs always produce
// identical archives.
var entryTime = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

// Builder packages source units. It holds no per-unit state and may be
// shared by concurrent tasks.
type Builder struct {
	// Destination is the root all archives are placed under.
	Destination string
	// Prefix is inserted between Destination and the unit name.
	Prefix string
	// ArchiveName defaults to DefaultArchiveName.
	ArchiveName string
	// Rule is applied to every line of every file.
	Rule transform.Rule
	// ValidateYAML rejects transformed files that are not valid YAML.
	ValidateYAML bool
}

// Spec returns the artifact spec the builder derives for unit.
func (b *Builder) Spec(unit discovery.SourceUnit) artifact.Spec {
	name := b.ArchiveName
	if name == "" {
		name = DefaultArchiveName
	}
	return artifact.Spec{
		OutputPath:  filepath.Join(b.Destination, filepath.FromSlash(b.Prefix), unit.Name, name),
		ArchiveName: name,
		Description: fmt.Sprintf("Package %s files of %s into %s", filepath.Base(unit.SourceDirectory), unit.Name, name),
	}
}

// Build reads the unit's files and returns the zip payload. A source
// directory or file that disappeared since discovery yields a
// MissingInputError rather than an empty archive.
func (b *Builder) Build(ctx context.Context, unit discovery.SourceUnit) (*artifact.Payload, error) {
	logger := ctxlog.FromContext(ctx)
	spec := b.Spec(unit)

	info, err := os.Stat(unit.SourceDirectory)
	if err != nil || !info.IsDir() {
		return nil, &artifact.MissingInputError{Unit: unit.Name, Path: unit.SourceDirectory}
	}
	if len(unit.FileSet) == 0 {
		return nil, &artifact.MissingInputError{Unit: unit.Name, Path: unit.SourceDirectory}
	}

	rule := b.Rule
	if rule == nil {
		rule = transform.Identity
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	entries := make([]string, 0, len(unit.FileSet))
	for _, path := range unit.FileSet {
		raw, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, &artifact.MissingInputError{Unit: unit.Name, Path: path}
			}
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		content := transform.Lines(raw, rule)
		if b.ValidateYAML {
			if err := validateYAML(content); err != nil {
				return nil, &artifact.InvalidInputError{Path: path, Err: err}
			}
		}

		name, err := filepath.Rel(unit.SourceDirectory, path)
		if err != nil {
			return nil, fmt.Errorf("entry name for %s: %w", path, err)
		}
		name = filepath.ToSlash(name)
		if err := addEntry(zw, name, content); err != nil {
			return nil, fmt.Errorf("adding %s to %s: %w", name, spec.ArchiveName, err)
		}
		entries = append(entries, name)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finalizing %s: %w", spec.OutputPath, err)
	}

	logger.Debug("Archive payload built.", "unit", unit.Name, "entries", len(entries), "bytes", buf.Len())
	return &artifact.Payload{Path: spec.OutputPath, Content: buf.Bytes(), Entries: entries}, nil
}

func addEntry(zw *zip.Writer, name string, content []byte) error {
	header := &zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: entryTime,
	}
	header.SetMode(0o644)
	w, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}
	_, err = w.Write(content)
	return err
}

// validateYAML decodes every document in content.
func validateYAML(content []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(content))
	for {
		var node yaml.Node
		err := dec.Decode(&node)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
