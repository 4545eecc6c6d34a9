// Package manifest builds native-image resource-config manifests: every
// file found under a set of base directories is rendered as a pattern
// entry of a single JSON document with the fixed shape
//
//	{"resources":[
//	  {"pattern":"<relative/path>"},
//	  ...
//	]}
package manifest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/specialistvlad/artifactgen/internal/artifact"
	"github.com/specialistvlad/artifactgen/internal/ctxlog"
	"github.com/specialistvlad/artifactgen/internal/fsutil"
)

// FileName is the name of every generated manifest.
const FileName = "resource-config.json"

// DefaultResourceExcludes keeps i18n bundles, metadata and the raw sources
// of archived subtrees out of the manifest built over project resources.
var DefaultResourceExcludes = []string{"**/i18n/**", "META-INF/**", "**/zip/**"}

// Source is one base directory with its include and exclude globs.
// Globs use doublestar syntax and are matched against the forward-slash
// path relative to Base. An empty Include matches everything.
type Source struct {
	Base    string
	Include []string
	Exclude []string
}

// OutputPath returns where the manifest for a logical generator name is
// stored under outputDir.
func OutputPath(outputDir, namespace, name string) string {
	return filepath.Join(outputDir, "META-INF", "native-image", namespace, name, FileName)
}

// Builder collects entries from its sources.
type Builder struct {
	Sources []Source
	Output  string
}

// Build returns the manifest payload, or nil when no entries were found.
// A nil payload means no file is to be written at all. A base that exists
// but is not a directory is a configuration error; a missing one
// contributes nothing.
func (b *Builder) Build(ctx context.Context) (*artifact.Payload, error) {
	logger := ctxlog.FromContext(ctx)

	seen := make(map[string]struct{})
	var patterns []string
	for _, src := range b.Sources {
		if info, err := os.Stat(src.Base); err == nil && !info.IsDir() {
			return nil, &artifact.MalformedConfigurationError{
				Field:  "source",
				Reason: fmt.Sprintf("base %s is not a directory", src.Base),
			}
		}
		rels, err := fsutil.WalkFiles(src.Base)
		if err != nil {
			return nil, fmt.Errorf("scanning %s: %w", src.Base, err)
		}
		for _, rel := range rels {
			ok, err := src.matches(rel)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			if _, dup := seen[rel]; dup {
				continue
			}
			seen[rel] = struct{}{}
			patterns = append(patterns, rel)
		}
		logger.Debug("Manifest source scanned.", "base", src.Base, "files", len(rels))
	}

	if len(patterns) == 0 {
		logger.Debug("Manifest has no entries, nothing to write.", "output", b.Output)
		return nil, nil
	}

	sort.Strings(patterns)
	content, err := Render(patterns)
	if err != nil {
		return nil, err
	}
	return &artifact.Payload{Path: b.Output, Content: content, Entries: patterns}, nil
}

func (s Source) matches(rel string) (bool, error) {
	included := len(s.Include) == 0
	for _, pattern := range s.Include {
		ok, err := doublestar.Match(pattern, rel)
		if err != nil {
			return false, fmt.Errorf("include pattern %q: %w", pattern, err)
		}
		if ok {
			included = true
			break
		}
	}
	if !included {
		return false, nil
	}
	for _, pattern := range s.Exclude {
		ok, err := doublestar.Match(pattern, rel)
		if err != nil {
			return false, fmt.Errorf("exclude pattern %q: %w", pattern, err)
		}
		if ok {
			return false, nil
		}
	}
	return true, nil
}

// Render produces the manifest document for the given patterns, in the
// order given.
func Render(patterns []string) ([]byte, error) {
	entries := make([]string, 0, len(patterns))
	for _, p := range patterns {
		quoted, err := quote(p)
		if err != nil {
			return nil, err
		}
		entries = append(entries, "\n  {\"pattern\":"+quoted+"}")
	}
	return []byte("{\"resources\":[" + strings.Join(entries, ",") + "\n]}"), nil
}

func quote(s string) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return "", fmt.Errorf("encoding pattern %q: %w", s, err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
