package hcl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/artifactgen/internal/config"
	"github.com/specialistvlad/artifactgen/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
)

// Loader is the HCL implementation of config.Loader.
type Loader struct {
	// ProjectDir anchors relative paths. Empty means the directory of the
	// first configuration path.
	ProjectDir string
	// Now supplies the build time when the build block sets none.
	Now func() time.Time
}

var _ config.Loader = (*Loader)(nil)

// NewLoader creates an HCL loader for projectDir.
func NewLoader(projectDir string) *Loader {
	return &Loader{ProjectDir: projectDir, Now: time.Now}
}

// Load parses all .hcl files under paths and returns the model.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	files, err := findAllHCLFiles(paths)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .hcl configuration found in %v", paths)
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	projectDir, err := l.projectDir(paths[0])
	if err != nil {
		return nil, err
	}

	parser := hclparse.NewParser()
	var buildBlocks, blocks hcl.Blocks
	for _, file := range files {
		f, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}
		content, diags := f.Body.Content(fileSchema)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}
		for _, block := range content.Blocks {
			if block.Type == "build" {
				buildBlocks = append(buildBlocks, block)
			} else {
				blocks = append(blocks, block)
			}
		}
	}

	build, err := l.decodeBuild(buildBlocks)
	if err != nil {
		return nil, err
	}

	model := &config.Model{ProjectDir: projectDir, Build: build}
	t := newTranslator(projectDir, newEvalContext(build, projectDir), model)
	if diags := t.translate(blocks); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode configuration: %w", diags)
	}
	for _, b := range t.refs.order {
		if n := len(*t.refs.blocks[b].refs); n > 0 {
			logger.Debug("Linked implicit dependencies.", "block", b.String(), "count", n)
		}
	}

	logger.Debug("HCL loading complete.",
		"version", build.Version,
		"action_zips", len(model.ActionZips),
		"resource_configs", len(model.ResourceConfigs),
		"build_properties", len(model.BuildProperties),
		"copies", len(model.Copies),
		"execs", len(model.Execs))
	return model, nil
}

func (l *Loader) decodeBuild(blocks hcl.Blocks) (config.Build, error) {
	now := l.Now
	if now == nil {
		now = time.Now
	}

	block, diags := findUniqueBlock(blocks, "build")
	if diags.HasErrors() {
		return config.Build{}, fmt.Errorf("invalid build block: %w", diags)
	}
	var raw buildBlock
	if block != nil {
		if diags := gohcl.DecodeBody(block.Body, &hcl.EvalContext{Functions: functions()}, &raw); diags.HasErrors() {
			return config.Build{}, fmt.Errorf("failed to decode build block: %w", diags)
		}
	}

	at := now()
	if raw.Time != nil && *raw.Time != "" {
		parsed, err := time.Parse(time.RFC3339, *raw.Time)
		if err != nil {
			return config.Build{}, fmt.Errorf("build.time: %w", err)
		}
		at = parsed
	}

	return config.Build{
		ProjectName:   raw.ProjectName,
		Version:       config.ResolveVersion(raw.Version, at),
		SchemaVersion: raw.SchemaVersion,
		Time:          at,
	}, nil
}

func (l *Loader) projectDir(first string) (string, error) {
	dir := l.ProjectDir
	if dir == "" {
		dir = first
		if info, err := os.Stat(first); err == nil && !info.IsDir() {
			dir = filepath.Dir(first)
		}
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving project directory %s: %w", dir, err)
	}
	return abs, nil
}

func newEvalContext(b config.Build, projectDir string) *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"project_name":   cty.StringVal(b.ProjectName),
			"version":        cty.StringVal(b.Version),
			"schema_version": cty.StringVal(b.SchemaVersion),
			"build_date":     cty.StringVal(b.Date()),
			"build_time":     cty.StringVal(b.Time.Format(time.RFC3339)),
			"project_dir":    cty.StringVal(filepath.ToSlash(projectDir)),
		},
		Functions: functions(),
	}
}

// findAllHCLFiles walks all given paths and returns a flat list of all .hcl
// files found. Paths that do not exist are skipped.
func findAllHCLFiles(paths []string) ([]string, error) {
	var allFiles []string
	seen := make(map[string]struct{})
	add := func(p string) {
		if _, ok := seen[p]; !ok {
			allFiles = append(allFiles, p)
			seen[p] = struct{}{}
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}

		if !info.IsDir() {
			if filepath.Ext(path) == ".hcl" {
				add(path)
			}
			continue
		}
		err = filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && filepath.Ext(p) == ".hcl" {
				add(p)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return allFiles, nil
}
