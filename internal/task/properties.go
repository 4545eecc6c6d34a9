package task

import (
	"context"

	"github.com/specialistvlad/artifactgen/internal/artifact"
	"github.com/specialistvlad/artifactgen/internal/ctxlog"
	"github.com/specialistvlad/artifactgen/internal/gate"
	"github.com/specialistvlad/artifactgen/internal/manifest"
	"github.com/specialistvlad/artifactgen/internal/properties"
)

// BuildProperties writes a properties file and, when ResourceConfigPath is
// set, a companion resource-config.json that lists ResourcePattern.
type BuildProperties struct {
	Meta
	Path               string
	Entries            []properties.Entry
	ResourceConfigPath string
	ResourcePattern    string
	Gate               *gate.Gate
}

func (p *BuildProperties) Run(ctx context.Context) (Result, error) {
	ctx, logger := ctxlog.With(ctx, "task", p.Name)

	content, err := properties.Render(p.Entries)
	if err != nil {
		return Result{}, err
	}
	var companion []byte
	if p.ResourceConfigPath != "" {
		if p.ResourcePattern == "" {
			return Result{}, &artifact.MalformedConfigurationError{Field: "build_properties." + p.Name + ".resource_pattern", Reason: "required with resource_config"}
		}
		if companion, err = manifest.Render([]string{p.ResourcePattern}); err != nil {
			return Result{}, err
		}
		// The companion document is newline terminated, unlike generated manifests.
		companion = append(companion, '\n')
	}

	var res Result
	if err := write(ctx, p.Gate, &res, p.Path, content); err != nil {
		return Result{}, err
	}
	if companion != nil {
		if err := write(ctx, p.Gate, &res, p.ResourceConfigPath, companion); err != nil {
			return Result{}, err
		}
	}
	logger.Info("Build properties processed.", "path", p.Path, "keys", len(p.Entries), "written", res.Written())
	return res, nil
}
