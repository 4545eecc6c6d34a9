package task

import (
	"context"
	"fmt"
	"regexp"

	"github.com/specialistvlad/artifactgen/internal/archive"
	"github.com/specialistvlad/artifactgen/internal/artifact"
	"github.com/specialistvlad/artifactgen/internal/ctxlog"
	"github.com/specialistvlad/artifactgen/internal/discovery"
	"github.com/specialistvlad/artifactgen/internal/gate"
	"github.com/specialistvlad/artifactgen/internal/transform"
)

// Well-known aggregator groups.
const (
	GroupZipResources     = "generateZipResources"
	GroupBuildTimeActions = "buildTimeActions"
	GroupDist             = "dist"
)

var schemaVersionPattern = regexp.MustCompile(`^[0-9A-Za-z][0-9A-Za-z._-]*$`)

// ZipName returns the task name for a unit. A single discovered unit keeps
// the short name; several units are told apart by unit name.
func ZipName(unit string, discovered int) string {
	if discovered == 1 {
		return "zipResources_actions"
	}
	return "zipResources_" + unit
}

// Zip packages one discovered unit into its archive.
type Zip struct {
	Meta
	Unit    discovery.SourceUnit
	Builder *archive.Builder
	Gate    *gate.Gate

	// Version and SchemaVersion are validated before any work starts.
	Version       string
	SchemaVersion string
	// RewritesSchema is set when Builder.Rule needs SchemaVersion.
	RewritesSchema bool
}

func (z *Zip) Run(ctx context.Context) (Result, error) {
	ctx, logger := ctxlog.With(ctx, "task", z.Name, "unit", z.Unit.Name)
	if err := z.Validate(); err != nil {
		return Result{}, err
	}

	payload, err := z.Builder.Build(ctx, z.Unit)
	if err != nil {
		return Result{}, err
	}

	var res Result
	if err := write(ctx, z.Gate, &res, payload.Path, payload.Content); err != nil {
		return Result{}, err
	}
	logger.Info("Action archive processed.", "path", payload.Path, "entries", len(payload.Entries), "outcome", res.Outputs[0].Outcome.String())
	return res, nil
}

// Validate checks the version values the archive depends on.
func (z *Zip) Validate() error {
	if z.Version == "" {
		return &artifact.MalformedConfigurationError{Field: "build.version", Reason: "must not be empty"}
	}
	if !z.RewritesSchema || transform.IsPrerelease(z.Version) {
		return nil
	}
	if z.SchemaVersion == "" {
		return &artifact.MalformedConfigurationError{
			Field:  "build.schema_version",
			Reason: fmt.Sprintf("required to rewrite schema URLs for release version %s", z.Version),
		}
	}
	if !schemaVersionPattern.MatchString(z.SchemaVersion) {
		return &artifact.MalformedConfigurationError{
			Field:  "build.schema_version",
			Reason: fmt.Sprintf("%q is not a valid version identifier", z.SchemaVersion),
		}
	}
	return nil
}
