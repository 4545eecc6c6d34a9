package task

import (
	"context"

	"github.com/specialistvlad/artifactgen/internal/ctxlog"
	"github.com/specialistvlad/artifactgen/internal/gate"
	"github.com/specialistvlad/artifactgen/internal/manifest"
)

// ResourceConfig generates one resource-config.json over its sources.
type ResourceConfig struct {
	Meta
	Builder *manifest.Builder
	Gate    *gate.Gate
}

func (r *ResourceConfig) Run(ctx context.Context) (Result, error) {
	ctx, logger := ctxlog.With(ctx, "task", r.Name)

	payload, err := r.Builder.Build(ctx)
	if err != nil {
		return Result{}, err
	}
	if payload == nil {
		logger.Info("No resources found, manifest not written.", "path", r.Builder.Output)
		return Result{Note: "no entries"}, nil
	}

	var res Result
	if err := write(ctx, r.Gate, &res, payload.Path, payload.Content); err != nil {
		return Result{}, err
	}
	logger.Info("Resource config processed.", "path", payload.Path, "entries", len(payload.Entries), "outcome", res.Outputs[0].Outcome.String())
	return res, nil
}
