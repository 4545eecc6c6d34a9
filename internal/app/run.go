package app

import (
	"context"
	"fmt"

	"github.com/specialistvlad/artifactgen/internal/ctxlog"
	"github.com/specialistvlad/artifactgen/internal/dag"
	"github.com/specialistvlad/artifactgen/internal/pipeline"
)

// Run composes and executes the pipeline once.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	pl, err := pipeline.Compose(ctx, a.model)
	if err != nil {
		return fmt.Errorf("failed to compose pipeline: %w", err)
	}
	a.logger.Info("Pipeline composed.", "tasks", pl.Graph.Len(), "units", pl.Units, "workers", a.cfg.WorkerCount)

	report, err := pl.Run(ctx, a.cfg.WorkerCount)
	if report != nil {
		a.logger.Info("Execution finished.",
			"done", report.Count(dag.Done),
			"failed", report.Count(dag.Failed),
			"skipped", report.Count(dag.Skipped),
			"cancelled", report.Count(dag.Cancelled),
			"written", report.Written(),
			"version", a.model.Build.Version)
	}
	if err != nil {
		return fmt.Errorf("execution failed: %w", err)
	}
	return nil
}
