package task

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/specialistvlad/artifactgen/internal/artifact"
	"github.com/specialistvlad/artifactgen/internal/ctxlog"
	"github.com/specialistvlad/artifactgen/internal/gate"
)

// Copy places one file produced elsewhere (usually by an Exec task) at a
// distribution path. A missing source fails the task.
type Copy struct {
	Meta
	Source      string
	Destination string
	Gate        *gate.Gate
}

func (c *Copy) Run(ctx context.Context) (Result, error) {
	ctx, logger := ctxlog.With(ctx, "task", c.Name)

	info, err := os.Stat(c.Source)
	if err != nil || !info.Mode().IsRegular() {
		return Result{}, &artifact.MissingInputError{Path: c.Source}
	}
	content, err := os.ReadFile(c.Source)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Result{}, &artifact.MissingInputError{Path: c.Source}
		}
		return Result{}, fmt.Errorf("reading %s: %w", c.Source, err)
	}

	var res Result
	if err := write(ctx, c.Gate, &res, c.Destination, content); err != nil {
		return Result{}, err
	}
	if err := matchPerm(c.Destination, info.Mode().Perm()); err != nil {
		return Result{}, err
	}
	logger.Info("File copied.", "from", c.Source, "to", c.Destination, "outcome", res.Outputs[0].Outcome.String())
	return res, nil
}

func matchPerm(path string, perm fs.FileMode) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.Mode().Perm() == perm {
		return nil
	}
	return os.Chmod(path, perm)
}
