package task

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"sort"

	"github.com/specialistvlad/artifactgen/internal/artifact"
	"github.com/specialistvlad/artifactgen/internal/ctxlog"
)

// Exec runs an external command, such as a build-time action of the
// application being built. Declared outputs must exist once it finishes.
type Exec struct {
	Meta
	Command []string
	Dir     string
	Env     map[string]string
	Outputs []string
}

func (e *Exec) Run(ctx context.Context) (Result, error) {
	ctx, logger := ctxlog.With(ctx, "task", e.Name)
	if len(e.Command) == 0 || e.Command[0] == "" {
		return Result{}, &artifact.MalformedConfigurationError{Field: "exec." + e.Name + ".command", Reason: "must not be empty"}
	}

	cmd := exec.CommandContext(ctx, e.Command[0], e.Command[1:]...)
	cmd.Dir = e.Dir
	cmd.Env = append(os.Environ(), e.envList()...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	logger.Debug("Running external command.", "command", e.Command, "dir", e.Dir)
	if err := cmd.Run(); err != nil {
		return Result{}, fmt.Errorf("command %q failed: %w\n%s", e.Command[0], err, out.String())
	}
	if out.Len() > 0 {
		logger.Debug("Command output.", "output", out.String())
	}

	for _, path := range e.Outputs {
		if _, err := os.Stat(path); err != nil {
			return Result{}, &artifact.MissingInputError{Path: path}
		}
	}
	logger.Info("External command finished.", "outputs", len(e.Outputs))
	return Result{Note: fmt.Sprintf("%d declared outputs", len(e.Outputs))}, nil
}

func (e *Exec) envList() []string {
	keys := make([]string, 0, len(e.Env))
	for k := range e.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	env := make([]string, 0, len(keys))
	for _, k := range keys {
		env = append(env, k+"="+e.Env[k])
	}
	return env
}
