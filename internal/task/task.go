// Package task defines the unit of work the pipeline schedules and the
// built-in task kinds: action archives, resource-config manifests, build
// property files, file copies, external commands and aggregators.
//
// External collaborators (documentation renderers, packagers, the
// application's own build-time actions) are reached through the same Task
// interface, typically as Exec tasks.
package task

import (
	"context"

	"github.com/specialistvlad/artifactgen/internal/gate"
)

// Task is one node of the pipeline graph.
type Task interface {
	// ID is unique within a run.
	ID() string
	// Group names the aggregator this task attaches to, or "".
	Group() string
	// DependsOn lists task or group IDs that must complete first.
	DependsOn() []string
	// Run performs the work. It must not start filesystem mutation before
	// configuration has been validated.
	Run(ctx context.Context) (Result, error)
}

// Output records what happened to one generated file.
type Output struct {
	Path    string
	Outcome gate.Outcome
}

// Result summarizes a finished task.
type Result struct {
	Outputs []Output
	// Note is a short human-readable remark, e.g. why nothing was written.
	Note string
}

// Written counts outputs that were actually rewritten.
func (r Result) Written() int {
	n := 0
	for _, o := range r.Outputs {
		if o.Outcome == gate.Written {
			n++
		}
	}
	return n
}

// Meta carries the identity and wiring every built-in task shares.
type Meta struct {
	Name      string
	GroupName string
	Deps      []string
}

func (m Meta) ID() string          { return m.Name }
func (m Meta) Group() string       { return m.GroupName }
func (m Meta) DependsOn() []string { return m.Deps }

// write passes payload content through the gate and appends the outcome.
func write(ctx context.Context, g *gate.Gate, res *Result, path string, content []byte) error {
	outcome, err := g.Write(ctx, path, content)
	if err != nil {
		return err
	}
	res.Outputs = append(res.Outputs, Output{Path: path, Outcome: outcome})
	return nil
}
