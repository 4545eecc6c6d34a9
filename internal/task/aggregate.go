package task

import (
	"context"

	"github.com/specialistvlad/artifactgen/internal/ctxlog"
)

// Aggregate groups the tasks of one group into a single step later stages
// can depend on. It never reads its members' outputs.
type Aggregate struct {
	Meta
	Members []string
}

// NewAggregate creates the aggregator for group over members.
func NewAggregate(group string, members []string) *Aggregate {
	return &Aggregate{Meta: Meta{Name: group, Deps: members}, Members: members}
}

func (a *Aggregate) Run(ctx context.Context) (Result, error) {
	ctxlog.FromContext(ctx).Debug("Aggregator complete.", "group", a.Name, "members", len(a.Members))
	return Result{}, nil
}
