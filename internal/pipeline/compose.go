// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/specialistvlad/artifactgen/internal/archive"
	"github.com/specialistvlad/artifactgen/internal/artifact"
	"github.com/specialistvlad/artifactgen/internal/config"
	"github.com/specialistvlad/artifactgen/internal/ctxlog"
	"github.com/specialistvlad/artifactgen/internal/dag"
	"github.com/specialistvlad/artifactgen/internal/discovery"
	"github.com/specialistvlad/artifactgen/internal/gate"
	"github.com/specialistvlad/artifactgen/internal/manifest"
	"github.com/specialistvlad/artifactgen/internal/properties"
	"github.com/specialistvlad/artifactgen/internal/registry"
	"github.com/specialistvlad/artifactgen/internal/task"
	"github.com/specialistvlad/artifactgen/internal/transform"
)

// defaultResourceConfigDeps run before every resource config that does not
// set depends_on, so the manifests see all generated archives.
var defaultResourceConfigDeps = []string{task.GroupZipResources, task.GroupBuildTimeActions}

// alwaysPresentGroups exist even without members so depends_on can name
// them unconditionally.
var alwaysPresentGroups = []string{task.GroupZipResources, task.GroupBuildTimeActions}

// Pipeline is a composed, not yet executed run.
type Pipeline struct {
	Graph    *dag.Graph
	Registry *registry.Registry
	Gate     *gate.Gate
	// Groups maps each aggregator to its sorted members.
	Groups map[string][]string
	// Units counts the discovered source units.
	Units int
}

type composer struct {
	model  *config.Model
	reg    *registry.Registry
	gate   *gate.Gate
	tasks  []task.Task
	groups map[string][]string
	units  int
	// decls maps task IDs to the block that declared them.
	decls  map[string]declaration
}

type declaration struct {
	rng  hcl.Range
	refs []config.Ref
}

// Compose builds the pipeline for m. Errors in the configuration are
// reported here, before any output is written.
func Compose(ctx context.Context, m *config.Model) (*Pipeline, error) {
	logger := ctxlog.FromContext(ctx)
	c := &composer{
		model:  m,
		reg:    registry.New(),
		gate:   gate.New(),
		groups: make(map[string][]string),
		decls:  make(map[string]declaration),
	}

	// Phase one: collect.
	for i, az := range m.ActionZips {
		if err := c.addActionZips(ctx, i, az); err != nil {
			return nil, err
		}
	}
	for _, rc := range m.ResourceConfigs {
		if err := c.addResourceConfig(rc); err != nil {
			return nil, err
		}
	}
	for _, bp := range m.BuildProperties {
		if err := c.addBuildProperties(bp); err != nil {
			return nil, err
		}
	}
	for _, cp := range m.Copies {
		if err := c.add(&task.Copy{
			Meta:        c.meta(cp.Name, cp.Group, task.GroupDist, cp.DependsOn),
			Source:      cp.Source,
			Destination: cp.Destination,
			Gate:        c.gate,
		}, "copy"); err != nil {
			return nil, err
		}
		c.declare(cp.Name, cp.DeclRange, cp.References)
	}
	for _, ex := range m.Execs {
		if err := c.add(&task.Exec{
			Meta:    c.meta(ex.Name, ex.Group, task.GroupBuildTimeActions, ex.DependsOn),
			Command: ex.Command,
			Dir:     ex.Dir,
			Env:     ex.Env,
			Outputs: ex.Outputs,
		}, "exec"); err != nil {
			return nil, err
		}
		c.declare(ex.Name, ex.DeclRange, ex.References)
	}

	// Phase two: aggregate and link.
	g, err := c.link(ctx)
	if err != nil {
		return nil, err
	}
	logger.Debug("Pipeline composed.", "tasks", len(c.tasks), "groups", len(c.groups), "units", c.units)

	return &Pipeline{Graph: g, Registry: c.reg, Gate: c.gate, Groups: c.groups, Units: c.units}, nil
}

func (c *composer) meta(name, group, defaultGroup string, deps []string) task.Meta {
	if group == "" {
		group = defaultGroup
	}
	return task.Meta{Name: name, GroupName: group, Deps: deps}
}

func (c *composer) declare(id string, rng hcl.Range, refs []config.Ref) {
	c.decls[id] = declaration{rng: rng, refs: refs}
}

// subject returns the declaration range of id, or nil for tasks that have
// none, such as aggregators.
func (c *composer) subject(id string) *hcl.Range {
	d, ok := c.decls[id]
	if !ok || d.rng.Filename == "" {
		return nil
	}
	return d.rng.Ptr()
}

func (c *composer) add(t task.Task, owner string) error {
	if t.ID() == "" {
		return &artifact.MalformedConfigurationError{Field: owner, Reason: "name must not be empty"}
	}
	if err := c.reg.Register(t.ID(), owner); err != nil {
		return err
	}
	c.tasks = append(c.tasks, t)
	if grp := t.Group(); grp != "" {
		c.groups[grp] = append(c.groups[grp], t.ID())
	}
	return nil
}

func (c *composer) addActionZips(ctx context.Context, idx int, az *config.ActionZips) error {
	logger := ctxlog.FromContext(ctx)
	owner := fmt.Sprintf("action_zips[%d]", idx)

	conv := discovery.DefaultConvention
	if az.Subpath != "" {
		conv.Subpath = az.Subpath
	}
	if az.Extension != "" {
		conv.Extension = az.Extension
	}

	var rule transform.Rule = transform.Identity
	if az.Rewrite != nil {
		pattern := az.Rewrite.Pattern
		if pattern == "" {
			pattern = transform.DefaultSchemaURLPattern
		}
		rw, err := transform.NewLineRewrite(pattern, az.Rewrite.Replacement)
		if err != nil {
			return &artifact.MalformedConfigurationError{Field: owner + ".rewrite.pattern", Reason: err.Error()}
		}
		rule = transform.VersionGated(c.model.Build.Version, rw)
	}

	units, err := discovery.Discover(ctx, az.Root, conv)
	if err != nil {
		return fmt.Errorf("%s: %w", owner, err)
	}
	c.units += len(units)

	builder := &archive.Builder{
		Destination:  az.Destination,
		Prefix:       az.Prefix,
		ArchiveName:  az.ArchiveName,
		Rule:         rule,
		ValidateYAML: az.ValidateYAML,
	}
	for _, unit := range units {
		z := &task.Zip{
			Meta:           c.meta(task.ZipName(unit.Name, len(units)), az.Group, task.GroupZipResources, az.DependsOn),
			Unit:           unit,
			Builder:        builder,
			Gate:           c.gate,
			Version:        c.model.Build.Version,
			SchemaVersion:  c.model.Build.SchemaVersion,
			RewritesSchema: az.Rewrite != nil,
		}
		if err := z.Validate(); err != nil {
			var malformed *artifact.MalformedConfigurationError
			if errors.As(err, &malformed) && malformed.Subject == nil && az.DeclRange.Filename != "" {
				malformed.Subject = az.DeclRange.Ptr()
			}
			return err
		}
		err := c.add(z, owner)
		var dup *registry.DuplicateError
		if errors.As(err, &dup) {
			logger.Warn("Zip task already registered, skipping unit.", "task", dup.ID, "unit", unit.Name, "registered_by", dup.Existing)
			continue
		}
		if err != nil {
			return err
		}
		c.declare(z.ID(), az.DeclRange, nil)
	}
	return nil
}

func (c *composer) addResourceConfig(rc *config.ResourceConfig) error {
	deps := rc.DependsOn
	if deps == nil {
		deps = defaultResourceConfigDeps
	}
	b := &manifest.Builder{Output: manifest.OutputPath(rc.OutputDir, rc.Namespace, rc.Name)}
	for _, s := range rc.Sources {
		b.Sources = append(b.Sources, manifest.Source{Base: s.Base, Include: s.Include, Exclude: s.Exclude})
	}
	t := &task.ResourceConfig{
		Meta:    c.meta(ResourceConfigTaskID(rc.Name), rc.Group, "", deps),
		Builder: b,
		Gate:    c.gate,
	}
	if err := c.add(t, "resource_config"); err != nil {
		return err
	}
	c.declare(t.ID(), rc.DeclRange, rc.References)
	return nil
}

// ResourceConfigTaskID names the task generating manifest name.
func ResourceConfigTaskID(name string) string {
	if name == "" {
		return ""
	}
	return "generateResourceConfig_" + name
}

func (c *composer) addBuildProperties(bp *config.BuildProperties) error {
	entries := make([]properties.Entry, 0, len(bp.Properties))
	for _, p := range bp.Properties {
		entries = append(entries, properties.Entry{Key: p.Key, Value: p.Value})
	}
	if err := c.add(&task.BuildProperties{
		Meta:               c.meta(bp.Name, bp.Group, "", bp.DependsOn),
		Path:               bp.Path,
		Entries:            entries,
		ResourceConfigPath: bp.ResourceConfig,
		ResourcePattern:    bp.ResourcePattern,
		Gate:               c.gate,
	}, "build_properties"); err != nil {
		return err
	}
	c.declare(bp.Name, bp.DeclRange, bp.References)
	return nil
}

// referenceTaskID names the task produced by the block ref points at.
func referenceTaskID(ref config.Ref) string {
	if ref.Kind == config.KindResourceConfig {
		return ResourceConfigTaskID(ref.Name)
	}
	return ref.Name
}

func (c *composer) link(ctx context.Context) (*dag.Graph, error) {
	logger := ctxlog.FromContext(ctx)
	for _, grp := range alwaysPresentGroups {
		if _, ok := c.groups[grp]; !ok {
			c.groups[grp] = nil
		}
	}

	g := dag.New()
	for _, t := range c.tasks {
		if err := g.AddNode(t); err != nil {
			return nil, err
		}
	}

	groupIDs := make([]string, 0, len(c.groups))
	for grp := range c.groups {
		groupIDs = append(groupIDs, grp)
	}
	sort.Strings(groupIDs)
	for _, grp := range groupIDs {
		members := c.groups[grp]
		sort.Strings(members)
		c.groups[grp] = members
		if err := c.reg.Register(grp, "group"); err != nil {
			return nil, fmt.Errorf("group %q clashes with a task: %w", grp, err)
		}
		if err := g.AddNode(task.NewAggregate(grp, members)); err != nil {
			return nil, err
		}
		for _, m := range members {
			if err := g.AddEdge(m, grp); err != nil {
				return nil, err
			}
		}
	}

	for _, t := range c.tasks {
		for _, dep := range t.DependsOn() {
			if !g.Has(dep) {
				return nil, &artifact.MalformedConfigurationError{
					Field:   t.ID() + ".depends_on",
					Reason:  fmt.Sprintf("unknown task or group %q", dep),
					Subject: c.subject(t.ID()),
				}
			}
			if dep == t.Group() {
				return nil, &artifact.MalformedConfigurationError{
					Field:   t.ID() + ".depends_on",
					Reason:  fmt.Sprintf("cannot depend on its own group %q", dep),
					Subject: c.subject(t.ID()),
				}
			}
			if err := g.AddEdge(dep, t.ID()); err != nil {
				return nil, err
			}
		}
		for _, ref := range c.decls[t.ID()].refs {
			dep := referenceTaskID(ref)
			if !g.Has(dep) {
				return nil, &artifact.MalformedConfigurationError{
					Field:   t.ID(),
					Reason:  fmt.Sprintf("references %s.%s, which produced no task", ref.Kind, ref.Name),
					Subject: ref.Range.Ptr(),
				}
			}
			logger.Debug("Linking implicit dependency.", "from", dep, "to", t.ID())
			if err := g.AddEdge(dep, t.ID()); err != nil {
				return nil, err
			}
		}
	}

	if err := g.DetectCycles(); err != nil {
		return nil, err
	}
	return g, nil
}

// Run executes the pipeline with the given number of workers.
func (p *Pipeline) Run(ctx context.Context, workers int) (*dag.Report, error) {
	return dag.NewExecutor(p.Graph, workers).Run(ctx)
}
