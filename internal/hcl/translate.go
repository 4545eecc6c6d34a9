package hcl

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/specialistvlad/artifactgen/internal/config"
	"github.com/specialistvlad/artifactgen/internal/manifest"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// translator converts decoded schema blocks into the agnostic model.
type translator struct {
	projectDir string
	evalCtx    *hcl.EvalContext
	model      *config.Model
	refs       *resolver
}

func newTranslator(projectDir string, evalCtx *hcl.EvalContext, model *config.Model) *translator {
	return &translator{projectDir: projectDir, evalCtx: evalCtx, model: model, refs: newResolver()}
}

// translate appends every block to the model in declaration order, then
// evaluates the expressions that may reference other blocks.
func (t *translator) translate(blocks hcl.Blocks) hcl.Diagnostics {
	var diags hcl.Diagnostics
	for _, b := range blocks {
		switch b.Type {
		case "action_zips":
			diags = append(diags, t.actionZips(b)...)
		case config.KindResourceConfig:
			diags = append(diags, t.resourceConfig(b)...)
		case config.KindBuildProperties:
			diags = append(diags, t.buildProperties(b)...)
		case config.KindCopy:
			diags = append(diags, t.copy(b)...)
		case config.KindExec:
			diags = append(diags, t.exec(b)...)
		}
	}
	if diags.HasErrors() {
		return diags
	}
	if diags = append(diags, t.refs.link()...); diags.HasErrors() {
		return diags
	}
	return append(diags, t.refs.evaluate(t.evalCtx)...)
}

func (t *translator) actionZips(b *hcl.Block) hcl.Diagnostics {
	var raw actionZipsBlock
	if diags := gohcl.DecodeBody(b.Body, t.evalCtx, &raw); diags.HasErrors() {
		return diags
	}
	az := &config.ActionZips{
		Root:         t.path(raw.Root),
		Subpath:      deref(raw.Subpath),
		Extension:    deref(raw.Extension),
		Destination:  t.path(raw.Destination),
		Prefix:       raw.Prefix,
		ArchiveName:  raw.ArchiveName,
		ValidateYAML: raw.ValidateYAML,
		Group:        deref(raw.Group),
		DependsOn:    derefList(raw.DependsOn),
		DeclRange:    b.DefRange,
	}
	if raw.Rewrite != nil {
		az.Rewrite = &config.Rewrite{Pattern: deref(raw.Rewrite.Pattern), Replacement: raw.Rewrite.Replacement}
	}
	t.model.ActionZips = append(t.model.ActionZips, az)
	return nil
}

func (t *translator) resourceConfig(b *hcl.Block) hcl.Diagnostics {
	var raw resourceConfigBlock
	if diags := gohcl.DecodeBody(b.Body, t.evalCtx, &raw); diags.HasErrors() {
		return diags
	}
	rc := &config.ResourceConfig{
		Name:      b.Labels[0],
		Namespace: raw.Namespace,
		OutputDir: t.path(raw.OutputDir),
		Group:     deref(raw.Group),
		DependsOn: derefList(raw.DependsOn),
		DeclRange: b.DefRange,
	}
	t.model.ResourceConfigs = append(t.model.ResourceConfigs, rc)

	exprs := make([]hcl.Expression, 0, len(raw.Sources))
	for _, s := range raw.Sources {
		exprs = append(exprs, s.Dir)
	}
	return t.refs.add(&referable{
		key:   blockKey{config.KindResourceConfig, rc.Name},
		rng:   b.DefRange,
		exprs: exprs,
		refs:  &rc.References,
		eval: func(ctx *hcl.EvalContext) (cty.Value, hcl.Diagnostics) {
			var diags hcl.Diagnostics
			for _, s := range raw.Sources {
				base := s.Base
				diags = append(diags, decodeOptional(s.Dir, ctx, cty.String, &base)...)
				src := config.Source{Base: t.path(base), Include: s.Include, Exclude: s.Exclude}
				if s.DefaultExcludes {
					src.Exclude = append(append([]string(nil), src.Exclude...), manifest.DefaultResourceExcludes...)
				}
				rc.Sources = append(rc.Sources, src)
			}
			return cty.ObjectVal(map[string]cty.Value{
				"path": cty.StringVal(manifest.OutputPath(rc.OutputDir, rc.Namespace, rc.Name)),
			}), diags
		},
	})
}

func (t *translator) buildProperties(b *hcl.Block) hcl.Diagnostics {
	var raw buildPropertiesBlock
	if diags := gohcl.DecodeBody(b.Body, t.evalCtx, &raw); diags.HasErrors() {
		return diags
	}
	bp := &config.BuildProperties{
		Name:            b.Labels[0],
		ResourcePattern: raw.ResourcePattern,
		Group:           deref(raw.Group),
		DependsOn:       derefList(raw.DependsOn),
		DeclRange:       b.DefRange,
	}
	t.model.BuildProperties = append(t.model.BuildProperties, bp)

	var attrs []*hcl.Attribute
	if raw.Properties != nil {
		var diags hcl.Diagnostics
		if attrs, diags = orderedAttributes(raw.Properties.Body); diags.HasErrors() {
			return diags
		}
	}
	exprs := []hcl.Expression{raw.Path, raw.ResourceConfig}
	for _, a := range attrs {
		exprs = append(exprs, a.Expr)
	}

	return t.refs.add(&referable{
		key:   blockKey{config.KindBuildProperties, bp.Name},
		rng:   b.DefRange,
		exprs: exprs,
		refs:  &bp.References,
		eval: func(ctx *hcl.EvalContext) (cty.Value, hcl.Diagnostics) {
			var diags hcl.Diagnostics
			diags = append(diags, t.decodePath(raw.Path, ctx, &bp.Path)...)
			diags = append(diags, t.decodePath(raw.ResourceConfig, ctx, &bp.ResourceConfig)...)
			entries, d := properties(attrs, ctx)
			diags = append(diags, d...)
			bp.Properties = entries
			return cty.ObjectVal(map[string]cty.Value{
				"path":            cty.StringVal(bp.Path),
				"resource_config": cty.StringVal(bp.ResourceConfig),
			}), diags
		},
	})
}

// orderedAttributes returns the attributes of body in declaration order.
func orderedAttributes(body hcl.Body) ([]*hcl.Attribute, hcl.Diagnostics) {
	attrs, diags := body.JustAttributes()
	if diags.HasErrors() {
		return nil, diags
	}
	ordered := make([]*hcl.Attribute, 0, len(attrs))
	for _, a := range attrs {
		ordered = append(ordered, a)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Range.Start.Byte < ordered[j].Range.Start.Byte
	})
	return ordered, nil
}

// properties evaluates every attribute to its string form.
func properties(attrs []*hcl.Attribute, ctx *hcl.EvalContext) ([]config.PropertyEntry, hcl.Diagnostics) {
	entries := make([]config.PropertyEntry, 0, len(attrs))
	for _, a := range attrs {
		val, diags := a.Expr.Value(ctx)
		if diags.HasErrors() {
			return nil, diags
		}
		if val.IsNull() || !val.IsWhollyKnown() {
			return nil, hcl.Diagnostics{{
				Severity: hcl.DiagError,
				Summary:  "Missing property value",
				Detail:   fmt.Sprintf("Property %q has no value.", a.Name),
				Subject:  a.Expr.Range().Ptr(),
			}}
		}
		str, err := convert.Convert(val, cty.String)
		if err != nil {
			return nil, hcl.Diagnostics{{
				Severity: hcl.DiagError,
				Summary:  "Invalid property value",
				Detail:   fmt.Sprintf("Property %q: %s.", a.Name, err),
				Subject:  a.Expr.Range().Ptr(),
			}}
		}
		entries = append(entries, config.PropertyEntry{Key: a.Name, Value: str.AsString()})
	}
	return entries, nil
}

func (t *translator) copy(b *hcl.Block) hcl.Diagnostics {
	var raw copyBlock
	if diags := gohcl.DecodeBody(b.Body, t.evalCtx, &raw); diags.HasErrors() {
		return diags
	}
	c := &config.Copy{
		Name:      b.Labels[0],
		Group:     deref(raw.Group),
		DependsOn: derefList(raw.DependsOn),
		DeclRange: b.DefRange,
	}
	t.model.Copies = append(t.model.Copies, c)

	return t.refs.add(&referable{
		key:   blockKey{config.KindCopy, c.Name},
		rng:   b.DefRange,
		exprs: []hcl.Expression{raw.Source, raw.Destination},
		refs:  &c.References,
		eval: func(ctx *hcl.EvalContext) (cty.Value, hcl.Diagnostics) {
			var diags hcl.Diagnostics
			diags = append(diags, t.decodePath(raw.Source, ctx, &c.Source)...)
			diags = append(diags, t.decodePath(raw.Destination, ctx, &c.Destination)...)
			return cty.ObjectVal(map[string]cty.Value{
				"source":      cty.StringVal(c.Source),
				"destination": cty.StringVal(c.Destination),
			}), diags
		},
	})
}

func (t *translator) exec(b *hcl.Block) hcl.Diagnostics {
	var raw execBlock
	if diags := gohcl.DecodeBody(b.Body, t.evalCtx, &raw); diags.HasErrors() {
		return diags
	}
	e := &config.Exec{
		Name:      b.Labels[0],
		Group:     deref(raw.Group),
		DependsOn: derefList(raw.DependsOn),
		DeclRange: b.DefRange,
	}
	t.model.Execs = append(t.model.Execs, e)

	return t.refs.add(&referable{
		key:   blockKey{config.KindExec, e.Name},
		rng:   b.DefRange,
		exprs: []hcl.Expression{raw.Command, raw.Dir, raw.Env, raw.Outputs},
		refs:  &e.References,
		eval: func(ctx *hcl.EvalContext) (cty.Value, hcl.Diagnostics) {
			var diags hcl.Diagnostics
			diags = append(diags, decodeOptional(raw.Command, ctx, cty.List(cty.String), &e.Command)...)
			diags = append(diags, decodeOptional(raw.Env, ctx, cty.Map(cty.String), &e.Env)...)
			diags = append(diags, t.decodePath(raw.Dir, ctx, &e.Dir)...)
			if e.Dir == "" {
				e.Dir = t.projectDir
			}
			var outputs []string
			diags = append(diags, decodeOptional(raw.Outputs, ctx, cty.List(cty.String), &outputs)...)
			for _, o := range outputs {
				e.Outputs = append(e.Outputs, t.path(o))
			}

			outVals := cty.ListValEmpty(cty.String)
			if len(e.Outputs) > 0 {
				vals := make([]cty.Value, len(e.Outputs))
				for i, o := range e.Outputs {
					vals[i] = cty.StringVal(o)
				}
				outVals = cty.ListVal(vals)
			}
			return cty.ObjectVal(map[string]cty.Value{
				"outputs": outVals,
				"dir":     cty.StringVal(e.Dir),
			}), diags
		},
	})
}

// decodeOptional evaluates expr into target, leaving target untouched when
// the value is null.
func decodeOptional(expr hcl.Expression, ctx *hcl.EvalContext, ty cty.Type, target any) hcl.Diagnostics {
	val, diags := expr.Value(ctx)
	if diags.HasErrors() || val.IsNull() {
		return diags
	}
	val, err := convert.Convert(val, ty)
	if err == nil && !val.IsWhollyKnown() {
		err = errors.New("value is not known")
	}
	if err == nil {
		err = gocty.FromCtyValue(val, target)
	}
	if err != nil {
		return append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Unsuitable value type",
			Detail:   fmt.Sprintf("Unsuitable value: %s.", err),
			Subject:  expr.Range().Ptr(),
		})
	}
	return diags
}

// decodePath evaluates a path expression and resolves it against the
// project directory.
func (t *translator) decodePath(expr hcl.Expression, ctx *hcl.EvalContext, target *string) hcl.Diagnostics {
	var p string
	diags := decodeOptional(expr, ctx, cty.String, &p)
	*target = t.path(p)
	return diags
}

// path resolves p against the project directory.
func (t *translator) path(p string) string {
	if p == "" {
		return ""
	}
	p = filepath.FromSlash(p)
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(t.projectDir, p)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// derefList keeps the difference between an unset list (nil) and an
// explicitly empty one.
func derefList(s *[]string) []string {
	if s == nil {
		return nil
	}
	if *s == nil {
		return []string{}
	}
	return *s
}
