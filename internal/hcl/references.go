package hcl

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/specialistvlad/artifactgen/internal/config"
	"github.com/zclconf/go-cty/cty"
)

// referenceKinds are the root names an expression can use to read the
// values of another labeled block.
var referenceKinds = map[string]bool{
	config.KindResourceConfig:  true,
	config.KindBuildProperties: true,
	config.KindCopy:            true,
	config.KindExec:            true,
}

type blockKey struct {
	kind string
	name string
}

func (k blockKey) String() string { return k.kind + "." + k.name }

// referable is a labeled block whose expressions are evaluated once every
// block they reference has been evaluated.
type referable struct {
	key   blockKey
	rng   hcl.Range
	exprs []hcl.Expression
	// refs receives the implicit dependencies found in exprs.
	refs *[]config.Ref
	// eval fills the block's model value and returns the object other
	// blocks see under <kind>.<name>.
	eval func(ctx *hcl.EvalContext) (cty.Value, hcl.Diagnostics)

	deps []blockKey
}

// resolver orders referable blocks by the references between them.
type resolver struct {
	blocks map[blockKey]*referable
	order  []blockKey
}

func newResolver() *resolver {
	return &resolver{blocks: make(map[blockKey]*referable)}
}

func (r *resolver) add(b *referable) hcl.Diagnostics {
	if prev, ok := r.blocks[b.key]; ok {
		return hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  fmt.Sprintf("Duplicate %s %q", b.key.kind, b.key.name),
			Detail:   "Block names must be unique per type; the first one is at " + prev.rng.String() + ".",
			Subject:  b.rng.Ptr(),
		}}
	}
	r.blocks[b.key] = b
	r.order = append(r.order, b.key)
	return nil
}

// link collects the references of every block.
func (r *resolver) link() hcl.Diagnostics {
	var diags hcl.Diagnostics
	for _, key := range r.order {
		b := r.blocks[key]
		seen := make(map[blockKey]bool)
		for _, expr := range b.exprs {
			for _, traversal := range expr.Variables() {
				dep, ok, d := r.parseReference(traversal)
				diags = append(diags, d...)
				if !ok || seen[dep] {
					continue
				}
				seen[dep] = true
				b.deps = append(b.deps, dep)
				*b.refs = append(*b.refs, config.Ref{Kind: dep.kind, Name: dep.name, Range: traversal.SourceRange()})
			}
		}
	}
	return diags
}

// parseReference recognises <kind>.<name>[...] traversals. Other roots are
// plain variables and are left to evaluation.
func (r *resolver) parseReference(traversal hcl.Traversal) (blockKey, bool, hcl.Diagnostics) {
	root := traversal.RootName()
	if !referenceKinds[root] {
		return blockKey{}, false, nil
	}
	if len(traversal) < 2 {
		return blockKey{}, false, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Invalid reference",
			Detail:   fmt.Sprintf("A reference to a %s block must name it, as in %s.<name>.", root, root),
			Subject:  traversal.SourceRange().Ptr(),
		}}
	}
	name, ok := traversal[1].(hcl.TraverseAttr)
	if !ok {
		return blockKey{}, false, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Invalid reference",
			Detail:   fmt.Sprintf("The second part of a %s reference must be a block name.", root),
			Subject:  traversal.SourceRange().Ptr(),
		}}
	}
	key := blockKey{kind: root, name: name.Name}
	if _, ok := r.blocks[key]; !ok {
		return blockKey{}, false, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Reference to undeclared block",
			Detail:   fmt.Sprintf("No %s block named %q is declared.", root, name.Name),
			Subject:  traversal.SourceRange().Ptr(),
		}}
	}
	return key, true, nil
}

// evaluate runs every block's eval in dependency order, exposing the values
// of already evaluated blocks to the ones that reference them.
func (r *resolver) evaluate(base *hcl.EvalContext) hcl.Diagnostics {
	order, diags := r.sorted()
	if diags.HasErrors() {
		return diags
	}

	values := make(map[string]map[string]cty.Value)
	for _, key := range order {
		b := r.blocks[key]
		val, d := b.eval(withReferences(base, values))
		diags = append(diags, d...)
		if d.HasErrors() {
			return diags
		}
		if values[key.kind] == nil {
			values[key.kind] = make(map[string]cty.Value)
		}
		values[key.kind][key.name] = val
	}
	return diags
}

// sorted returns the blocks in dependency order, ties broken by key.
func (r *resolver) sorted() ([]blockKey, hcl.Diagnostics) {
	pending := make(map[blockKey]int, len(r.blocks))
	dependents := make(map[blockKey][]blockKey)
	var ready []blockKey
	for key, b := range r.blocks {
		pending[key] = len(b.deps)
		for _, dep := range b.deps {
			dependents[dep] = append(dependents[dep], key)
		}
		if len(b.deps) == 0 {
			ready = append(ready, key)
		}
	}

	order := make([]blockKey, 0, len(r.blocks))
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool { return ready[i].String() < ready[j].String() })
		key := ready[0]
		ready = ready[1:]
		order = append(order, key)
		for _, dependent := range dependents[key] {
			pending[dependent]--
			if pending[dependent] == 0 {
				ready = append(ready, dependent)
			}
		}
	}
	if len(order) == len(r.blocks) {
		return order, nil
	}

	var stuck []string
	var first *referable
	for _, key := range r.order {
		if pending[key] > 0 {
			stuck = append(stuck, key.String())
			if first == nil {
				first = r.blocks[key]
			}
		}
	}
	return nil, hcl.Diagnostics{{
		Severity: hcl.DiagError,
		Summary:  "Reference cycle",
		Detail:   "These blocks reference each other: " + strings.Join(stuck, ", ") + ".",
		Subject:  first.rng.Ptr(),
	}}
}

func withReferences(base *hcl.EvalContext, values map[string]map[string]cty.Value) *hcl.EvalContext {
	vars := make(map[string]cty.Value, len(base.Variables)+len(referenceKinds))
	for name, v := range base.Variables {
		vars[name] = v
	}
	for kind := range referenceKinds {
		if m := values[kind]; len(m) > 0 {
			vars[kind] = cty.ObjectVal(m)
		} else {
			vars[kind] = cty.EmptyObjectVal
		}
	}
	return &hcl.EvalContext{Variables: vars, Functions: base.Functions}
}
