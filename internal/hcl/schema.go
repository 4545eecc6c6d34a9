package hcl

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/specialistvlad/artifactgen/internal/config"
)

// fileSchema lists every top-level block a configuration file may hold.
var fileSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "build"},
		{Type: "action_zips"},
		{Type: config.KindResourceConfig, LabelNames: []string{"name"}},
		{Type: config.KindBuildProperties, LabelNames: []string{"name"}},
		{Type: config.KindCopy, LabelNames: []string{"name"}},
		{Type: config.KindExec, LabelNames: []string{"name"}},
	},
}

type buildBlock struct {
	ProjectName   string  `hcl:"project_name,optional"`
	Version       string  `hcl:"version,optional"`
	SchemaVersion string  `hcl:"schema_version,optional"`
	Time          *string `hcl:"time,optional"`
}

type actionZipsBlock struct {
	Root         string        `hcl:"root"`
	Subpath      *string       `hcl:"subpath,optional"`
	Extension    *string       `hcl:"extension,optional"`
	Destination  string        `hcl:"destination"`
	Prefix       string        `hcl:"prefix,optional"`
	ArchiveName  string        `hcl:"archive_name,optional"`
	ValidateYAML bool          `hcl:"validate_yaml,optional"`
	Group        *string       `hcl:"group,optional"`
	DependsOn    *[]string     `hcl:"depends_on,optional"`
	Rewrite      *rewriteBlock `hcl:"rewrite,block"`
}

type rewriteBlock struct {
	Pattern     *string `hcl:"pattern,optional"`
	Replacement string  `hcl:"replacement"`
}

// Labeled blocks are decoded body by body; their label and DefRange come
// from the hcl.Block. Expression fields may reference other blocks and are
// evaluated once those are resolved.

type resourceConfigBlock struct {
	Namespace string         `hcl:"namespace"`
	OutputDir string         `hcl:"output_dir"`
	Group     *string        `hcl:"group,optional"`
	DependsOn *[]string      `hcl:"depends_on,optional"`
	Sources   []*sourceBlock `hcl:"source,block"`
}

// sourceBlock's Dir replaces the label as the base directory when set.
type sourceBlock struct {
	Base            string         `hcl:"base,label"`
	Dir             hcl.Expression `hcl:"dir,optional"`
	Include         []string       `hcl:"include,optional"`
	Exclude         []string       `hcl:"exclude,optional"`
	DefaultExcludes bool           `hcl:"default_excludes,optional"`
}

type buildPropertiesBlock struct {
	Path            hcl.Expression   `hcl:"path"`
	ResourceConfig  hcl.Expression   `hcl:"resource_config,optional"`
	ResourcePattern string           `hcl:"resource_pattern,optional"`
	Group           *string          `hcl:"group,optional"`
	DependsOn       *[]string        `hcl:"depends_on,optional"`
	Properties      *propertiesBlock `hcl:"properties,block"`
}

// propertiesBlock is decoded attribute by attribute to keep declaration
// order.
type propertiesBlock struct {
	Body hcl.Body `hcl:",remain"`
}

type copyBlock struct {
	Source      hcl.Expression `hcl:"source"`
	Destination hcl.Expression `hcl:"destination"`
	Group       *string        `hcl:"group,optional"`
	DependsOn   *[]string      `hcl:"depends_on,optional"`
}

type execBlock struct {
	Command   hcl.Expression `hcl:"command"`
	Dir       hcl.Expression `hcl:"dir,optional"`
	Env       hcl.Expression `hcl:"env,optional"`
	Outputs   hcl.Expression `hcl:"outputs,optional"`
	Group     *string        `hcl:"group,optional"`
	DependsOn *[]string      `hcl:"depends_on,optional"`
}
