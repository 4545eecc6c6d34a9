package config

import (
	"time"

	"github.com/hashicorp/hcl/v2"
)

// Model is the unified representation of one build step configuration.
type Model struct {
	// ProjectDir is the directory relative paths were resolved against.
	ProjectDir string

	Build           Build
	ActionZips      []*ActionZips
	ResourceConfigs []*ResourceConfig
	BuildProperties []*BuildProperties
	Copies          []*Copy
	Execs           []*Exec
}

// Build carries project-wide values every task may read.
type Build struct {
	ProjectName string
	// Version is already defaulted, see ResolveVersion.
	Version string
	// SchemaVersion names the released schema archives are pointed at.
	SchemaVersion string
	Time          time.Time
}

// Date returns the build time in the properties-file format.
func (b Build) Date() string { return BuildDate(b.Time) }

// ActionZips configures discovery and archiving of action units.
type ActionZips struct {
	// Root holds one child directory per unit.
	Root      string
	Subpath   string
	Extension string

	// Destination and Prefix place archives at
	// Destination/Prefix/<unit>/ArchiveName.
	Destination  string
	Prefix       string
	ArchiveName  string
	ValidateYAML bool

	Group string
	// DependsOn is nil when not configured.
	DependsOn []string
	// Rewrite is nil when schema URLs are left alone.
	Rewrite *Rewrite

	DeclRange hcl.Range
}

// Rewrite is a version-gated line rewrite.
type Rewrite struct {
	Pattern     string
	Replacement string
}

// ResourceConfig configures one resource-config.json manifest.
type ResourceConfig struct {
	Name      string
	Namespace string
	OutputDir string
	Sources   []Source

	Group     string
	DependsOn []string
	// References are the blocks whose values this one reads.
	References []Ref
	DeclRange  hcl.Range
}

// Source is one manifest base directory.
type Source struct {
	Base    string
	Include []string
	Exclude []string
}

// BuildProperties configures a properties file and its optional
// companion manifest.
type BuildProperties struct {
	Name string
	Path string
	// Properties keep declaration order.
	Properties []PropertyEntry

	// ResourceConfig is the companion manifest path, or "".
	ResourceConfig  string
	ResourcePattern string

	Group      string
	DependsOn  []string
	References []Ref
	DeclRange  hcl.Range
}

// PropertyEntry is one declared property.
type PropertyEntry struct {
	Key   string
	Value string
}

// Copy configures a single-file copy into a distribution directory.
type Copy struct {
	Name        string
	Source      string
	Destination string

	Group      string
	DependsOn  []string
	References []Ref
	DeclRange  hcl.Range
}

// Exec configures an external command run as part of the build.
type Exec struct {
	Name    string
	Command []string
	Dir     string
	Env     map[string]string
	Outputs []string

	Group      string
	DependsOn  []string
	References []Ref
	DeclRange  hcl.Range
}

// Kinds of labeled blocks an expression can reference, each also the root
// name of the reference, as in exec.<name>.outputs[0].
const (
	KindResourceConfig  = "resource_config"
	KindBuildProperties = "build_properties"
	KindCopy            = "copy"
	KindExec            = "exec"
)

// Ref is an implicit dependency on another block, found in an expression.
type Ref struct {
	Kind  string
	Name  string
	Range hcl.Range
}
