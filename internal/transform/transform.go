// Package transform implements the line-oriented content rules applied to
// files before they are packaged. Rules operate on text lines, never on a
// parsed structure, and must leave non-matching lines untouched.
package transform

import (
	"regexp"
	"strings"
)

// PrereleasePrefix marks development builds whose content is packaged
// unmodified.
const PrereleasePrefix = "0."

// Default schema URL pattern and replacement template used for action
// definitions. The pattern is a regular expression and its dots are left
// unescaped on purpose so it matches the published dev URLs.
const (
	DefaultSchemaURLPattern     = `https://fortify.github.io/fcli/schemas/action/fcli-action-schema-dev.*.json`
	DefaultSchemaURLReplacement = `https://fortify.github.io/fcli/schemas/action/fcli-action-schema-${schema_version}.json`
)

// Rule rewrites a single line. The line never includes its terminator.
type Rule interface {
	Apply(line string) string
}

// RuleFunc adapts a plain function to Rule.
type RuleFunc func(line string) string

func (f RuleFunc) Apply(line string) string { return f(line) }

type identity struct{}

func (identity) Apply(line string) string { return line }

// Identity returns every line unchanged.
var Identity Rule = identity{}

// LineRewrite replaces every match of Pattern in a line with the literal
// Replacement.
type LineRewrite struct {
	Pattern     *regexp.Regexp
	Replacement string
}

// NewLineRewrite compiles pattern into a LineRewrite.
func NewLineRewrite(pattern, replacement string) (*LineRewrite, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	return &LineRewrite{Pattern: re, Replacement: replacement}, nil
}

func (r *LineRewrite) Apply(line string) string {
	return r.Pattern.ReplaceAllLiteralString(line, r.Replacement)
}

// Chain applies rules in order.
type Chain []Rule

func (c Chain) Apply(line string) string {
	for _, r := range c {
		line = r.Apply(line)
	}
	return line
}

// IsPrerelease reports whether version denotes a development build.
func IsPrerelease(version string) bool {
	return strings.HasPrefix(version, PrereleasePrefix)
}

// VersionGated returns Identity for pre-release versions and rule otherwise.
func VersionGated(version string, rule Rule) Rule {
	if rule == nil || IsPrerelease(version) {
		return Identity
	}
	return rule
}

// Lines applies rule to each line of content. Line order, line terminators
// (LF or CRLF) and a missing final newline are preserved exactly.
func Lines(content []byte, rule Rule) []byte {
	if rule == nil || rule == Identity {
		return content
	}

	var b strings.Builder
	b.Grow(len(content))
	for _, segment := range strings.SplitAfter(string(content), "\n") {
		if segment == "" {
			continue
		}
		line, terminator := splitTerminator(segment)
		b.WriteString(rule.Apply(line))
		b.WriteString(terminator)
	}
	return []byte(b.String())
}

func splitTerminator(segment string) (string, string) {
	switch {
	case strings.HasSuffix(segment, "\r\n"):
		return segment[:len(segment)-2], "\r\n"
	case strings.HasSuffix(segment, "\n"):
		return segment[:len(segment)-1], "\n"
	default:
		return segment, ""
	}
}
