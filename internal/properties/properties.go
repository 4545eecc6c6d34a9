// Package properties renders build-property files: plain key=value lines
// in a fixed order.
package properties

import (
	"fmt"
	"strings"

	"github.com/specialistvlad/artifactgen/internal/artifact"
)

// Entry is one key=value line.
type Entry struct {
	Key   string
	Value string
}

// Render returns the file content for entries, in the given order, one
// line per entry with a trailing newline.
func Render(entries []Entry) ([]byte, error) {
	var b strings.Builder
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if e.Key == "" || strings.ContainsAny(e.Key, "=:\n\r") {
			return nil, &artifact.MalformedConfigurationError{Field: "properties", Reason: fmt.Sprintf("invalid key %q", e.Key)}
		}
		if strings.ContainsAny(e.Value, "\n\r") {
			return nil, &artifact.MalformedConfigurationError{Field: "properties." + e.Key, Reason: "value must be a single line"}
		}
		if _, dup := seen[e.Key]; dup {
			return nil, &artifact.MalformedConfigurationError{Field: "properties." + e.Key, Reason: "duplicate key"}
		}
		seen[e.Key] = struct{}{}
		b.WriteString(e.Key)
		b.WriteByte('=')
		b.WriteString(e.Value)
		b.WriteByte('\n')
	}
	return []byte(b.String()), nil
}

// Keys returns the keys of entries in order.
func Keys(entries []Entry) []string {
	keys := make([]string, len(entries))
	for i, e := range entries {
		keys[i] = e.Key
	}
	return keys
}
