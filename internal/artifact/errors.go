package artifact

import (
	"errors"
	"fmt"

	"github.com/hashicorp/hcl/v2"
)

// ErrMissingRoot reports that a discovery root does not exist. Discovery
// treats it as "nothing to do" and never surfaces it to its caller.
var ErrMissingRoot = errors.New("discovery root does not exist")

// MissingInputError is returned when a unit's source vanished between
// discovery and build. It fails the unit's task only.
type MissingInputError struct {
	Unit string
	Path string
}

func (e *MissingInputError) Error() string {
	if e.Unit == "" {
		return fmt.Sprintf("missing input: %s", e.Path)
	}
	return fmt.Sprintf("missing input for unit %q: %s", e.Unit, e.Path)
}

// InvalidInputError is returned when an input file exists but its content
// is rejected (currently: action YAML that fails to parse).
type InvalidInputError struct {
	Path string
	Err  error
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input %s: %v", e.Path, e.Err)
}

func (e *InvalidInputError) Unwrap() error { return e.Err }

// WriteConflictError is returned when two steps of the same run computed
// different content for one output path. It aborts the run.
type WriteConflictError struct {
	Path string
}

func (e *WriteConflictError) Error() string {
	return fmt.Sprintf("write conflict: different content generated for %s within one run", e.Path)
}

// MalformedConfigurationError is returned before any filesystem mutation
// when a required configuration value is missing or malformed. It aborts
// the run.
type MalformedConfigurationError struct {
	Field  string
	Reason string
	// Subject is the declaration the error is about, when known.
	Subject *hcl.Range
}

func (e *MalformedConfigurationError) Error() string {
	if e.Subject != nil {
		return fmt.Sprintf("%s: malformed configuration: %s: %s", e.Subject, e.Field, e.Reason)
	}
	return fmt.Sprintf("malformed configuration: %s: %s", e.Field, e.Reason)
}

// IsFatal reports whether err must abort the whole run rather than only
// the step that produced it.
func IsFatal(err error) bool {
	var conflict *WriteConflictError
	var malformed *MalformedConfigurationError
	return errors.As(err, &conflict) || errors.As(err, &malformed)
}
