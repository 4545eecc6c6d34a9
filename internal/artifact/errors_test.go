package artifact

import (
	"errors"
	"fmt"
	"testing"

	"github.com/hashicorp/hcl/v2"
	"github.com/stretchr/testify/assert"
)

func TestIsFatal(t *testing.T) {
	assert.True(t, IsFatal(&WriteConflictError{Path: "/out/a.json"}))
	assert.True(t, IsFatal(fmt.Errorf("task x: %w", &MalformedConfigurationError{Field: "schema_version", Reason: "empty"})))
	assert.False(t, IsFatal(&MissingInputError{Unit: "alpha", Path: "/src/alpha"}))
	assert.False(t, IsFatal(errors.New("boom")))
}

func TestErrorMessagesNameThePath(t *testing.T) {
	assert.Equal(t, `missing input for unit "alpha": /src/alpha/actions/zip`,
		(&MissingInputError{Unit: "alpha", Path: "/src/alpha/actions/zip"}).Error())
	assert.Equal(t, "missing input: /dist/fcli_completion",
		(&MissingInputError{Path: "/dist/fcli_completion"}).Error())
	assert.Contains(t, (&WriteConflictError{Path: "/out/x"}).Error(), "/out/x")

	inner := errors.New("yaml: line 2: did not find expected key")
	invalid := &InvalidInputError{Path: "/src/a.yaml", Err: inner}
	assert.ErrorIs(t, invalid, inner)
}

func TestMalformedConfigurationErrorNamesDeclaration(t *testing.T) {
	plain := &MalformedConfigurationError{Field: "copy.depends_on", Reason: `unknown task or group "x"`}
	assert.Equal(t, `malformed configuration: copy.depends_on: unknown task or group "x"`, plain.Error())

	located := &MalformedConfigurationError{
		Field:   "copy.depends_on",
		Reason:  `unknown task or group "x"`,
		Subject: &hcl.Range{Filename: "dist.hcl", Start: hcl.Pos{Line: 4, Column: 1}, End: hcl.Pos{Line: 4, Column: 11}},
	}
	assert.Equal(t, `dist.hcl:4,1-11: malformed configuration: copy.depends_on: unknown task or group "x"`, located.Error())
}
