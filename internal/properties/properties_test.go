package properties

import (
	"testing"

	"github.com/specialistvlad/artifactgen/internal/artifact"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender_DeclarationOrder(t *testing.T) {
	out, err := Render([]Entry{
		{Key: "projectName", Value: "fcli"},
		{Key: "projectVersion", Value: "1.2.3"},
		{Key: "buildDate", Value: "2025-01-01 12:00:00"},
		{Key: "actionSchemaVersion", Value: "2.1.0"},
	})
	require.NoError(t, err)
	assert.Equal(t, "projectName=fcli\nprojectVersion=1.2.3\nbuildDate=2025-01-01 12:00:00\nactionSchemaVersion=2.1.0\n", string(out))
}

func TestRender_Empty(t *testing.T) {
	out, err := Render(nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestRender_Rejects(t *testing.T) {
	cases := map[string][]Entry{
		"empty key":      {{Key: "", Value: "x"}},
		"separator":      {{Key: "a=b", Value: "x"}},
		"multiline":      {{Key: "a", Value: "x\ny"}},
		"duplicate keys": {{Key: "a", Value: "1"}, {Key: "a", Value: "2"}},
	}
	for name, entries := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Render(entries)
			var malformed *artifact.MalformedConfigurationError
			assert.ErrorAs(t, err, &malformed)
		})
	}
}

func TestKeys(t *testing.T) {
	assert.Equal(t, []string{"b", "a"}, Keys([]Entry{{Key: "b"}, {Key: "a"}}))
}
