package app

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/specialistvlad/artifactgen/internal/hcl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const projectConfig = `
build {
  project_name   = "fcli"
  version        = "2.1.0"
  schema_version = "2.1.0"
}

action_zips {
  root        = "modules"
  destination = "build/zip"
  prefix      = "com/fortify/cli"

  rewrite {
    replacement = "https://fortify.github.io/fcli/schemas/action/fcli-action-schema-${schema_version}.json"
  }
}

resource_config "fcli-actions" {
  namespace  = "com.fortify.cli"
  output_dir = "build/resources"
  source "build/zip" {}
}
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func setupProject(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "artifactgen.hcl")
	writeFile(t, cfgPath, projectConfig)
	writeFile(t, filepath.Join(dir, "modules", "alpha", "actions", "zip", "one.yaml"), "name: one\n")
	writeFile(t, filepath.Join(dir, "modules", "alpha", "actions", "zip", "two.yaml"), "name: two\n")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "modules", "beta", "actions", "zip"), 0o755))
	return dir, cfgPath
}

func newTestApp(t *testing.T, cfgPath string) (*App, *SafeBuffer) {
	t.Helper()
	buf := &SafeBuffer{}
	dumpLogs(t, buf)
	cfg, err := NewConfig(Config{ConfigPaths: []string{cfgPath}, LogLevel: "debug", LogFormat: "text"})
	require.NoError(t, err)
	a, err := NewApp(context.Background(), buf, cfg, hcl.NewLoader(""))
	require.NoError(t, err)
	return a, buf
}

func TestNewConfig(t *testing.T) {
	cfg, err := NewConfig(Config{ConfigPaths: []string{"artifactgen.hcl"}})
	require.NoError(t, err)
	assert.Equal(t, DefaultWorkerCount, cfg.WorkerCount)

	_, err = NewConfig(Config{})
	assert.Error(t, err)
	_, err = NewConfig(Config{ConfigPaths: []string{""}})
	assert.Error(t, err)
	_, err = NewConfig(Config{ConfigPaths: []string{"a"}, LogFormat: "xml"})
	assert.ErrorContains(t, err, "log format")
	_, err = NewConfig(Config{ConfigPaths: []string{"a"}, LogLevel: "trace"})
	assert.ErrorContains(t, err, "log level")
}

func TestApp_RunTwice(t *testing.T) {
	dir, cfgPath := setupProject(t)

	a, logs := newTestApp(t, cfgPath)
	assert.Equal(t, dir, a.Model().ProjectDir)
	require.NoError(t, a.Run(context.Background()))
	assert.FileExists(t, filepath.Join(dir, "build", "zip", "com", "fortify", "cli", "alpha", "actions.zip"))
	assert.FileExists(t, filepath.Join(dir, "build", "resources", "META-INF", "native-image", "com.fortify.cli", "fcli-actions", "resource-config.json"))
	assert.Contains(t, logs.String(), "written=2")

	again, logs := newTestApp(t, cfgPath)
	require.NoError(t, again.Run(context.Background()))
	assert.Contains(t, logs.String(), "written=0")
}

func TestNewApp_LoadError(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "broken.hcl")
	writeFile(t, cfgPath, "build {\n")

	cfg, err := NewConfig(Config{ConfigPaths: []string{cfgPath}})
	require.NoError(t, err)
	_, err = NewApp(context.Background(), &SafeBuffer{}, cfg, hcl.NewLoader(""))
	assert.ErrorContains(t, err, "failed to load configuration")
}

func TestApp_RunReportsComposeError(t *testing.T) {
	dir, cfgPath := setupProject(t)
	writeFile(t, filepath.Join(dir, "extra.hcl"), "copy \"c\" {\n  source = \"a\"\n  destination = \"b\"\n  depends_on = [\"unknown\"]\n}\n")

	buf := &SafeBuffer{}
	cfg, err := NewConfig(Config{ConfigPaths: []string{cfgPath, filepath.Join(dir, "extra.hcl")}})
	require.NoError(t, err)
	a, err := NewApp(context.Background(), buf, cfg, hcl.NewLoader(""))
	require.NoError(t, err)

	err = a.Run(context.Background())
	assert.ErrorContains(t, err, "failed to compose pipeline")
	assert.ErrorContains(t, err, "extra.hcl:1")
	assert.NoDirExists(t, filepath.Join(dir, "build"))
}

func TestApp_ReferencesOrderTasks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}
	dir, cfgPath := setupProject(t)
	writeFile(t, filepath.Join(dir, "dist.hcl"), `
copy "collect" {
  source      = exec.gen.outputs[0]
  destination = "dist/out.txt"
}

exec "gen" {
  command = ["sh", "-c", "sleep 0.2 && mkdir -p build/gen && printf generated > build/gen/out.txt"]
  outputs = ["build/gen/out.txt"]
}
`)
	buf := &SafeBuffer{}
	dumpLogs(t, buf)
	cfg, err := NewConfig(Config{ConfigPaths: []string{cfgPath, filepath.Join(dir, "dist.hcl")}, LogLevel: "debug", WorkerCount: 4})
	require.NoError(t, err)
	a, err := NewApp(context.Background(), buf, cfg, hcl.NewLoader(""))
	require.NoError(t, err)

	collect := a.Model().Copies[0]
	assert.Equal(t, filepath.Join(dir, "build", "gen", "out.txt"), collect.Source)
	require.Len(t, collect.References, 1)
	assert.Equal(t, "gen", collect.References[0].Name)

	require.NoError(t, a.Run(context.Background()))
	data, err := os.ReadFile(filepath.Join(dir, "dist", "out.txt"))
	require.NoError(t, err)
	assert.Equal(t, "generated", string(data))
	assert.Contains(t, buf.String(), "Linking implicit dependency.")
}

func TestNewLogger_JSON(t *testing.T) {
	buf := &SafeBuffer{}
	newLogger("warn", "json", buf).Info("hidden")
	newLogger("warn", "json", buf).Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
}
