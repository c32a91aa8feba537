package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func inTempProject(t *testing.T, cfgYAML string) string {
	t.Helper()
	dir := t.TempDir()
	if cfgYAML != "" {
		path := filepath.Join(dir, "weft.yaml")
		require.NoError(t, os.WriteFile(path, []byte(cfgYAML), 0o644))
	}
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	inTempProject(t, "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.Package)
	assert.Equal(t, []string{"metadata"}, cfg.Sources)
	assert.True(t, cfg.Strict)
	assert.False(t, cfg.InferTypes)
	assert.Equal(t, "127.0.0.1", cfg.Serve.Host)
	assert.Equal(t, 4400, cfg.Serve.Port)
	assert.Contains(t, cfg.Watch.Patterns, "*.json")
}

func TestLoad_FileOverrides(t *testing.T) {
	inTempProject(t, `package: acme::model
sources:
  - models
  - extra.json
strict: false
infer_types: true
serve:
  port: 5000
watch:
  ignored:
    - "*_gen.json"
`)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "acme::model", cfg.Package)
	assert.Equal(t, []string{"models", "extra.json"}, cfg.Sources)
	assert.False(t, cfg.Strict)
	assert.True(t, cfg.InferTypes)
	assert.Equal(t, 5000, cfg.Serve.Port)
	assert.Equal(t, "127.0.0.1", cfg.Serve.Host)
	assert.Equal(t, []string{"*_gen.json"}, cfg.Watch.Ignored)
}

func TestLoad_RejectsBadPackage(t *testing.T) {
	inTempProject(t, "package: 9acme\n")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "package")
}

func TestLoad_RejectsBadPort(t *testing.T) {
	inTempProject(t, "serve:\n  port: 70000\n")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "serve.port")
}

func TestValidate_EmptyPattern(t *testing.T) {
	cfg := Default()
	cfg.Watch.Patterns = []string{"*.json", " "}
	require.Error(t, Validate(cfg))
}

func TestInProjectAndFindRoot(t *testing.T) {
	root := inTempProject(t, "package: acme\n")
	assert.True(t, InProject())

	sub := filepath.Join(root, "models", "deep")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	require.NoError(t, os.Chdir(sub))

	assert.False(t, InProject())
	found, err := FindRoot()
	require.NoError(t, err)
	// TempDir may sit behind a symlink; compare resolved paths
	wantRoot, err := filepath.EvalSymlinks(root)
	require.NoError(t, err)
	gotRoot, err := filepath.EvalSymlinks(found)
	require.NoError(t, err)
	assert.Equal(t, wantRoot, gotRoot)
}

func TestExpandSources(t *testing.T) {
	dir := t.TempDir()
	models := filepath.Join(dir, "models")
	require.NoError(t, os.MkdirAll(models, 0o755))
	for _, name := range []string{"a.json", "b.yaml", "skip.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(models, name), []byte("x"), 0o644))
	}
	single := filepath.Join(dir, "c.xml")
	require.NoError(t, os.WriteFile(single, []byte("x"), 0o644))

	files, err := ExpandSources([]string{models, single}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{
		single,
		filepath.Join(models, "a.json"),
		filepath.Join(models, "b.yaml"),
	}, files)
}

func TestExpandSources_MissingEntry(t *testing.T) {
	_, err := ExpandSources([]string{"no-such-file.json"}, nil)
	require.Error(t, err)
}
