package commands

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_ScaffoldsProject(t *testing.T) {
	inProject(t, map[string]string{})

	out, _, err := runCLI("init", "--yes", "--package", "acme", "demo")
	require.NoError(t, err)
	assert.Contains(t, out, "weft.yaml")
	assert.Contains(t, out, "model.json")

	cfg, err := os.ReadFile(filepath.Join("demo", "weft.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(cfg), "package: acme")
	assert.Contains(t, string(cfg), "strict: true")

	_, err = os.Stat(filepath.Join("demo", "metadata", "model.json"))
	require.NoError(t, err)
}

func TestInit_ScaffoldValidates(t *testing.T) {
	inProject(t, map[string]string{})

	_, _, err := runCLI("init", "--yes", "--package", "acme")
	require.NoError(t, err)

	out, _, err := runCLI("validate")
	require.NoError(t, err)
	assert.Contains(t, out, "1 objects")
}

func TestInit_FormatVariantsValidate(t *testing.T) {
	for _, format := range []string{"yaml", "xml"} {
		t.Run(format, func(t *testing.T) {
			inProject(t, map[string]string{})

			_, _, err := runCLI("init", "--yes", "--package", "acme", "--format", format)
			require.NoError(t, err)

			_, _, err = runCLI("validate")
			require.NoError(t, err)
		})
	}
}

func TestInit_RefusesExistingConfig(t *testing.T) {
	inProject(t, map[string]string{
		"weft.yaml": cliConfig,
	})

	_, _, err := runCLI("init", "--yes")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "weft.yaml")
}

func TestInit_RejectsUnknownFormat(t *testing.T) {
	inProject(t, map[string]string{})

	_, _, err := runCLI("init", "--yes", "--format", "toml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "toml")
}

func TestInit_RejectsBadPackage(t *testing.T) {
	inProject(t, map[string]string{})

	_, _, err := runCLI("init", "--yes", "--package", "9acme")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "package")
}

func TestPackageFromName(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"demo", "demo"},
		{"My Project", "my_project"},
		{"catalog-service", "catalog_service"},
		{"weft.samples", "weft_samples"},
		{"9lives", "app"},
		{"---", "app"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, packageFromName(tt.name), "name %q", tt.name)
	}
}
