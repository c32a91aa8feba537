package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runCLI executes the root command with the given arguments and captured
// output streams.
func runCLI(args ...string) (stdout, stderr string, err error) {
	cmd := NewRootCommand()
	var out, errBuf bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errBuf)
	cmd.SetArgs(args)
	err = cmd.Execute()
	return out.String(), errBuf.String(), err
}

// inProject creates a temp directory with the given files and makes it
// the working directory for the rest of the test.
func inProject(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestNewRootCommand_RegistersVerbs(t *testing.T) {
	cmd := NewRootCommand()

	assert.Equal(t, "weft", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.NotEmpty(t, cmd.Long)

	expected := []string{"version", "validate", "inspect", "serve", "init"}
	for _, name := range expected {
		found := false
		for _, sub := range cmd.Commands() {
			if sub.Name() == name {
				found = true
				break
			}
		}
		assert.True(t, found, "command %s should be registered", name)
	}
}

func TestNewVersionCommand_Runs(t *testing.T) {
	Version = "1.0.0-test"
	GitCommit = "abc123"
	BuildDate = "2026-01-01"

	cmd := NewVersionCommand()
	require.Equal(t, "version", cmd.Use)
	require.NotNil(t, cmd.Run)

	cmd.Run(cmd, []string{})
}

func TestRootCommand_UnknownVerb(t *testing.T) {
	_, _, err := runCLI("frobnicate")
	assert.Error(t, err)
}
