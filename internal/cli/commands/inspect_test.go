package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInspect_DefaultsToStats(t *testing.T) {
	inProject(t, map[string]string{
		"weft.yaml":           cliConfig,
		"metadata/model.json": cliDoc,
	})

	out, _, err := runCLI("inspect")
	require.NoError(t, err)
	assert.Contains(t, out, "objects:")
	assert.Contains(t, out, "tree nodes:")
	assert.Contains(t, out, "documents:")
}

func TestInspect_TypesNeedsNoDocuments(t *testing.T) {
	inProject(t, map[string]string{})

	out, _, err := runCLI("inspect", "--types")
	require.NoError(t, err)
	assert.Contains(t, out, "TYPE")
	assert.Contains(t, out, "object")
	assert.Contains(t, out, "pojo")
	assert.Contains(t, out, "object.base")
}

func TestInspect_TreeWalksNodes(t *testing.T) {
	inProject(t, map[string]string{
		"weft.yaml":           cliConfig,
		"metadata/model.json": cliDoc,
	})

	out, _, err := runCLI("inspect", "--tree")
	require.NoError(t, err)
	assert.Contains(t, out, "acme::User")
	assert.Contains(t, out, "[object.pojo]")
	assert.Contains(t, out, "email")
	assert.Contains(t, out, "@required=true")
}

func TestInspect_ObjectDetail(t *testing.T) {
	inProject(t, map[string]string{
		"weft.yaml":           cliConfig,
		"metadata/model.json": cliDoc,
	})

	out, _, err := runCLI("inspect", "acme::User")
	require.NoError(t, err)
	assert.Contains(t, out, "name:")
	assert.Contains(t, out, "acme::User")
	assert.Contains(t, out, "FIELD")
	assert.Contains(t, out, "email")
}

func TestInspect_ObjectMissSuggests(t *testing.T) {
	inProject(t, map[string]string{
		"weft.yaml":           cliConfig,
		"metadata/model.json": cliDoc,
	})

	_, stderr, err := runCLI("inspect", "acme::Usr")
	require.Error(t, err)
	assert.Contains(t, stderr, "not found")
	assert.Contains(t, stderr, "acme::User")
}

func TestInspect_LoadFailureReported(t *testing.T) {
	inProject(t, map[string]string{
		"weft.yaml":           cliConfig,
		"metadata/model.json": cliBadDoc,
	})

	_, stderr, err := runCLI("inspect", "--tree")
	require.Error(t, err)
	assert.Contains(t, stderr, "LOAD FAILED")
}
