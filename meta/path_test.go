package meta

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"simple", "User", true},
		{"underscore start", "_hidden", true},
		{"digits inside", "field2", true},
		{"qualified", "acme::model::User", true},
		{"empty", "", false},
		{"leading digit", "2fast", false},
		{"hyphen", "user-name", false},
		{"space", "user name", false},
		{"empty segment", "acme::::User", false},
		{"trailing separator", "acme::", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidName(tt.input))
		})
	}
}

func TestShortNameAndPackage(t *testing.T) {
	assert.Equal(t, "User", ShortNameOf("acme::model::User"))
	assert.Equal(t, "User", ShortNameOf("User"))
	assert.Equal(t, "acme::model", PackageOf("acme::model::User"))
	assert.Equal(t, "", PackageOf("User"))
}

func TestQualify(t *testing.T) {
	assert.Equal(t, "acme::User", Qualify("acme", "User"))
	assert.Equal(t, "User", Qualify("", "User"))
	assert.Equal(t, "other::User", Qualify("acme", "other::User"), "qualified names pass through")
}

func TestExpandPackage(t *testing.T) {
	tests := []struct {
		name string
		base string
		ref  string
		want string
	}{
		{"empty ref keeps base", "a::b", "", "a::b"},
		{"relative appends", "a::b", "::c", "a::b::c"},
		{"relative from empty base", "", "::c", "c"},
		{"parent climbs one", "a::b", "..::c", "a::c"},
		{"parent climbs twice", "a::b::c", "..::..::d", "a::d"},
		{"absolute wins", "a::b", "x::y", "x::y"},
		{"plain passes through", "a::b", "c", "c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpandPackage(tt.base, tt.ref)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExpandPackage_ClimbAboveRoot(t *testing.T) {
	_, err := ExpandPackage("a", "..::..::b")
	require.Error(t, err)
	assert.True(t, IsConfigError(err, CodeBadPackage))
}

func TestResolveCandidates(t *testing.T) {
	tests := []struct {
		name string
		base string
		ref  string
		want []string
	}{
		{"plain tries package first", "acme::model", "User", []string{"acme::model::User", "User"}},
		{"plain without base", "", "User", []string{"User"}},
		{"relative expands", "acme::model", "::shared::Id", []string{"acme::model::shared::Id"}},
		{"parent expands", "acme::model", "..::common::Base", []string{"acme::common::Base"}},
		{"qualified as written", "acme::model", "other::Thing", []string{"other::Thing"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveCandidates(tt.base, tt.ref))
		})
	}
}

func TestFindPackage(t *testing.T) {
	root := NewNode(TypeLoader, "file", "demo")
	obj := NewObject(SubTypePojo, "acme::model::User")
	field := NewField(SubTypeString, "email")
	require.NoError(t, root.AddChild(obj))
	require.NoError(t, obj.AddChild(field))

	assert.Equal(t, "acme::model", FindPackage(field))
	assert.Equal(t, "acme::model", FindPackage(obj))
	assert.Equal(t, "", FindPackage(root))
}
