package meta

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigError_Format(t *testing.T) {
	err := NewConfigError(PhaseParse, CodeUnknownType, "no type %q", "widget").
		WithLocation("model.json", 12, 3).
		WithHint("register the type before loading")

	msg := err.Error()
	assert.Contains(t, msg, "[parse:unknown_type]")
	assert.Contains(t, msg, `no type "widget"`)
	assert.Contains(t, msg, "model.json:12:3")
	assert.Equal(t, []string{"register the type before loading"}, err.Hints)
}

func TestConfigError_WithNodeRendersPath(t *testing.T) {
	obj := NewObject(SubTypePojo, "acme::User")
	err := NewConfigError(PhaseLoader, CodeBadValue, "boom").WithNode(obj)
	assert.Contains(t, err.Error(), "object[pojo]{acme::User}")
}

func TestIsConfigError_MatchesWrappedAndCode(t *testing.T) {
	inner := NewConfigError(PhaseRegistry, CodeDuplicateType, "dup")
	wrapped := fmt.Errorf("registering: %w", inner)

	assert.True(t, IsConfigError(wrapped, CodeDuplicateType))
	assert.True(t, IsConfigError(wrapped, ""), "empty code matches any config error")
	assert.False(t, IsConfigError(wrapped, CodeFrozen))
	assert.False(t, IsConfigError(fmt.Errorf("plain"), ""))
}

func TestViolation_Format(t *testing.T) {
	obj := NewObject(SubTypePojo, "User")
	v := NewViolation("placement.loader", obj, "object %q not allowed here", "User")

	assert.Contains(t, v.Error(), "constraint violation [placement.loader]")
	assert.Equal(t, PathOf(obj), v.NodePath)

	anon := NewViolation("", nil, "bad state")
	assert.Equal(t, "constraint violation: bad state", anon.Error())
}

func TestIsViolation_IgnoresOtherErrors(t *testing.T) {
	assert.True(t, IsViolation(fmt.Errorf("add: %w", NewViolation("x", nil, "no"))))
	assert.False(t, IsViolation(NewConfigError(PhaseParse, CodeBadValue, "no")))
}

func TestNotFoundError_Format(t *testing.T) {
	err := &NotFoundError{Kind: "attr", Name: "maxLength", Scope: "field[string]{email}"}
	assert.Equal(t, `attr "maxLength" not found in field[string]{email}`, err.Error())
	assert.True(t, IsNotFound(fmt.Errorf("lookup: %w", err)))

	bare := &NotFoundError{Kind: "type", Name: "widget"}
	assert.Equal(t, `type "widget" not found`, bare.Error())
}
