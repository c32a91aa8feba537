package registry

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weftwork/weft/meta"
)

func objectFactory(subType, name string) meta.Node { return meta.NewObject(subType, name) }
func fieldFactory(subType, name string) meta.Node  { return meta.NewField(subType, name) }
func attrFactory(subType, name string) meta.Node   { return meta.NewAttr(subType, name) }

// newTestRegistry registers a small object/field/attr catalog without
// freezing, so tests can add their own definitions first.
func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry(nil)

	require.NoError(t, r.Register(NewType("object", "base").
		Factory(objectFactory).
		AcceptsChild("field", "*", "*").
		AcceptsChild("attr", "*", "*").
		Def()))
	require.NoError(t, r.Register(NewType("object", "pojo").
		Inherits("object", "base").
		Def()))
	require.NoError(t, r.Register(NewType("field", "base").
		Factory(fieldFactory).
		AcceptsChild("attr", "*", "*").
		Def()))
	require.NoError(t, r.Register(NewType("field", "string").
		Inherits("field", "base").
		OptionalAttr("maxLength", "int").
		Def()))
	require.NoError(t, r.Register(NewType("attr", "string").
		Factory(attrFactory).
		DefaultSubType().
		Def()))
	require.NoError(t, r.Register(NewType("attr", "int").
		Factory(attrFactory).
		Def()))
	return r
}

func TestRegister_DuplicateConflictingDefinition(t *testing.T) {
	r := newTestRegistry(t)

	err := r.Register(NewType("field", "string").
		Inherits("field", "base").
		OptionalAttr("maxLength", "long").
		Def())
	require.Error(t, err)
	assert.True(t, meta.IsConfigError(err, meta.CodeDuplicateType))
}

func TestRegister_EquivalentReRegistrationIsIdempotent(t *testing.T) {
	r := newTestRegistry(t)

	err := r.Register(NewType("field", "string").
		Inherits("field", "base").
		OptionalAttr("maxLength", "int").
		Def())
	assert.NoError(t, err)
}

func TestRegister_AfterFreezeFails(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.Freeze())

	err := r.Register(NewType("view", "base").Factory(fieldFactory).Def())
	require.Error(t, err)
	assert.True(t, meta.IsConfigError(err, meta.CodeFrozen))
}

func TestRegister_RejectsInvalidIdentifiers(t *testing.T) {
	r := NewRegistry(nil)

	err := r.Register(NewType("", "base").Factory(fieldFactory).Def())
	require.Error(t, err)
	assert.True(t, meta.IsConfigError(err, meta.CodeBadValue))

	err = r.Register(NewType("my type", "base").Factory(fieldFactory).Def())
	require.Error(t, err)
	assert.True(t, meta.IsConfigError(err, meta.CodeBadValue))
}

func TestTypeDefinition_MergesInheritanceChain(t *testing.T) {
	r := newTestRegistry(t)

	def, err := r.TypeDefinition("field", "string")
	require.NoError(t, err)

	base, err := r.TypeDefinition("field", "base")
	require.NoError(t, err)

	// Every inherited child requirement survives in the merged view.
	for _, c := range base.ChildRequirements {
		assert.Contains(t, def.ChildRequirements, c)
	}
	req, ok := def.AttrRequirement("maxLength")
	require.True(t, ok)
	assert.Equal(t, "int", req.SubType)
}

func TestTypeDefinition_OwnEntryOverridesInherited(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Register(NewType("field", "base").
		Factory(fieldFactory).
		OptionalAttr("defaultValue", "string").
		Def()))
	require.NoError(t, r.Register(NewType("field", "int").
		Inherits("field", "base").
		OptionalAttr("defaultValue", "int").
		Def()))

	def, err := r.TypeDefinition("field", "int")
	require.NoError(t, err)

	req, ok := def.AttrRequirement("defaultValue")
	require.True(t, ok)
	assert.Equal(t, "int", req.SubType, "the subtype's own declaration wins")

	count := 0
	for _, a := range def.AttrRequirements {
		if a.Name == "defaultValue" {
			count++
		}
	}
	assert.Equal(t, 1, count, "override replaces in place, no duplicate entry")
}

func TestTypeDefinition_UnknownTypeAndSubType(t *testing.T) {
	r := newTestRegistry(t)

	_, err := r.TypeDefinition("widget", "base")
	require.Error(t, err)
	assert.True(t, meta.IsConfigError(err, meta.CodeUnknownType))

	_, err = r.TypeDefinition("field", "uuid")
	require.Error(t, err)
	assert.True(t, meta.IsConfigError(err, meta.CodeUnknownSubType))
	assert.Contains(t, err.Error(), "string", "error lists the registered subtypes")
}

func TestTypeDefinition_ReturnsDefensiveCopy(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.Freeze())

	def1, err := r.TypeDefinition("field", "string")
	require.NoError(t, err)
	def1.AttrRequirements[0].SubType = "MODIFIED"
	def1.ChildRequirements = nil

	def2, err := r.TypeDefinition("field", "string")
	require.NoError(t, err)
	req, ok := def2.AttrRequirement("maxLength")
	require.True(t, ok)
	assert.Equal(t, "int", req.SubType, "mutating a returned definition never touches the registry")
	assert.NotEmpty(t, def2.ChildRequirements)
}

func TestFreeze_UnresolvedInherit(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.Register(NewType("view", "text").
		Inherits("view", "base").
		Def()))

	err := r.Freeze()
	require.Error(t, err)
	assert.True(t, meta.IsConfigError(err, meta.CodeUnresolvedInherit))
	assert.False(t, r.Frozen())
}

func TestFreeze_DetectsInheritanceCycle(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Register(NewType("a", "x").Inherits("b", "y").Factory(fieldFactory).Def()))
	require.NoError(t, r.Register(NewType("b", "y").Inherits("c", "z").Factory(fieldFactory).Def()))
	require.NoError(t, r.Register(NewType("c", "z").Inherits("a", "x").Factory(fieldFactory).Def()))

	err := r.Freeze()
	require.Error(t, err)
	assert.True(t, meta.IsConfigError(err, meta.CodeInheritanceCycle))
	assert.Contains(t, err.Error(), "a.x -> b.y -> c.z -> a.x")
}

func TestFreeze_SelfInheritanceIsACycle(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Register(NewType("a", "x").Inherits("a", "x").Factory(fieldFactory).Def()))

	err := r.Freeze()
	require.Error(t, err)
	assert.True(t, meta.IsConfigError(err, meta.CodeInheritanceCycle))
}

func TestFreeze_RequiresAFactorySomewhereInChain(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Register(NewType("view", "base").Def()))
	require.NoError(t, r.Register(NewType("view", "text").Inherits("view", "base").Def()))

	err := r.Freeze()
	require.Error(t, err)
	assert.True(t, meta.IsConfigError(err, meta.CodeBadValue))
}

func TestFreeze_Idempotent(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.Freeze())
	require.NoError(t, r.Freeze())
	assert.True(t, r.Frozen())
}

func TestNewInstance_UnregisteredPairFails(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.Freeze())

	_, err := r.NewInstance("widget", "base", "w")
	require.Error(t, err)
	assert.True(t, meta.IsConfigError(err, meta.CodeUnknownType))

	_, err = r.NewInstance("field", "uuid", "f")
	require.Error(t, err)
	assert.True(t, meta.IsConfigError(err, meta.CodeUnknownSubType))
}

func TestNewInstance_RequiresAName(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.Freeze())

	_, err := r.NewInstance("field", "string", "")
	require.Error(t, err)
	assert.True(t, meta.IsConfigError(err, meta.CodeMissingName))
}

func TestNewInstance_BuildsKindViaInheritedFactory(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.Freeze())

	// field.string declares no factory of its own; field.base's applies.
	n, err := r.NewInstance("field", "string", "email")
	require.NoError(t, err)
	require.IsType(t, &meta.Field{}, n)
	assert.Equal(t, "field", n.Type())
	assert.Equal(t, "string", n.SubType())
	assert.Equal(t, "email", n.Name())
}

func TestNewInstance_StampsRegistryAsAcceptor(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.Freeze())

	field, err := r.NewInstance("field", "string", "email")
	require.NoError(t, err)
	other, err := r.NewInstance("field", "string", "name")
	require.NoError(t, err)

	// field.base accepts only attr children, so a field under a field
	// must be rejected by the stamped acceptor.
	err = field.AddChild(other)
	require.Error(t, err)
	assert.True(t, meta.IsConfigError(err, meta.CodeChildRejected))

	obj, err := r.NewInstance("object", "pojo", "User")
	require.NoError(t, err)
	assert.NoError(t, obj.AddChild(field))
}

func TestAcceptsChild_NoRequirementsIsPermissive(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.Freeze())

	// attr.string declares no child requirements at all.
	parent := meta.NewAttr("string", "free")
	child := meta.NewField("string", "anything")
	assert.NoError(t, r.AcceptsChild(parent, child))
}

func TestAcceptsChild_ErrorListsSupportedChildren(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.Freeze())

	parent := meta.NewField("string", "email")
	child := meta.NewObject("pojo", "Nested")
	err := r.AcceptsChild(parent, child)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "attr.*.*")
}

func TestDefaultSubType(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.Freeze())

	sub, ok := r.DefaultSubType("attr")
	assert.True(t, ok)
	assert.Equal(t, "string", sub)

	_, ok = r.DefaultSubType("field")
	assert.False(t, ok)
}

func TestFreeze_TwoDefaultSubTypesForOneType(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Register(NewType("attr", "string").Factory(attrFactory).DefaultSubType().Def()))
	require.NoError(t, r.Register(NewType("attr", "int").Factory(attrFactory).DefaultSubType().Def()))

	err := r.Freeze()
	require.Error(t, err)
	assert.True(t, meta.IsConfigError(err, meta.CodeDuplicateType))
}

func TestTypeQueries(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.Freeze())

	assert.True(t, r.HasType("field"))
	assert.False(t, r.HasType("widget"))
	assert.True(t, r.HasSubType("field", "string"))
	assert.False(t, r.HasSubType("field", "uuid"))
	assert.Equal(t, []string{"base", "string"}, r.SubTypes("field"))
	assert.Equal(t, []string{"attr", "field", "object"}, r.TypeNames())
}

func TestStats(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.Freeze())

	stats := r.Stats()
	assert.Equal(t, 3, stats.Types)
	assert.Equal(t, 6, stats.Definitions)
	assert.Equal(t, 2, stats.SubTypesByType["field"])
	assert.True(t, stats.Frozen)
}

func TestLoad_AppliesProvidersInOrderAndFreezes(t *testing.T) {
	r := NewRegistry(nil)
	var order []string

	base := ProviderFunc{ProviderName: "base", Register: func(r *Registry) error {
		order = append(order, "base")
		return r.Register(NewType("field", "base").Factory(fieldFactory).Def())
	}}
	ext := ProviderFunc{ProviderName: "ext", Register: func(r *Registry) error {
		order = append(order, "ext")
		return r.Register(NewType("field", "string").Inherits("field", "base").Def())
	}}

	require.NoError(t, Load(r, base, ext))
	assert.Equal(t, []string{"base", "ext"}, order)
	assert.True(t, r.Frozen())
}

func TestLoad_ProviderErrorNamesTheProvider(t *testing.T) {
	r := NewRegistry(nil)
	bad := ProviderFunc{ProviderName: "bad", Register: func(r *Registry) error {
		return r.Register(NewType("", "").Def())
	}}

	err := Load(r, bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provider bad")
	assert.True(t, meta.IsConfigError(err, meta.CodeBadValue))
}

func TestRegistry_ParallelReadsAfterFreeze(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.Freeze())

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				def, err := r.TypeDefinition("field", "string")
				if err != nil || def.Type != "field" {
					t.Error("concurrent TypeDefinition lookup failed")
					return
				}
				if _, err := r.NewInstance("object", "pojo", "User"); err != nil {
					t.Error("concurrent NewInstance failed")
					return
				}
				r.HasType("attr")
				r.SubTypes("field")
				r.Stats()
			}
		}()
	}
	wg.Wait()
}
