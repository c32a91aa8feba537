package registry

// Builder assembles a TypeDefinition fluently. Plain struct literals remain
// valid; the builder just keeps provider registration code readable:
//
//	registry.NewType("field", "string").
//		Inherits("field", "base").
//		OptionalAttr("maxLength", "int").
//		Def()
type Builder struct {
	def TypeDefinition
}

// NewType starts a definition for the given (type, subtype) pair.
func NewType(typ, subType string) *Builder {
	return &Builder{def: TypeDefinition{Type: typ, SubType: subType}}
}

// Inherits points the definition at its inheritance parent. The parent may
// be registered later; references resolve at Freeze.
func (b *Builder) Inherits(typ, subType string) *Builder {
	b.def.InheritsFrom = &TypeKey{Type: typ, SubType: subType}
	return b
}

// Factory sets the node constructor. Omitted factories fall back to the
// nearest ancestor's.
func (b *Builder) Factory(f FactoryFunc) *Builder {
	b.def.Factory = f
	return b
}

// DefaultSubType marks this subtype as the one applied when a document
// names only the type.
func (b *Builder) DefaultSubType() *Builder {
	b.def.IsDefaultSubType = true
	return b
}

// AcceptsChild declares an optional child shape; each slot may be "*".
func (b *Builder) AcceptsChild(typ, subType, name string) *Builder {
	b.def.ChildRequirements = append(b.def.ChildRequirements, ChildRequirement{
		ExpectedType:    typ,
		ExpectedSubType: subType,
		Name:            name,
	})
	return b
}

// RequiresChild declares a child shape that must be present after loading.
func (b *Builder) RequiresChild(typ, subType, name string) *Builder {
	b.def.ChildRequirements = append(b.def.ChildRequirements, ChildRequirement{
		ExpectedType:    typ,
		ExpectedSubType: subType,
		Name:            name,
		Required:        true,
	})
	return b
}

// OptionalAttr declares an attribute the type understands and the attr
// subtype its parsed values carry.
func (b *Builder) OptionalAttr(name, subType string) *Builder {
	b.def.AttrRequirements = append(b.def.AttrRequirements, AttrRequirement{
		Name:    name,
		SubType: subType,
	})
	return b
}

// RequiredAttr declares an attribute that must be present after loading.
func (b *Builder) RequiredAttr(name, subType string) *Builder {
	b.def.AttrRequirements = append(b.def.AttrRequirements, AttrRequirement{
		Name:     name,
		SubType:  subType,
		Required: true,
	})
	return b
}

// Describe attaches a human description shown by inspection tooling.
func (b *Builder) Describe(desc string) *Builder {
	b.def.Description = desc
	return b
}

// Def returns the assembled definition.
func (b *Builder) Def() *TypeDefinition {
	d := b.def
	return &d
}
