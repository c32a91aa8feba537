package meta

// Identity subtype and attribute names.
const (
	SubTypePrimary   = "primary"
	SubTypeSecondary = "secondary"

	AttrFields     = "fields"
	AttrGeneration = "generation"

	GenerationIncrement = "increment"
	GenerationUUID      = "uuid"
	GenerationAssigned  = "assigned"
)

// Identity names the fields that identify instances of its owning object,
// such as a primary key or a secondary lookup key.
type Identity struct {
	Base
}

// NewIdentity builds a detached identity node.
func NewIdentity(subType, name string) *Identity {
	id := &Identity{}
	id.Init(TypeIdentity, subType, name, id)
	return id
}

// Overload returns a fresh detached Identity super-linked to the receiver.
func (id *Identity) Overload() Node {
	clone := NewIdentity(id.SubType(), id.Name())
	finishOverload(id, clone)
	return clone
}

// IsPrimary reports whether this is the primary identity.
func (id *Identity) IsPrimary() bool { return id.SubType() == SubTypePrimary }

// Generation returns the value generation strategy, or "" when assigned
// externally.
func (id *Identity) Generation() string {
	a, err := id.Attr(AttrGeneration)
	if err != nil {
		return ""
	}
	return a.AsString()
}

// FieldNames returns the declared field names from the fields attribute.
func (id *Identity) FieldNames() ([]string, error) {
	a, err := id.Attr(AttrFields)
	if err != nil {
		return nil, err
	}
	return a.AsStringArray()
}

// Fields resolves the declared field names to the actual field nodes of
// the owning object, consulting its super chain. The result contains the
// object's own nodes, not copies.
func (id *Identity) Fields() ([]*Field, error) {
	obj, ok := id.Parent().(*Object)
	if !ok {
		return nil, NewConfigError(PhaseLoader, CodeBadValue,
			"identity %q is not attached to an object", id.Name()).WithNode(id)
	}
	names, err := id.FieldNames()
	if err != nil {
		return nil, err
	}
	out := make([]*Field, 0, len(names))
	for _, name := range names {
		f, err := obj.MetaField(name)
		if err != nil {
			return nil, NewConfigError(PhaseLoader, CodeBadValue,
				"identity %q names unknown field %q on object %q", id.Name(), name, obj.Name()).WithNode(id)
		}
		out = append(out, f)
	}
	return out, nil
}
