package meta

// Object subtype names registered by the standard catalog.
const (
	SubTypePojo = "pojo"
	SubTypeMap  = "map"
)

// Reserved attribute names carried by objects.
const (
	AttrIsAbstract  = "isAbstract"
	AttrIsInterface = "isInterface"
	AttrImplements  = "implements"
)

// Object is a named aggregate of fields, identities, and relationships.
type Object struct {
	Base
}

// NewObject builds a detached object node.
func NewObject(subType, name string) *Object {
	o := &Object{}
	o.Init(TypeObject, subType, name, o)
	return o
}

// Overload returns a fresh detached Object super-linked to the receiver.
func (o *Object) Overload() Node {
	clone := NewObject(o.SubType(), o.Name())
	finishOverload(o, clone)
	return clone
}

// MetaFields returns the object's fields merged across the super chain:
// inherited fields first, own additions after, with same-named own fields
// overriding inherited ones in place.
func (o *Object) MetaFields() []*Field {
	nodes := collectInherited(o, TypeField)
	out := make([]*Field, 0, len(nodes))
	for _, n := range nodes {
		if f, ok := n.(*Field); ok {
			out = append(out, f)
		}
	}
	return out
}

// MetaField resolves a field by short name, consulting the super chain.
func (o *Object) MetaField(name string) (*Field, error) {
	c, err := o.Child(TypeField, name)
	if err != nil {
		return nil, &NotFoundError{Kind: "field", Name: name, Scope: PathOf(o)}
	}
	f, ok := c.(*Field)
	if !ok {
		return nil, &NotFoundError{Kind: "field", Name: name, Scope: PathOf(o)}
	}
	return f, nil
}

// Identities returns the object's identities merged across the super chain.
func (o *Object) Identities() []*Identity {
	nodes := collectInherited(o, TypeIdentity)
	out := make([]*Identity, 0, len(nodes))
	for _, n := range nodes {
		if id, ok := n.(*Identity); ok {
			out = append(out, id)
		}
	}
	return out
}

// PrimaryIdentity returns the object's primary identity.
func (o *Object) PrimaryIdentity() (*Identity, error) {
	for _, id := range o.Identities() {
		if id.IsPrimary() {
			return id, nil
		}
	}
	return nil, &NotFoundError{Kind: "identity", Name: SubTypePrimary, Scope: PathOf(o)}
}

// Relationships returns the object's relationships merged across the super
// chain.
func (o *Object) Relationships() []*Relationship {
	nodes := collectInherited(o, TypeRelationship)
	out := make([]*Relationship, 0, len(nodes))
	for _, n := range nodes {
		if r, ok := n.(*Relationship); ok {
			out = append(out, r)
		}
	}
	return out
}

// IsAbstract reports the isAbstract attribute, defaulting to false.
func (o *Object) IsAbstract() bool { return boolAttr(o, AttrIsAbstract) }

// IsInterface reports the isInterface attribute, defaulting to false.
func (o *Object) IsInterface() bool { return boolAttr(o, AttrIsInterface) }

// Implements returns the declared interface names, if any.
func (o *Object) Implements() []string {
	a, err := o.Attr(AttrImplements)
	if err != nil {
		return nil
	}
	vals, err := a.AsStringArray()
	if err != nil {
		return nil
	}
	return vals
}

func boolAttr(n Node, name string) bool {
	a, err := n.Attr(name)
	if err != nil {
		return false
	}
	v, err := a.AsBool()
	return err == nil && v
}

// collectInherited walks the super chain deepest-first and unions children
// of one type by short name, more specific nodes replacing inherited ones
// in place. Hidden (underscore-prefixed) attrs never cross chain levels,
// but this helper is only used for non-attr types.
func collectInherited(n Node, typ string) []Node {
	var chain []Node
	for cur := n; cur != nil; cur = cur.Super() {
		chain = append(chain, cur)
	}
	idx := make(map[string]int)
	var out []Node
	for i := len(chain) - 1; i >= 0; i-- {
		for _, c := range chain[i].ChildrenOfType(typ) {
			if j, ok := idx[c.ShortName()]; ok {
				out[j] = c
			} else {
				idx[c.ShortName()] = len(out)
				out = append(out, c)
			}
		}
	}
	return out
}
