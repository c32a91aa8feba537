package meta

// Field subtype names beyond the scalar ones shared with attrs.
const (
	SubTypeDate    = "date"
	SubTypeDecimal = "decimal"
)

// Common field attribute names.
const (
	AttrRequired     = "required"
	AttrDefaultValue = "defaultValue"
)

// Field is a typed data slot of an object.
type Field struct {
	Base
}

// NewField builds a detached field node.
func NewField(subType, name string) *Field {
	f := &Field{}
	f.Init(TypeField, subType, name, f)
	return f
}

// Overload returns a fresh detached Field super-linked to the receiver.
func (f *Field) Overload() Node {
	clone := NewField(f.SubType(), f.Name())
	finishOverload(f, clone)
	return clone
}

// IsRequired reports the required attribute, defaulting to false.
func (f *Field) IsRequired() bool { return boolAttr(f, AttrRequired) }

// IsAbstract reports the isAbstract attribute, defaulting to false.
func (f *Field) IsAbstract() bool { return boolAttr(f, AttrIsAbstract) }

// DefaultValue returns the defaultValue attribute and whether it is set.
func (f *Field) DefaultValue() (string, bool) {
	a, err := f.Attr(AttrDefaultValue)
	if err != nil {
		return "", false
	}
	return a.AsString(), true
}

// Validators returns the field's validators merged across the super chain.
func (f *Field) Validators() []*Validator {
	nodes := collectInherited(f, TypeValidator)
	out := make([]*Validator, 0, len(nodes))
	for _, n := range nodes {
		if v, ok := n.(*Validator); ok {
			out = append(out, v)
		}
	}
	return out
}

// Views returns the field's views merged across the super chain.
func (f *Field) Views() []*View {
	nodes := collectInherited(f, TypeView)
	out := make([]*View, 0, len(nodes))
	for _, n := range nodes {
		if v, ok := n.(*View); ok {
			out = append(out, v)
		}
	}
	return out
}
