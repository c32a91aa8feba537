package meta

// Validator and view subtype and attribute names.
const (
	SubTypeRequiredValidator = "required"
	SubTypeRegexValidator    = "regex"
	SubTypeLengthValidator   = "length"

	SubTypeBaseView = "base"
	SubTypeTextView = "text"

	AttrMsg  = "msg"
	AttrMask = "mask"
	AttrMin  = "min"
	AttrMax  = "max"
)

// Validator declares a data-level check for its owning field. The core only
// models validators; running them against instance data is a consumer
// concern.
type Validator struct {
	Base
}

// NewValidator builds a detached validator node.
func NewValidator(subType, name string) *Validator {
	v := &Validator{}
	v.Init(TypeValidator, subType, name, v)
	return v
}

// Overload returns a fresh detached Validator super-linked to the receiver.
func (v *Validator) Overload() Node {
	clone := NewValidator(v.SubType(), v.Name())
	finishOverload(v, clone)
	return clone
}

// Msg returns the custom failure message, or "".
func (v *Validator) Msg() string {
	a, err := v.Attr(AttrMsg)
	if err != nil {
		return ""
	}
	return a.AsString()
}

// View declares a presentation hint for its owning field.
type View struct {
	Base
}

// NewView builds a detached view node.
func NewView(subType, name string) *View {
	v := &View{}
	v.Init(TypeView, subType, name, v)
	return v
}

// Overload returns a fresh detached View super-linked to the receiver.
func (v *View) Overload() Node {
	clone := NewView(v.SubType(), v.Name())
	finishOverload(v, clone)
	return clone
}
