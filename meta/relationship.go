package meta

// Relationship subtype and attribute names.
const (
	SubTypeAssociation = "association"
	SubTypeComposition = "composition"
	SubTypeAggregation = "aggregation"

	AttrTargetObject = "targetObject"
	AttrCardinality  = "cardinality"

	CardinalityOne  = "one"
	CardinalityMany = "many"
)

// Relationship links its owning object to a target object.
type Relationship struct {
	Base
}

// NewRelationship builds a detached relationship node.
func NewRelationship(subType, name string) *Relationship {
	r := &Relationship{}
	r.Init(TypeRelationship, subType, name, r)
	return r
}

// Overload returns a fresh detached Relationship super-linked to the
// receiver.
func (r *Relationship) Overload() Node {
	clone := NewRelationship(r.SubType(), r.Name())
	finishOverload(r, clone)
	return clone
}

// Cardinality returns the declared cardinality, defaulting to one.
func (r *Relationship) Cardinality() string {
	a, err := r.Attr(AttrCardinality)
	if err != nil {
		return CardinalityOne
	}
	return a.AsString()
}

// TargetRef returns the raw targetObject reference as written in the
// document.
func (r *Relationship) TargetRef() (string, error) {
	a, err := r.Attr(AttrTargetObject)
	if err != nil {
		return "", err
	}
	return a.AsString(), nil
}

// Target resolves the targetObject reference to the actual object node,
// package-relative to the relationship first, then fully qualified against
// the tree root.
func (r *Relationship) Target() (*Object, error) {
	ref, err := r.TargetRef()
	if err != nil {
		return nil, err
	}
	root := RootOf(r)
	for _, name := range ResolveCandidates(FindPackage(r), ref) {
		if c, err := root.DirectChild(TypeObject, name); err == nil {
			if obj, ok := c.(*Object); ok {
				return obj, nil
			}
		}
	}
	return nil, NewConfigError(PhaseLoader, CodeBadValue,
		"relationship %q targets unknown object %q", r.Name(), ref).WithNode(r)
}

// RootOf walks parent references up to the tree root.
func RootOf(n Node) Node {
	cur := n
	for cur.Parent() != nil {
		cur = cur.Parent()
	}
	return cur.selfNode()
}
