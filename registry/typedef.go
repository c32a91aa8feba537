package registry

import (
	"reflect"

	"github.com/weftwork/weft/meta"
)

// FactoryFunc constructs a detached node for a (type, subtype) pair. The
// subtype is passed through so inherited factories can build specialized
// subtypes from a shared base definition.
type FactoryFunc func(subType, name string) meta.Node

// TypeKey identifies one registered (type, subtype) pair.
type TypeKey struct {
	Type    string `json:"type"`
	SubType string `json:"subType"`
}

func (k TypeKey) String() string { return k.Type + "." + k.SubType }

// ChildRequirement declares a child shape a type definition accepts. Each
// slot may be "*" (or empty) to stay open.
type ChildRequirement struct {
	ExpectedType    string `json:"expectedType"`              // child type, e.g. "field"
	ExpectedSubType string `json:"expectedSubType,omitempty"` // child subtype pattern
	Name            string `json:"name,omitempty"`            // child short-name pattern
	Required        bool   `json:"required,omitempty"`        // at least one such child must exist
}

func (c ChildRequirement) String() string {
	sub := c.ExpectedSubType
	if sub == "" {
		sub = meta.Wildcard
	}
	name := c.Name
	if name == "" {
		name = meta.Wildcard
	}
	return c.ExpectedType + "." + sub + "." + name
}

// Matches reports whether the requirement accepts the given child shape.
func (c ChildRequirement) Matches(childType, childSubType, childName string) bool {
	return meta.MatchPattern(childType, c.ExpectedType) &&
		meta.MatchPattern(childSubType, c.ExpectedSubType) &&
		meta.MatchPattern(childName, c.Name)
}

// AttrRequirement declares an attribute a type definition understands, and
// the attr subtype parsed values must carry.
type AttrRequirement struct {
	Name     string `json:"name"`               // attribute name, exact
	SubType  string `json:"subType"`            // attr subtype: string, int, long, double, boolean, stringarray
	Required bool   `json:"required,omitempty"` // the attribute must be present after loading
}

// TypeDefinition describes one (type, subtype) pair: how to construct its
// nodes, what it inherits, and which children and attributes it accepts.
// Definitions are value-copied into the registry on Register; the merged
// view returned by lookups unions requirements along the InheritsFrom
// chain with the most specific entry winning per name.
type TypeDefinition struct {
	Type              string             `json:"type"`
	SubType           string             `json:"subType"`
	InheritsFrom      *TypeKey           `json:"inheritsFrom,omitempty"`
	Factory           FactoryFunc        `json:"-"`
	IsDefaultSubType  bool               `json:"isDefaultSubType,omitempty"` // subtype applied when a document names only the type
	ChildRequirements []ChildRequirement `json:"childRequirements,omitempty"`
	AttrRequirements  []AttrRequirement  `json:"attrRequirements,omitempty"`
	Description       string             `json:"description,omitempty"`
}

// Key returns the definition's identity.
func (d *TypeDefinition) Key() TypeKey { return TypeKey{Type: d.Type, SubType: d.SubType} }

// AttrRequirement finds the declared requirement for an attribute name.
func (d *TypeDefinition) AttrRequirement(name string) (AttrRequirement, bool) {
	for _, a := range d.AttrRequirements {
		if a.Name == name {
			return a, true
		}
	}
	return AttrRequirement{}, false
}

// AcceptsChildShape reports whether any child requirement matches the given
// shape. A definition with no child requirements accepts everything.
func (d *TypeDefinition) AcceptsChildShape(childType, childSubType, childName string) bool {
	if len(d.ChildRequirements) == 0 {
		return true
	}
	for _, c := range d.ChildRequirements {
		if c.Matches(childType, childSubType, childName) {
			return true
		}
	}
	return false
}

// SupportedChildren renders the child requirement list for error messages.
func (d *TypeDefinition) SupportedChildren() string {
	if len(d.ChildRequirements) == 0 {
		return "any"
	}
	out := ""
	for i, c := range d.ChildRequirements {
		if i > 0 {
			out += ", "
		}
		out += c.String()
	}
	return out
}

// clone returns a deep copy so callers can never mutate registry state.
func (d *TypeDefinition) clone() *TypeDefinition {
	cp := *d
	if d.InheritsFrom != nil {
		k := *d.InheritsFrom
		cp.InheritsFrom = &k
	}
	cp.ChildRequirements = append([]ChildRequirement(nil), d.ChildRequirements...)
	cp.AttrRequirements = append([]AttrRequirement(nil), d.AttrRequirements...)
	return &cp
}

// equivalent reports whether two definitions for the same key describe the
// same registration. Factories compare by function identity.
func (d *TypeDefinition) equivalent(other *TypeDefinition) bool {
	if d.Type != other.Type || d.SubType != other.SubType {
		return false
	}
	if (d.InheritsFrom == nil) != (other.InheritsFrom == nil) {
		return false
	}
	if d.InheritsFrom != nil && *d.InheritsFrom != *other.InheritsFrom {
		return false
	}
	if d.IsDefaultSubType != other.IsDefaultSubType {
		return false
	}
	if !reflect.DeepEqual(d.ChildRequirements, other.ChildRequirements) {
		return false
	}
	if !reflect.DeepEqual(d.AttrRequirements, other.AttrRequirements) {
		return false
	}
	return factoryID(d.Factory) == factoryID(other.Factory)
}

func factoryID(f FactoryFunc) uintptr {
	if f == nil {
		return 0
	}
	return reflect.ValueOf(f).Pointer()
}

func (d *TypeDefinition) validate() error {
	if d.Type == "" || d.SubType == "" {
		return meta.NewConfigError(meta.PhaseRegistry, meta.CodeBadValue,
			"type definition needs both a type and a subtype, got %q.%q", d.Type, d.SubType)
	}
	if !meta.ValidName(d.Type) || !meta.ValidName(d.SubType) {
		return meta.NewConfigError(meta.PhaseRegistry, meta.CodeBadValue,
			"type definition %s.%s carries an invalid identifier", d.Type, d.SubType)
	}
	seen := make(map[string]bool, len(d.AttrRequirements))
	for _, a := range d.AttrRequirements {
		if a.Name == "" {
			return meta.NewConfigError(meta.PhaseRegistry, meta.CodeBadValue,
				"type definition %s.%s declares an unnamed attribute requirement", d.Type, d.SubType)
		}
		if seen[a.Name] {
			return meta.NewConfigError(meta.PhaseRegistry, meta.CodeBadValue,
				"type definition %s.%s declares attribute %q twice", d.Type, d.SubType, a.Name)
		}
		seen[a.Name] = true
	}
	for _, c := range d.ChildRequirements {
		if c.ExpectedType == "" {
			return meta.NewConfigError(meta.PhaseRegistry, meta.CodeBadValue,
				"type definition %s.%s declares a child requirement without an expected type", d.Type, d.SubType)
		}
	}
	return nil
}

// mergeFrom layers a more specific definition over an accumulated base.
// Child requirements override by their full (type, subtype, name) shape;
// attribute requirements override by name; the factory and default-subtype
// flag follow the most specific definition that sets them.
func mergeFrom(base, specific *TypeDefinition) *TypeDefinition {
	out := base.clone()
	out.Type = specific.Type
	out.SubType = specific.SubType
	out.InheritsFrom = nil
	if specific.InheritsFrom != nil {
		k := *specific.InheritsFrom
		out.InheritsFrom = &k
	}
	if specific.Factory != nil {
		out.Factory = specific.Factory
	}
	if specific.Description != "" {
		out.Description = specific.Description
	}
	out.IsDefaultSubType = specific.IsDefaultSubType

	childIdx := make(map[string]int, len(out.ChildRequirements))
	for i, c := range out.ChildRequirements {
		childIdx[c.String()] = i
	}
	for _, c := range specific.ChildRequirements {
		if i, ok := childIdx[c.String()]; ok {
			out.ChildRequirements[i] = c
		} else {
			childIdx[c.String()] = len(out.ChildRequirements)
			out.ChildRequirements = append(out.ChildRequirements, c)
		}
	}

	attrIdx := make(map[string]int, len(out.AttrRequirements))
	for i, a := range out.AttrRequirements {
		attrIdx[a.Name] = i
	}
	for _, a := range specific.AttrRequirements {
		if i, ok := attrIdx[a.Name]; ok {
			out.AttrRequirements[i] = a
		} else {
			attrIdx[a.Name] = len(out.AttrRequirements)
			out.AttrRequirements = append(out.AttrRequirements, a)
		}
	}
	return out
}

func cyclePath(chain []TypeKey, repeat TypeKey) string {
	out := ""
	for _, k := range chain {
		out += k.String() + " -> "
	}
	return out + repeat.String()
}
