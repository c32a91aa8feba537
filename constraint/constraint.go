// Package constraint implements the enforcement engine consulted on every
// structural mutation of a metadata tree. Constraints target nodes through
// wildcardable (type, subtype, name) patterns and come in three kinds:
// placements allow or forbid a parent/child attachment, validations run a
// predicate over an attached node or one of its attribute values, and
// uniqueness rules reject duplicate values among siblings.
//
// Placement follows an open-world policy with explicit forbid: if any
// matching placement forbids, the attachment fails regardless of allows;
// otherwise any matching allow passes it; with no matching placement at
// all, the attachment passes by default.
package constraint

import (
	"fmt"
	"regexp"

	"github.com/weftwork/weft/meta"
)

// Pattern targets a constraint at nodes by (type, subtype, shortname).
// Each slot supports the wildcard forms of meta.MatchPattern; an empty
// slot is open.
type Pattern struct {
	Type    string `json:"type"`
	SubType string `json:"subType"`
	Name    string `json:"name"`
}

// P is a compact Pattern constructor for constraint declarations.
func P(typ, subType, name string) Pattern {
	return Pattern{Type: typ, SubType: subType, Name: name}
}

// Matches reports whether the pattern matches a node's shape.
func (p Pattern) Matches(n meta.Node) bool {
	return p.MatchesShape(n.Type(), n.SubType(), n.ShortName())
}

// MatchesShape reports whether the pattern matches the given shape.
func (p Pattern) MatchesShape(typ, subType, name string) bool {
	return meta.MatchPattern(typ, p.Type) &&
		meta.MatchPattern(subType, p.SubType) &&
		meta.MatchPattern(name, p.Name)
}

func (p Pattern) String() string {
	slot := func(s string) string {
		if s == "" {
			return meta.Wildcard
		}
		return s
	}
	return slot(p.Type) + "." + slot(p.SubType) + "." + slot(p.Name)
}

// Constraint is implemented by Placement, Validation, and Uniqueness.
type Constraint interface {
	ConstraintID() string
	Describe() string
}

// Placement allows or forbids attaching children matching Child under
// parents matching Parent. The parent pattern's name slot is usually left
// open; placement rules are about shapes, not specific nodes.
type Placement struct {
	ID          string  `json:"id"`
	Description string  `json:"description,omitempty"`
	Parent      Pattern `json:"parent"`
	Child       Pattern `json:"child"`
	Allowed     bool    `json:"allowed"`
}

// NewPlacement builds a placement rule.
func NewPlacement(id, desc string, parent, child Pattern, allowed bool) *Placement {
	return &Placement{ID: id, Description: desc, Parent: parent, Child: child, Allowed: allowed}
}

func (p *Placement) ConstraintID() string { return p.ID }
func (p *Placement) Describe() string     { return p.Description }

// Validation runs a predicate against nodes matching Target once placement
// has passed. When Attr is set, the predicate receives the value of that
// attribute; a node without the attribute is skipped (presence is the
// registry's concern, not the predicate's).
type Validation struct {
	ID          string  `json:"id"`
	Description string  `json:"description,omitempty"`
	Target      Pattern `json:"target"`
	Attr        string  `json:"attr,omitempty"`

	// Check returns false to reject. For attribute-scoped validations the
	// value is the attr's typed value; otherwise it is nil.
	Check func(n meta.Node, value any) bool `json:"-"`
}

func (v *Validation) ConstraintID() string { return v.ID }
func (v *Validation) Describe() string     { return v.Description }

// NewValidation builds a node-scoped validation.
func NewValidation(id, desc string, target Pattern, check func(n meta.Node) bool) *Validation {
	return &Validation{
		ID:          id,
		Description: desc,
		Target:      target,
		Check:       func(n meta.Node, _ any) bool { return check(n) },
	}
}

// NewAttrValidation builds a validation over one attribute's typed value.
func NewAttrValidation(id, desc string, target Pattern, attr string, check func(value any) bool) *Validation {
	return &Validation{
		ID:          id,
		Description: desc,
		Target:      target,
		Attr:        attr,
		Check:       func(_ meta.Node, value any) bool { return check(value) },
	}
}

// NewRegexValidation validates that an attribute's string form matches the
// expression. With an empty attr it validates the node's short name
// instead. The expression must compile; constraint declarations are static.
func NewRegexValidation(id, desc string, target Pattern, attr, expr string) *Validation {
	re := regexp.MustCompile(expr)
	v := &Validation{ID: id, Description: desc, Target: target, Attr: attr}
	if attr == "" {
		v.Check = func(n meta.Node, _ any) bool { return re.MatchString(n.ShortName()) }
	} else {
		v.Check = func(_ meta.Node, value any) bool { return re.MatchString(valueString(value)) }
	}
	return v
}

// NewRangeValidation validates that an integer attribute lies within
// [min, max] inclusive.
func NewRangeValidation(id, desc string, target Pattern, attr string, min, max int) *Validation {
	return &Validation{
		ID:          id,
		Description: desc,
		Target:      target,
		Attr:        attr,
		Check: func(_ meta.Node, value any) bool {
			i, ok := asInt(value)
			return ok && i >= min && i <= max
		},
	}
}

// NewEnumValidation validates that an attribute's string form is one of the
// allowed literals.
func NewEnumValidation(id, desc string, target Pattern, attr string, allowed ...string) *Validation {
	set := make(map[string]bool, len(allowed))
	for _, a := range allowed {
		set[a] = true
	}
	return &Validation{
		ID:          id,
		Description: desc,
		Target:      target,
		Attr:        attr,
		Check:       func(_ meta.Node, value any) bool { return set[valueString(value)] },
	}
}

// Uniqueness rejects a new child when an existing sibling matching the same
// target pattern yields the same extracted value.
type Uniqueness struct {
	ID          string  `json:"id"`
	Description string  `json:"description,omitempty"`
	Target      Pattern `json:"target"`

	// ValueOf extracts the comparison key; returning false exempts the
	// node. A nil extractor compares short names.
	ValueOf func(n meta.Node) (string, bool) `json:"-"`
}

func (u *Uniqueness) ConstraintID() string { return u.ID }
func (u *Uniqueness) Describe() string     { return u.Description }

// NewUniqueness builds a sibling-uniqueness rule.
func NewUniqueness(id, desc string, target Pattern, valueOf func(n meta.Node) (string, bool)) *Uniqueness {
	if valueOf == nil {
		valueOf = func(n meta.Node) (string, bool) { return n.ShortName(), true }
	}
	return &Uniqueness{ID: id, Description: desc, Target: target, ValueOf: valueOf}
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	}
	return 0, false
}

func valueString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}
