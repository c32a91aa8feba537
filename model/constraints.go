package model

import (
	"fmt"
	"strings"

	"github.com/weftwork/weft/constraint"
	"github.com/weftwork/weft/meta"
)

// nonObjectParents are the kinds that may own children but must never
// own identities or relationships. Those two attach to objects only.
var nonObjectParents = []string{
	meta.TypeLoader,
	meta.TypeField,
	meta.TypeAttr,
	meta.TypeIdentity,
	meta.TypeRelationship,
	meta.TypeValidator,
	meta.TypeView,
}

// Constraints returns the standard constraint set. IDs are stable and
// prefixed "std." so callers can disable or replace individual rules.
func Constraints() []constraint.Constraint {
	cs := []constraint.Constraint{
		constraint.NewValidation(
			"std.naming",
			"node names must be valid identifiers, :: separated",
			constraint.P("*", "*", "*"),
			func(n meta.Node) bool { return meta.ValidName(n.Name()) },
		),

		constraint.NewPlacement(
			"std.attr-under-attr",
			"attrs carry values, not children",
			constraint.P(meta.TypeAttr, "*", "*"),
			constraint.P(meta.TypeAttr, "*", "*"),
			false,
		),
		constraint.NewPlacement(
			"std.field-under-field",
			"fields do not nest",
			constraint.P(meta.TypeField, "*", "*"),
			constraint.P(meta.TypeField, "*", "*"),
			false,
		),

		constraint.NewRangeValidation(
			"std.maxlength-range",
			"maxLength on string fields must lie within [1, 65535]",
			constraint.P(meta.TypeField, meta.SubTypeString, "*"),
			"maxLength",
			1, 65535,
		),
		constraint.NewAttrValidation(
			"std.identity-fields",
			"an identity must name at least one field",
			constraint.P(meta.TypeIdentity, "*", "*"),
			meta.AttrFields,
			func(value any) bool {
				switch v := value.(type) {
				case []string:
					return len(v) > 0
				case string:
					return strings.TrimSpace(v) != ""
				}
				return false
			},
		),
		constraint.NewEnumValidation(
			"std.identity-generation",
			"identity generation must be increment, uuid, or assigned",
			constraint.P(meta.TypeIdentity, "*", "*"),
			meta.AttrGeneration,
			"increment", "uuid", "assigned",
		),
		constraint.NewEnumValidation(
			"std.relationship-cardinality",
			"relationship cardinality must be one or many",
			constraint.P(meta.TypeRelationship, "*", "*"),
			meta.AttrCardinality,
			"one", "many",
		),

		constraint.NewUniqueness(
			"std.one-primary-identity",
			"an object declares at most one primary identity",
			constraint.P(meta.TypeIdentity, meta.SubTypePrimary, "*"),
			func(meta.Node) (string, bool) { return meta.SubTypePrimary, true },
		),
	}

	for _, kind := range []string{meta.TypeIdentity, meta.TypeRelationship} {
		for _, parent := range nonObjectParents {
			cs = append(cs, constraint.NewPlacement(
				fmt.Sprintf("std.%s-under-%s", kind, parent),
				fmt.Sprintf("a %s attaches to objects only", kind),
				constraint.P(parent, "*", "*"),
				constraint.P(kind, "*", "*"),
				false,
			))
		}
	}
	return cs
}
