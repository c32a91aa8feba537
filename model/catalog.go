// Package model ships the standard type catalog and the standard
// constraints: the loader/object/field/attr/identity/relationship/
// validator/view kinds with their inheritance bases, attribute
// requirements, and placement rules. Install wires a registry and engine
// with the full catalog in one call; custom stacks can compose Provider
// and Constraints directly.
package model

import (
	"github.com/weftwork/weft/constraint"
	"github.com/weftwork/weft/meta"
	"github.com/weftwork/weft/registry"
)

// SubTypeBase is the inheritance root subtype shared by every kind.
const SubTypeBase = "base"

// SubTypeFile is the loader subtype for document-built trees.
const SubTypeFile = "file"

func loaderFactory(subType, name string) meta.Node {
	return meta.NewNode(meta.TypeLoader, subType, name)
}
func objectFactory(subType, name string) meta.Node { return meta.NewObject(subType, name) }
func fieldFactory(subType, name string) meta.Node  { return meta.NewField(subType, name) }
func attrFactory(subType, name string) meta.Node   { return meta.NewAttr(subType, name) }
func identityFactory(subType, name string) meta.Node {
	return meta.NewIdentity(subType, name)
}
func relationshipFactory(subType, name string) meta.Node {
	return meta.NewRelationship(subType, name)
}
func validatorFactory(subType, name string) meta.Node {
	return meta.NewValidator(subType, name)
}
func viewFactory(subType, name string) meta.Node { return meta.NewView(subType, name) }

type provider struct{}

// Provider returns the registry provider for the standard catalog.
func Provider() registry.Provider { return provider{} }

func (provider) Name() string { return "weft.model" }

func (provider) RegisterTypes(r *registry.Registry) error {
	defs := []*registry.TypeDefinition{
		registry.NewType(meta.TypeLoader, SubTypeBase).
			Factory(loaderFactory).
			AcceptsChild(meta.TypeObject, "*", "*").
			AcceptsChild(meta.TypeField, "*", "*").
			AcceptsChild(meta.TypeAttr, "*", "*").
			Describe("root of a metadata tree").
			Def(),
		registry.NewType(meta.TypeLoader, SubTypeFile).
			Inherits(meta.TypeLoader, SubTypeBase).
			Def(),

		registry.NewType(meta.TypeObject, SubTypeBase).
			Factory(objectFactory).
			OptionalAttr(meta.AttrIsAbstract, meta.SubTypeBoolean).
			OptionalAttr(meta.AttrIsInterface, meta.SubTypeBoolean).
			OptionalAttr(meta.AttrImplements, meta.SubTypeStringArray).
			OptionalAttr("description", meta.SubTypeString).
			AcceptsChild(meta.TypeField, "*", "*").
			AcceptsChild(meta.TypeAttr, "*", "*").
			AcceptsChild(meta.TypeIdentity, "*", "*").
			AcceptsChild(meta.TypeRelationship, "*", "*").
			Describe("named aggregate of fields, identities, and relationships").
			Def(),
		registry.NewType(meta.TypeObject, meta.SubTypePojo).
			Inherits(meta.TypeObject, SubTypeBase).
			Def(),
		registry.NewType(meta.TypeObject, meta.SubTypeMap).
			Inherits(meta.TypeObject, SubTypeBase).
			Def(),

		registry.NewType(meta.TypeField, SubTypeBase).
			Factory(fieldFactory).
			OptionalAttr(meta.AttrRequired, meta.SubTypeBoolean).
			OptionalAttr(meta.AttrDefaultValue, meta.SubTypeString).
			OptionalAttr(meta.AttrIsAbstract, meta.SubTypeBoolean).
			AcceptsChild(meta.TypeAttr, "*", "*").
			AcceptsChild(meta.TypeValidator, "*", "*").
			AcceptsChild(meta.TypeView, "*", "*").
			Describe("typed data slot of an object").
			Def(),
		registry.NewType(meta.TypeField, meta.SubTypeString).
			Inherits(meta.TypeField, SubTypeBase).
			OptionalAttr("maxLength", meta.SubTypeInt).
			OptionalAttr("minLength", meta.SubTypeInt).
			OptionalAttr("pattern", meta.SubTypeString).
			Def(),
		registry.NewType(meta.TypeField, meta.SubTypeInt).
			Inherits(meta.TypeField, SubTypeBase).
			OptionalAttr("minValue", meta.SubTypeInt).
			OptionalAttr("maxValue", meta.SubTypeInt).
			Def(),
		registry.NewType(meta.TypeField, meta.SubTypeLong).
			Inherits(meta.TypeField, SubTypeBase).
			OptionalAttr("minValue", meta.SubTypeInt).
			OptionalAttr("maxValue", meta.SubTypeInt).
			Def(),
		registry.NewType(meta.TypeField, meta.SubTypeDouble).
			Inherits(meta.TypeField, SubTypeBase).
			OptionalAttr("minValue", meta.SubTypeInt).
			OptionalAttr("maxValue", meta.SubTypeInt).
			Def(),
		registry.NewType(meta.TypeField, meta.SubTypeBoolean).
			Inherits(meta.TypeField, SubTypeBase).
			Def(),
		registry.NewType(meta.TypeField, meta.SubTypeDate).
			Inherits(meta.TypeField, SubTypeBase).
			Def(),
		registry.NewType(meta.TypeField, meta.SubTypeDecimal).
			Inherits(meta.TypeField, SubTypeBase).
			OptionalAttr("precision", meta.SubTypeInt).
			OptionalAttr("scale", meta.SubTypeInt).
			Def(),

		registry.NewType(meta.TypeAttr, meta.SubTypeString).
			Factory(attrFactory).
			DefaultSubType().
			Def(),
		registry.NewType(meta.TypeAttr, meta.SubTypeInt).
			Factory(attrFactory).
			Def(),
		registry.NewType(meta.TypeAttr, meta.SubTypeLong).
			Factory(attrFactory).
			Def(),
		registry.NewType(meta.TypeAttr, meta.SubTypeDouble).
			Factory(attrFactory).
			Def(),
		registry.NewType(meta.TypeAttr, meta.SubTypeBoolean).
			Factory(attrFactory).
			Def(),
		registry.NewType(meta.TypeAttr, meta.SubTypeStringArray).
			Factory(attrFactory).
			Def(),

		registry.NewType(meta.TypeIdentity, SubTypeBase).
			Factory(identityFactory).
			RequiredAttr(meta.AttrFields, meta.SubTypeStringArray).
			OptionalAttr(meta.AttrGeneration, meta.SubTypeString).
			AcceptsChild(meta.TypeAttr, "*", "*").
			Describe("names the fields identifying instances of its object").
			Def(),
		registry.NewType(meta.TypeIdentity, meta.SubTypePrimary).
			Inherits(meta.TypeIdentity, SubTypeBase).
			Def(),
		registry.NewType(meta.TypeIdentity, meta.SubTypeSecondary).
			Inherits(meta.TypeIdentity, SubTypeBase).
			Def(),

		registry.NewType(meta.TypeRelationship, SubTypeBase).
			Factory(relationshipFactory).
			RequiredAttr(meta.AttrTargetObject, meta.SubTypeString).
			OptionalAttr(meta.AttrCardinality, meta.SubTypeString).
			AcceptsChild(meta.TypeAttr, "*", "*").
			Describe("links its owning object to a target object").
			Def(),
		registry.NewType(meta.TypeRelationship, meta.SubTypeAssociation).
			Inherits(meta.TypeRelationship, SubTypeBase).
			Def(),
		registry.NewType(meta.TypeRelationship, meta.SubTypeComposition).
			Inherits(meta.TypeRelationship, SubTypeBase).
			Def(),
		registry.NewType(meta.TypeRelationship, meta.SubTypeAggregation).
			Inherits(meta.TypeRelationship, SubTypeBase).
			Def(),

		registry.NewType(meta.TypeValidator, SubTypeBase).
			Factory(validatorFactory).
			OptionalAttr(meta.AttrMsg, meta.SubTypeString).
			AcceptsChild(meta.TypeAttr, "*", "*").
			Def(),
		registry.NewType(meta.TypeValidator, meta.SubTypeRequiredValidator).
			Inherits(meta.TypeValidator, SubTypeBase).
			Def(),
		registry.NewType(meta.TypeValidator, meta.SubTypeRegexValidator).
			Inherits(meta.TypeValidator, SubTypeBase).
			RequiredAttr(meta.AttrMask, meta.SubTypeString).
			Def(),
		registry.NewType(meta.TypeValidator, meta.SubTypeLengthValidator).
			Inherits(meta.TypeValidator, SubTypeBase).
			OptionalAttr(meta.AttrMin, meta.SubTypeInt).
			OptionalAttr(meta.AttrMax, meta.SubTypeInt).
			Def(),

		registry.NewType(meta.TypeView, SubTypeBase).
			Factory(viewFactory).
			AcceptsChild(meta.TypeAttr, "*", "*").
			Def(),
		registry.NewType(meta.TypeView, meta.SubTypeTextView).
			Inherits(meta.TypeView, SubTypeBase).
			Def(),
	}

	for _, def := range defs {
		if err := r.Register(def); err != nil {
			return err
		}
	}
	return nil
}

// Install registers the standard catalog and constraints on a fresh
// registry and engine, wires the engine as the registry's enforcer, and
// freezes the registry. The usual one-call setup before building loaders.
func Install(r *registry.Registry, e *constraint.Engine) error {
	if err := e.AddAll(Constraints()...); err != nil {
		return err
	}
	r.SetEnforcer(e)
	return registry.Load(r, Provider())
}
