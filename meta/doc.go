// Package meta defines the metadata node model: typed tree elements with
// exclusive child ownership, weak parent and super references, and
// validated structural mutation.
//
// # Overview
//
// A metadata tree describes the shape of an application's data (objects,
// fields, identities, relationships) rather than data itself. Nodes are
// created detached, attached exactly once through AddChild, and immutable
// in identity (type, subtype, name) from then on. Every attachment is
// validated twice: the registry checks the parent's declared child
// requirements, and the constraint engine checks placement, validation,
// and uniqueness rules. Both guards are stamped onto nodes at creation by
// the registry, so no package-level state is involved.
//
// # Core Types
//
//   - Node: the tree element interface, implemented by embedding Base
//   - Base: the shared implementation (children, super fallback, caches)
//   - Object, Field, Attr, Identity, Relationship, Validator, View: the
//     standard kinds
//   - ConfigError, Violation, NotFoundError: the error taxonomy
//
// # Names and Packages
//
// Root-level nodes carry package-qualified names joined by "::", for
// example "acme::model::User"; nodes nested under an owning object use
// simple names. References inside documents may be package-relative:
// "::Address" appends to the current package and "..::shared::Id" climbs
// one level. See ExpandPackage and ResolveCandidates.
//
// # Attribute Fallback
//
// A node with a super reference resolves missing attributes and children
// through the super chain, so an overlay or an inheriting definition sees
// the union of its own and its super's data. Attributes whose name starts
// with an underscore stay private to their node.
//
// # Example Usage
//
//	user := meta.NewObject(meta.SubTypePojo, "acme::model::User")
//	email := meta.NewField(meta.SubTypeString, "email")
//	if err := user.AddChild(email); err != nil {
//		log.Fatal(err)
//	}
//	maxLen := meta.NewAttrValue(meta.SubTypeInt, "maxLength", 255)
//	if err := email.AddChild(maxLen); err != nil {
//		log.Fatal(err)
//	}
//	n, _ := email.AttrValue("maxLength") // int 255
package meta
