package meta

import (
	"fmt"
	"strings"
)

// Metadata type names used by the standard catalog.
const (
	TypeLoader       = "loader"
	TypeObject       = "object"
	TypeField        = "field"
	TypeAttr         = "attr"
	TypeIdentity     = "identity"
	TypeRelationship = "relationship"
	TypeValidator    = "validator"
	TypeView         = "view"
)

// hiddenAttrPrefix marks attributes private to their node: they are not
// visible through the super chain.
const hiddenAttrPrefix = "_"

// ChildAcceptor answers whether a parent may structurally accept a child,
// based on registered child requirements. Implemented by registry.Registry.
type ChildAcceptor interface {
	AcceptsChild(parent, child Node) error
}

// Enforcer validates a pending attachment against placement, validation,
// and uniqueness constraints. Implemented by constraint.Engine.
type Enforcer interface {
	EnforceAddChild(parent, child Node) error
}

// Node is one typed element of a metadata tree. Nodes are created detached,
// validated and attached exactly once via AddChild, and from then on their
// type, subtype, and name never change. Children are exclusively owned; the
// parent and super references are weak.
//
// All concrete kinds (Object, Field, Attr, Identity, Relationship,
// Validator, View) embed Base, which carries the whole implementation.
type Node interface {
	Type() string
	SubType() string
	// Name is package-qualified for root-level nodes ("acme::model::User")
	// and simple for nested ones ("email").
	Name() string
	ShortName() string
	Package() string

	Parent() Node
	Super() Node
	SetSuper(Node) error

	Children() []Node
	ChildrenOfType(typ string) []Node
	// Child looks up a direct child by exact (type, name), falling back to
	// the super chain. Misses return a NotFoundError.
	Child(typ, name string) (Node, error)
	// DirectChild is Child without the super-chain fallback.
	DirectChild(typ, name string) (Node, error)
	HasChild(typ, name string) bool
	AddChild(Node) error

	Attr(name string) (*Attr, error)
	AttrValue(name string) (any, error)
	HasAttr(name string) bool
	// Attrs returns the node's own attribute children, in attach order.
	Attrs() []*Attr

	// Overload returns a fresh detached node of the same kind and
	// (type, subtype, name) whose Super points at the receiver. The
	// receiver is untouched. Used by the overlay path to override an
	// inherited child under a new parent.
	Overload() Node

	// Bind stamps the guards consulted by AddChild. The registry binds
	// every node it constructs; hand-built nodes may stay unbound.
	Bind(ChildAcceptor, Enforcer)

	String() string

	setParent(Node)
	selfNode() Node
}

type childKey struct {
	typ  string
	name string
}

// Base is the shared node implementation. Concrete kinds embed it and pass
// themselves as self so parent/child references keep their dynamic type.
type Base struct {
	typ     string
	subType string
	name    string

	parent   Node
	super    Node
	children []Node

	acceptor ChildAcceptor
	enforcer Enforcer
	self     Node

	childIdx map[childKey]Node
}

// NewNode builds a generic node of the given type. The standard kinds have
// their own constructors; NewNode serves custom types and tests.
func NewNode(typ, subType, name string) *Base {
	b := &Base{}
	b.Init(typ, subType, name, b)
	return b
}

// Init wires a freshly constructed node. Kinds embedding Base must call it
// with themselves as self before the node is used.
func (b *Base) Init(typ, subType, name string, self Node) {
	b.typ = typ
	b.subType = subType
	b.name = name
	b.self = self
}

func (b *Base) Type() string    { return b.typ }
func (b *Base) SubType() string { return b.subType }
func (b *Base) Name() string    { return b.name }

func (b *Base) ShortName() string { return ShortNameOf(b.name) }
func (b *Base) Package() string   { return PackageOf(b.name) }

func (b *Base) Parent() Node { return b.parent }
func (b *Base) Super() Node  { return b.super }

func (b *Base) setParent(p Node) { b.parent = p }

func (b *Base) selfNode() Node {
	if b.self != nil {
		return b.self
	}
	return b
}

// Bind stamps the acceptance and enforcement guards consulted on AddChild.
func (b *Base) Bind(acceptor ChildAcceptor, enforcer Enforcer) {
	b.acceptor = acceptor
	b.enforcer = enforcer
}

// SetSuper points the node at an inherited counterpart used for attribute
// and child fallback. The super must share the node's type, and the link
// must not close a cycle.
func (b *Base) SetSuper(s Node) error {
	if s == nil {
		b.super = nil
		return nil
	}
	if s.Type() != b.typ {
		return NewConfigError(PhaseLoader, CodeBadValue,
			"super of %s %q must be a %s, got %s", b.typ, b.name, b.typ, s.Type()).WithNode(b.selfNode())
	}
	for cur := s; cur != nil; cur = cur.Super() {
		if cur.selfNode() == b.selfNode() {
			return NewConfigError(PhaseLoader, CodeBadValue,
				"super chain of %s %q would form a cycle", b.typ, b.name).WithNode(b.selfNode())
		}
	}
	b.super = s
	return nil
}

// Children returns the node's own children in attach order.
func (b *Base) Children() []Node {
	out := make([]Node, len(b.children))
	copy(out, b.children)
	return out
}

// ChildrenOfType returns the node's own children of the given type.
func (b *Base) ChildrenOfType(typ string) []Node {
	var out []Node
	for _, c := range b.children {
		if c.Type() == typ {
			out = append(out, c)
		}
	}
	return out
}

// DirectChild looks up an own child by exact (type, name).
func (b *Base) DirectChild(typ, name string) (Node, error) {
	if b.childIdx == nil {
		b.childIdx = make(map[childKey]Node, len(b.children))
		for _, c := range b.children {
			b.childIdx[childKey{c.Type(), c.Name()}] = c
		}
	}
	if c, ok := b.childIdx[childKey{typ, name}]; ok {
		return c, nil
	}
	return nil, &NotFoundError{Kind: "child", Name: typ + " " + name, Scope: PathOf(b.selfNode())}
}

// Child looks up a child by exact (type, name), consulting the super chain
// on a direct miss. Attributes named with a leading underscore never
// resolve through the chain.
func (b *Base) Child(typ, name string) (Node, error) {
	if c, err := b.DirectChild(typ, name); err == nil {
		return c, nil
	}
	if b.super != nil {
		if typ == TypeAttr && strings.HasPrefix(ShortNameOf(name), hiddenAttrPrefix) {
			return nil, &NotFoundError{Kind: "child", Name: typ + " " + name, Scope: PathOf(b.selfNode())}
		}
		if c, err := b.super.Child(typ, name); err == nil {
			return c, nil
		}
	}
	return nil, &NotFoundError{Kind: "child", Name: typ + " " + name, Scope: PathOf(b.selfNode())}
}

// HasChild reports whether Child resolves, discarding the NotFoundError.
func (b *Base) HasChild(typ, name string) bool {
	_, err := b.Child(typ, name)
	return err == nil
}

// AddChild validates and attaches a child. The check order is fixed:
// structural rejection, sibling clash, child acceptance, constraint
// enforcement, and only then mutation. Nothing changes on any failure.
//
// An existing attribute child of the same name is replaced rather than
// rejected; every other same-(type, name) sibling clash is a Violation.
func (b *Base) AddChild(child Node) error {
	parent := b.selfNode()
	if child == nil {
		return NewConfigError(PhaseLoader, CodeChildRejected,
			"cannot add nil child to %s %q", b.typ, b.name).WithNode(parent)
	}
	if child.selfNode() == parent {
		return NewConfigError(PhaseLoader, CodeChildRejected,
			"%s %q cannot be its own child", b.typ, b.name).WithNode(parent)
	}
	if child.Name() == "" {
		return NewConfigError(PhaseLoader, CodeMissingName,
			"child of type %s under %s %q has no name", child.Type(), b.typ, b.name).WithNode(parent)
	}
	if child.Parent() != nil {
		return NewConfigError(PhaseLoader, CodeChildRejected,
			"%s %q is already owned by %s", child.Type(), child.Name(), PathOf(child.Parent())).WithNode(parent)
	}

	replaceIdx := -1
	if existing, err := b.DirectChild(child.Type(), child.Name()); err == nil {
		if child.Type() != TypeAttr {
			return NewViolation("", existing,
				"%s %q already exists under %s %q", child.Type(), child.Name(), b.typ, b.name)
		}
		for i, c := range b.children {
			if c == existing {
				replaceIdx = i
				break
			}
		}
	}

	if b.acceptor != nil {
		if err := b.acceptor.AcceptsChild(parent, child); err != nil {
			return err
		}
	}
	if b.enforcer != nil {
		if err := b.enforcer.EnforceAddChild(parent, child); err != nil {
			return err
		}
	}

	if replaceIdx >= 0 {
		b.children[replaceIdx].setParent(nil)
		b.children[replaceIdx] = child
	} else {
		b.children = append(b.children, child)
	}
	child.setParent(parent)
	b.childIdx = nil
	return nil
}

// Attr resolves an attribute child by name, falling back to the super
// chain.
func (b *Base) Attr(name string) (*Attr, error) {
	c, err := b.Child(TypeAttr, name)
	if err != nil {
		return nil, &NotFoundError{Kind: "attr", Name: name, Scope: PathOf(b.selfNode())}
	}
	a, ok := c.(*Attr)
	if !ok {
		return nil, &NotFoundError{Kind: "attr", Name: name, Scope: PathOf(b.selfNode())}
	}
	return a, nil
}

// AttrValue returns the typed value of an attribute, resolving through the
// super chain.
func (b *Base) AttrValue(name string) (any, error) {
	a, err := b.Attr(name)
	if err != nil {
		return nil, err
	}
	return a.Value(), nil
}

// HasAttr reports whether the attribute resolves.
func (b *Base) HasAttr(name string) bool {
	_, err := b.Attr(name)
	return err == nil
}

// Attrs returns the node's own attribute children in attach order.
func (b *Base) Attrs() []*Attr {
	var out []*Attr
	for _, c := range b.children {
		if a, ok := c.(*Attr); ok {
			out = append(out, a)
		}
	}
	return out
}

// Overload returns a fresh generic node super-linked to the receiver.
// Concrete kinds override this to preserve their dynamic type.
func (b *Base) Overload() Node {
	clone := NewNode(b.typ, b.subType, b.name)
	finishOverload(b.selfNode(), clone)
	return clone
}

// finishOverload stamps an overload clone with the original's guards and
// super link. The clone keeps the original's short name: it reattaches
// under a new parent in the same naming scope.
func finishOverload(orig Node, clone Node) {
	if ob, ok := orig.selfNode().(interface{ guards() (ChildAcceptor, Enforcer) }); ok {
		a, e := ob.guards()
		clone.Bind(a, e)
	}
	// The type check in SetSuper cannot fail here: the clone shares the
	// original's type by construction.
	_ = clone.SetSuper(orig.selfNode())
}

func (b *Base) guards() (ChildAcceptor, Enforcer) { return b.acceptor, b.enforcer }

func (b *Base) String() string {
	return fmt.Sprintf("%s[%s]{%s}", b.typ, b.subType, b.name)
}

// Walk visits n and every descendant in depth-first document order,
// stopping at the first error.
func Walk(n Node, fn func(Node) error) error {
	if n == nil {
		return nil
	}
	if err := fn(n); err != nil {
		return err
	}
	for _, c := range n.Children() {
		if err := Walk(c, fn); err != nil {
			return err
		}
	}
	return nil
}
