package loader

import (
	"errors"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/weftwork/weft/meta"
	"github.com/weftwork/weft/registry"
)

// docParser walks one decoded document and folds it into the loader's
// tree. Per record the steps are fixed: match the type, resolve or create
// the node, resolve its super, apply inline attrs, recurse into children.
type docParser struct {
	ld  *Loader
	src string
	log *zap.Logger
}

// recordHeader holds a record's consumed reserved keys plus the entries
// left over as inline attributes.
type recordHeader struct {
	name     string
	subType  string
	pkg      string
	superRef string
	overlay  bool
	value    any
	hasValue bool
	inline   []entry
}

func (p *docParser) run(doc *record) error {
	if doc.typ != keyMetadata {
		return p.errf(doc, meta.CodeMalformedDocument,
			"root record must be %q, got %q", keyMetadata, doc.typ)
	}
	pkg := p.ld.opts.DefaultPackage
	var inline []entry
	for _, e := range doc.entries {
		if e.inline {
			inline = append(inline, e)
			continue
		}
		switch e.key {
		case keyPackage, keyDefaultPackage:
			s, err := p.stringValue(doc, e)
			if err != nil {
				return err
			}
			pkg = s
		case keyName, keyType:
			// the root node already exists and keeps its own name
		default:
			if bareAttrKeys[e.key] || p.ld.opts.Lenient {
				inline = append(inline, e)
				continue
			}
			return p.errf(doc, meta.CodeMalformedDocument,
				"unknown key %q on the root record", e.key).
				WithHint("prefix inline attributes with " + attrKeyPrefix)
		}
	}
	if pkg != "" && !meta.ValidName(pkg) {
		return p.errf(doc, meta.CodeBadPackage, "package %q is not a valid package name", pkg)
	}
	if err := p.applyAttrs(p.ld.root, inline, doc); err != nil {
		return err
	}
	for _, child := range doc.children {
		if err := p.parse(p.ld.root, child, pkg, true); err != nil {
			return err
		}
	}
	return nil
}

func (p *docParser) parse(parent meta.Node, rec *record, pkg string, atRoot bool) error {
	// MATCH_TYPE
	if !p.ld.reg.HasType(rec.typ) {
		if !p.ld.opts.Lenient {
			return p.errf(rec, meta.CodeUnknownType, "unknown type %q", rec.typ).
				WithHint("known types: " + strings.Join(p.ld.reg.TypeNames(), ", "))
		}
		p.log.Warn("skipping record of unknown type",
			zap.String("type", rec.typ),
			zap.String("source", p.src),
			zap.Int("line", rec.line))
		return nil
	}

	h, err := p.header(rec)
	if err != nil {
		return err
	}

	// the record's package applies to its whole subtree
	effPkg := pkg
	if h.pkg != "" {
		expanded, perr := meta.ExpandPackage(pkg, h.pkg)
		if perr != nil {
			return p.locate(perr, rec)
		}
		effPkg = expanded
	}

	// RESOLVE_OR_CREATE
	name := h.name
	if name == "" {
		if !autoNameable(rec.typ) {
			return p.errf(rec, meta.CodeMissingName, "record of type %q has no name", rec.typ)
		}
		name = autoName(parent, rec.typ)
	} else if atRoot {
		name = meta.Qualify(effPkg, name)
	}

	var node meta.Node
	var replacedAttr *meta.Attr
	if existing, derr := parent.DirectChild(rec.typ, name); derr == nil {
		if a, ok := existing.(*meta.Attr); ok {
			// attrs replace wholesale rather than merging, keeping the
			// last-write-wins rule on a single code path
			replacedAttr = a
		} else {
			node = existing
		}
	} else if viaSuper, cerr := parent.Child(rec.typ, name); cerr == nil {
		// visible only through the super chain: override in place under
		// this parent without touching the inherited original
		ov := viaSuper.Overload()
		if aerr := parent.AddChild(ov); aerr != nil {
			return p.locate(aerr, rec)
		}
		node = ov
	} else if h.overlay {
		return p.errf(rec, meta.CodeOverlayTargetMissing,
			"overlay record %s %q has no existing target", rec.typ, name)
	}

	// RESOLVE_SUPER
	var superNode meta.Node
	if h.superRef != "" {
		candidates := meta.ResolveCandidates(effPkg, h.superRef)
		for _, cand := range candidates {
			if s, serr := p.ld.root.Child(rec.typ, cand); serr == nil {
				superNode = s
				break
			}
		}
		if superNode == nil {
			return p.errf(rec, meta.CodeUnresolvedSuper,
				"super %q of %s %q resolves to none of: %s",
				h.superRef, rec.typ, name, strings.Join(candidates, ", "))
		}
	}

	if node == nil {
		subType := h.subType
		if subType == "" && replacedAttr != nil {
			subType = replacedAttr.SubType()
		}
		if subType == "" && superNode != nil {
			subType = superNode.SubType()
		}
		if subType == "" {
			d, ok := p.ld.reg.DefaultSubType(rec.typ)
			if !ok {
				return p.errf(rec, meta.CodeMissingSubType,
					"record %s %q names no subtype, inherits none, and type %q declares no default",
					rec.typ, name, rec.typ)
			}
			subType = d
		}
		fresh, ierr := p.ld.reg.NewInstance(rec.typ, subType, name)
		if ierr != nil {
			return p.locate(ierr, rec)
		}
		// attr values go in before attachment so value constraints see
		// them at add time
		if a, ok := fresh.(*meta.Attr); ok {
			val, has := h.value, h.hasValue
			if !has && replacedAttr != nil && replacedAttr.Value() != nil {
				val, has = replacedAttr.Value(), true
			}
			if has {
				coerced, cerr := coerceValue(a.SubType(), val)
				if cerr != nil {
					return p.locate(cerr, rec)
				}
				if serr := a.SetValue(coerced); serr != nil {
					return p.locate(serr, rec)
				}
			}
		}
		if aerr := parent.AddChild(fresh); aerr != nil {
			return p.locate(aerr, rec)
		}
		node = fresh
	} else if h.hasValue {
		p.log.Warn("ignoring value on non-attr record",
			zap.String("type", rec.typ), zap.String("name", name))
	}

	if superNode != nil {
		if serr := node.SetSuper(superNode); serr != nil {
			return p.locate(serr, rec)
		}
	}

	// APPLY_ATTRS
	if err := p.applyAttrs(node, h.inline, rec); err != nil {
		return err
	}

	// RECURSE_CHILDREN
	for _, child := range rec.children {
		if err := p.parse(node, child, effPkg, false); err != nil {
			return err
		}
	}
	return nil
}

// header consumes the reserved keys of a record and collects the rest as
// inline attributes, enforcing the strict-mode @ prefix rule.
func (p *docParser) header(rec *record) (*recordHeader, error) {
	h := &recordHeader{}
	for _, e := range rec.entries {
		if e.inline {
			h.inline = append(h.inline, e)
			continue
		}
		switch e.key {
		case keyName:
			s, err := p.stringValue(rec, e)
			if err != nil {
				return nil, err
			}
			h.name = s
		case keyType:
			s, err := p.stringValue(rec, e)
			if err != nil {
				return nil, err
			}
			if s != rec.typ {
				return nil, p.errf(rec, meta.CodeMalformedDocument,
					"type key %q disagrees with record type %q", s, rec.typ)
			}
		case keySubType:
			s, err := p.stringValue(rec, e)
			if err != nil {
				return nil, err
			}
			h.subType = s
		case keyPackage, keyDefaultPackage:
			s, err := p.stringValue(rec, e)
			if err != nil {
				return nil, err
			}
			h.pkg = s
		case keySuper:
			s, err := p.stringValue(rec, e)
			if err != nil {
				return nil, err
			}
			h.superRef = s
		case keyOverride, keyIsOverlay:
			b, err := p.boolValue(rec, e)
			if err != nil {
				return nil, err
			}
			h.overlay = b
		case keyValue:
			h.value, h.hasValue = e.value, true
		case keyClass:
			p.log.Warn("ignoring class key; node construction belongs to the registry",
				zap.String("type", rec.typ), zap.String("source", p.src))
		default:
			if bareAttrKeys[e.key] || p.ld.opts.Lenient {
				h.inline = append(h.inline, e)
				continue
			}
			return nil, p.errf(rec, meta.CodeMalformedDocument,
				"unknown key %q on %s record", e.key, rec.typ).
				WithHint("prefix inline attributes with " + attrKeyPrefix)
		}
	}
	return h, nil
}

// applyAttrs turns leftover record keys into attr children in sorted-name
// order. The owning definition's attribute requirements pick the subtype,
// then the well-known table, then optional shape inference; string is the
// final fallback. An existing attr of the same name is replaced.
func (p *docParser) applyAttrs(node meta.Node, inline []entry, rec *record) error {
	if len(inline) == 0 {
		return nil
	}
	var def *registry.TypeDefinition
	if d, err := p.ld.reg.TypeDefinition(node.Type(), node.SubType()); err == nil {
		def = d
	}
	sort.Slice(inline, func(i, j int) bool { return inline[i].key < inline[j].key })
	for _, e := range inline {
		subType := ""
		if def != nil {
			if req, ok := def.AttrRequirement(e.key); ok {
				subType = req.SubType
			}
		}
		if subType == "" {
			subType = wellKnownAttrs[e.key]
		}
		if subType == "" && p.ld.opts.InferAttrTypes {
			subType = inferSubType(e.value)
		}
		if subType == "" {
			subType = meta.SubTypeString
		}

		coerced, err := coerceValue(subType, e.value)
		if err != nil {
			return p.locate(err, rec)
		}
		fresh, err := p.ld.reg.NewInstance(meta.TypeAttr, subType, e.key)
		if err != nil {
			return p.locate(err, rec)
		}
		a, ok := fresh.(*meta.Attr)
		if !ok {
			return p.errf(rec, meta.CodeBadValue,
				"attr factory built %T for %q", fresh, e.key)
		}
		if err := a.SetValue(coerced); err != nil {
			return p.locate(err, rec)
		}
		if err := node.AddChild(a); err != nil {
			return p.locate(err, rec)
		}
	}
	return nil
}

func (p *docParser) stringValue(rec *record, e entry) (string, error) {
	s, ok := e.value.(string)
	if !ok {
		return "", p.errf(rec, meta.CodeMalformedDocument,
			"key %q must be a string, got %T", e.key, e.value)
	}
	return s, nil
}

func (p *docParser) boolValue(rec *record, e entry) (bool, error) {
	switch v := e.value.(type) {
	case bool:
		return v, nil
	case string:
		if b, err := strconv.ParseBool(v); err == nil {
			return b, nil
		}
	}
	return false, p.errf(rec, meta.CodeMalformedDocument,
		"key %q must be a boolean, got %v", e.key, e.value)
}

func (p *docParser) errf(rec *record, code, format string, args ...any) *meta.ConfigError {
	e := meta.NewConfigError(meta.PhaseParse, code, format, args...)
	e.Loc = &meta.SourceLocation{File: p.src, Line: rec.line, Column: rec.col}
	return e
}

// locate stamps the source position onto errors raised below the parser,
// which know the node but not the document.
func (p *docParser) locate(err error, rec *record) error {
	var ce *meta.ConfigError
	if errors.As(err, &ce) {
		if ce.Loc == nil {
			ce.Loc = &meta.SourceLocation{File: p.src, Line: rec.line, Column: rec.col}
		} else if ce.Loc.File == "" {
			ce.Loc.File = p.src
		}
	}
	return err
}

func autoNameable(typ string) bool {
	switch typ {
	case meta.TypeAttr, meta.TypeValidator, meta.TypeView:
		return true
	}
	return false
}

// autoName generates attr1, attr2, ... style names for unnamed records of
// auto-nameable types, probing past names the document already used.
func autoName(parent meta.Node, typ string) string {
	n := len(parent.ChildrenOfType(typ)) + 1
	for {
		candidate := typ + strconv.Itoa(n)
		if _, err := parent.DirectChild(typ, candidate); err != nil {
			return candidate
		}
		n++
	}
}
