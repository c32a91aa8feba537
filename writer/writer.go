// Package writer renders metadata trees back into the declarative
// document schema. Re-parsing the output under the same registry yields an
// equivalent tree: same types, subtypes, names, and attribute values.
// Writers only read the tree they serialize.
package writer

import (
	"bytes"
	"encoding/xml"
	"strconv"
	"strings"

	gojson "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/weftwork/weft/loader"
	"github.com/weftwork/weft/meta"
	"github.com/weftwork/weft/registry"
)

const (
	keyMetadata = "metadata"
	keyName     = "name"
	keySubType  = "subType"
	keySuper    = "super"
	keyValue    = "value"
	keyChildren = "children"
	attrPrefix  = "@"
)

// maxExactInt bounds the long values a JSON number carries exactly;
// larger values serialize as string literals.
const maxExactInt = int64(1) << 53

// Writer serializes trees. The registry, when present, lets the writer
// predict which attrs re-parse to their own subtype without an explicit
// record, keeping the output compact. A nil registry emits explicit attr
// records for everything outside the well-known table.
type Writer struct {
	reg *registry.Registry
}

// New returns a writer predicting attr subtypes against reg. A nil reg is
// allowed.
func New(reg *registry.Registry) *Writer { return &Writer{reg: reg} }

// JSON renders a tree or subtree as an indented document.
func JSON(n meta.Node) ([]byte, error) { return New(nil).JSON(n) }

// YAML renders a tree or subtree as a document.
func YAML(n meta.Node) ([]byte, error) { return New(nil).YAML(n) }

// XML renders a tree or subtree as an indented document.
func XML(n meta.Node) ([]byte, error) { return New(nil).XML(n) }

func (w *Writer) JSON(n meta.Node) ([]byte, error) {
	body, err := w.documentBody(n)
	if err != nil {
		return nil, err
	}
	out, err := gojson.MarshalIndent(map[string]any{keyMetadata: body}, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}

func (w *Writer) YAML(n meta.Node) ([]byte, error) {
	body, err := w.documentBody(n)
	if err != nil {
		return nil, err
	}
	return yaml.Marshal(map[string]any{keyMetadata: body})
}

func (w *Writer) XML(n meta.Node) ([]byte, error) {
	if n == nil {
		return nil, errNilNode()
	}
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")

	kids := []meta.Node{n}
	var owner meta.Node
	if n.Type() == meta.TypeLoader {
		owner = n
		kids = orderedRoots(n)
	}
	if err := w.encodeXMLElement(enc, keyMetadata, nil, owner, kids, ""); err != nil {
		return nil, err
	}
	if err := enc.Flush(); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func (w *Writer) documentBody(n meta.Node) (map[string]any, error) {
	if n == nil {
		return nil, errNilNode()
	}
	body := map[string]any{}
	if n.Type() == meta.TypeLoader {
		w.fillBody(body, n, orderedRoots(n))
		return body, nil
	}
	body[keyChildren] = []any{w.recordValue(n)}
	return body, nil
}

// recordValue renders one node as its single-key record form.
func (w *Writer) recordValue(n meta.Node) map[string]any {
	body := map[string]any{keyName: n.Name()}
	if st := n.SubType(); st != "" {
		body[keySubType] = st
	}
	if ref := explicitSuperRef(n); ref != "" {
		body[keySuper] = ref
	}
	if a, ok := n.(*meta.Attr); ok {
		body[keyValue] = docValue(a)
	}
	w.fillBody(body, n, n.Children())
	return map[string]any{n.Type(): body}
}

// fillBody inlines the attrs the parser resolves back to their own
// subtype and renders everything else as explicit child records.
func (w *Writer) fillBody(body map[string]any, owner meta.Node, kids []meta.Node) {
	var children []any
	for _, c := range kids {
		if a, ok := c.(*meta.Attr); ok && w.inlineable(owner, a) {
			body[attrPrefix+a.Name()] = docValue(a)
			continue
		}
		children = append(children, w.recordValue(c))
	}
	if len(children) > 0 {
		body[keyChildren] = children
	}
}

func (w *Writer) encodeXMLElement(enc *xml.Encoder, name string, header []xml.Attr, owner meta.Node, kids []meta.Node, bodyText string) error {
	start := xml.StartElement{Name: xml.Name{Local: name}, Attr: header}
	var explicit []meta.Node
	for _, c := range kids {
		if a, ok := c.(*meta.Attr); ok && w.xmlInlineable(owner, a) {
			start.Attr = append(start.Attr, xml.Attr{
				Name: xml.Name{Local: a.Name()}, Value: a.AsString(),
			})
			continue
		}
		explicit = append(explicit, c)
	}
	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	if bodyText != "" {
		if err := enc.EncodeToken(xml.CharData(bodyText)); err != nil {
			return err
		}
	}
	for _, c := range explicit {
		if err := w.encodeXMLNode(enc, c); err != nil {
			return err
		}
	}
	return enc.EncodeToken(xml.EndElement{Name: start.Name})
}

func (w *Writer) encodeXMLNode(enc *xml.Encoder, n meta.Node) error {
	header := []xml.Attr{{Name: xml.Name{Local: keyName}, Value: n.Name()}}
	if st := n.SubType(); st != "" {
		header = append(header, xml.Attr{Name: xml.Name{Local: keySubType}, Value: st})
	}
	if ref := explicitSuperRef(n); ref != "" {
		header = append(header, xml.Attr{Name: xml.Name{Local: keySuper}, Value: ref})
	}
	bodyText := ""
	if a, ok := n.(*meta.Attr); ok {
		bodyText = a.AsString()
	}
	return w.encodeXMLElement(enc, n.Type(), header, n, n.Children(), bodyText)
}

// inlineable reports whether an attr survives the round trip as an inline
// key: it must be a plain value and the parser's subtype resolution must
// land on its actual subtype.
func (w *Writer) inlineable(owner meta.Node, a *meta.Attr) bool {
	if owner == nil || len(a.Children()) > 0 || a.Super() != nil {
		return false
	}
	return w.predictSubType(owner, a.Name()) == a.SubType()
}

// xmlInlineable additionally excludes names that collide with reserved
// element attributes or carry package separators.
func (w *Writer) xmlInlineable(owner meta.Node, a *meta.Attr) bool {
	if !w.inlineable(owner, a) {
		return false
	}
	name := a.Name()
	return !loader.ReservedKey(name) && !strings.Contains(name, meta.PkgSeparator)
}

// predictSubType mirrors the parser's resolution order for inline attrs:
// owning definition, well-known table, string.
func (w *Writer) predictSubType(owner meta.Node, name string) string {
	if w.reg != nil {
		if def, err := w.reg.TypeDefinition(owner.Type(), owner.SubType()); err == nil {
			if req, ok := def.AttrRequirement(name); ok && req.SubType != "" {
				return req.SubType
			}
		}
	}
	if wk := loader.WellKnownAttrType(name); wk != "" {
		return wk
	}
	return meta.SubTypeString
}

// docValue renders an attr value for JSON/YAML bodies. Longs past the
// exact-float range become string literals so they re-parse without loss.
func docValue(a *meta.Attr) any {
	switch v := a.Value().(type) {
	case int64:
		if v >= maxExactInt || v <= -maxExactInt {
			return strconv.FormatInt(v, 10)
		}
		return v
	case nil:
		return ""
	default:
		return v
	}
}

// explicitSuperRef returns the super name a record must carry. Overrides
// the parser re-derives through the parent's super chain stay implicit.
func explicitSuperRef(n meta.Node) string {
	sup := n.Super()
	if sup == nil {
		return ""
	}
	if parent := n.Parent(); parent != nil && parent.Super() != nil {
		if s, err := parent.Super().Child(n.Type(), n.Name()); err == nil && s == sup {
			return ""
		}
	}
	return sup.Name()
}

// orderedRoots lists a tree root's children with every super target ahead
// of its users; super references must parse before records that name them.
func orderedRoots(root meta.Node) []meta.Node {
	children := root.Children()
	out := make([]meta.Node, 0, len(children))
	emitted := make(map[meta.Node]bool, len(children))
	for len(out) < len(children) {
		progressed := false
		for _, c := range children {
			if emitted[c] {
				continue
			}
			if dep := c.Super(); dep != nil && dep.Parent() == root && !emitted[dep] {
				continue
			}
			out = append(out, c)
			emitted[c] = true
			progressed = true
		}
		if !progressed {
			for _, c := range children {
				if !emitted[c] {
					out = append(out, c)
					emitted[c] = true
				}
			}
		}
	}
	return out
}

func errNilNode() error {
	return meta.NewConfigError(meta.PhaseLoader, meta.CodeBadValue,
		"cannot serialize a nil node")
}
