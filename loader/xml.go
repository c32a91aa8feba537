package loader

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strings"

	"github.com/weftwork/weft/meta"
)

// decodeXML parses an XML document into the neutral record tree via token
// streaming: element name is the record type, element attributes are the
// record's keys, nested elements are children. Non-whitespace character
// data becomes the record's value key, so <attr name="x">body</attr>
// carries its value in the element body.
func decodeXML(data []byte) (*record, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	var root *record
	var stack []*record
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, meta.NewConfigError(meta.PhaseParse, meta.CodeMalformedDocument,
				"invalid XML: %v", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			rec := &record{typ: t.Name.Local}
			for _, a := range t.Attr {
				if a.Name.Space == "xmlns" || a.Name.Local == "xmlns" {
					continue
				}
				rec.entries = append(rec.entries, entry{
					key:    a.Name.Local,
					value:  a.Value,
					inline: !reservedKeys[a.Name.Local],
				})
			}
			if len(stack) == 0 {
				if root != nil {
					return nil, meta.NewConfigError(meta.PhaseParse, meta.CodeMalformedDocument,
						"document must hold exactly one root element")
				}
				root = rec
			} else {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, rec)
			}
			stack = append(stack, rec)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			text := strings.TrimSpace(string(t))
			if text == "" || len(stack) == 0 {
				continue
			}
			appendBodyText(stack[len(stack)-1], text)
		}
	}
	if root == nil {
		return nil, meta.NewConfigError(meta.PhaseParse, meta.CodeMalformedDocument,
			"document holds no root element")
	}
	return root, nil
}

// appendBodyText folds chardata chunks split by nested elements or
// entities into a single value entry.
func appendBodyText(rec *record, text string) {
	for i := range rec.entries {
		if rec.entries[i].key == keyValue && !rec.entries[i].inline {
			if s, ok := rec.entries[i].value.(string); ok {
				rec.entries[i].value = s + text
				return
			}
		}
	}
	rec.entries = append(rec.entries, entry{key: keyValue, value: text})
}
