package loader

import (
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/weftwork/weft/meta"
)

// decodeYAML parses a YAML document into the neutral record tree using the
// node API, which keeps mapping order and carries line positions for
// diagnostics. The document shape mirrors the JSON schema.
func decodeYAML(data []byte) (*record, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, meta.NewConfigError(meta.PhaseParse, meta.CodeMalformedDocument,
			"invalid YAML: %v", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, meta.NewConfigError(meta.PhaseParse, meta.CodeMalformedDocument,
			"document holds no root record")
	}
	root := resolveAlias(doc.Content[0])
	if root.Kind != yaml.MappingNode || len(root.Content) != 2 {
		return nil, meta.NewConfigError(meta.PhaseParse, meta.CodeMalformedDocument,
			"document must hold exactly one root record")
	}
	return buildYAMLRecord(root.Content[0].Value, root.Content[1],
		root.Content[0].Line, root.Content[0].Column)
}

func buildYAMLRecord(typ string, body *yaml.Node, line, col int) (*record, error) {
	rec := &record{typ: typ, line: line, col: col}
	body = resolveAlias(body)
	if body.Kind != yaml.MappingNode {
		return nil, yamlErr(body, "record %q must be a mapping", typ)
	}
	for i := 0; i+1 < len(body.Content); i += 2 {
		k := body.Content[i]
		v := resolveAlias(body.Content[i+1])
		if k.Value == keyChildren {
			if v.Kind != yaml.SequenceNode {
				return nil, yamlErr(v, "children of %q must be a sequence", typ)
			}
			for _, item := range v.Content {
				item = resolveAlias(item)
				if item.Kind != yaml.MappingNode || len(item.Content) != 2 {
					return nil, yamlErr(item, "each child of %q must be a single-key mapping", typ)
				}
				child, err := buildYAMLRecord(item.Content[0].Value, item.Content[1],
					item.Content[0].Line, item.Content[0].Column)
				if err != nil {
					return nil, err
				}
				rec.children = append(rec.children, child)
			}
			continue
		}
		value, err := yamlValue(v)
		if err != nil {
			return nil, err
		}
		key := k.Value
		inline := false
		if strings.HasPrefix(key, attrKeyPrefix) {
			key = strings.TrimPrefix(key, attrKeyPrefix)
			inline = true
		}
		rec.entries = append(rec.entries, entry{key: key, value: value, inline: inline})
	}
	return rec, nil
}

// yamlValue decodes a scalar or a sequence of scalars into a plain Go
// value. Nested mappings outside the children key are not part of the
// document schema.
func yamlValue(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, yamlErr(n, "bad scalar: %v", err)
		}
		return v, nil
	case yaml.SequenceNode:
		out := make([]any, 0, len(n.Content))
		for _, item := range n.Content {
			item = resolveAlias(item)
			if item.Kind != yaml.ScalarNode {
				return nil, yamlErr(item, "sequence values must be scalars")
			}
			var v any
			if err := item.Decode(&v); err != nil {
				return nil, yamlErr(item, "bad scalar: %v", err)
			}
			out = append(out, v)
		}
		return out, nil
	default:
		return nil, yamlErr(n, "unsupported value shape")
	}
}

func resolveAlias(n *yaml.Node) *yaml.Node {
	if n != nil && n.Kind == yaml.AliasNode && n.Alias != nil {
		return n.Alias
	}
	return n
}

func yamlErr(n *yaml.Node, format string, args ...any) error {
	err := meta.NewConfigError(meta.PhaseParse, meta.CodeMalformedDocument, format, args...)
	if n != nil {
		err.Loc = &meta.SourceLocation{Line: n.Line, Column: n.Column}
	}
	return err
}
