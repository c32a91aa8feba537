package loader

import (
	"strings"

	gojson "github.com/goccy/go-json"

	"github.com/weftwork/weft/meta"
)

// decodeJSON parses a JSON document into the neutral record tree. Record
// bodies are objects; key order inside a body is irrelevant because
// inline attrs apply in sorted-name order, while the children array keeps
// document order.
func decodeJSON(data []byte) (*record, error) {
	var doc map[string]any
	if err := gojson.Unmarshal(data, &doc); err != nil {
		return nil, meta.NewConfigError(meta.PhaseParse, meta.CodeMalformedDocument,
			"invalid JSON: %v", err)
	}
	if len(doc) != 1 {
		return nil, meta.NewConfigError(meta.PhaseParse, meta.CodeMalformedDocument,
			"document must hold exactly one root record, got %d keys", len(doc))
	}
	for key, body := range doc {
		return buildJSONRecord(key, body)
	}
	return nil, nil
}

func buildJSONRecord(typ string, body any) (*record, error) {
	rec := &record{typ: typ}
	m, ok := body.(map[string]any)
	if !ok {
		return nil, meta.NewConfigError(meta.PhaseParse, meta.CodeMalformedDocument,
			"record %q must be an object, got %T", typ, body)
	}
	for key, value := range m {
		if key == keyChildren {
			children, err := buildJSONChildren(typ, value)
			if err != nil {
				return nil, err
			}
			rec.children = children
			continue
		}
		if strings.HasPrefix(key, attrKeyPrefix) {
			rec.entries = append(rec.entries, entry{
				key:    strings.TrimPrefix(key, attrKeyPrefix),
				value:  value,
				inline: true,
			})
			continue
		}
		rec.entries = append(rec.entries, entry{key: key, value: value})
	}
	return rec, nil
}

func buildJSONChildren(parentType string, value any) ([]*record, error) {
	arr, ok := value.([]any)
	if !ok {
		return nil, meta.NewConfigError(meta.PhaseParse, meta.CodeMalformedDocument,
			"children of %q must be an array, got %T", parentType, value)
	}
	out := make([]*record, 0, len(arr))
	for i, item := range arr {
		m, ok := item.(map[string]any)
		if !ok || len(m) != 1 {
			return nil, meta.NewConfigError(meta.PhaseParse, meta.CodeMalformedDocument,
				"child %d of %q must be an object with a single type key", i, parentType)
		}
		for key, body := range m {
			child, err := buildJSONRecord(key, body)
			if err != nil {
				return nil, err
			}
			out = append(out, child)
		}
	}
	return out, nil
}
