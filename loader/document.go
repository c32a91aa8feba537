package loader

import (
	"github.com/weftwork/weft/meta"
)

// Document keys with a fixed schema meaning. They are consumed by the
// parser and never become inline attributes.
const (
	keyMetadata       = "metadata"
	keyName           = "name"
	keyType           = "type"
	keySubType        = "subType"
	keyPackage        = "package"
	keyDefaultPackage = "defaultPackage"
	keySuper          = "super"
	keyChildren       = "children"
	keyOverride       = "override"
	keyIsOverlay      = "isOverlay"
	keyValue          = "value"
	keyClass          = "class"

	attrKeyPrefix = "@"
)

var reservedKeys = map[string]bool{
	keyName:           true,
	keyType:           true,
	keySubType:        true,
	keyPackage:        true,
	keyDefaultPackage: true,
	keySuper:          true,
	keyChildren:       true,
	keyOverride:       true,
	keyIsOverlay:      true,
	keyValue:          true,
	keyClass:          true,
}

// bareAttrKeys are attribute spellings the schema reserves: they may
// appear without the @ prefix even in strict documents.
var bareAttrKeys = map[string]bool{
	"isAbstract":  true,
	"isInterface": true,
	"implements":  true,
}

// wellKnownAttrs fixes the subtype of conventional attribute names when
// the owning definition does not declare them.
var wellKnownAttrs = map[string]string{
	"required":    meta.SubTypeBoolean,
	"isAbstract":  meta.SubTypeBoolean,
	"isInterface": meta.SubTypeBoolean,
	"nullable":    meta.SubTypeBoolean,
	"maxLength":   meta.SubTypeInt,
	"minLength":   meta.SubTypeInt,
	"precision":   meta.SubTypeInt,
	"scale":       meta.SubTypeInt,
	"minValue":    meta.SubTypeInt,
	"maxValue":    meta.SubTypeInt,
	"priority":    meta.SubTypeInt,
	"implements":  meta.SubTypeStringArray,
}

// record is one document node in a format-neutral shape. The decoders
// produce records, the parser consumes them; children keep document order.
type record struct {
	typ      string
	entries  []entry
	children []*record
	line     int
	col      int
}

// entry is one key of a record body. inline marks keys the source format
// already classified as attributes: @-prefixed keys in JSON and YAML,
// non-reserved element attributes in XML.
type entry struct {
	key    string
	value  any
	inline bool
}

// WellKnownAttrType returns the conventional subtype for an attribute
// name, or "" when the name has no fixed convention.
func WellKnownAttrType(name string) string { return wellKnownAttrs[name] }

// ReservedKey reports whether a document key has fixed schema meaning.
func ReservedKey(name string) bool { return reservedKeys[name] }

// decodeDocument parses raw bytes into the neutral record tree.
func decodeDocument(data []byte, format Format) (*record, error) {
	switch format {
	case FormatJSON:
		return decodeJSON(data)
	case FormatXML:
		return decodeXML(data)
	case FormatYAML:
		return decodeYAML(data)
	default:
		return nil, meta.NewConfigError(meta.PhaseParse, meta.CodeMalformedDocument,
			"unsupported document format %q", string(format))
	}
}
