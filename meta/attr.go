package meta

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Attribute (and field) subtype names shared across the standard catalog.
const (
	SubTypeString      = "string"
	SubTypeInt         = "int"
	SubTypeLong        = "long"
	SubTypeDouble      = "double"
	SubTypeBoolean     = "boolean"
	SubTypeStringArray = "stringarray"
)

// Attr is a typed scalar (or string-list) attribute child. Its subtype
// fixes the Go type of the value: string, int, int64, float64, bool, or
// []string. Attributes always carry simple names.
type Attr struct {
	Base
	value any
}

// NewAttr builds a detached attribute of the given subtype with its zero
// value.
func NewAttr(subType, name string) *Attr {
	a := &Attr{}
	a.Init(TypeAttr, subType, name, a)
	a.value = zeroAttrValue(subType)
	return a
}

// NewAttrValue builds a detached attribute and sets its value, panicking on
// a type mismatch. Intended for registration code with literal values.
func NewAttrValue(subType, name string, v any) *Attr {
	a := NewAttr(subType, name)
	if err := a.SetValue(v); err != nil {
		panic(err)
	}
	return a
}

func zeroAttrValue(subType string) any {
	switch subType {
	case SubTypeInt:
		return 0
	case SubTypeLong:
		return int64(0)
	case SubTypeDouble:
		return float64(0)
	case SubTypeBoolean:
		return false
	case SubTypeStringArray:
		return []string(nil)
	default:
		return ""
	}
}

// Value returns the typed value.
func (a *Attr) Value() any { return a.value }

// SetValue assigns a value matching the attribute's subtype. Integer
// widening (int into long, int into double) is accepted; everything else
// must match exactly.
func (a *Attr) SetValue(v any) error {
	switch a.SubType() {
	case SubTypeInt:
		if i, ok := v.(int); ok {
			a.value = i
			return nil
		}
	case SubTypeLong:
		switch n := v.(type) {
		case int64:
			a.value = n
			return nil
		case int:
			a.value = int64(n)
			return nil
		}
	case SubTypeDouble:
		switch n := v.(type) {
		case float64:
			a.value = n
			return nil
		case int:
			a.value = float64(n)
			return nil
		}
	case SubTypeBoolean:
		if b, ok := v.(bool); ok {
			a.value = b
			return nil
		}
	case SubTypeStringArray:
		if s, ok := v.([]string); ok {
			a.value = s
			return nil
		}
	default:
		if s, ok := v.(string); ok {
			a.value = s
			return nil
		}
	}
	return NewConfigError(PhaseLoader, CodeBadValue,
		"attr %q of subtype %s cannot hold %T value %v", a.Name(), a.SubType(), v, v).WithNode(a)
}

// AsString renders the value as its canonical document literal.
func (a *Attr) AsString() string {
	switch v := a.value.(type) {
	case string:
		return v
	case []string:
		return strings.Join(v, ",")
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// AsInt returns the value as an int, widening from long when it fits.
func (a *Attr) AsInt() (int, error) {
	switch v := a.value.(type) {
	case int:
		return v, nil
	case int64:
		if v >= math.MinInt32 && v <= math.MaxInt32 {
			return int(v), nil
		}
	}
	return 0, NewConfigError(PhaseLoader, CodeBadValue,
		"attr %q holds %T, not int", a.Name(), a.value).WithNode(a)
}

// AsLong returns the value as an int64.
func (a *Attr) AsLong() (int64, error) {
	switch v := a.value.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	}
	return 0, NewConfigError(PhaseLoader, CodeBadValue,
		"attr %q holds %T, not long", a.Name(), a.value).WithNode(a)
}

// AsDouble returns the value as a float64.
func (a *Attr) AsDouble() (float64, error) {
	switch v := a.value.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	}
	return 0, NewConfigError(PhaseLoader, CodeBadValue,
		"attr %q holds %T, not double", a.Name(), a.value).WithNode(a)
}

// AsBool returns the value as a bool.
func (a *Attr) AsBool() (bool, error) {
	if v, ok := a.value.(bool); ok {
		return v, nil
	}
	return false, NewConfigError(PhaseLoader, CodeBadValue,
		"attr %q holds %T, not boolean", a.Name(), a.value).WithNode(a)
}

// AsStringArray returns the value as a []string. A plain string splits on
// commas, matching the document literal form.
func (a *Attr) AsStringArray() ([]string, error) {
	switch v := a.value.(type) {
	case []string:
		return v, nil
	case string:
		if v == "" {
			return nil, nil
		}
		return strings.Split(v, ","), nil
	}
	return nil, NewConfigError(PhaseLoader, CodeBadValue,
		"attr %q holds %T, not stringarray", a.Name(), a.value).WithNode(a)
}

// Overload returns a fresh detached Attr super-linked to the receiver,
// carrying the same value.
func (a *Attr) Overload() Node {
	clone := NewAttr(a.SubType(), a.Name())
	clone.value = a.value
	finishOverload(a, clone)
	return clone
}

// ParseLiteral converts a document string literal into the typed value for
// an attribute subtype. XML attributes and explicit attr records arrive as
// text; this is the single conversion point.
func ParseLiteral(subType, literal string) (any, error) {
	switch subType {
	case SubTypeInt:
		i, err := strconv.ParseInt(literal, 10, 32)
		if err != nil {
			return nil, NewConfigError(PhaseParse, CodeBadValue, "value %q is not an int", literal)
		}
		return int(i), nil
	case SubTypeLong:
		i, err := strconv.ParseInt(literal, 10, 64)
		if err != nil {
			return nil, NewConfigError(PhaseParse, CodeBadValue, "value %q is not a long", literal)
		}
		return i, nil
	case SubTypeDouble:
		f, err := strconv.ParseFloat(literal, 64)
		if err != nil {
			return nil, NewConfigError(PhaseParse, CodeBadValue, "value %q is not a double", literal)
		}
		return f, nil
	case SubTypeBoolean:
		switch literal {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
		return nil, NewConfigError(PhaseParse, CodeBadValue, "value %q is not a boolean", literal)
	case SubTypeStringArray:
		if literal == "" {
			return []string(nil), nil
		}
		parts := strings.Split(literal, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts, nil
	default:
		return literal, nil
	}
}
