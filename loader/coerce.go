package loader

import (
	"math"
	"strconv"

	"github.com/weftwork/weft/meta"
)

// coerceValue converts a decoded document value into the Go value an attr
// of the given subtype holds. The declared subtype is authoritative:
// string literals go through meta.ParseLiteral, typed JSON/YAML values
// must be compatible with the declaration.
func coerceValue(subType string, v any) (any, error) {
	if subType == meta.SubTypeString {
		// the string fallback absorbs any scalar as its literal rendition
		switch val := v.(type) {
		case string:
			return val, nil
		case bool:
			return strconv.FormatBool(val), nil
		case int:
			return strconv.Itoa(val), nil
		case int64:
			return strconv.FormatInt(val, 10), nil
		case float64:
			if val == math.Trunc(val) && math.Abs(val) < math.MaxInt64/2 {
				return strconv.FormatInt(int64(val), 10), nil
			}
			return strconv.FormatFloat(val, 'g', -1, 64), nil
		}
	}
	switch val := v.(type) {
	case string:
		return meta.ParseLiteral(subType, val)
	case bool:
		if subType == meta.SubTypeBoolean {
			return val, nil
		}
	case int:
		return coerceNumber(subType, int64(val), float64(val), true)
	case int64:
		return coerceNumber(subType, val, float64(val), true)
	case float64:
		integral := val == math.Trunc(val) && math.Abs(val) < math.MaxInt64/2
		return coerceNumber(subType, int64(val), val, integral)
	case []any:
		if subType == meta.SubTypeStringArray {
			out := make([]string, 0, len(val))
			for _, item := range val {
				s, ok := item.(string)
				if !ok {
					return nil, meta.NewConfigError(meta.PhaseParse, meta.CodeBadValue,
						"stringarray values must be strings, got %T", item)
				}
				out = append(out, s)
			}
			return out, nil
		}
	case nil:
		return nil, meta.NewConfigError(meta.PhaseParse, meta.CodeBadValue,
			"null is not a valid %s value", subType)
	}
	return nil, meta.NewConfigError(meta.PhaseParse, meta.CodeBadValue,
		"cannot use %T value %v as %s", v, v, subType)
}

func coerceNumber(subType string, i int64, f float64, integral bool) (any, error) {
	switch subType {
	case meta.SubTypeInt:
		if integral && i >= math.MinInt32 && i <= math.MaxInt32 {
			return int(i), nil
		}
	case meta.SubTypeLong:
		if integral {
			return i, nil
		}
	case meta.SubTypeDouble:
		return f, nil
	}
	return nil, meta.NewConfigError(meta.PhaseParse, meta.CodeBadValue,
		"number %v does not fit subtype %s", f, subType)
}

// inferSubType guesses an attr subtype from a value's shape. Only
// consulted when Options.InferAttrTypes is enabled and neither the owning
// definition nor the well-known table declares the attribute.
func inferSubType(v any) string {
	switch val := v.(type) {
	case bool:
		return meta.SubTypeBoolean
	case int:
		return intSubType(int64(val))
	case int64:
		return intSubType(val)
	case float64:
		if val == math.Trunc(val) && math.Abs(val) < math.MaxInt64/2 {
			return intSubType(int64(val))
		}
		return meta.SubTypeDouble
	case []any:
		return meta.SubTypeStringArray
	case string:
		if val == "true" || val == "false" {
			return meta.SubTypeBoolean
		}
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			return intSubType(i)
		}
		if _, err := strconv.ParseFloat(val, 64); err == nil {
			return meta.SubTypeDouble
		}
	}
	return meta.SubTypeString
}

func intSubType(i int64) string {
	if i >= math.MinInt32 && i <= math.MaxInt32 {
		return meta.SubTypeInt
	}
	return meta.SubTypeLong
}
