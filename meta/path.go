package meta

import (
	"regexp"
	"strings"
)

// PkgSeparator joins package segments and the final short name inside a
// fully qualified metadata name, e.g. "acme::model::User".
const PkgSeparator = "::"

// relativePrefix and parentPrefix mark package-relative references inside
// documents: "::Address" appends to the current package, each leading
// "..::" climbs one package level.
const (
	relativePrefix = "::"
	parentPrefix   = "..::"
)

var namePartRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ValidName reports whether every ::-separated segment of name is a legal
// identifier.
func ValidName(name string) bool {
	if name == "" {
		return false
	}
	for _, part := range strings.Split(name, PkgSeparator) {
		if !namePartRe.MatchString(part) {
			return false
		}
	}
	return true
}

// ShortNameOf returns the final segment of a qualified name.
func ShortNameOf(name string) string {
	if i := strings.LastIndex(name, PkgSeparator); i >= 0 {
		return name[i+len(PkgSeparator):]
	}
	return name
}

// PackageOf returns the package portion of a qualified name, or "" for a
// simple name.
func PackageOf(name string) string {
	if i := strings.LastIndex(name, PkgSeparator); i >= 0 {
		return name[:i]
	}
	return ""
}

// Qualify joins a package and a simple name. An empty package yields the
// name unchanged; an already-qualified name is returned as is.
func Qualify(pkg, name string) string {
	if pkg == "" || IsQualified(name) {
		return name
	}
	return pkg + PkgSeparator + name
}

// IsQualified reports whether name carries a package portion.
func IsQualified(name string) bool {
	return strings.Contains(name, PkgSeparator)
}

// ExpandPackage resolves a possibly-relative package reference against a
// base package.
//
//	ExpandPackage("a::b", "::c")    == "a::b::c"
//	ExpandPackage("a::b", "..::c")  == "a::c"
//	ExpandPackage("a::b", "x::y")   == "x::y"
//	ExpandPackage("a::b", "")       == "a::b"
func ExpandPackage(base, ref string) (string, error) {
	switch {
	case ref == "":
		return base, nil
	case strings.HasPrefix(ref, parentPrefix):
		segments := []string{}
		if base != "" {
			segments = strings.Split(base, PkgSeparator)
		}
		rest := ref
		for strings.HasPrefix(rest, parentPrefix) {
			if len(segments) == 0 {
				return "", NewConfigError(PhaseParse, CodeBadPackage,
					"relative package %q climbs above base package %q", ref, base)
			}
			segments = segments[:len(segments)-1]
			rest = rest[len(parentPrefix):]
		}
		segments = append(segments, strings.Split(rest, PkgSeparator)...)
		return strings.Join(segments, PkgSeparator), nil
	case strings.HasPrefix(ref, relativePrefix):
		rest := ref[len(relativePrefix):]
		if base == "" {
			return rest, nil
		}
		return base + PkgSeparator + rest, nil
	default:
		return ref, nil
	}
}

// ResolveCandidates lists the fully qualified names a reference may denote
// within a base package, in resolution order: package-relative first, then
// the reference as written. Relative prefixes ("::x", "..::x") expand
// against the base; a plain short name tries the base package before the
// bare name.
func ResolveCandidates(basePkg, ref string) []string {
	if strings.HasPrefix(ref, relativePrefix) || strings.HasPrefix(ref, parentPrefix) {
		expanded, err := ExpandPackage(basePkg, ref)
		if err != nil {
			return []string{ref}
		}
		return []string{expanded}
	}
	if !IsQualified(ref) && basePkg != "" {
		return []string{Qualify(basePkg, ref), ref}
	}
	return []string{ref}
}

// FindPackage walks from n toward the root and returns the first non-empty
// package carried by a node name. Nested nodes use simple names, so their
// effective package comes from the closest qualified ancestor.
func FindPackage(n Node) string {
	for cur := n; cur != nil; cur = cur.Parent() {
		if pkg := PackageOf(cur.Name()); pkg != "" {
			return pkg
		}
	}
	return ""
}

// PathOf renders a node's position for diagnostics, walking parents down to
// the node: loader{demo}.object[pojo]{acme::User}.field[string]{email}.
func PathOf(n Node) string {
	if n == nil {
		return ""
	}
	var chain []Node
	for cur := n; cur != nil; cur = cur.Parent() {
		chain = append(chain, cur)
	}
	var b strings.Builder
	for i := len(chain) - 1; i >= 0; i-- {
		c := chain[i]
		if b.Len() > 0 {
			b.WriteString(".")
		}
		b.WriteString(c.Type())
		if c.SubType() != "" {
			b.WriteString("[")
			b.WriteString(c.SubType())
			b.WriteString("]")
		}
		b.WriteString("{")
		b.WriteString(c.Name())
		b.WriteString("}")
	}
	return b.String()
}
