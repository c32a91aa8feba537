package meta

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes carried by ConfigError. Codes are stable identifiers for
// machine consumption (JSON output, editor tooling); messages are for
// humans and may change.
const (
	CodeUnknownType          = "unknown_type"
	CodeUnknownSubType       = "unknown_subtype"
	CodeDuplicateType        = "duplicate_type"
	CodeInheritanceCycle     = "inheritance_cycle"
	CodeUnresolvedInherit    = "unresolved_inherit"
	CodeUnresolvedSuper      = "unresolved_super"
	CodeOverlayTargetMissing = "overlay_target_missing"
	CodeMalformedDocument    = "malformed_document"
	CodeFrozen               = "registry_frozen"
	CodeMissingName          = "missing_name"
	CodeMissingSubType       = "missing_subtype"
	CodeMissingAttr          = "missing_attr"
	CodeMissingChild         = "missing_child"
	CodeBadValue             = "bad_value"
	CodeBadPackage           = "bad_package"
	CodeChildRejected        = "child_rejected"
	CodeLoaderState          = "loader_state"
)

// Phases identify which layer produced a ConfigError.
const (
	PhaseRegistry   = "registry"
	PhaseConstraint = "constraint"
	PhaseParse      = "parse"
	PhaseLoader     = "loader"
)

// SourceLocation points at the document position a parse error came from.
// Line and Column are 1-based; zero values mean unknown.
type SourceLocation struct {
	File   string `json:"file"`
	Line   int    `json:"line,omitempty"`
	Column int    `json:"column,omitempty"`
}

func (l SourceLocation) String() string {
	if l.File == "" {
		return ""
	}
	if l.Line > 0 {
		return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
	}
	return l.File
}

// ConfigError reports a structural problem with the metadata model itself:
// unknown or duplicate types, unresolvable references, malformed documents.
// These indicate a build-time programming error, are always fatal to the
// enclosing load, and are never retried.
type ConfigError struct {
	Code     string          `json:"code"`
	Phase    string          `json:"phase"`
	Message  string          `json:"message"`
	NodePath string          `json:"node_path,omitempty"`
	Loc      *SourceLocation `json:"location,omitempty"`
	Hints    []string        `json:"hints,omitempty"`
}

func (e *ConfigError) Error() string {
	var b strings.Builder
	b.WriteString("[")
	b.WriteString(e.Phase)
	b.WriteString(":")
	b.WriteString(e.Code)
	b.WriteString("] ")
	b.WriteString(e.Message)
	if e.NodePath != "" {
		b.WriteString(" at ")
		b.WriteString(e.NodePath)
	}
	if e.Loc != nil && e.Loc.File != "" {
		b.WriteString(" (")
		b.WriteString(e.Loc.String())
		b.WriteString(")")
	}
	return b.String()
}

// WithNode attaches the path of the node the error concerns.
func (e *ConfigError) WithNode(n Node) *ConfigError {
	if n != nil {
		e.NodePath = PathOf(n)
	}
	return e
}

// WithLocation attaches a document position.
func (e *ConfigError) WithLocation(file string, line, col int) *ConfigError {
	e.Loc = &SourceLocation{File: file, Line: line, Column: col}
	return e
}

// WithHint appends a remediation hint shown by the CLI.
func (e *ConfigError) WithHint(hint string) *ConfigError {
	e.Hints = append(e.Hints, hint)
	return e
}

// NewConfigError builds a ConfigError with a formatted message.
func NewConfigError(phase, code, format string, args ...any) *ConfigError {
	return &ConfigError{Phase: phase, Code: code, Message: fmt.Sprintf(format, args...)}
}

// Violation reports a constraint failure: a forbidden placement, a failed
// validation predicate, or a sibling uniqueness clash. Always fatal to the
// enclosing add; the child is never left partially attached.
type Violation struct {
	ConstraintID string `json:"constraint_id"`
	Message      string `json:"message"`
	NodePath     string `json:"node_path,omitempty"`
	Value        any    `json:"value,omitempty"`
}

func (e *Violation) Error() string {
	if e.ConstraintID == "" {
		return "constraint violation: " + e.Message
	}
	return fmt.Sprintf("constraint violation [%s]: %s", e.ConstraintID, e.Message)
}

// NewViolation builds a Violation against the given node.
func NewViolation(constraintID string, n Node, format string, args ...any) *Violation {
	v := &Violation{ConstraintID: constraintID, Message: fmt.Sprintf(format, args...)}
	if n != nil {
		v.NodePath = PathOf(n)
	}
	return v
}

// NotFoundError reports a child, attribute, or type lookup miss. Internal
// has-style checks catch it locally and convert it to a boolean; it never
// escapes such queries as a fatal error.
type NotFoundError struct {
	Kind  string // "child", "attr", "type", "object", "field"
	Name  string
	Scope string // where the lookup ran, usually a node path
}

func (e *NotFoundError) Error() string {
	if e.Scope == "" {
		return fmt.Sprintf("%s %q not found", e.Kind, e.Name)
	}
	return fmt.Sprintf("%s %q not found in %s", e.Kind, e.Name, e.Scope)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsViolation reports whether err is (or wraps) a Violation.
func IsViolation(err error) bool {
	var v *Violation
	return errors.As(err, &v)
}

// IsConfigError reports whether err is (or wraps) a ConfigError, optionally
// narrowed to a code. An empty code matches any ConfigError.
func IsConfigError(err error, code string) bool {
	var ce *ConfigError
	if !errors.As(err, &ce) {
		return false
	}
	return code == "" || ce.Code == code
}
