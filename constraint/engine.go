package constraint

import (
	"sort"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/weftwork/weft/meta"
)

// Engine holds the registered constraints and enforces them. It implements
// meta.Enforcer: nodes built by a registry wired to the engine consult it
// inside AddChild. Constraints are registered while the type catalog loads;
// after that the engine is read-mostly and safe for concurrent use.
type Engine struct {
	mu  sync.RWMutex
	log *zap.Logger

	placements  []*Placement
	validations []*Validation
	uniques     []*Uniqueness

	enforcing atomic.Bool
	disabled  map[string]bool // metadata type -> enforcement switched off
}

var _ meta.Enforcer = (*Engine)(nil)

// NewEngine builds an engine with enforcement on. A nil logger falls back
// to a no-op logger.
func NewEngine(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{log: logger, disabled: make(map[string]bool)}
	e.enforcing.Store(true)
	return e
}

// Add registers a constraint.
func (e *Engine) Add(c Constraint) error {
	if c == nil || c.ConstraintID() == "" {
		return meta.NewConfigError(meta.PhaseConstraint, meta.CodeBadValue,
			"constraints need a non-empty id")
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	switch v := c.(type) {
	case *Placement:
		e.placements = append(e.placements, v)
	case *Validation:
		if v.Check == nil {
			return meta.NewConfigError(meta.PhaseConstraint, meta.CodeBadValue,
				"validation %q has no predicate", v.ID)
		}
		e.validations = append(e.validations, v)
	case *Uniqueness:
		e.uniques = append(e.uniques, v)
	default:
		return meta.NewConfigError(meta.PhaseConstraint, meta.CodeBadValue,
			"unsupported constraint kind %T", c)
	}
	e.log.Debug("constraint added", zap.String("constraint", c.ConstraintID()))
	return nil
}

// AddAll registers constraints in order, stopping at the first error.
func (e *Engine) AddAll(cs ...Constraint) error {
	for _, c := range cs {
		if err := e.Add(c); err != nil {
			return err
		}
	}
	return nil
}

// SetEnforcing toggles enforcement globally. The switch is logged; bulk
// loaders that disable checking do so visibly.
func (e *Engine) SetEnforcing(on bool) {
	e.enforcing.Store(on)
	e.log.Info("constraint enforcement toggled", zap.Bool("enforcing", on))
}

// SetEnforcingForType toggles enforcement for children of one metadata
// type, independent of the global switch.
func (e *Engine) SetEnforcingForType(typ string, on bool) {
	e.mu.Lock()
	if on {
		delete(e.disabled, typ)
	} else {
		e.disabled[typ] = true
	}
	e.mu.Unlock()
	e.log.Info("constraint enforcement toggled for type",
		zap.String("type", typ), zap.Bool("enforcing", on))
}

// Enforcing reports the global enforcement switch.
func (e *Engine) Enforcing() bool { return e.enforcing.Load() }

// EnforcingFor reports whether children of the given metadata type are
// currently checked.
func (e *Engine) EnforcingFor(typ string) bool {
	if !e.enforcing.Load() {
		return false
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return !e.disabled[typ]
}

// EnforceAddChild validates a pending attachment. Evaluation order:
// placement (forbid wins over allow, zero matches pass), then validations
// matching the child, then sibling uniqueness. Any failure is a Violation
// and the caller must leave the tree untouched.
func (e *Engine) EnforceAddChild(parent, child meta.Node) error {
	if !e.EnforcingFor(child.Type()) {
		return nil
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	if err := e.checkPlacement(parent, child); err != nil {
		return err
	}
	if err := e.checkValidations(parent, child); err != nil {
		return err
	}
	return e.checkUniqueness(parent, child)
}

// checkPlacement fails when any matching placement forbids the pair. A
// forbid wins unconditionally over any matching allow, and the outcome
// never depends on registration order; with no matching forbid the
// attachment passes, whether through an explicit allow or the permissive
// default.
func (e *Engine) checkPlacement(parent, child meta.Node) error {
	for _, p := range e.placements {
		if p.Allowed || !p.Parent.Matches(parent) || !p.Child.Matches(child) {
			continue
		}
		v := meta.NewViolation(p.ID, parent,
			"placement of %s under %s is forbidden: %s", child, parent, p.Description)
		v.Value = child.String()
		return v
	}
	return nil
}

// checkValidations runs target-matching validations against the fresh
// child. When the child is an attr, attribute-scoped validations targeting
// the parent also run, so attrs attached after their owner are still
// covered.
func (e *Engine) checkValidations(parent, child meta.Node) error {
	for _, val := range e.validations {
		if val.Target.Matches(child) {
			if err := e.runValidation(val, child); err != nil {
				return err
			}
		}
		if child.Type() == meta.TypeAttr && val.Attr != "" &&
			val.Attr == child.ShortName() && val.Target.Matches(parent) {
			a, ok := child.(*meta.Attr)
			if !ok {
				continue
			}
			if !val.Check(parent, a.Value()) {
				return violation(val, parent, a.Value())
			}
		}
	}
	return nil
}

func (e *Engine) runValidation(val *Validation, n meta.Node) error {
	var value any
	if val.Attr != "" {
		v, err := n.AttrValue(val.Attr)
		if err != nil {
			// Attribute not present; presence is declared through the
			// registry's attr requirements.
			return nil
		}
		value = v
	}
	if !val.Check(n, value) {
		return violation(val, n, value)
	}
	return nil
}

func violation(val *Validation, n meta.Node, value any) *meta.Violation {
	v := meta.NewViolation(val.ID, n, "%s failed for %s", describeOrID(val), n)
	v.Value = value
	return v
}

func describeOrID(c Constraint) string {
	if d := c.Describe(); d != "" {
		return d
	}
	return "constraint " + c.ConstraintID()
}

// checkUniqueness compares the new child's extracted value against every
// sibling matching the same target pattern.
func (e *Engine) checkUniqueness(parent, child meta.Node) error {
	for _, u := range e.uniques {
		if !u.Target.Matches(child) {
			continue
		}
		key, ok := u.ValueOf(child)
		if !ok {
			continue
		}
		for _, sibling := range parent.Children() {
			if sibling == child || !u.Target.Matches(sibling) {
				continue
			}
			if k, ok := u.ValueOf(sibling); ok && k == key {
				v := meta.NewViolation(u.ID, parent,
					"%s duplicates %q already carried by sibling %s", child, key, sibling)
				v.Value = key
				return v
			}
		}
	}
	return nil
}

// EnforceSetAttr validates an attribute value change on an already
// attached node, running the attribute-scoped validations that target the
// owner.
func (e *Engine) EnforceSetAttr(owner meta.Node, attr *meta.Attr) error {
	if !e.EnforcingFor(owner.Type()) {
		return nil
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, val := range e.validations {
		if val.Attr == "" || val.Attr != attr.ShortName() || !val.Target.Matches(owner) {
			continue
		}
		if !val.Check(owner, attr.Value()) {
			return violation(val, owner, attr.Value())
		}
	}
	return nil
}

// PlacementConstraints returns a copy of the registered placements.
func (e *Engine) PlacementConstraints() []Placement {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Placement, len(e.placements))
	for i, p := range e.placements {
		out[i] = *p
	}
	return out
}

// ValidationConstraints returns a copy of the registered validations. The
// enforcement loop and external schema generators both read this list.
func (e *Engine) ValidationConstraints() []Validation {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Validation, len(e.validations))
	for i, v := range e.validations {
		out[i] = *v
	}
	return out
}

// UniquenessConstraints returns a copy of the registered uniqueness rules.
func (e *Engine) UniquenessConstraints() []Uniqueness {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Uniqueness, len(e.uniques))
	for i, u := range e.uniques {
		out[i] = *u
	}
	return out
}

// Stats summarizes the engine for inspection tooling and the dev server.
type Stats struct {
	Placements    int      `json:"placements"`
	Validations   int      `json:"validations"`
	Uniqueness    int      `json:"uniqueness"`
	Enforcing     bool     `json:"enforcing"`
	DisabledTypes []string `json:"disabledTypes,omitempty"`
}

// Stats returns current constraint counts and enforcement state.
func (e *Engine) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	var disabled []string
	for typ := range e.disabled {
		disabled = append(disabled, typ)
	}
	sort.Strings(disabled)
	return Stats{
		Placements:    len(e.placements),
		Validations:   len(e.validations),
		Uniqueness:    len(e.uniques),
		Enforcing:     e.enforcing.Load(),
		DisabledTypes: disabled,
	}
}
