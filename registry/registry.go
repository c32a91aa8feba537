// Package registry holds the type system behind every metadata tree: which
// (type, subtype) pairs exist, what they inherit, which children and
// attributes they accept, and how their nodes are constructed.
//
// A Registry runs through a fixed lifecycle: construct, register all
// definitions (directly or through Providers), Freeze, then serve reads.
// Freeze resolves inheritance, rejects cycles, and precomputes the merged
// definition for every pair; after it the registry is immutable and safe
// for unlocked concurrent reads.
package registry

import (
	"sort"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/weftwork/weft/meta"
)

// Registry owns the registered type definitions and constructs nodes from
// them. It implements meta.ChildAcceptor: every node it builds is stamped
// with the registry itself so AddChild can consult the merged child
// requirements of the parent's definition.
type Registry struct {
	mu  sync.RWMutex
	log *zap.Logger

	defs  map[TypeKey]*TypeDefinition
	order []TypeKey // registration order, kept for deterministic catalogs

	// Pre-computed views, built once at Freeze
	merged     map[TypeKey]*TypeDefinition
	subsByType map[string][]string
	defaultSub map[string]string

	enforcer meta.Enforcer
	frozen   atomic.Bool
}

// NewRegistry builds an empty, unfrozen registry. A nil logger falls back
// to a no-op logger.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		log:        logger,
		defs:       make(map[TypeKey]*TypeDefinition),
		merged:     make(map[TypeKey]*TypeDefinition),
		subsByType: make(map[string][]string),
		defaultSub: make(map[string]string),
	}
}

// SetEnforcer wires the constraint engine stamped into every node built by
// NewInstance. Call it before loading begins.
func (r *Registry) SetEnforcer(e meta.Enforcer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enforcer = e
}

// Register stores one type definition. Registering the same (type, subtype)
// pair twice is tolerated only when both registrations are equivalent;
// conflicting re-registration and registration after Freeze are
// configuration errors. InheritsFrom may name a pair registered later:
// references are resolved at Freeze.
func (r *Registry) Register(def *TypeDefinition) error {
	if r.frozen.Load() {
		return meta.NewConfigError(meta.PhaseRegistry, meta.CodeFrozen,
			"registry is frozen, cannot register %s.%s", def.Type, def.SubType)
	}
	if err := def.validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen.Load() {
		return meta.NewConfigError(meta.PhaseRegistry, meta.CodeFrozen,
			"registry is frozen, cannot register %s.%s", def.Type, def.SubType)
	}

	key := def.Key()
	if existing, ok := r.defs[key]; ok {
		if existing.equivalent(def) {
			return nil
		}
		return meta.NewConfigError(meta.PhaseRegistry, meta.CodeDuplicateType,
			"type %s is already registered with a different definition", key)
	}

	r.defs[key] = def.clone()
	r.order = append(r.order, key)
	r.log.Debug("registered type",
		zap.String("type", def.Type),
		zap.String("subtype", def.SubType))
	return nil
}

// Freeze seals the registry. It verifies every InheritsFrom reference
// resolves, walks the inheritance graph with a visited set to reject cycles
// eagerly, checks each definition ends up with a factory, precomputes the
// merged definition cache and the per-type indexes, then flips the registry
// to read-only. Freeze is idempotent.
func (r *Registry) Freeze() error {
	if r.frozen.Load() {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, key := range r.order {
		if err := r.checkChain(key); err != nil {
			return err
		}
	}

	for _, key := range r.order {
		m, err := r.mergedLocked(key)
		if err != nil {
			return err
		}
		if m.Factory == nil {
			return meta.NewConfigError(meta.PhaseRegistry, meta.CodeBadValue,
				"type %s has no factory anywhere in its inheritance chain", key)
		}
		r.merged[key] = m
	}

	for _, key := range r.order {
		r.subsByType[key.Type] = append(r.subsByType[key.Type], key.SubType)
		if r.defs[key].IsDefaultSubType {
			if prev, ok := r.defaultSub[key.Type]; ok && prev != key.SubType {
				return meta.NewConfigError(meta.PhaseRegistry, meta.CodeDuplicateType,
					"type %q declares two default subtypes: %q and %q", key.Type, prev, key.SubType)
			}
			r.defaultSub[key.Type] = key.SubType
		}
	}
	for _, subs := range r.subsByType {
		sort.Strings(subs)
	}

	r.frozen.Store(true)
	r.log.Info("registry frozen",
		zap.Int("types", len(r.subsByType)),
		zap.Int("definitions", len(r.defs)))
	return nil
}

// Frozen reports whether the registry has been sealed.
func (r *Registry) Frozen() bool { return r.frozen.Load() }

// checkChain validates one definition's inheritance chain: every parent
// must exist and the walk must terminate.
func (r *Registry) checkChain(key TypeKey) error {
	visited := map[TypeKey]bool{}
	var chain []TypeKey
	cur := key
	for {
		def, ok := r.defs[cur]
		if !ok {
			return meta.NewConfigError(meta.PhaseRegistry, meta.CodeUnresolvedInherit,
				"type %s inherits from unregistered type %s", chain[len(chain)-1], cur)
		}
		if visited[cur] {
			return meta.NewConfigError(meta.PhaseRegistry, meta.CodeInheritanceCycle,
				"inheritance cycle: %s", cyclePath(chain, cur))
		}
		visited[cur] = true
		chain = append(chain, cur)
		if def.InheritsFrom == nil {
			return nil
		}
		cur = *def.InheritsFrom
	}
}

// mergedLocked computes the merged definition for a key, walking the chain
// self -> parent -> ... and layering the most specific entries last. The
// caller must hold at least a read lock.
func (r *Registry) mergedLocked(key TypeKey) (*TypeDefinition, error) {
	if m, ok := r.merged[key]; ok {
		return m, nil
	}

	var chain []*TypeDefinition
	visited := map[TypeKey]bool{}
	cur := key
	for {
		def, ok := r.defs[cur]
		if !ok {
			if len(chain) == 0 {
				return nil, r.unknownLocked(cur)
			}
			return nil, meta.NewConfigError(meta.PhaseRegistry, meta.CodeUnresolvedInherit,
				"type %s inherits from unregistered type %s", chain[len(chain)-1].Key(), cur)
		}
		if visited[cur] {
			keys := make([]TypeKey, len(chain))
			for i, d := range chain {
				keys[i] = d.Key()
			}
			return nil, meta.NewConfigError(meta.PhaseRegistry, meta.CodeInheritanceCycle,
				"inheritance cycle: %s", cyclePath(keys, cur))
		}
		visited[cur] = true
		chain = append(chain, def)
		if def.InheritsFrom == nil {
			break
		}
		cur = *def.InheritsFrom
	}

	out := chain[len(chain)-1].clone()
	for i := len(chain) - 2; i >= 0; i-- {
		out = mergeFrom(out, chain[i])
	}
	return out, nil
}

// unknownLocked builds the unknown-type error, listing what is available.
func (r *Registry) unknownLocked(key TypeKey) error {
	subs, ok := r.subsOfLocked(key.Type)
	if !ok {
		return meta.NewConfigError(meta.PhaseRegistry, meta.CodeUnknownType,
			"unknown type %q, registered types: %s", key.Type, joinNames(r.typeNamesLocked())).
			WithHint("register the type with a provider before loading")
	}
	return meta.NewConfigError(meta.PhaseRegistry, meta.CodeUnknownSubType,
		"unknown subtype %q of type %q, registered subtypes: %s", key.SubType, key.Type, joinNames(subs))
}

// TypeDefinition returns the fully merged definition for a pair: inherited
// child and attribute requirements unioned with the pair's own, own entries
// winning on name collision. The returned value is a copy; mutating it
// never affects the registry. Lookup of an unregistered pair is a
// configuration error.
func (r *Registry) TypeDefinition(typ, subType string) (*TypeDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, err := r.mergedLocked(TypeKey{Type: typ, SubType: subType})
	if err != nil {
		return nil, err
	}
	return m.clone(), nil
}

// NewInstance constructs a detached node of the given pair via its
// registered factory. This is the single authoritative gate for "does this
// type exist": every unregistered pair fails here. Fresh nodes are stamped
// with the registry as child acceptor and its constraint engine as
// enforcer, so later AddChild calls validate against both.
func (r *Registry) NewInstance(typ, subType, name string) (meta.Node, error) {
	if name == "" {
		return nil, meta.NewConfigError(meta.PhaseRegistry, meta.CodeMissingName,
			"cannot create a %s.%s node without a name", typ, subType)
	}

	r.mu.RLock()
	m, err := r.mergedLocked(TypeKey{Type: typ, SubType: subType})
	if err != nil {
		r.mu.RUnlock()
		return nil, err
	}
	enforcer := r.enforcer
	r.mu.RUnlock()

	if m.Factory == nil {
		return nil, meta.NewConfigError(meta.PhaseRegistry, meta.CodeBadValue,
			"type %s.%s has no factory anywhere in its inheritance chain", typ, subType)
	}
	node := m.Factory(subType, name)
	if node == nil {
		return nil, meta.NewConfigError(meta.PhaseRegistry, meta.CodeBadValue,
			"factory for %s.%s returned no node", typ, subType)
	}
	node.Bind(r, enforcer)
	return node, nil
}

// AcceptsChild implements meta.ChildAcceptor against the parent's merged
// child requirements: a definition with no requirements accepts anything,
// otherwise at least one requirement must match the child's (type, subtype,
// shortname). The error lists the supported children.
func (r *Registry) AcceptsChild(parent, child meta.Node) error {
	r.mu.RLock()
	m, err := r.mergedLocked(TypeKey{Type: parent.Type(), SubType: parent.SubType()})
	r.mu.RUnlock()
	if err != nil {
		// A parent built outside the registry carries no definition to
		// check against; placement constraints still apply.
		return nil
	}
	if m.AcceptsChildShape(child.Type(), child.SubType(), child.ShortName()) {
		return nil
	}
	return meta.NewConfigError(meta.PhaseRegistry, meta.CodeChildRejected,
		"%s.%s does not accept child %s, supported children: %s",
		parent.Type(), parent.SubType(), child, m.SupportedChildren()).WithNode(parent)
}

// HasType reports whether any subtype of the given type is registered.
func (r *Registry) HasType(typ string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.subsOfLocked(typ)
	return ok
}

// HasSubType reports whether the exact (type, subtype) pair is registered.
func (r *Registry) HasSubType(typ, subType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.defs[TypeKey{Type: typ, SubType: subType}]
	return ok
}

// SubTypes returns the sorted subtype names registered for a type.
func (r *Registry) SubTypes(typ string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	subs, _ := r.subsOfLocked(typ)
	return append([]string(nil), subs...)
}

// TypeNames returns the sorted distinct type names.
func (r *Registry) TypeNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.typeNamesLocked()
}

func (r *Registry) typeNamesLocked() []string {
	seen := map[string]bool{}
	var names []string
	for _, key := range r.order {
		if !seen[key.Type] {
			seen[key.Type] = true
			names = append(names, key.Type)
		}
	}
	sort.Strings(names)
	return names
}

// subsOfLocked returns the subtypes of a type. Before Freeze the index is
// not built yet, so it falls back to scanning the definitions.
func (r *Registry) subsOfLocked(typ string) ([]string, bool) {
	if r.frozen.Load() {
		subs, ok := r.subsByType[typ]
		return subs, ok
	}
	var subs []string
	for _, key := range r.order {
		if key.Type == typ {
			subs = append(subs, key.SubType)
		}
	}
	sort.Strings(subs)
	return subs, len(subs) > 0
}

// DefaultSubType returns the subtype applied when a document names only the
// type, and whether one is declared.
func (r *Registry) DefaultSubType(typ string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.frozen.Load() {
		sub, ok := r.defaultSub[typ]
		return sub, ok
	}
	for _, key := range r.order {
		if key.Type == typ && r.defs[key].IsDefaultSubType {
			return key.SubType, true
		}
	}
	return "", false
}

// Definitions returns copies of every registered definition in registration
// order, for catalogs and inspection tooling.
func (r *Registry) Definitions() []*TypeDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*TypeDefinition, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, r.defs[key].clone())
	}
	return out
}

// Stats summarizes the registry for inspection tooling and the dev server.
type Stats struct {
	Types          int            `json:"types"`
	Definitions    int            `json:"definitions"`
	SubTypesByType map[string]int `json:"subtypesByType"`
	Frozen         bool           `json:"frozen"`
}

// Stats returns current registry counts.
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	byType := map[string]int{}
	for _, key := range r.order {
		byType[key.Type]++
	}
	return Stats{
		Types:          len(byType),
		Definitions:    len(r.order),
		SubTypesByType: byType,
		Frozen:         r.frozen.Load(),
	}
}

func joinNames(names []string) string {
	if len(names) == 0 {
		return "none"
	}
	out := ""
	for i, n := range names {
		if i > 0 {
			out += ", "
		}
		out += n
	}
	return out
}
