// Package loader builds metadata trees from declarative JSON, XML, and
// YAML documents. A Loader owns exactly one tree: construct it over a
// frozen registry, Init it from one or more sources, then hand the loaded
// tree to read-only consumers. Later documents merge onto the same tree
// with overlay semantics: children union, scalar attrs last-write-wins.
package loader

import (
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/weftwork/weft/meta"
	"github.com/weftwork/weft/registry"
)

// rootSubType is the loader subtype of every tree root. The registry in
// use must have it registered; the standard catalog does.
const rootSubType = "file"

// defaultName names roots of loaders constructed without an explicit name.
const defaultName = "metadata"

// Phase is a loader lifecycle state.
type Phase int32

const (
	PhaseNew Phase = iota
	PhaseLoading
	PhaseLoaded
	PhaseFailed
	PhaseDestroyed
)

func (p Phase) String() string {
	switch p {
	case PhaseNew:
		return "new"
	case PhaseLoading:
		return "loading"
	case PhaseLoaded:
		return "loaded"
	case PhaseFailed:
		return "failed"
	case PhaseDestroyed:
		return "destroyed"
	default:
		return fmt.Sprintf("phase(%d)", int32(p))
	}
}

// Options configures a Loader. The zero value is a strict, non-inferring
// loader with a nop logger.
type Options struct {
	// Name names the tree root. Defaults to "metadata".
	Name string
	// Lenient downgrades unknown record types from fatal errors to logged
	// skips of the whole subtree. Unknown subtypes stay fatal.
	Lenient bool
	// InferAttrTypes enables value-shape inference for inline attributes
	// that neither the owning definition nor the well-known table covers.
	InferAttrTypes bool
	// DefaultPackage qualifies root-level records of documents that carry
	// no package key of their own. A document's own key wins.
	DefaultPackage string
	Logger         *zap.Logger
}

// Loader owns one metadata tree and the mutation lock over it. All writes
// run through Init, LoadFile, and LoadReader; reads require PhaseLoaded so
// a caller can never observe a tree that failed mid-construction.
type Loader struct {
	mu     sync.Mutex
	reg    *registry.Registry
	opts   Options
	log    *zap.Logger
	loadID string
	root   meta.Node
	phase  Phase
}

// New creates a loader over a frozen registry. The tree root is a
// loader.file node named after Options.Name.
func New(reg *registry.Registry, opts Options) (*Loader, error) {
	if reg == nil {
		return nil, meta.NewConfigError(meta.PhaseLoader, meta.CodeBadValue,
			"loader requires a registry")
	}
	if !reg.Frozen() {
		return nil, meta.NewConfigError(meta.PhaseLoader, meta.CodeLoaderState,
			"loader requires a frozen registry").
			WithHint("call Freeze or registry.Load before constructing loaders")
	}
	name := opts.Name
	if name == "" {
		name = defaultName
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	loadID := uuid.New().String()
	log = log.With(zap.String("load_id", loadID), zap.String("loader", name))

	root, err := reg.NewInstance(meta.TypeLoader, rootSubType, name)
	if err != nil {
		return nil, err
	}
	return &Loader{
		reg:    reg,
		opts:   opts,
		log:    log,
		loadID: loadID,
		root:   root,
		phase:  PhaseNew,
	}, nil
}

// ID returns the load id correlating this loader's log lines.
func (ld *Loader) ID() string { return ld.loadID }

// Name returns the tree root's name.
func (ld *Loader) Name() string {
	ld.mu.Lock()
	defer ld.mu.Unlock()
	if ld.root == nil {
		return ld.opts.Name
	}
	return ld.root.Name()
}

// Phase returns the current lifecycle phase.
func (ld *Loader) Phase() Phase {
	ld.mu.Lock()
	defer ld.mu.Unlock()
	return ld.phase
}

// Init parses every source in order onto the tree and finishes the load.
// Any fatal error aborts the whole load and latches PhaseFailed.
func (ld *Loader) Init(sources ...Source) error {
	ld.mu.Lock()
	defer ld.mu.Unlock()
	if ld.phase != PhaseNew {
		return meta.NewConfigError(meta.PhaseLoader, meta.CodeLoaderState,
			"cannot initialize a %s loader", ld.phase)
	}
	ld.phase = PhaseLoading
	ld.log.Info("load started", zap.Int("sources", len(sources)))
	for _, src := range sources {
		if err := ld.loadSourceLocked(src); err != nil {
			ld.phase = PhaseFailed
			ld.log.Error("load failed", zap.String("source", src.Name), zap.Error(err))
			return err
		}
	}
	if err := ld.finishLocked(); err != nil {
		ld.phase = PhaseFailed
		ld.log.Error("load failed", zap.Error(err))
		return err
	}
	ld.phase = PhaseLoaded
	ld.log.Info("load finished",
		zap.Int("objects", len(ld.root.ChildrenOfType(meta.TypeObject))))
	return nil
}

// LoadFile merges one more document file onto the tree. Allowed before
// Init and on a loaded tree; a fatal error latches PhaseFailed.
func (ld *Loader) LoadFile(path string) error {
	return ld.load(FileSource(path))
}

// LoadReader merges one more document from a reader onto the tree.
func (ld *Loader) LoadReader(name string, r io.Reader, format Format) error {
	return ld.load(ReaderSource(name, r, format))
}

func (ld *Loader) load(src Source) error {
	ld.mu.Lock()
	defer ld.mu.Unlock()
	if ld.phase != PhaseNew && ld.phase != PhaseLoaded {
		return meta.NewConfigError(meta.PhaseLoader, meta.CodeLoaderState,
			"cannot load into a %s loader", ld.phase)
	}
	ld.phase = PhaseLoading
	if err := ld.loadSourceLocked(src); err != nil {
		ld.phase = PhaseFailed
		ld.log.Error("load failed", zap.String("source", src.Name), zap.Error(err))
		return err
	}
	if err := ld.finishLocked(); err != nil {
		ld.phase = PhaseFailed
		ld.log.Error("load failed", zap.Error(err))
		return err
	}
	ld.phase = PhaseLoaded
	return nil
}

func (ld *Loader) loadSourceLocked(src Source) error {
	if src.Format == "" {
		return meta.NewConfigError(meta.PhaseParse, meta.CodeMalformedDocument,
			"cannot determine the format of %q", src.Name).
			WithHint("use a .json, .xml, .yaml, or .yml extension, or pass the format explicitly")
	}
	rc, err := src.open()
	if err != nil {
		return fmt.Errorf("open %s: %w", src.Name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return fmt.Errorf("read %s: %w", src.Name, err)
	}

	doc, err := decodeDocument(data, src.Format)
	if err != nil {
		return locateIn(err, src.Name)
	}
	ld.log.Debug("document decoded",
		zap.String("source", src.Name), zap.String("format", string(src.Format)))

	p := &docParser{ld: ld, src: src.Name, log: ld.log}
	return p.run(doc)
}

// finishLocked walks the finished tree and enforces the registry's
// required attribute and child declarations, which cannot be checked
// mid-parse because documents attach attrs after their owners.
func (ld *Loader) finishLocked() error {
	return meta.Walk(ld.root, func(n meta.Node) error {
		def, err := ld.reg.TypeDefinition(n.Type(), n.SubType())
		if err != nil {
			return nil
		}
		for _, req := range def.AttrRequirements {
			if req.Required && !n.HasAttr(req.Name) {
				return meta.NewConfigError(meta.PhaseLoader, meta.CodeMissingAttr,
					"%s.%s %q is missing required attr %q",
					n.Type(), n.SubType(), n.Name(), req.Name).WithNode(n)
			}
		}
		for _, req := range def.ChildRequirements {
			if !req.Required {
				continue
			}
			found := false
			for _, c := range n.Children() {
				if req.Matches(c.Type(), c.SubType(), c.ShortName()) {
					found = true
					break
				}
			}
			if !found {
				return meta.NewConfigError(meta.PhaseLoader, meta.CodeMissingChild,
					"%s.%s %q is missing required child %s",
					n.Type(), n.SubType(), n.Name(), req.String()).WithNode(n)
			}
		}
		return nil
	})
}

func (ld *Loader) requireLoaded(op string) error {
	if ld.phase != PhaseLoaded {
		return meta.NewConfigError(meta.PhaseLoader, meta.CodeLoaderState,
			"cannot %s: loader is %s", op, ld.phase)
	}
	return nil
}

// Root returns the tree root of a loaded tree.
func (ld *Loader) Root() (meta.Node, error) {
	ld.mu.Lock()
	defer ld.mu.Unlock()
	if err := ld.requireLoaded("read the tree"); err != nil {
		return nil, err
	}
	return ld.root, nil
}

// Objects returns the root-level objects in document order.
func (ld *Loader) Objects() ([]*meta.Object, error) {
	ld.mu.Lock()
	defer ld.mu.Unlock()
	if err := ld.requireLoaded("list objects"); err != nil {
		return nil, err
	}
	nodes := ld.root.ChildrenOfType(meta.TypeObject)
	out := make([]*meta.Object, 0, len(nodes))
	for _, n := range nodes {
		if o, ok := n.(*meta.Object); ok {
			out = append(out, o)
		}
	}
	return out, nil
}

// Object resolves a root-level object by its qualified name.
func (ld *Loader) Object(name string) (*meta.Object, error) {
	ld.mu.Lock()
	defer ld.mu.Unlock()
	if err := ld.requireLoaded("resolve an object"); err != nil {
		return nil, err
	}
	n, err := ld.root.Child(meta.TypeObject, name)
	if err != nil {
		return nil, &meta.NotFoundError{Kind: "object", Name: name, Scope: ld.root.Name()}
	}
	o, ok := n.(*meta.Object)
	if !ok {
		return nil, &meta.NotFoundError{Kind: "object", Name: name, Scope: ld.root.Name()}
	}
	return o, nil
}

// MetaDataOfType returns the root-level children of one type in document
// order. Deeper queries go through Filter.
func (ld *Loader) MetaDataOfType(typ string) ([]meta.Node, error) {
	ld.mu.Lock()
	defer ld.mu.Unlock()
	if err := ld.requireLoaded("list " + typ + " nodes"); err != nil {
		return nil, err
	}
	return ld.root.ChildrenOfType(typ), nil
}

// Filter collects every node of the tree matching the predicate, in
// depth-first document order.
func (ld *Loader) Filter(pred func(meta.Node) bool) ([]meta.Node, error) {
	ld.mu.Lock()
	defer ld.mu.Unlock()
	if err := ld.requireLoaded("filter the tree"); err != nil {
		return nil, err
	}
	var out []meta.Node
	_ = meta.Walk(ld.root, func(n meta.Node) error {
		if pred(n) {
			out = append(out, n)
		}
		return nil
	})
	return out, nil
}

// Destroy releases the tree. Terminal; every later call fails with a
// phase error.
func (ld *Loader) Destroy() {
	ld.mu.Lock()
	defer ld.mu.Unlock()
	if ld.phase == PhaseDestroyed {
		return
	}
	ld.phase = PhaseDestroyed
	ld.root = nil
	ld.log.Info("loader destroyed")
}

// locateIn stamps a source name onto decode errors missing one.
func locateIn(err error, src string) error {
	if ce, ok := err.(*meta.ConfigError); ok {
		if ce.Loc == nil {
			ce.Loc = &meta.SourceLocation{File: src}
		} else if ce.Loc.File == "" {
			ce.Loc.File = src
		}
	}
	return err
}
