package commands

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/weftwork/weft/internal/cli/config"
	"github.com/weftwork/weft/internal/cli/ui"
	"github.com/weftwork/weft/loader"
	"github.com/weftwork/weft/meta"
	"github.com/weftwork/weft/registry"
)

type inspectOptions struct {
	tree  bool
	types bool
	stats bool
}

// NewInspectCommand creates the inspect command
func NewInspectCommand() *cobra.Command {
	opts := &inspectOptions{}

	cmd := &cobra.Command{
		Use:   "inspect [object]",
		Short: "Examine the loaded tree and type catalog",
		Long: color.CyanString(`Load the project's metadata documents and print what came out.

With an object name the command shows that object's fields, identities,
and relationships. Otherwise --tree walks the whole tree, --types lists
the registered type catalog, and --stats prints counts. Without flags
inspect defaults to --stats.`),
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd, args, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.tree, "tree", false, "print the metadata tree")
	cmd.Flags().BoolVar(&opts.types, "types", false, "print the registered type table")
	cmd.Flags().BoolVar(&opts.stats, "stats", false, "print registry and tree counts")

	return cmd
}

func runInspect(cmd *cobra.Command, args []string, opts *inspectOptions) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	reg, err := newCatalog()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	// The type catalog exists before any document is loaded.
	if opts.types && !opts.tree && !opts.stats && len(args) == 0 {
		printTypes(out, reg)
		return nil
	}

	ld, files, err := loadProject(reg, cfg, "inspect")
	if err != nil {
		ui.WriteLoadError(cmd.ErrOrStderr(), err, color.NoColor)
		return fmt.Errorf("inspect failed")
	}
	defer ld.Destroy()

	if len(args) == 1 {
		return printObject(cmd, ld, args[0])
	}

	shown := false
	if opts.types {
		printTypes(out, reg)
		shown = true
	}
	if opts.tree {
		if shown {
			fmt.Fprintln(out)
		}
		if err := printTree(out, ld); err != nil {
			return err
		}
		shown = true
	}
	if opts.stats || !shown {
		if shown {
			fmt.Fprintln(out)
		}
		if err := printStats(out, reg, ld, len(files)); err != nil {
			return err
		}
	}
	return nil
}

func printTypes(w io.Writer, reg *registry.Registry) {
	table := ui.NewTable(w, []string{"TYPE", "SUBTYPE", "INHERITS", "DEFAULT", "DESCRIPTION"}, color.NoColor)
	for _, def := range reg.Definitions() {
		inherits := ""
		if def.InheritsFrom != nil {
			inherits = def.InheritsFrom.String()
		}
		isDefault := ""
		if def.IsDefaultSubType {
			isDefault = "✓"
		}
		table.AddRow(def.Type, def.SubType, inherits, isDefault, def.Description)
	}
	table.Render()
}

func printTree(w io.Writer, ld *loader.Loader) error {
	root, err := ld.Root()
	if err != nil {
		return err
	}
	printNode(w, root, 0)
	return nil
}

func printNode(w io.Writer, n meta.Node, depth int) {
	indent := strings.Repeat("  ", depth)
	kind := color.HiBlackString("[%s.%s]", n.Type(), n.SubType())

	var attrs strings.Builder
	for _, a := range n.Attrs() {
		attrs.WriteString("  ")
		attrs.WriteString(color.CyanString("@%s=%v", a.Name(), a.Value()))
	}

	name := n.Name()
	if name == "" {
		name = n.Type()
	}
	fmt.Fprintf(w, "%s%s %s%s\n", indent, name, kind, attrs.String())

	for _, child := range n.Children() {
		if child.Type() == meta.TypeAttr {
			continue
		}
		printNode(w, child, depth+1)
	}
}

func printStats(w io.Writer, reg *registry.Registry, ld *loader.Loader, docs int) error {
	objects, err := ld.Objects()
	if err != nil {
		return err
	}
	nodes, err := ld.Filter(func(meta.Node) bool { return true })
	if err != nil {
		return err
	}
	stats := reg.Stats()

	kv := ui.NewKeyValueTable(w, color.NoColor)
	kv.AddRow("types", fmt.Sprintf("%d", stats.Types))
	kv.AddRow("type definitions", fmt.Sprintf("%d", stats.Definitions))
	kv.AddRow("documents", fmt.Sprintf("%d", docs))
	kv.AddRow("objects", fmt.Sprintf("%d", len(objects)))
	kv.AddRow("tree nodes", fmt.Sprintf("%d", len(nodes)))
	kv.Render()
	return nil
}

func printObject(cmd *cobra.Command, ld *loader.Loader, name string) error {
	obj, err := ld.Object(name)
	if err != nil {
		var nf *meta.NotFoundError
		if errors.As(err, &nf) {
			known := objectNames(ld)
			ui.WriteNotFound(cmd.ErrOrStderr(), "object", name, known, color.NoColor)
			return fmt.Errorf("object %q not found", name)
		}
		return err
	}

	out := cmd.OutOrStdout()
	kv := ui.NewKeyValueTable(out, color.NoColor)
	kv.AddRow("name", obj.Name())
	if obj.Package() != "" {
		kv.AddRow("package", obj.Package())
	}
	kv.AddRow("subtype", obj.SubType())
	if obj.IsAbstract() {
		kv.AddRow("abstract", "yes")
	}
	if obj.IsInterface() {
		kv.AddRow("interface", "yes")
	}
	kv.Render()

	if fields := obj.MetaFields(); len(fields) > 0 {
		fmt.Fprintln(out)
		table := ui.NewTable(out, []string{"FIELD", "SUBTYPE", "REQUIRED", "DEFAULT"}, color.NoColor)
		for _, f := range fields {
			required := ""
			if f.IsRequired() {
				required = "✓"
			}
			def, _ := f.DefaultValue()
			table.AddRow(f.Name(), f.SubType(), required, def)
		}
		table.Render()
	}

	if ids := obj.Identities(); len(ids) > 0 {
		fmt.Fprintln(out)
		table := ui.NewTable(out, []string{"IDENTITY", "SUBTYPE", "FIELDS"}, color.NoColor)
		for _, id := range ids {
			names, _ := id.FieldNames()
			table.AddRow(id.Name(), id.SubType(), strings.Join(names, ", "))
		}
		table.Render()
	}

	if rels := obj.Relationships(); len(rels) > 0 {
		fmt.Fprintln(out)
		table := ui.NewTable(out, []string{"RELATIONSHIP", "SUBTYPE", "TARGET"}, color.NoColor)
		for _, rel := range rels {
			target, _ := rel.TargetRef()
			table.AddRow(rel.Name(), rel.SubType(), target)
		}
		table.Render()
	}
	return nil
}

func objectNames(ld *loader.Loader) []string {
	objects, err := ld.Objects()
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(objects))
	for _, o := range objects {
		names = append(names, o.Name())
	}
	sort.Strings(names)
	return names
}
