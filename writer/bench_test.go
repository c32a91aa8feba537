package writer

import (
	"strings"
	"testing"

	"github.com/weftwork/weft/constraint"
	"github.com/weftwork/weft/loader"
	"github.com/weftwork/weft/meta"
	"github.com/weftwork/weft/model"
	"github.com/weftwork/weft/registry"
)

func benchTree(b *testing.B) (*registry.Registry, meta.Node) {
	b.Helper()
	r := registry.NewRegistry(nil)
	if err := model.Install(r, constraint.NewEngine(nil)); err != nil {
		b.Fatal(err)
	}
	ld, err := loader.New(r, loader.Options{})
	if err != nil {
		b.Fatal(err)
	}
	if err := ld.Init(loader.ReaderSource("bench.json", strings.NewReader(catalogDoc), loader.FormatJSON)); err != nil {
		b.Fatal(err)
	}
	root, err := ld.Root()
	if err != nil {
		b.Fatal(err)
	}
	return r, root
}

func BenchmarkWriter_JSON(b *testing.B) {
	reg, root := benchTree(b)
	w := New(reg)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := w.JSON(root); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkWriter_YAML(b *testing.B) {
	reg, root := benchTree(b)
	w := New(reg)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := w.YAML(root); err != nil {
			b.Fatal(err)
		}
	}
}
