package writer

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weftwork/weft/constraint"
	"github.com/weftwork/weft/loader"
	"github.com/weftwork/weft/meta"
	"github.com/weftwork/weft/model"
	"github.com/weftwork/weft/registry"
)

func setup(t *testing.T) (*registry.Registry, *loader.Loader) {
	t.Helper()
	r := registry.NewRegistry(nil)
	e := constraint.NewEngine(nil)
	require.NoError(t, model.Install(r, e))
	ld, err := loader.New(r, loader.Options{})
	require.NoError(t, err)
	return r, ld
}

func loadTree(t *testing.T, docs ...string) (*registry.Registry, meta.Node) {
	t.Helper()
	reg, ld := setup(t)
	srcs := make([]loader.Source, len(docs))
	for i, d := range docs {
		srcs[i] = loader.ReaderSource(fmt.Sprintf("doc%d.json", i+1), strings.NewReader(d), loader.FormatJSON)
	}
	require.NoError(t, ld.Init(srcs...))
	root, err := ld.Root()
	require.NoError(t, err)
	return reg, root
}

func reparse(t *testing.T, name string, data []byte, format loader.Format) meta.Node {
	t.Helper()
	_, ld := setup(t)
	require.NoError(t, ld.Init(loader.ReaderSource(name, bytes.NewReader(data), format)))
	root, err := ld.Root()
	require.NoError(t, err)
	return root
}

// assertEquivalent compares two trees on type, subtype, name, and attr
// values. Child order is not part of the contract; identity is.
func assertEquivalent(t *testing.T, want, got meta.Node) {
	t.Helper()
	require.Equal(t, want.Type(), got.Type())
	assert.Equal(t, want.SubType(), got.SubType(), "subtype of %s", meta.PathOf(want))
	require.Equal(t, want.Name(), got.Name())
	if wa, ok := want.(*meta.Attr); ok {
		ga, ok := got.(*meta.Attr)
		require.True(t, ok, "attr %s", meta.PathOf(want))
		assert.Equal(t, wa.Value(), ga.Value(), "value of %s", meta.PathOf(want))
	}
	wantKids := childIndex(t, want)
	gotKids := childIndex(t, got)
	require.Equal(t, sortedKeys(wantKids), sortedKeys(gotKids), "children of %s", meta.PathOf(want))
	for key, wc := range wantKids {
		assertEquivalent(t, wc, gotKids[key])
	}
}

func childIndex(t *testing.T, n meta.Node) map[string]meta.Node {
	t.Helper()
	idx := make(map[string]meta.Node)
	for _, c := range n.Children() {
		key := c.Type() + ":" + c.Name()
		require.NotContains(t, idx, key)
		idx[key] = c
	}
	return idx
}

func sortedKeys(m map[string]meta.Node) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

const catalogDoc = `{"metadata": {"package": "acme", "@version": "2", "children": [
  {"object": {"name": "Base", "subType": "pojo", "isAbstract": true, "children": [
    {"field": {"name": "label", "subType": "string", "@maxLength": 100}}
  ]}},
  {"object": {"name": "User", "super": "Base", "@dbTable": "users", "children": [
    {"field": {"name": "label", "subType": "string", "@maxLength": 50}},
    {"field": {"name": "email", "subType": "string", "@maxLength": 255, "@required": true}},
    {"identity": {"name": "pk", "subType": "primary", "@fields": ["email"], "@generation": "uuid"}},
    {"relationship": {"name": "boss", "subType": "association", "@targetObject": "acme::User", "@cardinality": "one"}}
  ]}}
]}}`

func TestWriter_JSONRoundTrip(t *testing.T) {
	reg, root := loadTree(t, catalogDoc)
	out, err := New(reg).JSON(root)
	require.NoError(t, err)

	assert.Contains(t, string(out), `"@dbTable": "users"`, "predictable attrs stay inline")
	assert.Equal(t, 1, strings.Count(string(out), `"super"`),
		"only the explicit super survives; overrides are re-derived")

	assertEquivalent(t, root, reparse(t, "out.json", out, loader.FormatJSON))
}

func TestWriter_YAMLRoundTrip(t *testing.T) {
	reg, root := loadTree(t, catalogDoc)
	out, err := New(reg).YAML(root)
	require.NoError(t, err)

	assertEquivalent(t, root, reparse(t, "out.yaml", out, loader.FormatYAML))
}

func TestWriter_XMLRoundTrip(t *testing.T) {
	reg, root := loadTree(t, catalogDoc)
	out, err := New(reg).XML(root)
	require.NoError(t, err)

	assert.Contains(t, string(out), `dbTable="users"`)
	assert.Contains(t, string(out), `version="2"`, "root attrs ride the metadata element")

	assertEquivalent(t, root, reparse(t, "out.xml", out, loader.FormatXML))
}

func TestWriter_SubtreeDocument(t *testing.T) {
	reg, root := loadTree(t, catalogDoc)
	base, err := root.Child(meta.TypeObject, "acme::Base")
	require.NoError(t, err)

	out, err := New(reg).JSON(base)
	require.NoError(t, err)

	reRoot := reparse(t, "base.json", out, loader.FormatJSON)
	reBase, err := reRoot.Child(meta.TypeObject, "acme::Base")
	require.NoError(t, err)
	assertEquivalent(t, base, reBase)
}

func TestWriter_SupersSerializeAheadOfUsers(t *testing.T) {
	doc1 := `{"metadata": {"package": "acme", "children": [
  {"object": {"name": "User", "subType": "pojo"}},
  {"object": {"name": "Base", "subType": "pojo"}}
]}}`
	doc2 := `{"metadata": {"package": "acme", "children": [
  {"object": {"name": "User", "super": "Base"}}
]}}`
	reg, root := loadTree(t, doc1, doc2)
	out, err := New(reg).JSON(root)
	require.NoError(t, err)

	idxBase := strings.Index(string(out), `"name": "acme::Base"`)
	idxUser := strings.Index(string(out), `"name": "acme::User"`)
	require.GreaterOrEqual(t, idxBase, 0)
	require.GreaterOrEqual(t, idxUser, 0)
	assert.Less(t, idxBase, idxUser, "super targets must parse first")

	assertEquivalent(t, root, reparse(t, "out.json", out, loader.FormatJSON))
}

func TestWriter_BigLongValueAsStringLiteral(t *testing.T) {
	doc := `{"metadata": {"children": [
  {"object": {"name": "Cfg", "subType": "pojo", "children": [
    {"attr": {"name": "big", "subType": "long", "value": "9007199254740993"}}
  ]}}
]}}`
	reg, root := loadTree(t, doc)
	out, err := New(reg).JSON(root)
	require.NoError(t, err)

	assert.Contains(t, string(out), `"9007199254740993"`,
		"longs past the exact float range stay string literals")
	assertEquivalent(t, root, reparse(t, "out.json", out, loader.FormatJSON))
}

func TestWriter_ReservedAttrNameGoesExplicitInXML(t *testing.T) {
	doc := `{"metadata": {"children": [
  {"object": {"name": "X", "subType": "pojo", "@super": "weird"}}
]}}`
	reg, root := loadTree(t, doc)

	jsonOut, err := New(reg).JSON(root)
	require.NoError(t, err)
	assert.Contains(t, string(jsonOut), `"@super": "weird"`)
	assertEquivalent(t, root, reparse(t, "out.json", jsonOut, loader.FormatJSON))

	xmlOut, err := New(reg).XML(root)
	require.NoError(t, err)
	assert.Contains(t, string(xmlOut), `<attr name="super"`,
		"reserved spellings cannot ride element attributes")
	assertEquivalent(t, root, reparse(t, "out.xml", xmlOut, loader.FormatXML))
}

func TestWriter_NilRegistryEmitsExplicitRecords(t *testing.T) {
	_, root := loadTree(t, catalogDoc)
	out, err := JSON(root)
	require.NoError(t, err)

	assert.Contains(t, string(out), `"subType": "stringarray"`,
		"without a registry, declared attrs fall back to explicit records")
	assertEquivalent(t, root, reparse(t, "out.json", out, loader.FormatJSON))
}

func TestWriter_NilNode(t *testing.T) {
	for _, f := range []func(meta.Node) ([]byte, error){JSON, YAML, XML} {
		_, err := f(nil)
		require.Error(t, err)
		assert.True(t, meta.IsConfigError(err, meta.CodeBadValue))
	}
}

func TestWriter_DeterministicAndReadOnly(t *testing.T) {
	reg, root := loadTree(t, catalogDoc)
	before := len(root.Children())

	w := New(reg)
	first, err := w.JSON(root)
	require.NoError(t, err)
	second, err := w.JSON(root)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	xml1, err := w.XML(root)
	require.NoError(t, err)
	xml2, err := w.XML(root)
	require.NoError(t, err)
	assert.Equal(t, xml1, xml2)

	assert.Equal(t, before, len(root.Children()))
}
