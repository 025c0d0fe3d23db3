package generator

import (
	"bytes"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const counterSource = `package counter

type CounterParams struct {
	Start  int            ` + "`wire:\"start\"`" + `
	Label  string         ` + "`wire:\"label,optional\"`" + `
	Step   int64          ` + "`wire:\",optional\"`" + `
	Meta   map[string]any ` + "`wire:\"meta,optional\"`" + `
	Hidden string         ` + "`wire:\"-\"`" + `
	plain  bool
}

type unrelated struct {
	Name string ` + "`json:\"name\"`" + `
}
`

func TestFindParamStructs(t *testing.T) {
	g := New(Options{Out: &bytes.Buffer{}})
	file, err := parser.ParseFile(g.fset, "counter.go", counterSource, 0)
	require.NoError(t, err)

	structs, err := g.findParamStructs(file)
	require.NoError(t, err)
	require.Len(t, structs, 1)

	s := structs[0]
	assert.Equal(t, "CounterParams", s.TypeName)
	assert.Equal(t, []FieldInfo{
		{Name: "Start", Type: "int", Key: "start", Kind: "Int"},
		{Name: "Label", Type: "string", Key: "label", Kind: "String", Optional: true},
		{Name: "Step", Type: "int64", Key: "step", Kind: "Int", Optional: true},
		{Name: "Meta", Type: "map[string]any", Key: "meta", Kind: "Array", Optional: true},
	}, s.Fields)
}

func TestFindParamStructsRejectsUnsupportedType(t *testing.T) {
	src := "package p\n\ntype P struct {\n\tWhen chan int `wire:\"when\"`\n}\n"
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "p.go", src, 0)
	require.NoError(t, err)

	_, err = New(Options{Out: &bytes.Buffer{}}).findParamStructs(file)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported type")
}

func TestFindParamStructsRejectsDuplicateKeys(t *testing.T) {
	src := "package p\n\ntype P struct {\n\tA int `wire:\"x\"`\n\tB int `wire:\"x\"`\n}\n"
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "p.go", src, 0)
	require.NoError(t, err)

	_, err = New(Options{Out: &bytes.Buffer{}}).findParamStructs(file)
	require.Error(t, err)
}

func TestParseWireTag(t *testing.T) {
	tests := []struct {
		raw      string
		key      string
		optional bool
		ok       bool
	}{
		{"`wire:\"start\"`", "start", false, true},
		{"`wire:\"label,optional\"`", "label", true, true},
		{"`json:\"x\" wire:\"y\"`", "y", false, true},
		{"`wire:\"-\"`", "", false, false},
		{"`json:\"x\"`", "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			key, optional, ok := parseWireTag(tt.raw)
			assert.Equal(t, tt.key, key)
			assert.Equal(t, tt.optional, optional)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestRenderProducesFormattedSource(t *testing.T) {
	g := New(Options{Out: &bytes.Buffer{}})
	code, err := g.render("counter", "counter.go", []*StructInfo{{
		TypeName: "CounterParams",
		Fields: []FieldInfo{
			{Name: "Start", Type: "int", Key: "start", Kind: "Int"},
			{Name: "Ratio", Type: "float32", Key: "ratio", Kind: "Float", Optional: true},
		},
	}})
	require.NoError(t, err)

	src := string(code)
	assert.Contains(t, src, "// Code generated by hxwire. DO NOT EDIT.")
	assert.Contains(t, src, `{Name: "start", Kind: typecast.Int}`)
	assert.Contains(t, src, `{Name: "ratio", Kind: typecast.Float, Optional: true}`)
	assert.Contains(t, src, "p.Ratio = float32(n.(float64))")

	_, err = parser.ParseFile(token.NewFileSet(), "counter_wire.go", code, 0)
	require.NoError(t, err)
}

func TestGenerateAndClean(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "counter.go"), []byte(counterSource), 0644))

	var out bytes.Buffer
	g := New(Options{Out: &out})
	require.NoError(t, g.Generate(dir))

	generated := filepath.Join(dir, "counter_wire.go")
	assert.FileExists(t, generated)
	assert.Contains(t, out.String(), "generating "+generated)

	// Regenerating ignores the generated file itself.
	require.NoError(t, g.Generate(dir))

	require.NoError(t, g.Clean(dir))
	assert.NoFileExists(t, generated)
	assert.FileExists(t, filepath.Join(dir, "counter.go"))
}

func TestGenerateDryRun(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "counter.go"), []byte(counterSource), 0644))

	g := New(Options{DryRun: true, Out: &bytes.Buffer{}})
	require.NoError(t, g.Generate(dir+"/..."))
	assert.NoFileExists(t, filepath.Join(dir, "counter_wire.go"))
}
