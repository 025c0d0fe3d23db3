// Package generator writes typecast signatures for parameter structs.
//
// A parameter struct is any struct type with at least one field tagged
// `wire:"name"`. For each source file declaring such structs the generator
// writes a sibling *_wire.go file with Signature and Bind methods, so mount
// and action parameters are declared once, as Go fields:
//
//	type CounterParams struct {
//	    Start int    `wire:"start"`
//	    Label string `wire:"label,optional"`
//	}
package generator

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
)

// GeneratedSuffix is the file suffix of generated files.
const GeneratedSuffix = "_wire.go"

// Options configures the generator.
type Options struct {
	DryRun bool

	// Out receives progress lines. Defaults to os.Stdout.
	Out io.Writer
}

// Generator generates hxwire code.
type Generator struct {
	opts Options
	fset *token.FileSet
}

// New creates a new generator.
func New(opts Options) *Generator {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	return &Generator{
		opts: opts,
		fset: token.NewFileSet(),
	}
}

// Generate generates code for the given package patterns.
func (g *Generator) Generate(patterns ...string) error {
	packages, err := g.findPackages(patterns)
	if err != nil {
		return err
	}

	for _, pkg := range packages {
		if err := g.generatePackage(pkg); err != nil {
			return fmt.Errorf("package %s: %w", pkg, err)
		}
	}

	return nil
}

// Clean removes generated files for the given package patterns.
func (g *Generator) Clean(patterns ...string) error {
	packages, err := g.findPackages(patterns)
	if err != nil {
		return err
	}

	for _, pkg := range packages {
		if err := g.cleanPackage(pkg); err != nil {
			return fmt.Errorf("package %s: %w", pkg, err)
		}
	}

	return nil
}

// findPackages resolves package patterns to directory paths.
func (g *Generator) findPackages(patterns []string) ([]string, error) {
	var packages []string

	for _, pattern := range patterns {
		if !strings.HasSuffix(pattern, "/...") {
			packages = append(packages, pattern)
			continue
		}

		root := strings.TrimSuffix(pattern, "/...")
		if root == "" {
			root = "."
		}

		err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() {
				return nil
			}
			// Skip hidden directories, vendor and testdata
			base := d.Name()
			if path != root && (strings.HasPrefix(base, ".") || strings.HasPrefix(base, "_") || base == "vendor" || base == "testdata") {
				return filepath.SkipDir
			}

			entries, err := os.ReadDir(path)
			if err != nil {
				return nil
			}
			for _, entry := range entries {
				if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".go") && !strings.HasSuffix(entry.Name(), "_test.go") {
					packages = append(packages, path)
					break
				}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return packages, nil
}

// generatePackage generates code for a single package.
func (g *Generator) generatePackage(pkgPath string) error {
	pkgs, err := parser.ParseDir(g.fset, pkgPath, func(info os.FileInfo) bool {
		name := info.Name()
		return !strings.HasSuffix(name, "_test.go") && !strings.HasSuffix(name, GeneratedSuffix)
	}, parser.ParseComments)
	if err != nil {
		return err
	}

	for pkgName, pkg := range pkgs {
		files := make([]string, 0, len(pkg.Files))
		for filename := range pkg.Files {
			files = append(files, filename)
		}
		sort.Strings(files)

		for _, filename := range files {
			structs, err := g.findParamStructs(pkg.Files[filename])
			if err != nil {
				return fmt.Errorf("%s: %w", filename, err)
			}
			if len(structs) == 0 {
				continue
			}
			if err := g.generateFile(pkgName, filename, structs); err != nil {
				return err
			}
		}
	}

	return nil
}

// cleanPackage removes generated files from a package.
func (g *Generator) cleanPackage(pkgPath string) error {
	entries, err := os.ReadDir(pkgPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), GeneratedSuffix) {
			continue
		}
		path := filepath.Join(pkgPath, entry.Name())
		fmt.Fprintf(g.opts.Out, "removing %s\n", path)
		if !g.opts.DryRun {
			if err := os.Remove(path); err != nil {
				return err
			}
		}
	}

	return nil
}

// StructInfo is a discovered parameter struct.
type StructInfo struct {
	TypeName string
	Fields   []FieldInfo
}

// FieldInfo is one tagged field of a parameter struct.
type FieldInfo struct {
	Name     string // Go field name
	Type     string // Go type, e.g. "int64"
	Key      string // parameter name from the wire tag
	Kind     string // typecast kind constant, e.g. "Int"
	Optional bool
}

// findParamStructs returns the parameter structs declared in file.
func (g *Generator) findParamStructs(file *ast.File) ([]*StructInfo, error) {
	var structs []*StructInfo

	for _, decl := range file.Decls {
		genDecl, ok := decl.(*ast.GenDecl)
		if !ok || genDecl.Tok != token.TYPE {
			continue
		}

		for _, spec := range genDecl.Specs {
			typeSpec, ok := spec.(*ast.TypeSpec)
			if !ok || typeSpec.TypeParams != nil {
				continue
			}
			structType, ok := typeSpec.Type.(*ast.StructType)
			if !ok {
				continue
			}

			fields, err := g.taggedFields(structType)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", typeSpec.Name.Name, err)
			}
			if len(fields) == 0 {
				continue
			}
			structs = append(structs, &StructInfo{
				TypeName: typeSpec.Name.Name,
				Fields:   fields,
			})
		}
	}

	return structs, nil
}

func (g *Generator) taggedFields(structType *ast.StructType) ([]FieldInfo, error) {
	var fields []FieldInfo
	seen := make(map[string]bool)

	for _, field := range structType.Fields.List {
		if field.Tag == nil || len(field.Names) == 0 {
			continue
		}
		key, optional, ok := parseWireTag(field.Tag.Value)
		if !ok {
			continue
		}

		typ := g.typeToString(field.Type)
		kind, ok := kindOf(typ)
		if !ok {
			return nil, fmt.Errorf("field %s: unsupported type %s", field.Names[0].Name, typ)
		}

		for _, name := range field.Names {
			k := key
			if k == "" {
				k = lowerFirst(name.Name)
			}
			if seen[k] {
				return nil, fmt.Errorf("parameter %q declared twice", k)
			}
			seen[k] = true
			fields = append(fields, FieldInfo{
				Name:     name.Name,
				Type:     typ,
				Key:      k,
				Kind:     kind,
				Optional: optional,
			})
		}
	}

	return fields, nil
}

// typeToString converts an AST type to a string representation.
func (g *Generator) typeToString(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.StarExpr:
		return "*" + g.typeToString(t.X)
	case *ast.SelectorExpr:
		return g.typeToString(t.X) + "." + t.Sel.Name
	case *ast.ArrayType:
		if t.Len == nil {
			return "[]" + g.typeToString(t.Elt)
		}
		return "[...]" + g.typeToString(t.Elt)
	case *ast.MapType:
		return "map[" + g.typeToString(t.Key) + "]" + g.typeToString(t.Value)
	case *ast.InterfaceType:
		if t.Methods == nil || len(t.Methods.List) == 0 {
			return "any"
		}
		return "interface{...}"
	default:
		return fmt.Sprintf("%T", expr)
	}
}

// parseWireTag parses the wire key of a raw struct tag literal.
// ok is false for untagged fields and for `wire:"-"`.
func parseWireTag(raw string) (key string, optional bool, ok bool) {
	value, found := reflect.StructTag(strings.Trim(raw, "`")).Lookup("wire")
	if !found || value == "-" {
		return "", false, false
	}
	parts := strings.Split(value, ",")
	for _, p := range parts[1:] {
		if p == "optional" {
			optional = true
		}
	}
	return parts[0], optional, true
}

// kindOf maps a Go field type to a typecast kind constant name.
func kindOf(typ string) (string, bool) {
	switch typ {
	case "string":
		return "String", true
	case "bool":
		return "Bool", true
	case "int", "int8", "int16", "int32", "int64",
		"uint", "uint8", "uint16", "uint32", "uint64":
		return "Int", true
	case "float32", "float64":
		return "Float", true
	case "map[string]any", "[]any":
		return "Array", true
	}
	return "", false
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
