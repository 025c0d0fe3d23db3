package generator

import (
	"bytes"
	"fmt"
	"go/format"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

// generateFile writes the *_wire.go file for the structs of one source file.
func (g *Generator) generateFile(pkgName, sourceFile string, structs []*StructInfo) error {
	baseName := strings.TrimSuffix(filepath.Base(sourceFile), ".go")
	outputFile := filepath.Join(filepath.Dir(sourceFile), baseName+GeneratedSuffix)

	fmt.Fprintf(g.opts.Out, "generating %s\n", outputFile)

	if g.opts.DryRun {
		return nil
	}

	code, err := g.render(pkgName, filepath.Base(sourceFile), structs)
	if err != nil {
		return err
	}
	return os.WriteFile(outputFile, code, 0644)
}

// render produces the formatted generated source.
func (g *Generator) render(pkgName, source string, structs []*StructInfo) ([]byte, error) {
	tmpl, err := template.New("wire").Funcs(template.FuncMap{
		"bind": bindFieldCode,
	}).Parse(wireTemplate)
	if err != nil {
		return nil, err
	}

	data := struct {
		Package string
		Source  string
		Structs []*StructInfo
	}{
		Package: pkgName,
		Source:  source,
		Structs: structs,
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	formatted, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("format source: %w", err)
	}
	return formatted, nil
}

// bindFieldCode generates the assignment of a coerced value n to a field.
func bindFieldCode(f FieldInfo) string {
	switch f.Type {
	case "string":
		return fmt.Sprintf(`p.%s, _ = n.(string)`, f.Name)
	case "bool":
		return fmt.Sprintf(`p.%s = n.(bool)`, f.Name)
	case "int":
		return fmt.Sprintf(`p.%s = n.(int)`, f.Name)
	case "int8", "int16", "int32", "int64",
		"uint", "uint8", "uint16", "uint32", "uint64":
		return fmt.Sprintf(`p.%s = %s(n.(int))`, f.Name, f.Type)
	case "float64":
		return fmt.Sprintf(`p.%s = n.(float64)`, f.Name)
	case "float32":
		return fmt.Sprintf(`p.%s = float32(n.(float64))`, f.Name)
	case "map[string]any":
		return fmt.Sprintf(`p.%s, _ = n.(map[string]any)`, f.Name)
	case "[]any":
		return fmt.Sprintf(`p.%s, _ = n.([]any)`, f.Name)
	}
	return fmt.Sprintf(`_ = n // unsupported type %s`, f.Type)
}

const wireTemplate = `// Code generated by hxwire. DO NOT EDIT.
// Source: {{.Source}}

package {{.Package}}

import (
	"fmt"

	"github.com/pthm/hxwire/lib/typecast"
)
{{range .Structs}}
// Signature returns the parameters {{.TypeName}} binds.
func ({{.TypeName}}) Signature() typecast.Signature {
	return typecast.Signature{
	{{- range .Fields}}
		{Name: {{printf "%q" .Key}}, Kind: typecast.{{.Kind}}{{if .Optional}}, Optional: true{{end}}},
	{{- end}}
	}
}

// Bind copies resolved arguments into p.
func (p *{{.TypeName}}) Bind(args typecast.Args) error {
	{{- range .Fields}}
	if v, ok := args.Value({{printf "%q" .Key}}); ok && v != nil {
		n, err := typecast.Value(typecast.{{.Kind}}, v)
		if err != nil {
			return fmt.Errorf("bind {{.Key}}: %w", err)
		}
		{{bind .}}
	}
	{{- end}}
	return nil
}
{{end}}`
