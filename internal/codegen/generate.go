package codegen

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"text/template"
)

var contractTmpl = template.Must(template.New("contract").Funcs(template.FuncMap{
	"quote": func(s string) string { return fmt.Sprintf("%q", s) },
	"args":  pathArgs,
	"wrap":  convert,
}).Parse(`// Code generated by descend gen; DO NOT EDIT.

package {{.Package}}

import (
	"github.com/agentic-research/descend/pkg/collect"
	"github.com/agentic-research/descend/pkg/graph"
)
{{range .Structs}}
// RootName implements collect.Contract.
func ({{.Name}}) RootName() string {
	return {{quote .RootName}}
}

// ResolveFields implements collect.Contract.
func ({{.Name}}) ResolveFields(g graph.Graph, root, _ string) ({{.Name}}, error) {
	r := collect.NewFieldResolver(g, root, {{quote .Name}})
	rec := {{.Name}}{
{{- range .Fields}}
		{{.Name}}: {{wrap .Type (printf "r.Resolve(%s%s)" (quote .Name) (args .Path))}},
{{- end}}
	}
	if err := r.Err(); err != nil {
		return {{.Name}}{}, err
	}
	return rec, nil
}
{{end}}`))

func pathArgs(path []string) string {
	var b strings.Builder
	for _, seg := range path {
		b.WriteString(", ")
		fmt.Fprintf(&b, "%q", seg)
	}
	return b.String()
}

func convert(typ, expr string) string {
	if typ == "string" {
		return expr
	}
	return typ + "(" + expr + ")"
}

// Generate renders the contract methods for every struct in f, formatted.
func Generate(f *File) ([]byte, error) {
	if f.Package == "" {
		return nil, fmt.Errorf("generate: no package name")
	}
	if len(f.Structs) == 0 {
		return nil, fmt.Errorf("generate: no struct embeds collect.Root")
	}
	var buf bytes.Buffer
	if err := contractTmpl.Execute(&buf, f); err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}
	return FormatGoBuffer(buf.Bytes())
}

// OutputPath returns where the generated code for src is written:
// armature.go becomes armature_namepath.go.
func OutputPath(src string) string {
	return strings.TrimSuffix(src, filepath.Ext(src)) + "_namepath.go"
}
