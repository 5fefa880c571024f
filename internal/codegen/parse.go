// Package codegen generates collect.Contract implementations for Go
// structs tagged the way collect.NewTagged expects, so records can be
// collected without reflection.
package codegen

import (
	"context"
	"fmt"
	"go/token"
	"reflect"
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"

	"github.com/agentic-research/descend/pkg/collect"
)

// Struct is a record type found in a source file.
type Struct struct {
	Name     string
	RootName string
	Fields   []Field
}

// Field is one tagged field of a record type.
type Field struct {
	Name string
	Type string
	Path []string
}

// File is what ParseStructs found in one source file.
type File struct {
	Package string
	Structs []Struct
}

const structQuery = `
(type_declaration
	(type_spec
		name: (type_identifier) @name
		type: (struct_type (field_declaration_list) @fields)))
`

// ParseStructs finds every struct type in src that embeds collect.Root.
// Structs without that marker are skipped; a marked struct with an
// exported field lacking a namepath tag is an error.
func ParseStructs(src []byte) (*File, error) {
	lang := golang.GetLanguage()
	parser := sitter.NewParser()
	parser.SetLanguage(lang)
	tree, err := parser.ParseCtx(context.Background(), nil, src)
	if err != nil {
		return nil, fmt.Errorf("parse go source: %w", err)
	}
	root := tree.RootNode()
	if root.HasError() {
		return nil, fmt.Errorf("parse go source: syntax error near line %d", firstError(root).StartPoint().Row+1)
	}

	file := &File{}
	for i := range int(root.NamedChildCount()) {
		c := root.NamedChild(i)
		if c.Type() == "package_clause" && c.NamedChildCount() > 0 {
			file.Package = c.NamedChild(0).Content(src)
			break
		}
	}

	q, err := sitter.NewQuery([]byte(structQuery), lang)
	if err != nil {
		return nil, fmt.Errorf("compile struct query: %w", err)
	}
	qc := sitter.NewQueryCursor()
	qc.Exec(q, root)

	for {
		m, ok := qc.NextMatch()
		if !ok {
			break
		}
		var name string
		var fields *sitter.Node
		for _, c := range m.Captures {
			switch q.CaptureNameForId(c.Index) {
			case "name":
				name = c.Node.Content(src)
			case "fields":
				fields = c.Node
			}
		}
		s, marked, err := parseStruct(name, fields, src)
		if err != nil {
			return nil, err
		}
		if marked {
			file.Structs = append(file.Structs, s)
		}
	}
	return file, nil
}

func parseStruct(name string, list *sitter.Node, src []byte) (Struct, bool, error) {
	s := Struct{Name: name}
	var (
		marked   bool
		untagged []string
	)
	for i := range int(list.NamedChildCount()) {
		decl := list.NamedChild(i)
		if decl.Type() != "field_declaration" {
			continue
		}
		typ := decl.ChildByFieldName("type")
		if typ == nil {
			continue
		}
		tag, tagged, err := lookupTag(decl.ChildByFieldName("tag"), src)
		if err != nil {
			return s, false, fmt.Errorf("struct %s: %w", name, err)
		}

		names := fieldNames(decl, src)
		if len(names) == 0 {
			// Embedded field.
			if isRootMarker(typ.Content(src)) {
				if !tagged || tag == "" {
					return s, false, fmt.Errorf("struct %s: collect.Root needs a %s tag naming the root", name, collect.TagKey)
				}
				s.RootName = tag
				marked = true
			}
			continue
		}

		for _, fn := range names {
			if !token.IsExported(fn) || tag == "-" {
				continue
			}
			if !tagged {
				untagged = append(untagged, fn)
				continue
			}
			path, err := splitTag(tag)
			if err != nil {
				return s, false, fmt.Errorf("struct %s: field %s: %w", name, fn, err)
			}
			s.Fields = append(s.Fields, Field{Name: fn, Type: typ.Content(src), Path: path})
		}
	}
	if !marked {
		return s, false, nil
	}
	if len(untagged) > 0 {
		return s, false, fmt.Errorf("struct %s: field %s has no %s tag", name, untagged[0], collect.TagKey)
	}
	return s, true, nil
}

func fieldNames(decl *sitter.Node, src []byte) []string {
	var names []string
	for i := range int(decl.ChildCount()) {
		if decl.FieldNameForChild(i) == "name" {
			names = append(names, decl.Child(i).Content(src))
		}
	}
	return names
}

func lookupTag(n *sitter.Node, src []byte) (string, bool, error) {
	if n == nil {
		return "", false, nil
	}
	raw, err := strconv.Unquote(n.Content(src))
	if err != nil {
		return "", false, fmt.Errorf("bad struct tag %s: %w", n.Content(src), err)
	}
	tag, ok := reflect.StructTag(raw).Lookup(collect.TagKey)
	return tag, ok, nil
}

func isRootMarker(typ string) bool {
	typ = strings.TrimPrefix(typ, "*")
	return typ == "collect.Root"
}

func splitTag(tag string) ([]string, error) {
	if tag == "" {
		return nil, nil
	}
	path := strings.Split(tag, ",")
	for _, seg := range path {
		if seg == "" {
			return nil, fmt.Errorf("empty path segment in %q", tag)
		}
	}
	return path, nil
}

func firstError(n *sitter.Node) *sitter.Node {
	if n.IsError() || n.IsMissing() {
		return n
	}
	for i := range int(n.ChildCount()) {
		if c := n.Child(i); c.HasError() {
			return firstError(c)
		}
	}
	return n
}
