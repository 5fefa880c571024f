package collect

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/agentic-research/descend/pkg/graph"
)

// TagKey is the struct tag Tagged reads.
const TagKey = "namepath"

// Root is a zero-size marker embedded in tagged record structs. Its tag
// names the hierarchy root:
//
//	type Armature struct {
//		collect.Root `namepath:"Armature"`
//
//		Armature string `namepath:""`
//		Neck     string `namepath:"Bone,Bone.Neck"`
//	}
type Root struct{}

var rootType = reflect.TypeFor[Root]()

type taggedField struct {
	index int
	name  string
	path  []string
}

// Tagged is a Contract built by reflecting over the namepath tags of a
// struct type. Every exported field must be a string kind tagged with a
// comma-separated name path; an empty tag resolves to the root itself and
// "-" leaves the field alone.
type Tagged[T any] struct {
	record   string
	rootName string
	fields   []taggedField
}

// NewTagged validates T's tags once, up front.
func NewTagged[T any]() (*Tagged[T], error) {
	t := reflect.TypeFor[T]()
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("tagged record %s: not a struct", t)
	}

	c := &Tagged[T]{record: t.Name()}
	var haveRoot bool
	for i := range t.NumField() {
		f := t.Field(i)
		tag, tagged := f.Tag.Lookup(TagKey)

		if f.Type == rootType {
			if !tagged || tag == "" {
				return nil, fmt.Errorf("tagged record %s: %s needs a %s tag naming the root", t, f.Name, TagKey)
			}
			c.rootName = tag
			haveRoot = true
			continue
		}
		if !f.IsExported() || tag == "-" {
			continue
		}
		if !tagged {
			return nil, fmt.Errorf("tagged record %s: field %s has no %s tag", t, f.Name, TagKey)
		}
		if f.Type.Kind() != reflect.String {
			return nil, fmt.Errorf("tagged record %s: field %s is %s, want a string kind", t, f.Name, f.Type)
		}
		path, err := splitPath(tag)
		if err != nil {
			return nil, fmt.Errorf("tagged record %s: field %s: %w", t, f.Name, err)
		}
		c.fields = append(c.fields, taggedField{index: i, name: f.Name, path: path})
	}
	if !haveRoot {
		return nil, fmt.Errorf("tagged record %s: no collect.Root field", t)
	}
	return c, nil
}

// MustTagged is NewTagged for package-level contracts.
func MustTagged[T any]() *Tagged[T] {
	c, err := NewTagged[T]()
	if err != nil {
		panic(err)
	}
	return c
}

func splitPath(tag string) ([]string, error) {
	if tag == "" {
		return nil, nil
	}
	path := strings.Split(tag, ",")
	for _, seg := range path {
		if seg == "" {
			return nil, errors.New("empty path segment")
		}
	}
	return path, nil
}

// RootName implements Contract.
func (c *Tagged[T]) RootName() string {
	return c.rootName
}

// ResolveFields implements Contract.
func (c *Tagged[T]) ResolveFields(g graph.Graph, root, _ string) (T, error) {
	var rec T
	v := reflect.ValueOf(&rec).Elem()
	r := NewFieldResolver(g, root, c.record)
	for _, f := range c.fields {
		id := r.Resolve(f.name, f.path...)
		if err := r.Err(); err != nil {
			var zero T
			return zero, err
		}
		v.Field(f.index).SetString(id)
	}
	return rec, nil
}
