package api

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2/hclsimple"
)

// Schema declares the record kinds collected from spawned scenes.
// It is the load-time counterpart of tagging a Go struct.
//
// In HCL:
//
//	version = "v1"
//
//	record "turret" {
//	  root = "Armature"
//	  field "root" {}
//	  field "neck" { path = ["Bone", "Bone.Neck"] }
//	}
type Schema struct {
	// Version of the descend schema.
	Version string `json:"version" hcl:"version,optional"`
	// Records declared by this schema, in pass order.
	Records []Record `json:"records" hcl:"record,block"`
}

// Record declares one record kind.
type Record struct {
	// Kind names the record and the attachment marker that requests it.
	Kind string `json:"kind" hcl:"kind,label"`
	// Root is the Name of the hierarchy root the field paths start from.
	Root string `json:"root" hcl:"root"`
	// Fields in declaration order.
	Fields []Field `json:"fields" hcl:"field,block"`
}

// Field maps a record field onto a name path below the root.
type Field struct {
	Name string `json:"name" hcl:"name,label"`
	// Path of node names, one per level. Empty means the root itself.
	Path []string `json:"path,omitempty" hcl:"path,optional"`
}

// Record returns the declaration of kind.
func (s *Schema) Record(kind string) (Record, bool) {
	for _, r := range s.Records {
		if r.Kind == kind {
			return r, true
		}
	}
	return Record{}, false
}

// LoadSchema reads a schema file. The format follows the extension: .hcl
// or .json.
func LoadSchema(path string) (*Schema, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	return ParseSchema(path, src)
}

// ParseSchema decodes and validates src. filename selects the format and
// appears in diagnostics.
func ParseSchema(filename string, src []byte) (*Schema, error) {
	var s Schema
	switch ext := filepath.Ext(filename); ext {
	case ".hcl":
		if err := hclsimple.Decode(filename, src, nil, &s); err != nil {
			return nil, fmt.Errorf("decode schema: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(src, &s); err != nil {
			return nil, fmt.Errorf("decode schema %s: %w", filename, err)
		}
	default:
		return nil, fmt.Errorf("schema %s: unsupported extension %q (want .hcl or .json)", filename, ext)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("schema %s: %w", filename, err)
	}
	return &s, nil
}

// Validate checks that kinds are unique and non-empty, that every record
// names a root, and that field names are unique within a record.
func (s *Schema) Validate() error {
	kinds := make(map[string]bool, len(s.Records))
	for i, r := range s.Records {
		if r.Kind == "" {
			return fmt.Errorf("record %d: empty kind", i)
		}
		if kinds[r.Kind] {
			return fmt.Errorf("record %s: declared twice", r.Kind)
		}
		kinds[r.Kind] = true
		if err := r.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks a single record declaration.
func (r Record) Validate() error {
	if r.Root == "" {
		return fmt.Errorf("record %s: empty root name", r.Kind)
	}
	names := make(map[string]bool, len(r.Fields))
	for _, f := range r.Fields {
		if f.Name == "" {
			return fmt.Errorf("record %s: field with empty name", r.Kind)
		}
		if names[f.Name] {
			return fmt.Errorf("record %s: field %s declared twice", r.Kind, f.Name)
		}
		names[f.Name] = true
		for _, seg := range f.Path {
			if seg == "" {
				return fmt.Errorf("record %s: field %s: empty path segment", r.Kind, f.Name)
			}
		}
	}
	return nil
}
