package collect

import (
	"fmt"
	"slices"

	"github.com/agentic-research/descend/api"
	"github.com/agentic-research/descend/pkg/graph"
)

// Record is the value a Declared contract attaches.
type Record struct {
	Kind       string       `json:"kind"`
	Attachment string       `json:"attachment"`
	Fields     []FieldValue `json:"fields"`
}

// FieldValue is one resolved field of a Record.
type FieldValue struct {
	Name string `json:"name"`
	Node string `json:"node"`
}

// Get returns the node ID resolved for field.
func (r Record) Get(field string) (string, bool) {
	i := slices.IndexFunc(r.Fields, func(f FieldValue) bool { return f.Name == field })
	if i < 0 {
		return "", false
	}
	return r.Fields[i].Node, true
}

// Declared is a Contract read from a schema at load time.
type Declared struct {
	decl api.Record
}

func NewDeclared(decl api.Record) (*Declared, error) {
	if err := decl.Validate(); err != nil {
		return nil, fmt.Errorf("declared contract: %w", err)
	}
	return &Declared{decl: decl}, nil
}

// Kind returns the declared record kind.
func (d *Declared) Kind() string {
	return d.decl.Kind
}

// RootName implements Contract.
func (d *Declared) RootName() string {
	return d.decl.Root
}

// ResolveFields implements Contract.
func (d *Declared) ResolveFields(g graph.Graph, root, attachment string) (Record, error) {
	r := NewFieldResolver(g, root, d.decl.Kind)
	rec := Record{
		Kind:       d.decl.Kind,
		Attachment: attachment,
		Fields:     make([]FieldValue, 0, len(d.decl.Fields)),
	}
	for _, f := range d.decl.Fields {
		id := r.Resolve(f.Name, f.Path...)
		if err := r.Err(); err != nil {
			return Record{}, err
		}
		rec.Fields = append(rec.Fields, FieldValue{Name: f.Name, Node: id})
	}
	return rec, nil
}

// RegisterSchema registers a Declared contract for every record in s, in
// order. passOpts holds per-kind options such as WithStrategy.
func RegisterSchema(sched *Scheduler, s *api.Schema, passOpts map[string][]PassOption) error {
	for _, decl := range s.Records {
		d, err := NewDeclared(decl)
		if err != nil {
			return err
		}
		if err := Register[Record](sched, decl.Kind, d, passOpts[decl.Kind]...); err != nil {
			return err
		}
	}
	return nil
}
