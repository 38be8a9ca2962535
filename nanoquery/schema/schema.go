// Package schema loads entity declarations from YAML or JSON files and
// registers them into a registry.Builder.
//
//	entities:
//	  - name: Order
//	    fields:
//	      - { name: status, kind: enum, values: [OPEN, CLOSED] }
//	      - { name: total, kind: number }
//	      - { name: notes, kind: string, sortable: false }
//	      - { name: customer, kind: relation, target: Customer }
package schema

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/arthur-debert/nanoquery/nanoquery/registry"
	"github.com/arthur-debert/nanoquery/types"
)

// File is one schema document
type File struct {
	Entities []Entity `yaml:"entities" json:"entities" validate:"required,min=1,dive"`
}

// Entity declares one entity and its fields
type Entity struct {
	Name   string  `yaml:"name" json:"name" validate:"required"`
	Fields []Field `yaml:"fields" json:"fields" validate:"dive"`
}

// Field declares one field. Sortable and Filterable default to true.
type Field struct {
	Name       string   `yaml:"name" json:"name" validate:"required"`
	Kind       string   `yaml:"kind" json:"kind" validate:"required"`
	Target     string   `yaml:"target,omitempty" json:"target,omitempty"`
	Sortable   *bool    `yaml:"sortable,omitempty" json:"sortable,omitempty"`
	Filterable *bool    `yaml:"filterable,omitempty" json:"filterable,omitempty"`
	Values     []string `yaml:"values,omitempty" json:"values,omitempty" validate:"omitempty,unique,dive,required"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		f := sl.Current().Interface().(Field)
		if kind, _ := types.ParseFieldKind(f.Kind); kind == types.KindRelation && f.Target == "" {
			sl.ReportError(f.Target, "Target", "Target", "target", "")
		}
	}, Field{})
	return v
}

// Parse decodes and validates a schema document. Unknown keys are rejected.
func Parse(data []byte) (*File, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("schema document is empty")
		}
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}

	if err := validate.Struct(&f); err != nil {
		return nil, fmt.Errorf("invalid schema: %w", describe(err))
	}
	return &f, nil
}

// Load reads and parses a schema file
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file %s: %w", path, err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Descriptor converts the declaration into a field descriptor. Kind names that
// are not recognized become types.KindUnknown.
func (f Field) Descriptor() types.FieldDescriptor {
	kind, _ := types.ParseFieldKind(f.Kind)
	d := types.FieldDescriptor{
		Name:       f.Name,
		Kind:       kind,
		Target:     f.Target,
		Sortable:   f.Sortable == nil || *f.Sortable,
		Filterable: f.Filterable == nil || *f.Filterable,
	}
	if len(f.Values) > 0 {
		d.Values = append([]string(nil), f.Values...)
	}
	return d
}

// Register declares every entity of the file on b
func (f *File) Register(b *registry.Builder) error {
	for _, e := range f.Entities {
		fields := make([]types.FieldDescriptor, 0, len(e.Fields))
		for _, field := range e.Fields {
			fields = append(fields, field.Descriptor())
		}
		if err := b.RegisterEntity(e.Name, fields); err != nil {
			return err
		}
	}
	return nil
}

// LoadRegistry loads every file into one builder and finalizes it
func LoadRegistry(b *registry.Builder, paths ...string) (*registry.Registry, error) {
	for _, path := range paths {
		f, err := Load(path)
		if err != nil {
			return nil, err
		}
		if err := f.Register(b); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	return b.FinalizeRelations()
}

// FromEntities builds a schema document describing the given entities
func FromEntities(entities []types.EntitySpec) *File {
	f := &File{}
	for _, e := range entities {
		entity := Entity{Name: e.Name}
		for _, d := range e.Fields {
			field := Field{Name: d.Name, Kind: d.Kind.String(), Target: d.Target}
			if !d.Sortable {
				field.Sortable = boolPtr(false)
			}
			if !d.Filterable {
				field.Filterable = boolPtr(false)
			}
			if len(d.Values) > 0 {
				field.Values = append([]string(nil), d.Values...)
			}
			entity.Fields = append(entity.Fields, field)
		}
		f.Entities = append(f.Entities, entity)
	}
	return f
}

func boolPtr(b bool) *bool {
	return &b
}

// describe flattens validator errors into one readable message
func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		path := strings.TrimPrefix(fe.Namespace(), "File.")
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", path))
		case "target":
			msgs = append(msgs, fmt.Sprintf("%s is required for relation fields", path))
		case "unique":
			msgs = append(msgs, fmt.Sprintf("%s must not repeat values", path))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s", path, fe.Tag()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}
