package main

import (
	"strings"

	"github.com/spf13/cobra"
)

type fieldView struct {
	Name       string   `json:"name" yaml:"name"`
	Kind       string   `json:"kind" yaml:"kind"`
	Target     string   `json:"target,omitempty" yaml:"target,omitempty"`
	Sortable   bool     `json:"sortable" yaml:"sortable"`
	Filterable bool     `json:"filterable" yaml:"filterable"`
	Operators  []string `json:"operators,omitempty" yaml:"operators,omitempty"`
	Values     []string `json:"values,omitempty" yaml:"values,omitempty"`
}

type specView struct {
	Entity string      `json:"entity" yaml:"entity"`
	Fields []fieldView `json:"fields" yaml:"fields"`
}

func (v specView) Header() []string {
	return []string{"field", "kind", "target", "sort", "filter_operators"}
}

func (v specView) Rows() [][]string {
	rows := make([][]string, len(v.Fields))
	for i, f := range v.Fields {
		sort := "-"
		if f.Sortable {
			sort = "ASC|DESC"
		}
		ops := "-"
		switch {
		case f.Filterable && f.Target != "":
			ops = "nested " + f.Target + " filter"
		case f.Filterable:
			ops = strings.Join(f.Operators, ",")
		}
		rows[i] = []string{f.Name, f.Kind, f.Target, sort, ops}
	}
	return rows
}

func newSpecCmd(a *app) *cobra.Command {
	var jsonSchema bool

	cmd := &cobra.Command{
		Use:   "spec <entity>",
		Short: "Show the sort and filter specification of an entity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.entity("show spec", args[0])
			if err != nil {
				return err
			}
			filterSpec, err := a.reg.FilterSpec(e.Name)
			if err != nil {
				return WrapError("show spec", err)
			}

			if jsonSchema {
				return a.render(filterSpec.JSONSchema())
			}

			view := specView{Entity: e.Name}
			for _, d := range e.Fields {
				f := fieldView{
					Name:       d.Name,
					Kind:       d.Kind.String(),
					Target:     d.Target,
					Sortable:   d.Sortable,
					Filterable: d.Filterable,
					Values:     d.Values,
				}
				if slot, ok := filterSpec.Field(d.Name); ok && !slot.IsRelation() {
					f.Operators = slot.Operators.Names()
				}
				view.Fields = append(view.Fields, f)
			}
			return a.render(view)
		},
	}

	cmd.Flags().BoolVar(&jsonSchema, "json-schema", false, "print the JSON Schema of the entity's filter expressions")
	return cmd
}
