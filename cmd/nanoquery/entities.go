package main

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

type entitySummary struct {
	Entity     string   `json:"entity" yaml:"entity"`
	Fields     int      `json:"fields" yaml:"fields"`
	Sortable   int      `json:"sortable" yaml:"sortable"`
	Filterable int      `json:"filterable" yaml:"filterable"`
	Relations  []string `json:"relations" yaml:"relations"`
}

type entityList []entitySummary

func (l entityList) Header() []string {
	return []string{"entity", "fields", "sortable", "filterable", "relations"}
}

func (l entityList) Rows() [][]string {
	rows := make([][]string, len(l))
	for i, e := range l {
		rows[i] = []string{
			e.Entity,
			strconv.Itoa(e.Fields),
			strconv.Itoa(e.Sortable),
			strconv.Itoa(e.Filterable),
			strings.Join(e.Relations, ","),
		}
	}
	return rows
}

func newEntitiesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "entities",
		Short: "List the declared entities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := a.registry()
			if err != nil {
				return err
			}

			list := entityList{}
			for _, name := range reg.Entities() {
				e, err := reg.Get(name)
				if err != nil {
					return WrapError("list entities", err)
				}
				s := entitySummary{Entity: name, Fields: len(e.Fields), Relations: []string{}}
				for _, f := range e.Fields {
					if f.Sortable {
						s.Sortable++
					}
					if f.Filterable {
						s.Filterable++
					}
				}
				for _, f := range e.RelationFields() {
					s.Relations = append(s.Relations, f.Name+"->"+f.Target)
				}
				list = append(list, s)
			}
			return a.render(list)
		},
	}
}
