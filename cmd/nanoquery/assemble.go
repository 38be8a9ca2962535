package main

import (
	"fmt"
	"os"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/arthur-debert/nanoquery/nanoquery/query"
	"github.com/arthur-debert/nanoquery/nanoquery/storage/bsonwhere"
	"github.com/arthur-debert/nanoquery/nanoquery/storage/memory"
	"github.com/arthur-debert/nanoquery/nanoquery/storage/sqlwhere"
	"github.com/arthur-debert/nanoquery/types"
)

type sqlView struct {
	SQL  string `json:"sql" yaml:"sql"`
	Args []any  `json:"args" yaml:"args"`
}

type bsonView struct {
	Filter any    `json:"filter" yaml:"filter"`
	Sort   any    `json:"sort,omitempty" yaml:"sort,omitempty"`
	Skip   *int64 `json:"skip,omitempty" yaml:"skip,omitempty"`
	Limit  *int64 `json:"limit,omitempty" yaml:"limit,omitempty"`
}

var placeholders = map[string]sq.PlaceholderFormat{
	"question": sq.Question,
	"dollar":   sq.Dollar,
	"colon":    sq.Colon,
	"at":       sq.AtP,
}

func newAssembleCmd(a *app) *cobra.Command {
	var (
		asSQL       bool
		asBSON      bool
		dataFile    string
		table       string
		placeholder string
	)

	cmd := &cobra.Command{
		Use:   "assemble <entity> [file]",
		Short: "Assemble query arguments into a finalized query",
		Long: `Assemble reads query arguments of the form

  { skip: 0, take: 20, order: {...}, filter: {...} }

from file or standard input and prints the finalized query for the entity.
With --sql or --bson the query is rendered for that storage instead, and
with --data it is executed against the records of a JSON or YAML file.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			const op = "assemble query"

			e, err := a.entity(op, args[0])
			if err != nil {
				return err
			}
			data, err := a.readInput(op, args[1:])
			if err != nil {
				return err
			}

			logger := a.logger.With("query_id", uuid.NewString())
			engine, err := a.engine(logger)
			if err != nil {
				return err
			}
			logger.Debug("assembling query", "entity", e.Name, "strict", engine.Strict())
			q, err := engine.AssembleDocument(e.Name, data)
			if err != nil {
				return WrapError(op, err)
			}

			switch {
			case asSQL:
				format, ok := placeholders[placeholder]
				if !ok {
					return &CLIError{
						Operation:   op,
						Cause:       fmt.Sprintf("unknown placeholder style %q", placeholder),
						Suggestions: []string{"Use one of: question, dollar, colon, at"},
					}
				}
				if table == "" {
					table = e.Name
				}
				b, err := sqlwhere.New(table, sqlwhere.WithJoin(sqlwhere.EntityJoins(e)), sqlwhere.WithPlaceholder(format)).Select(q)
				if err != nil {
					return WrapError("render sql", err)
				}
				sql, sqlArgs, err := b.ToSql()
				if err != nil {
					return WrapError("render sql", err)
				}
				logger.Debug("rendered sql", "sql", sql)
				if sqlArgs == nil {
					sqlArgs = []any{}
				}
				return a.render(sqlView{SQL: sql, Args: sqlArgs})

			case asBSON:
				view, err := renderBSON(q)
				if err != nil {
					return WrapError("render bson", err)
				}
				return a.render(view)

			case dataFile != "":
				records, err := loadRecords(dataFile)
				if err != nil {
					return NewInputError(op, dataFile, err)
				}
				result, err := memory.Execute(records, q)
				if err != nil {
					return WrapError("execute query", err)
				}
				logger.Debug("query executed", "records", len(records), "matched", len(result))
				if result == nil {
					result = []types.Object{}
				}
				return a.render(result)
			}

			return a.render(q)
		},
	}

	cmd.Flags().BoolVar(&asSQL, "sql", false, "render the query as a SQL SELECT")
	cmd.Flags().BoolVar(&asBSON, "bson", false, "render the query as MongoDB find arguments")
	cmd.Flags().StringVar(&dataFile, "data", "", "execute the query against the records of this file")
	cmd.Flags().StringVar(&table, "table", "", "SQL table name (default: the entity name)")
	cmd.Flags().StringVar(&placeholder, "placeholder", "dollar", "SQL placeholder style: question|dollar|colon|at")
	cmd.MarkFlagsMutuallyExclusive("sql", "bson", "data")
	return cmd
}

func renderBSON(q query.Query) (bsonView, error) {
	filterDoc, opts, err := bsonwhere.Find(q)
	if err != nil {
		return bsonView{}, err
	}

	var view bsonView
	if view.Filter, err = extJSON(filterDoc); err != nil {
		return bsonView{}, err
	}
	if opts.Sort != nil {
		if view.Sort, err = extJSON(opts.Sort); err != nil {
			return bsonView{}, err
		}
	}
	view.Skip = opts.Skip
	view.Limit = opts.Limit
	return view, nil
}

// extJSON converts a driver document to relaxed extended JSON, decoded back
// into ordered values so it renders in any output format.
func extJSON(doc any) (any, error) {
	data, err := bson.MarshalExtJSON(doc, false, false)
	if err != nil {
		return nil, err
	}
	return types.Decode(data)
}

func loadRecords(path string) ([]types.Object, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc, err := types.Decode(data)
	if err != nil {
		return nil, err
	}
	items, ok := doc.([]any)
	if !ok {
		return nil, fmt.Errorf("expected a list of records, got %T", doc)
	}
	records := make([]types.Object, 0, len(items))
	for i, item := range items {
		rec, ok := item.(types.Object)
		if !ok {
			return nil, fmt.Errorf("record %d is %T, not an object", i, item)
		}
		records = append(records, rec)
	}
	return records, nil
}
