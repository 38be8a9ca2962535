package bsonwhere

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/arthur-debert/nanoquery/nanoquery/filter"
	"github.com/arthur-debert/nanoquery/nanoquery/query"
	"github.com/arthur-debert/nanoquery/types"
)

func TestFilter(t *testing.T) {
	tests := []struct {
		name string
		pred filter.Predicate
		want bson.D
	}{
		{
			name: "empty",
			pred: filter.Conjunction{},
			want: bson.D{},
		},
		{
			name: "equality and ranges, sorted",
			pred: filter.Conjunction{"total": filter.Range{Op: filter.OpGt, Value: 50}, "status": "A"},
			want: bson.D{
				{Key: "status", Value: "A"},
				{Key: "total", Value: bson.D{{Key: "$gt", Value: 50}}},
			},
		},
		{
			name: "negations",
			pred: filter.Conjunction{
				"a": filter.Not{Value: "x"},
				"b": filter.Not{Value: filter.In{Values: []any{1, 2}}},
				"c": filter.Not{Value: filter.IsNull{}},
				"d": filter.Not{Value: filter.Range{Op: filter.OpLte, Value: 3}},
			},
			want: bson.D{
				{Key: "a", Value: bson.D{{Key: "$ne", Value: "x"}}},
				{Key: "b", Value: bson.D{{Key: "$nin", Value: bson.A{1, 2}}}},
				{Key: "c", Value: bson.D{{Key: "$exists", Value: true}, {Key: "$ne", Value: nil}}},
				{Key: "d", Value: bson.D{{Key: "$not", Value: bson.D{{Key: "$lte", Value: 3}}}}},
			},
		},
		{
			name: "membership, between and null",
			pred: filter.Conjunction{
				"id":        filter.In{Values: []any{"a"}},
				"placedAt":  filter.Between{Low: "2024-01-01", High: "2024-02-01"},
				"deletedAt": filter.IsNull{},
				"tags":      []any{"x", "y"},
			},
			want: bson.D{
				{Key: "deletedAt", Value: nil},
				{Key: "id", Value: bson.D{{Key: "$in", Value: bson.A{"a"}}}},
				{Key: "placedAt", Value: bson.D{{Key: "$gte", Value: "2024-01-01"}, {Key: "$lte", Value: "2024-02-01"}}},
				{Key: "tags", Value: bson.D{{Key: "$in", Value: bson.A{"x", "y"}}}},
			},
		},
		{
			name: "patterns",
			pred: filter.Conjunction{
				"a": filter.Pattern{Pattern: "Jo_n%"},
				"b": filter.Pattern{Pattern: "a.b%", CaseInsensitive: true},
				"c": filter.Not{Value: filter.Pattern{Pattern: "x%"}},
			},
			want: bson.D{
				{Key: "a", Value: bson.D{{Key: "$regex", Value: "^Jo.n.*$"}, {Key: "$options", Value: "s"}}},
				{Key: "b", Value: bson.D{{Key: "$regex", Value: `^a\.b.*$`}, {Key: "$options", Value: "is"}}},
				{Key: "c", Value: bson.D{{Key: "$not", Value: primitive.Regex{Pattern: "^x.*$", Options: "s"}}}},
			},
		},
		{
			name: "relations become dotted paths",
			pred: filter.Conjunction{"customer": filter.Conjunction{"lastName": "Smith", "store": filter.Conjunction{"city": "Porto"}}},
			want: bson.D{
				{Key: "customer.lastName", Value: "Smith"},
				{Key: "customer.store.city", Value: "Porto"},
			},
		},
		{
			name: "raw operator document is forwarded",
			pred: filter.Conjunction{"qty": filter.Raw{Expr: types.NewObject("$mod", []any{4, 0})}},
			want: bson.D{{Key: "qty", Value: bson.D{{Key: "$mod", Value: bson.A{4, 0}}}}},
		},
		{
			name: "disjunction",
			pred: filter.Disjunction{{"a": 1}, {"b": 2}},
			want: bson.D{{Key: "$or", Value: bson.A{
				bson.D{{Key: "a", Value: 1}},
				bson.D{{Key: "b", Value: 2}},
			}}},
		},
		{
			name: "disjunction with an empty branch matches everything",
			pred: filter.Disjunction{{"a": 1}, {}},
			want: bson.D{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Filter(tt.pred)
			if err != nil {
				t.Fatalf("Filter() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Filter() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFilterErrors(t *testing.T) {
	tests := []struct {
		name string
		pred filter.Predicate
	}{
		{"operator injection", filter.Conjunction{"$where": "1"}},
		{"dotted field", filter.Conjunction{"a.b": 1}},
		{"raw string", filter.Conjunction{"a": filter.Raw{Expr: "this.a > 1"}}},
		{"non string pattern", filter.Conjunction{"a": filter.Pattern{Pattern: 5}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Filter(tt.pred); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestFilterDocumentMarshals(t *testing.T) {
	doc, err := Filter(filter.Conjunction{"name": filter.Pattern{Pattern: "A%", CaseInsensitive: true}})
	if err != nil {
		t.Fatal(err)
	}
	data, err := bson.MarshalExtJSON(doc, false, false)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"name":{"$regex":"^A.*$","$options":"is"}}`
	if string(data) != want {
		t.Errorf("extjson = %s, want %s", data, want)
	}
}

func TestFind(t *testing.T) {
	q, err := query.Assemble(query.RawArgs{
		Skip:   query.Int(5),
		Take:   query.Int(25),
		Order:  types.NewObject("total", "DESC", "customer", types.NewObject("lastName", "ASC")),
		Filter: types.NewObject("status", types.NewObject("eq", "OPEN")),
	})
	if err != nil {
		t.Fatal(err)
	}

	doc, opts, err := Find(q)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(bson.D{{Key: "status", Value: "OPEN"}}, doc); diff != "" {
		t.Errorf("filter mismatch (-want +got):\n%s", diff)
	}
	wantSort := bson.D{{Key: "total", Value: -1}, {Key: "customer.lastName", Value: 1}}
	if diff := cmp.Diff(wantSort, opts.Sort); diff != "" {
		t.Errorf("sort mismatch (-want +got):\n%s", diff)
	}
	if opts.Skip == nil || *opts.Skip != 5 {
		t.Errorf("skip = %v, want 5", opts.Skip)
	}
	if opts.Limit == nil || *opts.Limit != 25 {
		t.Errorf("limit = %v, want 25", opts.Limit)
	}
}

func TestSortErrors(t *testing.T) {
	if _, err := Sort(types.NewObject("total", "down")); err == nil {
		t.Error("expected error for invalid direction")
	}
	if _, err := Sort(types.NewObject("total", 1)); err == nil {
		t.Error("expected error for numeric direction")
	}
}
