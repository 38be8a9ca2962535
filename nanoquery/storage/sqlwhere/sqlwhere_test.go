package sqlwhere

import (
	"testing"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/go-cmp/cmp"

	"github.com/arthur-debert/nanoquery/nanoquery/filter"
	"github.com/arthur-debert/nanoquery/nanoquery/query"
	"github.com/arthur-debert/nanoquery/types"
)

func TestWhere(t *testing.T) {
	tests := []struct {
		name     string
		pred     filter.Predicate
		wantSQL  string
		wantArgs []any
	}{
		{
			name:     "fields are sorted",
			pred:     filter.Conjunction{"total": filter.Range{Op: filter.OpGt, Value: 50}, "status": "A"},
			wantSQL:  `("status" = ? AND "total" > ?)`,
			wantArgs: []any{"A", 50},
		},
		{
			name:     "single condition is not wrapped",
			pred:     filter.Conjunction{"status": "A"},
			wantSQL:  `"status" = ?`,
			wantArgs: []any{"A"},
		},
		{
			name:     "disjunction",
			pred:     filter.Disjunction{{"a": 1}, {"b": 2, "c": 3}},
			wantSQL:  `("a" = ? OR ("b" = ? AND "c" = ?))`,
			wantArgs: []any{1, 2, 3},
		},
		{
			name:     "membership",
			pred:     filter.Conjunction{"id": filter.In{Values: []any{"a", "b"}}},
			wantSQL:  `"id" IN (?,?)`,
			wantArgs: []any{"a", "b"},
		},
		{
			name:     "negated membership",
			pred:     filter.Conjunction{"id": filter.Not{Value: filter.In{Values: []any{"a"}}}},
			wantSQL:  `"id" NOT IN (?)`,
			wantArgs: []any{"a"},
		},
		{
			name:    "is null",
			pred:    filter.Conjunction{"deletedAt": filter.IsNull{}},
			wantSQL: `"deletedAt" IS NULL`,
		},
		{
			name:    "is not null",
			pred:    filter.Conjunction{"deletedAt": filter.Not{Value: filter.IsNull{}}},
			wantSQL: `"deletedAt" IS NOT NULL`,
		},
		{
			name:     "not equal",
			pred:     filter.Conjunction{"status": filter.Not{Value: "CLOSED"}},
			wantSQL:  `"status" <> ?`,
			wantArgs: []any{"CLOSED"},
		},
		{
			name:     "between",
			pred:     filter.Conjunction{"total": filter.Between{Low: 1, High: 9}},
			wantSQL:  `"total" BETWEEN ? AND ?`,
			wantArgs: []any{1, 9},
		},
		{
			name:     "patterns",
			pred:     filter.Conjunction{"a": filter.Pattern{Pattern: "x%"}, "b": filter.Pattern{Pattern: "y%", CaseInsensitive: true}},
			wantSQL:  `("a" LIKE ? AND "b" ILIKE ?)`,
			wantArgs: []any{"x%", "y%"},
		},
		{
			name:     "negated pattern",
			pred:     filter.Conjunction{"a": filter.Not{Value: filter.Pattern{Pattern: "x%"}}},
			wantSQL:  `"a" NOT LIKE ?`,
			wantArgs: []any{"x%"},
		},
		{
			name:     "negated range",
			pred:     filter.Conjunction{"total": filter.Not{Value: filter.Range{Op: filter.OpLte, Value: 5}}},
			wantSQL:  `NOT ("total" <= ?)`,
			wantArgs: []any{5},
		},
		{
			name:    "raw is written verbatim",
			pred:    filter.Conjunction{"placedAt": filter.Raw{Expr: "now()"}},
			wantSQL: `"placedAt" = now()`,
		},
		{
			name:     "array value is membership",
			pred:     filter.Conjunction{"status": []any{"A", "B"}},
			wantSQL:  `"status" IN (?,?)`,
			wantArgs: []any{"A", "B"},
		},
		{
			name:    "null value",
			pred:    filter.Conjunction{"closedAt": nil},
			wantSQL: `"closedAt" IS NULL`,
		},
		{
			name:     "relation columns are qualified",
			pred:     filter.Conjunction{"customer": filter.Conjunction{"lastName": "Smith"}},
			wantSQL:  `"customer"."lastName" = ?`,
			wantArgs: []any{"Smith"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cond, err := Where(tt.pred)
			if err != nil {
				t.Fatalf("Where() error = %v", err)
			}
			sql, args, err := cond.ToSql()
			if err != nil {
				t.Fatalf("ToSql() error = %v", err)
			}
			if sql != tt.wantSQL {
				t.Errorf("sql = %s, want %s", sql, tt.wantSQL)
			}
			if len(tt.wantArgs) == 0 && len(args) == 0 {
				return
			}
			if diff := cmp.Diff(tt.wantArgs, args); diff != "" {
				t.Errorf("args mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestWhereEmpty(t *testing.T) {
	for _, p := range []filter.Predicate{nil, filter.Conjunction{}, filter.Disjunction{}, filter.Disjunction{{"a": 1}, {}}} {
		cond, err := Where(p)
		if err != nil || cond != nil {
			t.Errorf("Where(%v) = %v, %v; want no condition", p, cond, err)
		}
	}
}

func TestWhereErrors(t *testing.T) {
	tests := []struct {
		name string
		pred filter.Predicate
	}{
		{"bad column", filter.Conjunction{`status"; --`: 1}},
		{"deep relation", filter.Conjunction{"customer": filter.Conjunction{"store": filter.Conjunction{"city": "X"}}}},
		{"raw list", filter.Conjunction{"total": filter.Raw{Expr: []any{types.NewObject("a", 1)}}}},
		{"raw object", filter.Conjunction{"total": filter.Raw{Expr: types.NewObject("gt", 1)}}},
		{"raw placeholder", filter.Conjunction{"total": filter.Raw{Expr: "coalesce(?, 0)"}}},
		{"object value", filter.Conjunction{"status": types.NewObject("a", 1, "b", 2)}},
		{"negated object value", filter.Conjunction{"status": filter.Not{Value: types.NewObject("a", 1)}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Where(tt.pred); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestSelect(t *testing.T) {
	order := types.EntitySpec{
		Name: "Order",
		Fields: []types.FieldDescriptor{
			types.Scalar("status", types.KindEnum),
			types.Scalar("total", types.KindNumber),
			types.Relation("customer", "Customer"),
			types.Relation("store", "Store"),
		},
	}

	q, err := query.Assemble(query.RawArgs{
		Skip:   query.Int(20),
		Take:   query.Int(10),
		Order:  types.NewObject("total", "DESC", "customer", types.NewObject("lastName", "ASC")),
		Filter: types.NewObject("status", types.NewObject("eq", "OPEN"), "store", types.NewObject("city", types.NewObject("eq", "Lisbon"))),
	})
	if err != nil {
		t.Fatal(err)
	}

	b, err := New("Order", WithJoin(EntityJoins(order)), WithPlaceholder(sq.Dollar)).Select(q)
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	sql, args, err := b.ToSql()
	if err != nil {
		t.Fatal(err)
	}

	want := `SELECT "Order".* FROM "Order"` +
		` LEFT JOIN "Customer" AS "customer" ON "customer"."id" = "Order"."customer_id"` +
		` LEFT JOIN "Store" AS "store" ON "store"."id" = "Order"."store_id"` +
		` WHERE ("Order"."status" = $1 AND "store"."city" = $2)` +
		` ORDER BY "Order"."total" DESC, "customer"."lastName" ASC LIMIT 10 OFFSET 20`
	if sql != want {
		t.Errorf("sql =\n%s\nwant\n%s", sql, want)
	}
	if diff := cmp.Diff([]any{"OPEN", "Lisbon"}, args); diff != "" {
		t.Errorf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestSelectDefaultJoinAndErrors(t *testing.T) {
	q, err := query.Assemble(query.RawArgs{Order: types.NewObject("customer", types.NewObject("lastName", "ASC"))})
	if err != nil {
		t.Fatal(err)
	}
	b, err := New("orders").Select(q, `"orders"."id"`)
	if err != nil {
		t.Fatal(err)
	}
	sql, _, err := b.ToSql()
	if err != nil {
		t.Fatal(err)
	}
	want := `SELECT "orders"."id" FROM "orders" LEFT JOIN "customer" ON "customer"."id" = "orders"."customer_id" ORDER BY "customer"."lastName" ASC`
	if sql != want {
		t.Errorf("sql =\n%s\nwant\n%s", sql, want)
	}

	if _, err := New("").Select(q); err == nil {
		t.Error("expected error for missing table")
	}

	bad := query.Query{Order: types.NewObject("total", "desc")}
	if _, err := New("orders").Select(bad); err == nil {
		t.Error("expected error for invalid direction")
	}

	unknown := query.Query{Relations: []string{"warehouse"}}
	if _, err := New("Order", WithJoin(EntityJoins(types.EntitySpec{Name: "Order"}))).Select(unknown); err == nil {
		t.Error("expected error for unknown relation")
	}
}
