package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofrs/flock"
	"github.com/google/go-cmp/cmp"

	"github.com/arthur-debert/nanoquery/nanoquery/registry"
	"github.com/arthur-debert/nanoquery/nanoquery/schema"
	"github.com/arthur-debert/nanoquery/testutil"
)

type result struct {
	stdout string
	stderr string
	err    error
}

// run executes the CLI with an isolated environment
func run(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	for _, env := range os.Environ() {
		name, _, _ := strings.Cut(env, "=")
		if strings.HasPrefix(name, "NANOQUERY_") {
			t.Setenv(name, "")
			_ = os.Unsetenv(name)
		}
	}

	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(strings.NewReader(stdin), &stdout, &stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return result{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func decodeJSON(t *testing.T, data string, v any) {
	t.Helper()
	if err := json.Unmarshal([]byte(data), v); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, data)
	}
}

func TestEntities(t *testing.T) {
	catalog := testutil.WriteCatalog(t, t.TempDir())

	res := run(t, "", "--schema", catalog, "entities")
	if res.err != nil {
		t.Fatalf("entities error = %v", res.err)
	}
	var list []entitySummary
	decodeJSON(t, res.stdout, &list)
	if len(list) != len(testutil.CatalogEntities) {
		t.Fatalf("got %d entities, want %d", len(list), len(testutil.CatalogEntities))
	}

	var order entitySummary
	for _, e := range list {
		if e.Entity == "Order" {
			order = e
		}
	}
	want := entitySummary{
		Entity:     "Order",
		Fields:     9,
		Sortable:   7,
		Filterable: 8,
		Relations:  []string{"customer->Customer", "store->Store", "lines->LineItem"},
	}
	if diff := cmp.Diff(want, order); diff != "" {
		t.Errorf("Order summary mismatch (-want +got):\n%s", diff)
	}

	t.Run("table", func(t *testing.T) {
		res := run(t, "", "--schema", catalog, "-f", "table", "entities")
		if res.err != nil {
			t.Fatal(res.err)
		}
		first := strings.SplitN(res.stdout, "\n", 2)[0]
		for _, h := range []string{"Entity", "Fields", "Sortable", "Filterable", "Relations"} {
			if !strings.Contains(first, h) {
				t.Errorf("header %q missing from %q", h, first)
			}
		}
	})
}

func TestSpec(t *testing.T) {
	catalog := testutil.WriteCatalog(t, t.TempDir())

	res := run(t, "", "-s", catalog, "spec", "Customer")
	if res.err != nil {
		t.Fatalf("spec error = %v", res.err)
	}
	var view specView
	decodeJSON(t, res.stdout, &view)

	fields := map[string]fieldView{}
	for _, f := range view.Fields {
		fields[f.Name] = f
	}
	if got := fields["isVip"].Operators; !cmp.Equal(got, []string{"eq", "ne", "isNull", "raw"}) {
		t.Errorf("isVip operators = %v", got)
	}
	if f := fields["orders"]; f.Target != "Order" || f.Sortable || !f.Filterable || f.Operators != nil {
		t.Errorf("orders field = %+v", f)
	}
	if got := fields["tier"].Values; !cmp.Equal(got, []string{"BRONZE", "SILVER", "GOLD"}) {
		t.Errorf("tier values = %v", got)
	}

	t.Run("json schema", func(t *testing.T) {
		res := run(t, "", "-s", catalog, "spec", "Order", "--json-schema")
		if res.err != nil {
			t.Fatal(res.err)
		}
		var doc map[string]any
		decodeJSON(t, res.stdout, &doc)
		if doc["title"] != "Order filter" {
			t.Errorf("title = %v", doc["title"])
		}
		defs, _ := doc["definitions"].(map[string]any)
		for _, name := range []string{"OrderFilter", "CustomerFields", "LineItemFields", "ProductFields"} {
			if _, ok := defs[name]; !ok {
				t.Errorf("definition %s missing", name)
			}
		}
	})
}

func TestCompile(t *testing.T) {
	res := run(t, `{ OR: [ { status: { eq: OPEN } }, { total: { gt: 5 }, notes: { isNull: false } } ] }`, "compile")
	if res.err != nil {
		t.Fatalf("compile error = %v", res.err)
	}
	var got any
	decodeJSON(t, res.stdout, &got)
	want := []any{
		map[string]any{"status": "OPEN"},
		map[string]any{
			"total": map[string]any{"$gt": float64(5)},
			"notes": map[string]any{"$not": map[string]any{"$isNull": true}},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("predicate mismatch (-want +got):\n%s", diff)
	}

	t.Run("from file as yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "filter.yaml")
		if err := os.WriteFile(path, []byte("id:\n  in: [a, b]\n"), 0644); err != nil {
			t.Fatal(err)
		}
		res := run(t, "", "-f", "yaml", "compile", path)
		if res.err != nil {
			t.Fatal(res.err)
		}
		if !strings.Contains(res.stdout, "$in:") {
			t.Errorf("unexpected output:\n%s", res.stdout)
		}
	})

	t.Run("empty input", func(t *testing.T) {
		res := run(t, "  ", "compile")
		var cliErr *CLIError
		if !errors.As(res.err, &cliErr) || !strings.Contains(cliErr.Error(), "cannot read standard input") {
			t.Errorf("expected input error, got %v", res.err)
		}
	})
}

const ordersArgs = `{
  skip: 20, take: 10,
  order: { total: DESC, customer: { lastName: ASC } },
  filter: { status: { eq: OPEN }, store: { city: { eq: Lisbon } } }
}`

func TestAssemble(t *testing.T) {
	catalog := testutil.WriteCatalog(t, t.TempDir())

	t.Run("query", func(t *testing.T) {
		res := run(t, ordersArgs, "-s", catalog, "assemble", "Order")
		if res.err != nil {
			t.Fatalf("assemble error = %v", res.err)
		}
		var got map[string]any
		decodeJSON(t, res.stdout, &got)
		if diff := cmp.Diff([]any{"customer"}, got["relations"]); diff != "" {
			t.Errorf("relations mismatch (-want +got):\n%s", diff)
		}
		if got["skip"] != float64(20) || got["take"] != float64(10) {
			t.Errorf("pagination = %v/%v", got["skip"], got["take"])
		}
	})

	t.Run("sql", func(t *testing.T) {
		res := run(t, ordersArgs, "-s", catalog, "assemble", "Order", "--sql")
		if res.err != nil {
			t.Fatalf("assemble --sql error = %v", res.err)
		}
		var got sqlView
		decodeJSON(t, res.stdout, &got)
		want := sqlView{
			SQL: `SELECT "Order".* FROM "Order"` +
				` LEFT JOIN "Customer" AS "customer" ON "customer"."id" = "Order"."customer_id"` +
				` LEFT JOIN "Store" AS "store" ON "store"."id" = "Order"."store_id"` +
				` WHERE ("Order"."status" = $1 AND "store"."city" = $2)` +
				` ORDER BY "Order"."total" DESC, "customer"."lastName" ASC LIMIT 10 OFFSET 20`,
			Args: []any{"OPEN", "Lisbon"},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("sql mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("sql placeholder and table", func(t *testing.T) {
		res := run(t, `{ filter: { total: { gt: 5 } } }`, "-s", catalog, "assemble", "Order", "--sql", "--table", "orders", "--placeholder", "question")
		if res.err != nil {
			t.Fatal(res.err)
		}
		var got sqlView
		decodeJSON(t, res.stdout, &got)
		if want := `SELECT "orders".* FROM "orders" WHERE "orders"."total" > ?`; got.SQL != want {
			t.Errorf("sql = %s, want %s", got.SQL, want)
		}
	})

	t.Run("bson", func(t *testing.T) {
		res := run(t, ordersArgs, "-s", catalog, "assemble", "Order", "--bson")
		if res.err != nil {
			t.Fatalf("assemble --bson error = %v", res.err)
		}
		var got map[string]any
		decodeJSON(t, res.stdout, &got)
		want := map[string]any{
			"filter": map[string]any{"status": "OPEN", "store.city": "Lisbon"},
			"sort":   map[string]any{"total": float64(-1), "customer.lastName": float64(1)},
			"skip":   float64(20),
			"limit":  float64(10),
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("bson mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("data", func(t *testing.T) {
		data := testutil.WriteOrders(t, t.TempDir())
		args := `{ order: { total: DESC }, filter: { status: { in: [OPEN, PAID] } } }`
		res := run(t, args, "-s", catalog, "assemble", "Order", "--data", data)
		if res.err != nil {
			t.Fatalf("assemble --data error = %v", res.err)
		}
		var records []map[string]any
		decodeJSON(t, res.stdout, &records)
		var ids []string
		for _, r := range records {
			ids = append(ids, r["id"].(string))
		}
		if diff := cmp.Diff([]string{"o1", "o2", "o4"}, ids); diff != "" {
			t.Errorf("ids mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("renderers are exclusive", func(t *testing.T) {
		if res := run(t, ordersArgs, "-s", catalog, "assemble", "Order", "--sql", "--bson"); res.err == nil {
			t.Error("expected error for --sql with --bson")
		}
	})

	t.Run("table format falls back to yaml", func(t *testing.T) {
		res := run(t, ordersArgs, "-s", catalog, "-f", "table", "assemble", "Order")
		if res.err != nil {
			t.Fatal(res.err)
		}
		if !strings.Contains(res.stdout, "relations:\n    - customer") && !strings.Contains(res.stdout, "relations:\n  - customer") {
			t.Errorf("expected yaml output, got:\n%s", res.stdout)
		}
	})

	t.Run("logs carry a query id", func(t *testing.T) {
		res := run(t, ordersArgs, "-s", catalog, "--log-level", "debug", "assemble", "Order")
		if res.err != nil {
			t.Fatal(res.err)
		}
		if !strings.Contains(res.stderr, "query assembled") || !strings.Contains(res.stderr, "query_id=") {
			t.Errorf("stderr = %s", res.stderr)
		}
		if !strings.Contains(res.stderr, "strict=false") {
			t.Errorf("strict mode not logged: %s", res.stderr)
		}

		res = run(t, ordersArgs, "-s", catalog, "--log-level", "debug", "--strict", "assemble", "Order")
		if res.err != nil {
			t.Fatal(res.err)
		}
		if !strings.Contains(res.stderr, "strict=true") {
			t.Errorf("strict mode not logged: %s", res.stderr)
		}
	})
}

func TestAssembleErrors(t *testing.T) {
	catalog := testutil.WriteCatalog(t, t.TempDir())

	tests := []struct {
		name      string
		stdin     string
		args      []string
		wantCause string
		wantText  string
	}{
		{
			name:      "unknown entity",
			stdin:     `{}`,
			args:      []string{"-s", catalog, "assemble", "Invoice"},
			wantCause: `unknown entity "Invoice"`,
			wantText:  "Available entities: Customer, Employee, InventoryItem",
		},
		{
			name:      "strict filter",
			stdin:     `{ filter: { status: { gt: OPEN } } }`,
			args:      []string{"-s", catalog, "--strict", "assemble", "Order"},
			wantCause: "filter does not match",
			wantText:  "--json-schema",
		},
		{
			name:      "strict order",
			stdin:     `{ order: { notes: ASC } }`,
			args:      []string{"-s", catalog, "--strict", "assemble", "Order"},
			wantCause: "order does not match",
			wantText:  "unknown sort field",
		},
		{
			name:      "rejected pagination",
			stdin:     `{ take: 0 }`,
			args:      []string{"-s", catalog, "assemble", "Order"},
			wantCause: "invalid pagination",
			wantText:  "--policy clamp",
		},
		{
			name:      "no schema",
			stdin:     `{}`,
			args:      []string{"assemble", "Order"},
			wantCause: "no schema files configured",
			wantText:  "NANOQUERY_SCHEMA",
		},
		{
			name:      "missing schema file",
			stdin:     `{}`,
			args:      []string{"-s", filepath.Join(t.TempDir(), "nope.yaml"), "entities"},
			wantCause: "schema file not found",
		},
		{
			name:      "bad configuration",
			args:      []string{"-s", catalog, "-f", "xml", "entities"},
			wantCause: "configuration error",
			wantText:  "format must be one of",
		},
		{
			name:      "unknown placeholder",
			stdin:     `{}`,
			args:      []string{"-s", catalog, "assemble", "Order", "--sql", "--placeholder", "percent"},
			wantCause: `unknown placeholder style "percent"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := run(t, tt.stdin, tt.args...)
			var cliErr *CLIError
			if !errors.As(res.err, &cliErr) {
				t.Fatalf("expected CLIError, got %v", res.err)
			}
			if !strings.Contains(cliErr.Cause, tt.wantCause) {
				t.Errorf("cause = %q, want %q", cliErr.Cause, tt.wantCause)
			}
			if tt.wantText != "" && !strings.Contains(cliErr.Error(), tt.wantText) {
				t.Errorf("error text does not mention %q:\n%s", tt.wantText, cliErr.Error())
			}
		})
	}

	t.Run("clamp policy accepts the same input", func(t *testing.T) {
		res := run(t, `{ take: 0, skip: -1 }`, "-s", catalog, "--policy", "clamp", "assemble", "Order")
		if res.err != nil {
			t.Fatalf("clamp error = %v", res.err)
		}
		var got map[string]any
		decodeJSON(t, res.stdout, &got)
		if got["skip"] != float64(0) || got["take"] != float64(1) {
			t.Errorf("clamped pagination = %v/%v", got["skip"], got["take"])
		}
	})
}

func TestExport(t *testing.T) {
	catalog := testutil.WriteCatalog(t, t.TempDir())
	dir := filepath.Join(t.TempDir(), "out")

	res := run(t, "", "-s", catalog, "export", dir)
	if res.err != nil {
		t.Fatalf("export error = %v", res.err)
	}
	var written []exportedFile
	decodeJSON(t, res.stdout, &written)
	if len(written) != len(testutil.CatalogEntities)+1 {
		t.Errorf("wrote %d files, want %d", len(written), len(testutil.CatalogEntities)+1)
	}

	data, err := os.ReadFile(filepath.Join(dir, "Shift.schema.json"))
	if err != nil {
		t.Fatal(err)
	}
	var doc map[string]any
	decodeJSON(t, string(data), &doc)
	if doc["title"] != "Shift filter" {
		t.Errorf("title = %v", doc["title"])
	}

	t.Run("merged schema reloads", func(t *testing.T) {
		reg, err := schema.LoadRegistry(registry.NewBuilder(), filepath.Join(dir, "schema.yaml"))
		if err != nil {
			t.Fatalf("LoadRegistry() error = %v", err)
		}
		want := testutil.LoadCatalog(t)
		for _, name := range want.Entities() {
			a, _ := want.Get(name)
			b, err := reg.Get(name)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(a, b); diff != "" {
				t.Errorf("%s mismatch (-want +got):\n%s", name, diff)
			}
		}
	})

	t.Run("locked directory", func(t *testing.T) {
		lock := flock.New(filepath.Join(dir, lockFileName))
		locked, err := lock.TryLock()
		if err != nil || !locked {
			t.Fatalf("failed to take lock: %v", err)
		}
		defer func() { _ = lock.Unlock() }()

		res := run(t, "", "-s", catalog, "export", dir, "--timeout", "100ms")
		var cliErr *CLIError
		if !errors.As(res.err, &cliErr) || !strings.Contains(cliErr.Cause, "locked by another export") {
			t.Errorf("expected lock error, got %v", res.err)
		}
	})
}

func TestLogFile(t *testing.T) {
	catalog := testutil.WriteCatalog(t, t.TempDir())
	logFile := filepath.Join(t.TempDir(), "logs", "nanoquery.log")

	res := run(t, `{}`, "-s", catalog, "--log-level", "debug", "--log-format", "json", "--log-file", logFile, "assemble", "Order")
	if res.err != nil {
		t.Fatal(res.err)
	}
	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"msg":"query assembled"`) || !strings.Contains(string(data), `"source"`) {
		t.Errorf("log file = %s", data)
	}
	if !strings.Contains(res.stderr, `"msg":"query assembled"`) {
		t.Errorf("stderr = %s", res.stderr)
	}
}
