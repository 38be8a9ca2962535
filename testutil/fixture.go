package testutil

import (
	_ "embed"
	"os"
	"path/filepath"
	"testing"

	"github.com/arthur-debert/nanoquery/nanoquery/registry"
	"github.com/arthur-debert/nanoquery/nanoquery/schema"
	"github.com/arthur-debert/nanoquery/types"
)

// CatalogSchema is the schema document of the test catalog
//
//go:embed testdata/catalog.yaml
var CatalogSchema []byte

//go:embed testdata/orders.yaml
var ordersData []byte

// CatalogEntities lists the catalog entities in declaration order
var CatalogEntities = []string{
	"Store",
	"Customer",
	"Order",
	"LineItem",
	"Product",
	"InventoryItem",
	"LoyaltyAccount",
	"Employee",
	"Shift",
}

// LoadCatalog registers the catalog into a fresh builder and finalizes it
//
// Relations are circular (Order.customer / Customer.orders, Employee.manager)
// so every test that uses it goes through the full two-phase bootstrap.
func LoadCatalog(t testing.TB) *registry.Registry {
	t.Helper()

	f, err := schema.Parse(CatalogSchema)
	if err != nil {
		t.Fatalf("failed to parse catalog: %v", err)
	}
	b := registry.NewBuilder()
	if err := f.Register(b); err != nil {
		t.Fatalf("failed to register catalog: %v", err)
	}
	reg, err := b.FinalizeRelations()
	if err != nil {
		t.Fatalf("failed to finalize catalog: %v", err)
	}
	return reg
}

// WriteCatalog writes the catalog schema into dir and returns its path
func WriteCatalog(t testing.TB, dir string) string {
	t.Helper()

	path := filepath.Join(dir, "catalog.yaml")
	if err := os.WriteFile(path, CatalogSchema, 0644); err != nil {
		t.Fatalf("failed to write catalog: %v", err)
	}
	return path
}

// WriteOrders writes the sample Order records into dir and returns the path
func WriteOrders(t testing.TB, dir string) string {
	t.Helper()

	path := filepath.Join(dir, "orders.yaml")
	if err := os.WriteFile(path, ordersData, 0644); err != nil {
		t.Fatalf("failed to write orders: %v", err)
	}
	return path
}

// Orders returns the sample Order records, decoded fresh on every call.
//
//	o1 OPEN      120   Smith    (vip, GOLD)    Lisbon
//	o2 PAID       40   Adams              Porto
//	o3 SHIPPED  75.5   Jones              Lisbon
//	o4 OPEN       10   smithers (vip)     Faro    placedAt null
//	o5 CANCELLED 230   Adams              Porto
func Orders(t testing.TB) []types.Object {
	t.Helper()

	doc, err := types.Decode(ordersData)
	if err != nil {
		t.Fatalf("failed to decode orders: %v", err)
	}
	items, ok := doc.([]any)
	if !ok {
		t.Fatalf("orders fixture is %T, not a list", doc)
	}
	records := make([]types.Object, 0, len(items))
	for _, item := range items {
		rec, ok := item.(types.Object)
		if !ok {
			t.Fatalf("order record is %T, not an object", item)
		}
		records = append(records, rec)
	}
	return records
}

// IDs returns the id field of each record, in order
func IDs(records []types.Object) []string {
	ids := make([]string, len(records))
	for i, rec := range records {
		v, _ := rec.Get("id")
		ids[i], _ = v.(string)
	}
	return ids
}
