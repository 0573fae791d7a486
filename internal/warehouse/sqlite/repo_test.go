package sqlite

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/abdullahkhizr7/Complete-ETL-Pipeline/internal/warehouse"
)

func newTestRepo(t *testing.T) warehouse.Repository {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "warehouse.db")
	repo, err := New(context.Background(), warehouse.Config{Kind: "sqlite", DSN: dsn})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(repo.Close)

	if err := repo.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	return repo
}

func productKeyValues(t *testing.T, repo warehouse.Repository) map[int64]int64 {
	t.Helper()
	kv, err := repo.SelectKeyValue(context.Background(), warehouse.TableProducts, warehouse.ColProductID, warehouse.ColProductSK)
	if err != nil {
		t.Fatalf("SelectKeyValue: %v", err)
	}
	return kv
}

func TestEnsureSchema_Idempotent(t *testing.T) {
	t.Parallel()

	repo := newTestRepo(t)
	if err := repo.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("second EnsureSchema: %v", err)
	}
}

func TestInsertRows_AssignsSurrogateKeys(t *testing.T) {
	t.Parallel()

	repo := newTestRepo(t)
	ctx := context.Background()

	cols := warehouse.ProductMerge.Columns()
	n, err := repo.InsertRows(ctx, warehouse.TableProducts, cols, [][]any{
		{int64(101), "widget", "tools", 10.0},
		{int64(102), "gadget", "tools", 12.0},
	})
	if err != nil {
		t.Fatalf("InsertRows: %v", err)
	}
	if n != 2 {
		t.Fatalf("inserted = %d, want 2", n)
	}

	kv := productKeyValues(t, repo)
	if len(kv) != 2 {
		t.Fatalf("key map size = %d, want 2", len(kv))
	}
	if kv[101] == 0 || kv[102] == 0 || kv[101] == kv[102] {
		t.Fatalf("surrogate keys not distinct and non-zero: %v", kv)
	}
}

func TestInsertRows_UniqueViolationOnNonEmptyTable(t *testing.T) {
	t.Parallel()

	repo := newTestRepo(t)
	ctx := context.Background()

	cols := warehouse.ProductMerge.Columns()
	row := [][]any{{int64(101), "widget", "tools", 10.0}}
	if _, err := repo.InsertRows(ctx, warehouse.TableProducts, cols, row); err != nil {
		t.Fatalf("first InsertRows: %v", err)
	}
	if _, err := repo.InsertRows(ctx, warehouse.TableProducts, cols, row); err == nil {
		t.Fatalf("second InsertRows: want unique violation, got none")
	}
}

func TestMergeDimension_UpdatesInPlaceWithoutReassigningKeys(t *testing.T) {
	t.Parallel()

	repo := newTestRepo(t)
	ctx := context.Background()

	cols := warehouse.ProductMerge.Columns()
	if _, err := repo.InsertRows(ctx, warehouse.TableProducts, cols, [][]any{
		{int64(101), "widget", "tools", 10.0},
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	before := productKeyValues(t, repo)

	err := repo.MergeDimension(ctx, warehouse.ProductMerge, [][]any{
		{int64(101), "widget mk2", "tools", 12.0},
	})
	if err != nil {
		t.Fatalf("MergeDimension: %v", err)
	}

	after := productKeyValues(t, repo)
	if len(after) != 1 {
		t.Fatalf("row count = %d, want 1 (no duplicate for existing key)", len(after))
	}
	if after[101] != before[101] {
		t.Fatalf("surrogate key reassigned: before=%d after=%d", before[101], after[101])
	}

	name, price := readProduct(t, repo, 101)
	if name != "widget mk2" || price != 12.0 {
		t.Fatalf("attributes not overwritten: name=%q price=%v", name, price)
	}
}

func TestMergeDimension_InsertsNewKeysExactlyOnce(t *testing.T) {
	t.Parallel()

	repo := newTestRepo(t)
	ctx := context.Background()

	cols := warehouse.ProductMerge.Columns()
	if _, err := repo.InsertRows(ctx, warehouse.TableProducts, cols, [][]any{
		{int64(101), "widget", "tools", 10.0},
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	err := repo.MergeDimension(ctx, warehouse.ProductMerge, [][]any{
		{int64(101), "widget", "tools", 10.0},
		{int64(103), "doohickey", "misc", 3.0},
	})
	if err != nil {
		t.Fatalf("MergeDimension: %v", err)
	}

	kv := productKeyValues(t, repo)
	if len(kv) != 2 {
		t.Fatalf("row count = %d, want 2", len(kv))
	}
	if kv[103] == 0 {
		t.Fatalf("new key 103 not assigned a surrogate: %v", kv)
	}
}

func TestMergeDimension_IdenticalRerunIsIdempotent(t *testing.T) {
	t.Parallel()

	repo := newTestRepo(t)
	ctx := context.Background()

	batch := [][]any{
		{int64(101), "widget", "tools", 10.0},
		{int64(102), "gadget", "tools", 12.0},
	}
	if err := repo.MergeDimension(ctx, warehouse.ProductMerge, batch); err != nil {
		t.Fatalf("first merge: %v", err)
	}
	first := productKeyValues(t, repo)

	if err := repo.MergeDimension(ctx, warehouse.ProductMerge, batch); err != nil {
		t.Fatalf("second merge: %v", err)
	}
	second := productKeyValues(t, repo)

	if len(first) != len(second) {
		t.Fatalf("row count changed on identical re-run: %d -> %d", len(first), len(second))
	}
	for k, sk := range first {
		if second[k] != sk {
			t.Fatalf("key %d surrogate changed: %d -> %d", k, sk, second[k])
		}
	}
	name, price := readProduct(t, repo, 101)
	if name != "widget" || price != 10.0 {
		t.Fatalf("content changed on identical re-run: name=%q price=%v", name, price)
	}
}

func TestMergeDimension_ReplacesStagingSnapshot(t *testing.T) {
	t.Parallel()

	repo := newTestRepo(t)
	ctx := context.Background()

	// First merge leaves rows in staging; a later merge with a different
	// batch must not resurrect them.
	if err := repo.MergeDimension(ctx, warehouse.ProductMerge, [][]any{
		{int64(101), "widget", "tools", 10.0},
	}); err != nil {
		t.Fatalf("first merge: %v", err)
	}
	if err := repo.MergeDimension(ctx, warehouse.ProductMerge, [][]any{
		{int64(102), "gadget", "tools", 12.0},
	}); err != nil {
		t.Fatalf("second merge: %v", err)
	}

	kv := productKeyValues(t, repo)
	if len(kv) != 2 {
		t.Fatalf("row count = %d, want 2", len(kv))
	}
	name, price := readProduct(t, repo, 101)
	if name != "widget" || price != 10.0 {
		t.Fatalf("key 101 disturbed by unrelated merge: name=%q price=%v", name, price)
	}
}

func TestReplaceRows_ReplacesWholesale(t *testing.T) {
	t.Parallel()

	repo := newTestRepo(t)
	ctx := context.Background()

	cols := warehouse.CustomerMerge.Columns()
	if _, err := repo.InsertRows(ctx, warehouse.TableCustomers, cols, [][]any{
		{int64(55), "Ada", "ada@example.com", "1 Main St"},
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	n, err := repo.ReplaceRows(ctx, warehouse.TableCustomers, cols, [][]any{
		{int64(56), "Grace", "grace@example.com", "2 Side St"},
	})
	if err != nil {
		t.Fatalf("ReplaceRows: %v", err)
	}
	if n != 1 {
		t.Fatalf("inserted = %d, want 1", n)
	}

	kv, err := repo.SelectKeyValue(ctx, warehouse.TableCustomers, warehouse.ColCustomerID, warehouse.ColCustomerSK)
	if err != nil {
		t.Fatalf("SelectKeyValue: %v", err)
	}
	if len(kv) != 1 {
		t.Fatalf("row count = %d, want 1 after replace", len(kv))
	}
	if _, ok := kv[56]; !ok {
		t.Fatalf("replacement row missing: %v", kv)
	}
}

func readProduct(t *testing.T, repo warehouse.Repository, productID int64) (name string, price float64) {
	t.Helper()

	r := repo.(*Repo)
	row := r.db.QueryRow(`SELECT "name", "price" FROM products WHERE "product_id" = ?`, productID)
	if err := row.Scan(&name, &price); err != nil {
		t.Fatalf("read product %d: %v", productID, err)
	}
	return name, price
}

// ---- SQL builder tests (no database) ----

func TestBuildCreateTableSQL_StarSchema(t *testing.T) {
	t.Parallel()

	for _, spec := range warehouse.StarSchema() {
		ddl, err := buildCreateTableSQL(spec)
		if err != nil {
			t.Fatalf("buildCreateTableSQL(%s): %v", spec.Name, err)
		}
		if !strings.Contains(ddl, "CREATE TABLE IF NOT EXISTS "+spec.Name) {
			t.Fatalf("%s DDL missing CREATE TABLE: %q", spec.Name, ddl)
		}
		if spec.PrimaryKey != nil && !strings.Contains(ddl, "INTEGER PRIMARY KEY AUTOINCREMENT") {
			t.Fatalf("%s DDL missing auto-increment pk: %q", spec.Name, ddl)
		}
	}
}

func TestBuildMergeSQL(t *testing.T) {
	t.Parallel()

	up := buildMergeUpdateSQL(warehouse.ProductMerge)
	if !strings.Contains(up, `UPDATE products SET "name" = s."name"`) {
		t.Fatalf("update SQL: %q", up)
	}
	if !strings.Contains(up, `FROM stg_products AS s`) {
		t.Fatalf("update SQL missing staging join: %q", up)
	}

	ins := buildMergeInsertSQL(warehouse.ProductMerge)
	if !strings.Contains(ins, "WHERE NOT EXISTS") {
		t.Fatalf("insert SQL missing anti-join: %q", ins)
	}
	if !strings.Contains(ins, `t."product_id" = s."product_id"`) {
		t.Fatalf("insert SQL missing key match: %q", ins)
	}
}

func TestBuildInsertSQL_MultiRow(t *testing.T) {
	t.Parallel()

	q, args := buildInsertSQL("products", []string{"product_id", "name"}, [][]any{
		{int64(1), "a"},
		{int64(2), "b"},
	})
	if want := `INSERT INTO products ("product_id", "name") VALUES (?,?), (?,?)`; q != want {
		t.Fatalf("sql = %q, want %q", q, want)
	}
	if len(args) != 4 {
		t.Fatalf("args = %d, want 4", len(args))
	}
}
