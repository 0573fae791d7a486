package postgres

import (
	"strings"
	"testing"

	"github.com/abdullahkhizr7/Complete-ETL-Pipeline/internal/warehouse"
)

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
		if spec.PrimaryKey != nil && !strings.Contains(ddl, "BIGSERIAL PRIMARY KEY") {
			t.Fatalf("%s DDL missing serial pk: %q", spec.Name, ddl)
		}
	}
}

func TestBuildCreateTableSQL_TypesAndConstraints(t *testing.T) {
	t.Parallel()

	var facts warehouse.TableSpec
	for _, spec := range warehouse.StarSchema() {
		if spec.Name == warehouse.TableOrders {
			facts = spec
		}
	}
	ddl, err := buildCreateTableSQL(facts)
	if err != nil {
		t.Fatalf("buildCreateTableSQL: %v", err)
	}

	for _, want := range []string{
		`"total_amount" DOUBLE PRECISION`,
		`"product_sk" BIGINT NOT NULL REFERENCES products(product_sk)`,
		`"customer_sk" BIGINT NOT NULL REFERENCES customers(customer_sk)`,
	} {
		if !strings.Contains(ddl, want) {
			t.Fatalf("fact DDL missing %q:\n%s", want, ddl)
		}
	}
}

func TestBuildInsertSQL_NumbersPlaceholdersAcrossRows(t *testing.T) {
	t.Parallel()

	q, args := buildInsertSQL("products", []string{"product_id", "name"}, [][]any{
		{int64(1), "a"},
		{int64(2), "b"},
	})
	want := `INSERT INTO products ("product_id", "name") VALUES ($1, $2), ($3, $4)`
	if q != want {
		t.Fatalf("sql = %q, want %q", q, want)
	}
	if len(args) != 4 {
		t.Fatalf("args = %d, want 4", len(args))
	}
	if args[2] != int64(2) {
		t.Fatalf("args[2] = %v, want 2", args[2])
	}
}

func TestBuildMergeSQL(t *testing.T) {
	t.Parallel()

	up := buildMergeUpdateSQL(warehouse.CustomerMerge)
	want := `UPDATE customers SET "name" = s."name", "email" = s."email", "address" = s."address" ` +
		`FROM stg_customers AS s WHERE customers."customer_id" = s."customer_id"`
	if up != want {
		t.Fatalf("update sql = %q, want %q", up, want)
	}

	ins := buildMergeInsertSQL(warehouse.CustomerMerge)
	if !strings.Contains(ins, "WHERE NOT EXISTS") {
		t.Fatalf("insert SQL missing anti-join: %q", ins)
	}
	if !strings.Contains(ins, `t."customer_id" = s."customer_id"`) {
		t.Fatalf("insert SQL missing key match: %q", ins)
	}
	if strings.Contains(ins, `"customer_sk"`) {
		t.Fatalf("insert SQL must not set the surrogate key: %q", ins)
	}
}

func TestPgIdent_EscapesQuotes(t *testing.T) {
	t.Parallel()

	if got := pgIdent(`we"ird`); got != `"we""ird"` {
		t.Fatalf("pgIdent = %q", got)
	}
}
