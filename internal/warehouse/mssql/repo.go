// Package mssql implements warehouse.Repository for Microsoft SQL Server.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/microsoft/go-mssqldb"

	"github.com/abdullahkhizr7/Complete-ETL-Pipeline/internal/warehouse"
)

type Repo struct {
	db *sql.DB
}

func init() {
	warehouse.Register("mssql", New)
}

func New(ctx context.Context, cfg warehouse.Config) (warehouse.Repository, error) {
	db, err := sql.Open("sqlserver", cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Repo{db: db}, nil
}

func (r *Repo) Close() { _ = r.db.Close() }

func (r *Repo) EnsureSchema(ctx context.Context) error {
	for _, t := range warehouse.StarSchema() {
		ddl, err := buildCreateTableSQL(t)
		if err != nil {
			return err
		}
		if _, err := r.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("create table %s: %w", t.Name, err)
		}
	}
	return nil
}

func (r *Repo) InsertRows(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	q, args := buildInsertSQL(table, columns, rows)
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (r *Repo) ReplaceRows(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
		return 0, err
	}

	var n int64
	if len(rows) > 0 {
		q, args := buildInsertSQL(table, columns, rows)
		res, err := tx.ExecContext(ctx, q, args...)
		if err != nil {
			return 0, err
		}
		n, _ = res.RowsAffected()
	}

	return n, tx.Commit()
}

// MergeDimension applies the SCD Type-1 merge inside one transaction.
// UPDATE runs before INSERT, always.
func (r *Repo) MergeDimension(ctx context.Context, spec warehouse.MergeSpec, rows [][]any) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+spec.Staging); err != nil {
		return fmt.Errorf("clear staging %s: %w", spec.Staging, err)
	}

	if len(rows) > 0 {
		q, args := buildInsertSQL(spec.Staging, spec.Columns(), rows)
		if _, err := tx.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("load staging %s: %w", spec.Staging, err)
		}
	}

	if _, err := tx.ExecContext(ctx, buildMergeUpdateSQL(spec)); err != nil {
		return fmt.Errorf("merge update %s: %w", spec.Target, err)
	}
	if _, err := tx.ExecContext(ctx, buildMergeInsertSQL(spec)); err != nil {
		return fmt.Errorf("merge insert %s: %w", spec.Target, err)
	}

	return tx.Commit()
}

func (r *Repo) SelectKeyValue(ctx context.Context, table, keyColumn, valueColumn string) (map[int64]int64, error) {
	q := fmt.Sprintf(`SELECT %s, %s FROM %s`, msIdent(keyColumn), msIdent(valueColumn), table)
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[int64]int64{}
	for rows.Next() {
		var k, v int64
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}

// ---- SQL builders (pure, unit-testable without a database) ----

func msIdent(id string) string {
	return "[" + strings.ReplaceAll(id, "]", "]]") + "]"
}

func msType(generic string) string {
	switch generic {
	case "bigint":
		return "BIGINT"
	case "float":
		return "FLOAT"
	default:
		// NVARCHAR(MAX) cannot participate in unique indexes; 400 is plenty
		// for order attribute columns.
		return "NVARCHAR(400)"
	}
}

// buildCreateTableSQL wraps the CREATE in an OBJECT_ID guard because SQL
// Server has no CREATE TABLE IF NOT EXISTS.
func buildCreateTableSQL(t warehouse.TableSpec) (string, error) {
	if strings.TrimSpace(t.Name) == "" {
		return "", fmt.Errorf("table name is empty")
	}

	var parts []string
	if t.PrimaryKey != nil {
		parts = append(parts, fmt.Sprintf("%s BIGINT IDENTITY(1,1) PRIMARY KEY", msIdent(t.PrimaryKey.Name)))
	}

	for _, c := range t.Columns {
		col := fmt.Sprintf("%s %s", msIdent(c.Name), msType(c.Type))
		if !c.Nullable {
			col += " NOT NULL"
		}
		if c.References != "" {
			col += " REFERENCES " + c.References
		}
		parts = append(parts, col)
	}

	for _, u := range t.Unique {
		cols := make([]string, 0, len(u))
		for _, c := range u {
			cols = append(cols, msIdent(c))
		}
		parts = append(parts, fmt.Sprintf("UNIQUE (%s)", strings.Join(cols, ", ")))
	}

	return fmt.Sprintf(
		"IF OBJECT_ID(N'%s', N'U') IS NULL CREATE TABLE %s (\n  %s\n);",
		t.Name, t.Name, strings.Join(parts, ",\n  "),
	), nil
}

func buildInsertSQL(table string, columns []string, rows [][]any) (string, []any) {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(table)
	b.WriteString(" (")
	for i, c := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(msIdent(c))
	}
	b.WriteString(") VALUES ")

	args := make([]any, 0, len(rows)*len(columns))
	p := 1
	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		for j := range columns {
			if j > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "@p%d", p)
			args = append(args, sql.Named(fmt.Sprintf("p%d", p), row[j]))
			p++
		}
		b.WriteString(")")
	}
	return b.String(), args
}

func buildMergeUpdateSQL(spec warehouse.MergeSpec) string {
	sets := make([]string, 0, len(spec.AttrColumns))
	for _, c := range spec.AttrColumns {
		sets = append(sets, fmt.Sprintf("t.%s = s.%s", msIdent(c), msIdent(c)))
	}
	return fmt.Sprintf(
		"UPDATE t SET %s FROM %s t INNER JOIN %s s ON t.%s = s.%s",
		strings.Join(sets, ", "), spec.Target, spec.Staging,
		msIdent(spec.KeyColumn), msIdent(spec.KeyColumn),
	)
}

func buildMergeInsertSQL(spec warehouse.MergeSpec) string {
	cols := spec.Columns()
	colList := make([]string, 0, len(cols))
	selList := make([]string, 0, len(cols))
	for _, c := range cols {
		colList = append(colList, msIdent(c))
		selList = append(selList, "s."+msIdent(c))
	}
	return fmt.Sprintf(
		"INSERT INTO %s (%s) SELECT %s FROM %s s WHERE NOT EXISTS (SELECT 1 FROM %s t WHERE t.%s = s.%s)",
		spec.Target, strings.Join(colList, ", "), strings.Join(selList, ", "), spec.Staging,
		spec.Target, msIdent(spec.KeyColumn), msIdent(spec.KeyColumn),
	)
}
