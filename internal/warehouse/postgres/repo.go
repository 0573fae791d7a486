// Package postgres implements warehouse.Repository for Postgres using pgx.
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/abdullahkhizr7/Complete-ETL-Pipeline/internal/warehouse"
)

type Repo struct {
	pool *pgxpool.Pool
}

func init() {
	warehouse.Register("postgres", New)
}

func New(ctx context.Context, cfg warehouse.Config) (warehouse.Repository, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Repo{pool: pool}, nil
}

func (r *Repo) Close() { r.pool.Close() }

func (r *Repo) EnsureSchema(ctx context.Context) error {
	for _, t := range warehouse.StarSchema() {
		ddl, err := buildCreateTableSQL(t)
		if err != nil {
			return err
		}
		if _, err := r.pool.Exec(ctx, ddl); err != nil {
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
	cmd, err := r.pool.Exec(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *Repo) ReplaceRows(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM "+table); err != nil {
		return 0, err
	}

	var n int64
	if len(rows) > 0 {
		q, args := buildInsertSQL(table, columns, rows)
		cmd, err := tx.Exec(ctx, q, args...)
		if err != nil {
			return 0, err
		}
		n = cmd.RowsAffected()
	}

	return n, tx.Commit(ctx)
}

// MergeDimension applies the SCD Type-1 merge inside one transaction.
// UPDATE runs before INSERT, always: for a given staging snapshot a target
// row is either updated or inserted, never both.
func (r *Repo) MergeDimension(ctx context.Context, spec warehouse.MergeSpec, rows [][]any) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM "+spec.Staging); err != nil {
		return fmt.Errorf("clear staging %s: %w", spec.Staging, err)
	}

	if len(rows) > 0 {
		q, args := buildInsertSQL(spec.Staging, spec.Columns(), rows)
		if _, err := tx.Exec(ctx, q, args...); err != nil {
			return fmt.Errorf("load staging %s: %w", spec.Staging, err)
		}
	}

	if _, err := tx.Exec(ctx, buildMergeUpdateSQL(spec)); err != nil {
		return fmt.Errorf("merge update %s: %w", spec.Target, err)
	}
	if _, err := tx.Exec(ctx, buildMergeInsertSQL(spec)); err != nil {
		return fmt.Errorf("merge insert %s: %w", spec.Target, err)
	}

	return tx.Commit(ctx)
}

func (r *Repo) SelectKeyValue(ctx context.Context, table, keyColumn, valueColumn string) (map[int64]int64, error) {
	q := fmt.Sprintf(`SELECT %s, %s FROM %s`, pgIdent(keyColumn), pgIdent(valueColumn), table)
	rows, err := r.pool.Query(ctx, q)
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

func pgIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

func pgType(generic string) string {
	switch generic {
	case "bigint":
		return "BIGINT"
	case "float":
		return "DOUBLE PRECISION"
	default:
		return "TEXT"
	}
}

func buildCreateTableSQL(t warehouse.TableSpec) (string, error) {
	if strings.TrimSpace(t.Name) == "" {
		return "", fmt.Errorf("table name is empty")
	}

	var parts []string
	if t.PrimaryKey != nil {
		parts = append(parts, fmt.Sprintf("%s BIGSERIAL PRIMARY KEY", pgIdent(t.PrimaryKey.Name)))
	}

	for _, c := range t.Columns {
		col := fmt.Sprintf("%s %s", pgIdent(c.Name), pgType(c.Type))
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
			cols = append(cols, pgIdent(c))
		}
		parts = append(parts, fmt.Sprintf("UNIQUE (%s)", strings.Join(cols, ", ")))
	}

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n);", t.Name, strings.Join(parts, ",\n  ")), nil
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
		b.WriteString(pgIdent(c))
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
			fmt.Fprintf(&b, "$%d", p)
			args = append(args, row[j])
			p++
		}
		b.WriteString(")")
	}
	return b.String(), args
}

func buildMergeUpdateSQL(spec warehouse.MergeSpec) string {
	sets := make([]string, 0, len(spec.AttrColumns))
	for _, c := range spec.AttrColumns {
		sets = append(sets, fmt.Sprintf("%s = s.%s", pgIdent(c), pgIdent(c)))
	}
	return fmt.Sprintf(
		"UPDATE %s SET %s FROM %s AS s WHERE %s.%s = s.%s",
		spec.Target, strings.Join(sets, ", "), spec.Staging,
		spec.Target, pgIdent(spec.KeyColumn), pgIdent(spec.KeyColumn),
	)
}

func buildMergeInsertSQL(spec warehouse.MergeSpec) string {
	cols := spec.Columns()
	colList := make([]string, 0, len(cols))
	selList := make([]string, 0, len(cols))
	for _, c := range cols {
		colList = append(colList, pgIdent(c))
		selList = append(selList, "s."+pgIdent(c))
	}
	return fmt.Sprintf(
		"INSERT INTO %s (%s) SELECT %s FROM %s AS s WHERE NOT EXISTS (SELECT 1 FROM %s t WHERE t.%s = s.%s)",
		spec.Target, strings.Join(colList, ", "), strings.Join(selList, ", "), spec.Staging,
		spec.Target, pgIdent(spec.KeyColumn), pgIdent(spec.KeyColumn),
	)
}
